// Package profiles provides register programming tables for the A7105.
// A profile is the ordered list of register writes applied after a reset.
package profiles

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/registers"
)

// RegisterWrite is one step of a profile.
type RegisterWrite struct {
	Addr  uint8
	Value []byte
}

type registerWriteJSON struct {
	Addr  string `json:"addr"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// MarshalJSON writes the address and value as hex strings.
func (w RegisterWrite) MarshalJSON() ([]byte, error) {
	return json.Marshal(registerWriteJSON{
		Addr:  fmt.Sprintf("0x%02X", w.Addr),
		Name:  registers.Name(w.Addr),
		Value: hex.EncodeToString(w.Value),
	})
}

// UnmarshalJSON accepts the format written by MarshalJSON.
func (w *RegisterWrite) UnmarshalJSON(data []byte) error {
	var raw registerWriteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var addr uint8
	if _, err := fmt.Sscanf(raw.Addr, "0x%x", &addr); err != nil {
		return fmt.Errorf("invalid register address %q: %w", raw.Addr, err)
	}
	value, err := hex.DecodeString(raw.Value)
	if err != nil {
		return fmt.Errorf("invalid value for 0x%02X: %w", addr, err)
	}
	w.Addr = addr
	w.Value = value
	return nil
}

// Profile is a named register programming table.
type Profile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Writes      []RegisterWrite `json:"writes"`
}

// ProfileConfig is the JSON format for storing a profile
type ProfileConfig struct {
	Profile   Profile   `json:"profile"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks addresses and widths.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if len(p.Writes) == 0 {
		return fmt.Errorf("profile %s has no register writes", p.Name)
	}
	for i, w := range p.Writes {
		if w.Addr > a7105.MaxAddr {
			return fmt.Errorf("profile %s step %d: %w", p.Name, i, a7105.ErrInvalidAddress)
		}
		if w.Addr == registers.RegMode || w.Addr == registers.RegFIFOData {
			return fmt.Errorf("profile %s step %d: %s is not a configuration register", p.Name, i, registers.Name(w.Addr))
		}
		if len(w.Value) != registers.Width(w.Addr) {
			return fmt.Errorf("profile %s step %d: %s takes %d bytes, got %d",
				p.Name, i, registers.Name(w.Addr), registers.Width(w.Addr), len(w.Value))
		}
	}
	return nil
}

// Apply writes every step in order.
func (p *Profile) Apply(bus *a7105.Bus) error {
	for _, w := range p.Writes {
		if err := bus.Write(w.Addr, w.Value); err != nil {
			return fmt.Errorf("profile %s: failed to write %s: %w", p.Name, registers.Name(w.Addr), err)
		}
	}
	return nil
}

// ID returns the identity the profile programs, if any.
func (p *Profile) ID() (uint32, bool) {
	for _, w := range p.Writes {
		if w.Addr == registers.RegID && len(w.Value) == 4 {
			return uint32(w.Value[0])<<24 | uint32(w.Value[1])<<16 | uint32(w.Value[2])<<8 | uint32(w.Value[3]), true
		}
	}
	return 0, false
}

// Value returns the last value the profile writes to addr.
func (p *Profile) Value(addr uint8) ([]byte, bool) {
	var out []byte
	for _, w := range p.Writes {
		if w.Addr == addr {
			out = w.Value
		}
	}
	return out, out != nil
}

// ToRegisters folds the profile into a register snapshot.
func (p *Profile) ToRegisters() *registers.RegisterMap {
	reg := &registers.RegisterMap{}
	for _, w := range p.Writes {
		if w.Addr == registers.RegID {
			copy(reg.ID[:], w.Value)
			continue
		}
		reg.Set(w.Addr, w.Value[0])
	}
	return reg
}

// SaveToFile saves a profile to a JSON file
func (p *Profile) SaveToFile(path string) error {
	config := ProfileConfig{
		Profile:   *p,
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := EnsureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadProfileFromFile loads a profile from a JSON file
func LoadProfileFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var config ProfileConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if err := config.Profile.Validate(); err != nil {
		return nil, err
	}
	return &config.Profile, nil
}

// EnsureDir ensures the directory for a file path exists
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}

var registry = map[string]func() *Profile{
	NameAFHDS2A:     AFHDS2A,
	NameAFHDS2ALite: AFHDS2ALite,
}

// ByName returns a fresh copy of a built-in profile.
func ByName(name string) (*Profile, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (have %v)", name, Names())
	}
	return f(), nil
}

// Resolve accepts a built-in profile name or a path to a saved profile.
func Resolve(nameOrPath string) (*Profile, error) {
	if nameOrPath == "" {
		return AFHDS2A(), nil
	}
	if _, ok := registry[nameOrPath]; ok {
		return ByName(nameOrPath)
	}
	return LoadProfileFromFile(nameOrPath)
}

// Names lists the built-in profiles.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
