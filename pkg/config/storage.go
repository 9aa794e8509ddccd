package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write encodes a snapshot as indented JSON.
func Write(w io.Writer, configuration *DeviceConfig) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(configuration); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Read decodes a snapshot and checks its version and chip ID. Unknown fields
// are rejected so a mistyped register name is not silently dropped.
func Read(r io.Reader) (*DeviceConfig, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var configuration DeviceConfig
	if err := dec.Decode(&configuration); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if configuration.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %q", configuration.Version)
	}
	id := configuration.Registers.ID
	if want := fmt.Sprintf("%02X%02X%02X%02X", id[0], id[1], id[2], id[3]); configuration.ChipID != "" && configuration.ChipID != want {
		return nil, fmt.Errorf("chip_id %s does not match ID register %s", configuration.ChipID, want)
	}
	return &configuration, nil
}

// SaveToFile writes a snapshot next to path and renames it into place, so
// an interrupted save never leaves a truncated file.
func SaveToFile(configuration *DeviceConfig, path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, configuration); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadFromFile reads a snapshot written by SaveToFile
func LoadFromFile(path string) (*DeviceConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// GetConfigPath returns the default snapshot location for a named radio
func GetConfigPath(name string) string {
	return filepath.Join("etc", "a7105", name+".json")
}
