package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flynn/json5"

	"github.com/herlein/goflysky/pkg/channels"
)

// ScanConfig defines runtime scanning parameters
type ScanConfig struct {
	// Candidate channels, walked in order with wrap
	Channels channels.List

	// Attempt policy
	IdleAttempts int           // attempts without a packet before advancing
	ReadyTimeout time.Duration // data-ready wait per attempt
	Dwell        time.Duration // pause between attempts

	// Transmitter tracking
	HoldMax       int // Maximum hold counter value
	LostThreshold int // Counter value when a transmitter is considered lost

	// Callbacks (optional, not serialized)
	OnTransmitterDetected func(info *TransmitterInfo) `json:"-"`
	OnTransmitterLost     func(info *TransmitterInfo) `json:"-"`
}

// DefaultConfig returns a ScanConfig with default values
func DefaultConfig() *ScanConfig {
	return &ScanConfig{
		Channels:      append(channels.List(nil), channels.BindChannels...),
		IdleAttempts:  DefaultIdleAttempts,
		ReadyTimeout:  DefaultReadyTimeout,
		Dwell:         DefaultDwell,
		HoldMax:       DefaultHoldMax,
		LostThreshold: DefaultLostThreshold,
	}
}

// Validate checks the configuration for errors
func (c *ScanConfig) Validate() error {
	if err := c.Channels.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.IdleAttempts < 1 {
		return fmt.Errorf("%w: idle attempts must be at least 1", ErrInvalidConfig)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("%w: ready timeout must be positive", ErrInvalidConfig)
	}
	if c.Dwell < 0 {
		return fmt.Errorf("%w: dwell must not be negative", ErrInvalidConfig)
	}
	if c.LostThreshold >= c.HoldMax && c.HoldMax > 0 {
		return fmt.Errorf("%w: lost threshold must be below hold max", ErrInvalidConfig)
	}
	return nil
}

// --- JSON5 Configuration File Types ---

// ConfigFile is the receiver configuration file. It is read as JSON5 so it
// may carry comments and trailing commas.
type ConfigFile struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version"`
	Created     time.Time `json:"created"`

	Backend BackendJSON `json:"backend"`
	Profile string      `json:"profile,omitempty"` // built-in name or path

	Scan    ScanParametersJSON `json:"scan"`
	Publish PublishJSON        `json:"publish"`
}

// BackendJSON selects the hardware path to the radio
type BackendJSON struct {
	Kind    string `json:"kind"`             // sim, ch341, spidev
	Device  string `json:"device,omitempty"` // ch341 selector
	SPI     string `json:"spi,omitempty"`    // spidev port name
	CS      string `json:"cs,omitempty"`     // chip select GPIO
	Ready   string `json:"ready,omitempty"`  // data-ready pin
	SpeedHz int64  `json:"speed_hz,omitempty"`
}

// ScanParametersJSON holds the channel list and attempt policy
type ScanParametersJSON struct {
	Channels       string `json:"channels"` // see channels.Parse
	IdleAttempts   int    `json:"idle_attempts"`
	ReadyTimeoutMs uint32 `json:"ready_timeout_ms"`
	DwellMs        uint32 `json:"dwell_ms"`
	HoldMax        int    `json:"hold_max"`
	LostThreshold  int    `json:"lost_threshold"`
}

// PublishJSON names the packet sinks
type PublishJSON struct {
	MQTTURL   string `json:"mqtt_url,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty"`
}

// DefaultConfigFile returns a config for the bind channels on the simulator
func DefaultConfigFile() *ConfigFile {
	return &ConfigFile{
		Name:    "default",
		Version: ConfigVersion,
		Backend: BackendJSON{Kind: "sim"},
		Scan: ScanParametersJSON{
			Channels:       "bind",
			IdleAttempts:   DefaultIdleAttempts,
			ReadyTimeoutMs: uint32(DefaultReadyTimeout / time.Millisecond),
			HoldMax:        DefaultHoldMax,
			LostThreshold:  DefaultLostThreshold,
		},
	}
}

// LoadConfigFile loads receiver configuration from a JSON5 file
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ConfigFile
	if err := json5.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration file for errors
func (c *ConfigFile) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: %s", ErrConfigVersion, c.Version)
	}
	if _, err := channels.Parse(c.Scan.Channels); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Scan.IdleAttempts < 0 {
		return fmt.Errorf("%w: idle_attempts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ToScanConfig converts the file to a runtime ScanConfig
func (c *ConfigFile) ToScanConfig() (*ScanConfig, error) {
	list, err := channels.Parse(c.Scan.Channels)
	if err != nil {
		return nil, err
	}

	idle := c.Scan.IdleAttempts
	if idle == 0 {
		idle = DefaultIdleAttempts
	}

	readyTimeout := time.Duration(c.Scan.ReadyTimeoutMs) * time.Millisecond
	if readyTimeout == 0 {
		readyTimeout = DefaultReadyTimeout
	}

	holdMax := c.Scan.HoldMax
	if holdMax == 0 {
		holdMax = DefaultHoldMax
	}

	lostThreshold := c.Scan.LostThreshold
	if lostThreshold == 0 {
		lostThreshold = DefaultLostThreshold
	}

	return &ScanConfig{
		Channels:      list,
		IdleAttempts:  idle,
		ReadyTimeout:  readyTimeout,
		Dwell:         time.Duration(c.Scan.DwellMs) * time.Millisecond,
		HoldMax:       holdMax,
		LostThreshold: lostThreshold,
	}, nil
}

// SaveConfigFile saves receiver configuration. The output is plain JSON,
// which is also valid JSON5.
func SaveConfigFile(config *ConfigFile, path string) error {
	config.Created = time.Now()

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
