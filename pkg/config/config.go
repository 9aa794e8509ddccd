// Package config snapshots the A7105 register file to JSON and restores it.
package config

import (
	"fmt"
	"time"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/registers"
)

// Version is the snapshot format version.
const Version = "1.0"

// DeviceConfig holds the register state of one radio
type DeviceConfig struct {
	Version   string                `json:"version"`
	Backend   string                `json:"backend"`
	Device    string                `json:"device,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
	ChipID    string                `json:"chip_id"`
	Registers registers.RegisterMap `json:"registers"`
}

// DumpFromDevice reads all registers. The chip is put in standby first so
// the read does not race an RX in progress, and is left there.
func DumpFromDevice(bus *a7105.Bus) (*DeviceConfig, error) {
	if err := bus.Strobe(a7105.StrobeStandby); err != nil {
		return nil, fmt.Errorf("failed to set standby: %w", err)
	}

	registerMap, err := registers.ReadAll(bus)
	if err != nil {
		return nil, fmt.Errorf("failed to read registers: %w", err)
	}

	return &DeviceConfig{
		Version:   Version,
		Timestamp: time.Now(),
		ChipID:    fmt.Sprintf("%02X%02X%02X%02X", registerMap.ID[0], registerMap.ID[1], registerMap.ID[2], registerMap.ID[3]),
		Registers: *registerMap,
	}, nil
}

// ApplyToDevice writes the restorable registers and the ID back. Status,
// calibration trigger and FIFO registers are skipped.
func ApplyToDevice(bus *a7105.Bus, configuration *DeviceConfig) error {
	if err := bus.Strobe(a7105.StrobeStandby); err != nil {
		return fmt.Errorf("failed to set standby: %w", err)
	}

	if err := registers.WriteAll(bus, &configuration.Registers); err != nil {
		return fmt.Errorf("failed to write registers: %w", err)
	}

	return nil
}

// ChannelMHz returns the frequency of the programmed channel
func (c *DeviceConfig) ChannelMHz() float64 {
	return registers.ChannelFrequency(c.Registers.PLL1)
}

// ModeControl decodes register 0x01
func (c *DeviceConfig) ModeControl() registers.ModeControl {
	return registers.DecodeModeControl(c.Registers.ModeControl)
}

// Code1 decodes register 0x1F
func (c *DeviceConfig) Code1() registers.Code1 {
	return registers.DecodeCode1(c.Registers.Code1)
}

// ModeStatusString returns a human-readable mode status
func (c *DeviceConfig) ModeStatusString() string {
	return registers.DecodeModeStatus(c.Registers.Mode).String()
}
