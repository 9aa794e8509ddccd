package registers

import (
	"fmt"

	"github.com/herlein/goflysky/pkg/a7105"
)

// Write encodes and writes a single register value.
func Write(bus *a7105.Bus, r Writable) error {
	if err := bus.WriteReg(r.Addr(), r.Encode()); err != nil {
		return fmt.Errorf("failed to write %s: %w", Name(r.Addr()), err)
	}
	return nil
}

// ReadModeStatus reads and decodes the mode register.
func ReadModeStatus(bus *a7105.Bus) (ModeStatus, error) {
	v, err := bus.ReadReg(RegMode)
	if err != nil {
		return ModeStatus{}, fmt.Errorf("failed to read mode status: %w", err)
	}
	return DecodeModeStatus(v), nil
}

// SetChannel programs the PLL channel register.
func SetChannel(bus *a7105.Bus, ch uint8) error {
	return Write(bus, Channel(ch))
}

// GetChannel reads back the PLL channel register.
func GetChannel(bus *a7105.Bus) (uint8, error) {
	v, err := bus.ReadReg(RegPLL1)
	if err != nil {
		return 0, fmt.Errorf("failed to read channel: %w", err)
	}
	return v, nil
}

// ReadRSSI reads the RSSI ADC.
func ReadRSSI(bus *a7105.Bus) (RSSI, error) {
	v, err := bus.ReadReg(RegRSSI)
	if err != nil {
		return 0, fmt.Errorf("failed to read RSSI: %w", err)
	}
	return RSSI(v), nil
}

// ReadVCOBandResult reads and decodes the VCO band calibration result.
func ReadVCOBandResult(bus *a7105.Bus) (VCOBandResult, uint8, error) {
	v, err := bus.ReadReg(RegVCOBandCal1)
	if err != nil {
		return VCOBandResult{}, 0, fmt.Errorf("failed to read VCO band result: %w", err)
	}
	return DecodeVCOBandResult(v), v, nil
}

// ReadAll reads every register except the FIFO data port into a RegisterMap.
func ReadAll(bus *a7105.Bus) (*RegisterMap, error) {
	reg := &RegisterMap{}
	for _, addr := range Addresses() {
		v, err := bus.ReadReg(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", Name(addr), err)
		}
		reg.Set(addr, v)
	}

	id := make([]byte, 4)
	if err := bus.Read(RegID, id); err != nil {
		return nil, fmt.Errorf("failed to read ID: %w", err)
	}
	copy(reg.ID[:], id)
	return reg, nil
}

// WriteAll writes every restorable register held in reg, then the ID.
func WriteAll(bus *a7105.Bus, reg *RegisterMap) error {
	for _, addr := range Addresses() {
		if !Restorable(addr) {
			continue
		}
		v, _ := reg.Get(addr)
		if err := bus.WriteReg(addr, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", Name(addr), err)
		}
	}
	if err := bus.Write(RegID, reg.ID[:]); err != nil {
		return fmt.Errorf("failed to write ID: %w", err)
	}
	return nil
}
