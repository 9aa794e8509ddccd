package registers

import "fmt"

// Register is anything bound to a fixed address.
type Register interface {
	Addr() uint8
}

// Writable is a register value that can be encoded for a write.
type Writable interface {
	Register
	Encode() uint8
}

// ModeStatus is the read side of register 0x00.
type ModeStatus struct {
	FECError     bool // FECF
	CRCError     bool // CRCF
	ChipEnabled  bool // CER
	XtalEnabled  bool // XER
	PLLEnabled   bool // PLLER
	ReceiveState bool // TRSR: set in RX, clear in TX
	TRXEnabled   bool // TRER
}

// Mode status bits
const (
	ModeFECF  = 0x40
	ModeCRCF  = 0x20
	ModeCER   = 0x10
	ModeXER   = 0x08
	ModePLLER = 0x04
	ModeTRSR  = 0x02
	ModeTRER  = 0x01

	// ModeErrorFlags are the bits that invalidate a received frame
	ModeErrorFlags = ModeFECF | ModeCRCF
)

func (ModeStatus) Addr() uint8 { return RegMode }

// DecodeModeStatus splits a mode register read into flags.
func DecodeModeStatus(v uint8) ModeStatus {
	return ModeStatus{
		FECError:     v&ModeFECF != 0,
		CRCError:     v&ModeCRCF != 0,
		ChipEnabled:  v&ModeCER != 0,
		XtalEnabled:  v&ModeXER != 0,
		PLLEnabled:   v&ModePLLER != 0,
		ReceiveState: v&ModeTRSR != 0,
		TRXEnabled:   v&ModeTRER != 0,
	}
}

// Encode reassembles the raw register byte.
func (m ModeStatus) Encode() uint8 {
	var v uint8
	if m.FECError {
		v |= ModeFECF
	}
	if m.CRCError {
		v |= ModeCRCF
	}
	if m.ChipEnabled {
		v |= ModeCER
	}
	if m.XtalEnabled {
		v |= ModeXER
	}
	if m.PLLEnabled {
		v |= ModePLLER
	}
	if m.ReceiveState {
		v |= ModeTRSR
	}
	if m.TRXEnabled {
		v |= ModeTRER
	}
	return v
}

// HasErrors reports a CRC or FEC failure on the last frame.
func (m ModeStatus) HasErrors() bool {
	return m.FECError || m.CRCError
}

func (m ModeStatus) String() string {
	return fmt.Sprintf("mode{fec_err=%t crc_err=%t cer=%t xer=%t pll=%t rx=%t trx=%t}",
		m.FECError, m.CRCError, m.ChipEnabled, m.XtalEnabled, m.PLLEnabled, m.ReceiveState, m.TRXEnabled)
}

// DataMode selects how payload bytes move between host and radio.
type DataMode uint8

const (
	DataModeDirect DataMode = 0
	DataModeFIFO   DataMode = 1
)

// ModeControl is register 0x01.
type ModeControl struct {
	DirectDataPinControl bool // DDPC
	AutoRSSI             bool // ARSSI
	AutoIF               bool // AIF
	CarrierDetect        bool // CD
	WakeWhileSleep       bool // WWSE
	FIFOMode             bool // FMT
	DataMode             DataMode
	ADCMeasure           bool // ADCM
}

func (ModeControl) Addr() uint8 { return RegModeControl }

// DecodeModeControl decodes register 0x01.
func DecodeModeControl(v uint8) ModeControl {
	return ModeControl{
		DirectDataPinControl: v&0x80 != 0,
		AutoRSSI:             v&0x40 != 0,
		AutoIF:               v&0x20 != 0,
		CarrierDetect:        v&0x10 != 0,
		WakeWhileSleep:       v&0x08 != 0,
		FIFOMode:             v&0x04 != 0,
		DataMode:             DataMode((v >> 1) & 0x01),
		ADCMeasure:           v&0x01 != 0,
	}
}

// Encode returns the register byte.
func (m ModeControl) Encode() uint8 {
	v := uint8(m.DataMode&0x01) << 1
	v |= bit(m.DirectDataPinControl, 7) | bit(m.AutoRSSI, 6) | bit(m.AutoIF, 5) |
		bit(m.CarrierDetect, 4) | bit(m.WakeWhileSleep, 3) | bit(m.FIFOMode, 2) | bit(m.ADCMeasure, 0)
	return v
}

// Calibration control bits (0x02). Each clears itself when its calibration finishes.
const (
	CalibrateVCOCurrent = 0x04
	CalibrateVCOBank    = 0x02
	CalibrateIFFilter   = 0x01
)

// CalibrationControl is register 0x02.
type CalibrationControl struct {
	VCOCurrent bool
	VCOBank    bool
	IFFilter   bool
}

func (CalibrationControl) Addr() uint8 { return RegCalibration }

// DecodeCalibrationControl decodes register 0x02.
func DecodeCalibrationControl(v uint8) CalibrationControl {
	return CalibrationControl{
		VCOCurrent: v&CalibrateVCOCurrent != 0,
		VCOBank:    v&CalibrateVCOBank != 0,
		IFFilter:   v&CalibrateIFFilter != 0,
	}
}

// Encode returns the register byte.
func (c CalibrationControl) Encode() uint8 {
	return bit(c.VCOCurrent, 2) | bit(c.VCOBank, 1) | bit(c.IFFilter, 0)
}

// FIFO1 holds the FIFO end pointer, one less than the frame length.
type FIFO1 struct {
	EndPointer uint8
}

func (FIFO1) Addr() uint8 { return RegFIFO1 }

// Encode returns the register byte.
func (f FIFO1) Encode() uint8 { return f.EndPointer }

// FIFO2 holds the FIFO segment and margin.
type FIFO2 struct {
	Segment uint8
	Margin  uint8
}

func (FIFO2) Addr() uint8 { return RegFIFO2 }

// DecodeFIFO2 decodes register 0x04.
func DecodeFIFO2(v uint8) FIFO2 {
	return FIFO2{Segment: v & 0x3F, Margin: v >> 6}
}

// Encode returns the register byte.
func (f FIFO2) Encode() uint8 {
	return f.Segment&0x3F | (f.Margin&0x03)<<6
}

// PinFunction selects what a GIO pin outputs.
type PinFunction uint8

const (
	PinWTR            PinFunction = 0x00 // high while TX or RX is in progress
	PinFrameSync      PinFunction = 0x04 // TX end of access code / RX frame sync
	PinCarrierDetect  PinFunction = 0x08
	PinPreambleDetect PinFunction = 0x0C
	PinDefault        PinFunction = 0x10
	PinDemodInput     PinFunction = 0x14
	PinSDO            PinFunction = 0x18
	PinRXD            PinFunction = 0x20
	PinTXD            PinFunction = 0x24
	PinDemodExtInput  PinFunction = 0x28
	PinExtFrameSyncIn PinFunction = 0x2C
	PinTRXD           PinFunction = 0x38
)

const pinFunctionMask = 0x3C

var pinFunctionNames = map[PinFunction]string{
	PinWTR: "WTR", PinFrameSync: "FSYNC", PinCarrierDetect: "CD", PinPreambleDetect: "PMDO",
	PinDefault: "DEFAULT", PinDemodInput: "DMII", PinSDO: "SDO", PinRXD: "RXD", PinTXD: "TXD",
	PinDemodExtInput: "DMEXT", PinExtFrameSyncIn: "EXT_FSYNC", PinTRXD: "TRXD",
}

func (p PinFunction) String() string {
	if n, ok := pinFunctionNames[p]; ok {
		return n
	}
	return fmt.Sprintf("PIN(0x%02X)", uint8(p))
}

// GIOControl is register 0x0B (GIO1) or 0x0C (GIO2).
type GIOControl struct {
	Pin          uint8 // 1 or 2
	Function     PinFunction
	Invert       bool
	OutputEnable bool
}

func (g GIOControl) Addr() uint8 {
	if g.Pin == 2 {
		return RegGIO2
	}
	return RegGIO1
}

// DecodeGIOControl decodes a GIO control byte for pin 1 or 2.
func DecodeGIOControl(pin, v uint8) GIOControl {
	return GIOControl{
		Pin:          pin,
		Function:     PinFunction(v & pinFunctionMask),
		Invert:       v&0x02 != 0,
		OutputEnable: v&0x01 != 0,
	}
}

// Encode returns the register byte.
func (g GIOControl) Encode() uint8 {
	return uint8(g.Function)&pinFunctionMask | bit(g.Invert, 1) | bit(g.OutputEnable, 0)
}

// Channel is PLL register 1.
type Channel uint8

func (Channel) Addr() uint8 { return RegPLL1 }

// Encode returns the register byte.
func (c Channel) Encode() uint8 { return uint8(c) }

// RSSI is the read side of register 0x1D.
type RSSI uint8

func (RSSI) Addr() uint8 { return RegRSSI }

// Voltage converts the ADC reading to volts.
func (r RSSI) Voltage() float64 {
	return float64(r) * 1.2 / 256
}

// CarrierThreshold is the write side of register 0x1D.
type CarrierThreshold uint8

func (CarrierThreshold) Addr() uint8 { return RegRSSI }

// Encode returns the register byte.
func (c CarrierThreshold) Encode() uint8 { return uint8(c) }

// Code1 is register 0x1F.
type Code1 struct {
	Whitening      bool
	FEC            bool
	CRC            bool
	IDLength4      bool // false selects a 2 byte ID
	PreambleLength uint8
}

func (Code1) Addr() uint8 { return RegCode1 }

// DecodeCode1 decodes register 0x1F.
func DecodeCode1(v uint8) Code1 {
	return Code1{
		Whitening:      v&0x20 != 0,
		FEC:            v&0x10 != 0,
		CRC:            v&0x08 != 0,
		IDLength4:      v&0x04 != 0,
		PreambleLength: v & 0x03,
	}
}

// Encode returns the register byte.
func (c Code1) Encode() uint8 {
	return bit(c.Whitening, 5) | bit(c.FEC, 4) | bit(c.CRC, 3) | bit(c.IDLength4, 2) | c.PreambleLength&0x03
}

// VCOCurrentCalibration is register 0x24. A zero value selects automatic
// calibration; Manual forces a fixed current.
type VCOCurrentCalibration struct {
	Manual bool
	Value  uint8
}

func (VCOCurrentCalibration) Addr() uint8 { return RegVCOCurrentCal }

// ManualVCOCurrent returns a manual setting for v.
func ManualVCOCurrent(v uint8) VCOCurrentCalibration {
	return VCOCurrentCalibration{Manual: true, Value: v & 0x0F}
}

// Encode returns the register byte.
func (c VCOCurrentCalibration) Encode() uint8 {
	if !c.Manual {
		return 0x00
	}
	return c.Value&0x0F | 0x10
}

// VCOCurrentResult is the read side of register 0x24.
type VCOCurrentResult struct {
	Flag  bool
	Value uint8
}

// DecodeVCOCurrentResult decodes a 0x24 read.
func DecodeVCOCurrentResult(v uint8) VCOCurrentResult {
	return VCOCurrentResult{Flag: v&0x10 != 0, Value: v & 0x0F}
}

// VCOBandResult is the read side of register 0x25.
type VCOBandResult struct {
	Voltage uint8 // VTH/VTL comparator output
	Failed  bool  // VBCF
	Value   uint8
}

// VCOBandFail is the band calibration failure flag in 0x25.
const VCOBandFail = 0x08

func (VCOBandResult) Addr() uint8 { return RegVCOBandCal1 }

// DecodeVCOBandResult decodes a 0x25 read.
func DecodeVCOBandResult(v uint8) VCOBandResult {
	return VCOBandResult{
		Voltage: (v >> 4) & 0x03,
		Failed:  v&VCOBandFail != 0,
		Value:   v & 0x07,
	}
}

// Encode reassembles the raw byte.
func (r VCOBandResult) Encode() uint8 {
	return (r.Voltage&0x03)<<4 | bit(r.Failed, 3) | r.Value&0x07
}

// Raw is an undecoded single byte register write.
type Raw struct {
	Address uint8
	Value   uint8
}

func (r Raw) Addr() uint8 { return r.Address }

// Encode returns the value.
func (r Raw) Encode() uint8 { return r.Value }

func bit(b bool, n uint) uint8 {
	if b {
		return 1 << n
	}
	return 0
}
