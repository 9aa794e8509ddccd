// Package registers holds the A7105 register address table, per-register
// bitfield codecs, and bus helpers that read or write whole register files.
package registers

// A7105 register addresses
const (
	RegMode          = 0x00 // read: mode status, write 0x00: reset
	RegModeControl   = 0x01
	RegCalibration   = 0x02
	RegFIFO1         = 0x03
	RegFIFO2         = 0x04
	RegFIFOData      = 0x05
	RegID            = 0x06 // 4 bytes
	RegRCOsc1        = 0x07
	RegRCOsc2        = 0x08
	RegRCOsc3        = 0x09
	RegCKO           = 0x0A
	RegGIO1          = 0x0B
	RegGIO2          = 0x0C
	RegClock         = 0x0D
	RegDataRate      = 0x0E
	RegPLL1          = 0x0F // channel number
	RegPLL2          = 0x10
	RegPLL3          = 0x11
	RegPLL4          = 0x12
	RegPLL5          = 0x13
	RegTX1           = 0x14
	RegTX2           = 0x15
	RegDelay1        = 0x16
	RegDelay2        = 0x17
	RegRX            = 0x18
	RegRXGain1       = 0x19
	RegRXGain2       = 0x1A
	RegRXGain3       = 0x1B
	RegRXGain4       = 0x1C
	RegRSSI          = 0x1D // read: RSSI ADC, write: carrier detect threshold
	RegADC           = 0x1E
	RegCode1         = 0x1F
	RegCode2         = 0x20
	RegCode3         = 0x21
	RegIFCal1        = 0x22
	RegIFCal2        = 0x23
	RegVCOCurrentCal = 0x24
	RegVCOBandCal1   = 0x25
	RegVCOBandCal2   = 0x26
	RegBattery       = 0x27
	RegTXTest        = 0x28
	RegRXDEM1        = 0x29
	RegRXDEM2        = 0x2A
	RegChargePump    = 0x2B
	RegCrystalTest   = 0x2C
	RegPLLTest       = 0x2D
	RegVCOTest1      = 0x2E
	RegVCOTest2      = 0x2F
	RegIFAT          = 0x30
	RegRScale        = 0x31
	LastRegister     = RegRScale
)

// VCOBandCalibrationOff is written to 0x25 after band calibration.
const VCOBandCalibrationOff = 0x08

// Channel limits
const (
	MaxChannel        = 0xA0
	BaseFrequencyMHz  = 2400.0
	ChannelSpacingMHz = 0.5
)

var registerNames = map[uint8]string{
	RegMode: "MODE", RegModeControl: "MODE_CTRL", RegCalibration: "CALC",
	RegFIFO1: "FIFO1", RegFIFO2: "FIFO2", RegFIFOData: "FIFO_DATA", RegID: "ID",
	RegRCOsc1: "RC_OSC1", RegRCOsc2: "RC_OSC2", RegRCOsc3: "RC_OSC3", RegCKO: "CKO",
	RegGIO1: "GIO1", RegGIO2: "GIO2", RegClock: "CLOCK", RegDataRate: "DATA_RATE",
	RegPLL1: "PLL1", RegPLL2: "PLL2", RegPLL3: "PLL3", RegPLL4: "PLL4", RegPLL5: "PLL5",
	RegTX1: "TX1", RegTX2: "TX2", RegDelay1: "DELAY1", RegDelay2: "DELAY2", RegRX: "RX",
	RegRXGain1: "RX_GAIN1", RegRXGain2: "RX_GAIN2", RegRXGain3: "RX_GAIN3", RegRXGain4: "RX_GAIN4",
	RegRSSI: "RSSI", RegADC: "ADC", RegCode1: "CODE1", RegCode2: "CODE2", RegCode3: "CODE3",
	RegIFCal1: "IF_CAL1", RegIFCal2: "IF_CAL2", RegVCOCurrentCal: "VCO_CURRENT_CAL",
	RegVCOBandCal1: "VCO_BAND_CAL1", RegVCOBandCal2: "VCO_BAND_CAL2", RegBattery: "BATTERY",
	RegTXTest: "TX_TEST", RegRXDEM1: "RX_DEM1", RegRXDEM2: "RX_DEM2", RegChargePump: "CPC",
	RegCrystalTest: "CRYSTAL_TEST", RegPLLTest: "PLL_TEST", RegVCOTest1: "VCO_TEST1",
	RegVCOTest2: "VCO_TEST2", RegIFAT: "IFAT", RegRScale: "RSCALE",
}

// Name returns the datasheet mnemonic for addr.
func Name(addr uint8) string {
	if n, ok := registerNames[addr]; ok {
		return n
	}
	return "RESERVED"
}

// Width returns the register width in bytes.
func Width(addr uint8) int {
	if addr == RegID {
		return 4
	}
	return 1
}

// Restorable reports whether a value read from addr may be written back
// unchanged. Registers whose read meaning differs from their write meaning,
// and the FIFO port, are excluded.
func Restorable(addr uint8) bool {
	switch addr {
	case RegMode, RegCalibration, RegFIFOData, RegRSSI, RegVCOCurrentCal, RegVCOBandCal1:
		return false
	}
	return addr <= LastRegister
}

// ChannelFrequency returns the carrier for ch in MHz with the default PLL setup.
func ChannelFrequency(ch uint8) float64 {
	return BaseFrequencyMHz + float64(ch)*ChannelSpacingMHz
}

// RegisterMap is a snapshot of the A7105 register file.
type RegisterMap struct {
	Mode          uint8    `json:"mode"`
	ModeControl   uint8    `json:"mode_control"`
	Calibration   uint8    `json:"calibration"`
	FIFO1         uint8    `json:"fifo1"`
	FIFO2         uint8    `json:"fifo2"`
	ID            [4]uint8 `json:"id"`
	RCOsc1        uint8    `json:"rc_osc1"`
	RCOsc2        uint8    `json:"rc_osc2"`
	RCOsc3        uint8    `json:"rc_osc3"`
	CKO           uint8    `json:"cko"`
	GIO1          uint8    `json:"gio1"`
	GIO2          uint8    `json:"gio2"`
	Clock         uint8    `json:"clock"`
	DataRate      uint8    `json:"data_rate"`
	PLL1          uint8    `json:"pll1"`
	PLL2          uint8    `json:"pll2"`
	PLL3          uint8    `json:"pll3"`
	PLL4          uint8    `json:"pll4"`
	PLL5          uint8    `json:"pll5"`
	TX1           uint8    `json:"tx1"`
	TX2           uint8    `json:"tx2"`
	Delay1        uint8    `json:"delay1"`
	Delay2        uint8    `json:"delay2"`
	RX            uint8    `json:"rx"`
	RXGain1       uint8    `json:"rx_gain1"`
	RXGain2       uint8    `json:"rx_gain2"`
	RXGain3       uint8    `json:"rx_gain3"`
	RXGain4       uint8    `json:"rx_gain4"`
	RSSI          uint8    `json:"rssi"`
	ADC           uint8    `json:"adc"`
	Code1         uint8    `json:"code1"`
	Code2         uint8    `json:"code2"`
	Code3         uint8    `json:"code3"`
	IFCal1        uint8    `json:"if_cal1"`
	IFCal2        uint8    `json:"if_cal2"`
	VCOCurrentCal uint8    `json:"vco_current_cal"`
	VCOBandCal1   uint8    `json:"vco_band_cal1"`
	VCOBandCal2   uint8    `json:"vco_band_cal2"`
	Battery       uint8    `json:"battery"`
	TXTest        uint8    `json:"tx_test"`
	RXDEM1        uint8    `json:"rx_dem1"`
	RXDEM2        uint8    `json:"rx_dem2"`
	ChargePump    uint8    `json:"charge_pump"`
	CrystalTest   uint8    `json:"crystal_test"`
	PLLTest       uint8    `json:"pll_test"`
	VCOTest1      uint8    `json:"vco_test1"`
	VCOTest2      uint8    `json:"vco_test2"`
	IFAT          uint8    `json:"ifat"`
	RScale        uint8    `json:"rscale"`
}

// slot returns a pointer to the single byte field for addr, or nil for the
// ID and FIFO data registers.
func (m *RegisterMap) slot(addr uint8) *uint8 {
	switch addr {
	case RegMode:
		return &m.Mode
	case RegModeControl:
		return &m.ModeControl
	case RegCalibration:
		return &m.Calibration
	case RegFIFO1:
		return &m.FIFO1
	case RegFIFO2:
		return &m.FIFO2
	case RegRCOsc1:
		return &m.RCOsc1
	case RegRCOsc2:
		return &m.RCOsc2
	case RegRCOsc3:
		return &m.RCOsc3
	case RegCKO:
		return &m.CKO
	case RegGIO1:
		return &m.GIO1
	case RegGIO2:
		return &m.GIO2
	case RegClock:
		return &m.Clock
	case RegDataRate:
		return &m.DataRate
	case RegPLL1:
		return &m.PLL1
	case RegPLL2:
		return &m.PLL2
	case RegPLL3:
		return &m.PLL3
	case RegPLL4:
		return &m.PLL4
	case RegPLL5:
		return &m.PLL5
	case RegTX1:
		return &m.TX1
	case RegTX2:
		return &m.TX2
	case RegDelay1:
		return &m.Delay1
	case RegDelay2:
		return &m.Delay2
	case RegRX:
		return &m.RX
	case RegRXGain1:
		return &m.RXGain1
	case RegRXGain2:
		return &m.RXGain2
	case RegRXGain3:
		return &m.RXGain3
	case RegRXGain4:
		return &m.RXGain4
	case RegRSSI:
		return &m.RSSI
	case RegADC:
		return &m.ADC
	case RegCode1:
		return &m.Code1
	case RegCode2:
		return &m.Code2
	case RegCode3:
		return &m.Code3
	case RegIFCal1:
		return &m.IFCal1
	case RegIFCal2:
		return &m.IFCal2
	case RegVCOCurrentCal:
		return &m.VCOCurrentCal
	case RegVCOBandCal1:
		return &m.VCOBandCal1
	case RegVCOBandCal2:
		return &m.VCOBandCal2
	case RegBattery:
		return &m.Battery
	case RegTXTest:
		return &m.TXTest
	case RegRXDEM1:
		return &m.RXDEM1
	case RegRXDEM2:
		return &m.RXDEM2
	case RegChargePump:
		return &m.ChargePump
	case RegCrystalTest:
		return &m.CrystalTest
	case RegPLLTest:
		return &m.PLLTest
	case RegVCOTest1:
		return &m.VCOTest1
	case RegVCOTest2:
		return &m.VCOTest2
	case RegIFAT:
		return &m.IFAT
	case RegRScale:
		return &m.RScale
	}
	return nil
}

// Get returns the byte held for a single byte register.
func (m *RegisterMap) Get(addr uint8) (uint8, bool) {
	p := m.slot(addr)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores v for a single byte register.
func (m *RegisterMap) Set(addr, v uint8) bool {
	p := m.slot(addr)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// Addresses returns every single byte register address in ascending order.
func Addresses() []uint8 {
	var addrs []uint8
	var m RegisterMap
	for a := uint8(0); a <= LastRegister; a++ {
		if m.slot(a) != nil {
			addrs = append(addrs, a)
		}
	}
	return addrs
}
