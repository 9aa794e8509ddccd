package profiles

// AFHDS2A radio identity
const RadioID uint32 = 0x5475C52A

// Built-in profile names
const (
	NameAFHDS2A     = "afhds2a"
	NameAFHDS2ALite = "afhds2a-lite"
)

var radioIDBytes = []byte{0x54, 0x75, 0xC5, 0x2A}

func w(addr uint8, value ...byte) RegisterWrite {
	return RegisterWrite{Addr: addr, Value: value}
}

// AFHDS2A programs every configuration register for FlySky AFHDS2A reception:
// GIO1 as SDO, 4 byte ID, auto RSSI, FIFO mode with a 37 byte frame,
// FEC and CRC on.
func AFHDS2A() *Profile {
	return &Profile{
		Name:        NameAFHDS2A,
		Description: "FlySky AFHDS2A receiver, full register table",
		Writes: []RegisterWrite{
			w(0x0B, 0x19), // GIO1: SDO, output enabled
			w(0x06, radioIDBytes...),
			w(0x01, 0x42), // mode control: auto RSSI, FIFO
			w(0x02, 0x00),
			w(0x03, 0x25), // FIFO end pointer: 37 bytes
			w(0x04, 0x00),
			w(0x07, 0x00),
			w(0x08, 0x00),
			w(0x09, 0x00),
			w(0x0C, 0x01), // GIO2: WTR, output enabled
			w(0x0D, 0x05),
			w(0x0E, 0x00),
			w(0x0F, 0x50),
			w(0x10, 0x9E),
			w(0x11, 0x4B),
			w(0x12, 0x00),
			w(0x13, 0x02),
			w(0x14, 0x16),
			w(0x15, 0x2B),
			w(0x16, 0x12),
			w(0x17, 0x00),
			w(0x18, 0x62),
			w(0x19, 0x80),
			w(0x1C, 0x2A),
			w(0x1D, 0x32),
			w(0x1E, 0xC3),
			w(0x1F, 0x1F),
			w(0x20, 0x13),
			w(0x21, 0xC3),
			w(0x22, 0x00),
			w(0x24, 0x00),
			w(0x25, 0x00),
			w(0x26, 0x3B),
			w(0x27, 0x00),
			w(0x28, 0x17),
			w(0x29, 0x47),
			w(0x2A, 0x80),
			w(0x2B, 0x03),
			w(0x2C, 0x01),
			w(0x2D, 0x45),
			w(0x2E, 0x18),
			w(0x2F, 0x00),
			w(0x30, 0x01),
			w(0x31, 0x0F),
		},
	}
}

// AFHDS2ALite programs only the registers that differ from reset defaults
// in ways reception depends on.
func AFHDS2ALite() *Profile {
	return &Profile{
		Name:        NameAFHDS2ALite,
		Description: "FlySky AFHDS2A receiver, reduced register set",
		Writes: []RegisterWrite{
			w(0x0B, 0x19),
			w(0x06, radioIDBytes...),
			w(0x01, 0x42),
			w(0x03, 0x25),
			w(0x04, 0x00),
			w(0x09, 0x05), // RC osc 3: FSYNC/8 clock select
			w(0x0D, 0x05),
			w(0x0F, 0x50),
			w(0x13, 0x02),
			w(0x17, 0x00),
			w(0x18, 0x62),
			w(0x19, 0x80),
			w(0x1D, 0x32),
			w(0x1F, 0x1F),
			w(0x20, 0x13),
			w(0x21, 0xC3),
			w(0x24, 0x00), // VCO current: automatic
		},
	}
}
