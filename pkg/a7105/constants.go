// Package a7105 frames register and strobe transactions for the AMICCOM A7105
// 2.4 GHz transceiver over a chip-selected serial port.
package a7105

import "time"

// Address framing
const (
	AddrMask  = 0x3F // low 6 bits carry the register address
	ReadFlag  = 0x40 // bit 6 set on read transactions
	MaxAddr   = 0x3F
	StrobeBit = 0x80
)

// Registers the bus itself needs to know about
const (
	RegMode     = 0x00 // mode status (read) / software reset (write 0x00)
	RegFIFOData = 0x05
	RegID       = 0x06
)

// IDLength is the width of the identity register in bytes.
const IDLength = 4

// Strobe is a single byte mode command. All strobes have bit 7 set.
type Strobe uint8

// Strobe opcodes
const (
	StrobeSleep          Strobe = 0x80
	StrobeIdle           Strobe = 0x90
	StrobeStandby        Strobe = 0xA0
	StrobePLL            Strobe = 0xB0
	StrobeRX             Strobe = 0xC0
	StrobeTX             Strobe = 0xD0
	StrobeFIFOWriteReset Strobe = 0xE0
	StrobeFIFOReadReset  Strobe = 0xF0
)

var strobeNames = map[Strobe]string{
	StrobeSleep:          "SLEEP",
	StrobeIdle:           "IDLE",
	StrobeStandby:        "STANDBY",
	StrobePLL:            "PLL",
	StrobeRX:             "RX",
	StrobeTX:             "TX",
	StrobeFIFOWriteReset: "FIFO_WRITE_RESET",
	StrobeFIFOReadReset:  "FIFO_READ_RESET",
}

// String returns the strobe name
func (s Strobe) String() string {
	if name, ok := strobeNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the eight defined opcodes.
func (s Strobe) Valid() bool {
	_, ok := strobeNames[s]
	return ok
}

// ParseStrobe looks a strobe up by name (case sensitive, as returned by String).
func ParseStrobe(name string) (Strobe, bool) {
	for s, n := range strobeNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Default wait bounds
const (
	// DefaultAutoClearPolls bounds calibration auto-clear waits
	DefaultAutoClearPolls = 1000
	// DefaultAutoClearInterval is the pause between auto-clear polls
	DefaultAutoClearInterval = 10 * time.Microsecond

	// DefaultReadyPolls bounds the data-ready wait (about 200 ms)
	DefaultReadyPolls = 2000
	// DefaultReadyInterval is the data-ready poll granularity
	DefaultReadyInterval = 100 * time.Microsecond
)

// Bound limits a polling wait to a fixed number of polls.
type Bound struct {
	Polls    int
	Interval time.Duration
}

// DefaultAutoClearBound is used by calibration waits.
var DefaultAutoClearBound = Bound{Polls: DefaultAutoClearPolls, Interval: DefaultAutoClearInterval}

// DefaultReadyBound is used by receive waits.
var DefaultReadyBound = Bound{Polls: DefaultReadyPolls, Interval: DefaultReadyInterval}

// BoundFor converts a timeout to a poll count at the given interval.
// At least one poll is always made.
func BoundFor(timeout, interval time.Duration) Bound {
	if interval <= 0 {
		return Bound{Polls: 1}
	}
	polls := int(timeout / interval)
	if polls < 1 {
		polls = 1
	}
	return Bound{Polls: polls, Interval: interval}
}

// Total returns the nominal duration covered by the bound.
func (b Bound) Total() time.Duration {
	return time.Duration(b.Polls) * b.Interval
}
