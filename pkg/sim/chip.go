// Package sim emulates an A7105 behind a chip-select port so the driver stack
// can run without hardware. It implements a7105.Port, a7105.ReadyPin and
// a7105.Armer.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/registers"
)

// State is the emulated operating mode.
type State int

const (
	StateSleep State = iota
	StateIdle
	StateStandby
	StatePLL
	StateRX
	StateTX
)

var stateNames = map[State]string{
	StateSleep:   "SLEEP",
	StateIdle:    "IDLE",
	StateStandby: "STANDBY",
	StatePLL:     "PLL",
	StateRX:      "RX",
	StateTX:      "TX",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// EventKind classifies a logged bus event.
type EventKind int

const (
	EventStrobe EventKind = iota
	EventWrite
	EventRead
)

// Event is one decoded operation seen on the bus.
type Event struct {
	Kind   EventKind
	Strobe a7105.Strobe
	Addr   uint8
	Data   []byte
}

func (e Event) String() string {
	switch e.Kind {
	case EventStrobe:
		return "strobe " + e.Strobe.String()
	case EventWrite:
		return fmt.Sprintf("write 0x%02X % X", e.Addr, e.Data)
	default:
		return fmt.Sprintf("read 0x%02X", e.Addr)
	}
}

// ErrNotSelected is returned for transfers outside a transaction.
var ErrNotSelected = errors.New("sim: transfer without chip select")

// Default behaviour knobs
const (
	DefaultClearAfter = 2
	DefaultLatency    = 3
	noiseRSSI         = 0x90
	carrierRSSI       = 0x30
	bandValue         = 0x03
)

// Chip is the emulated transceiver.
type Chip struct {
	mu sync.Mutex

	// ClearAfter is how many reads of the calibration register return the
	// trigger bits before they clear.
	ClearAfter int
	// Stuck holds calibration bits that never clear.
	Stuck uint8
	// FailBand lists channels whose VCO band calibration reports failure.
	FailBand map[uint8]bool
	// IgnoreChannelWrites drops writes to the channel register.
	IgnoreChannelWrites bool
	// Latency is the number of data-ready polls in RX before a frame lands.
	Latency int

	regs     [64]byte
	id       [4]byte
	fifo     [64]byte
	readPtr  int
	bandCal  uint8
	state    State
	status   uint8
	calPolls int
	rxPolls  int
	ready    bool
	armed    int
	air      map[uint8][]byte
	failNext error

	selected  bool
	cmdPos    bool // next written byte starts a new command
	writeAddr int
	writeBuf  []byte
	readAddr  int
	readPos   int
	events    []Event
}

// NewChip returns a chip in its reset state.
func NewChip() *Chip {
	c := &Chip{
		ClearAfter: DefaultClearAfter,
		Latency:    DefaultLatency,
		FailBand:   make(map[uint8]bool),
		air:        make(map[uint8][]byte),
	}
	c.reset()
	return c
}

func (c *Chip) reset() {
	c.regs = [64]byte{}
	c.id = [4]byte{}
	c.fifo = [64]byte{}
	c.readPtr = 0
	c.bandCal = bandValue
	c.state = StateStandby
	c.calPolls = 0
	c.rxPolls = 0
	c.ready = false
}

// Transmit puts frame on the air on channel ch until Silence is called.
func (c *Chip) Transmit(ch uint8, frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.air[ch] = append([]byte(nil), frame...)
}

// Silence removes any transmission on ch.
func (c *Chip) Silence(ch uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.air, ch)
}

// SetStatusFlags ORs flags into every mode register read.
func (c *Chip) SetStatusFlags(flags uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = flags
}

// FailNext makes the next port call return err.
func (c *Chip) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = err
}

// Reg returns the raw register byte as last written.
func (c *Chip) Reg(addr uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr&a7105.AddrMask]
}

// ID returns the programmed identity.
func (c *Chip) ID() [4]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// State returns the emulated mode.
func (c *Chip) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected reports whether chip select is asserted.
func (c *Chip) Selected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Armed returns how many times the data-ready pin was armed.
func (c *Chip) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Events returns a copy of the bus event log.
func (c *Chip) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// ClearEvents empties the event log.
func (c *Chip) ClearEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func (c *Chip) takeFailure() error {
	err := c.failNext
	c.failNext = nil
	return err
}

// Select starts a transaction.
func (c *Chip) Select() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	c.selected = true
	c.cmdPos = true
	c.writeAddr = -1
	c.writeBuf = nil
	c.readAddr = -1
	c.readPos = 0
	return nil
}

// Deselect ends the transaction and commits any open write.
func (c *Chip) Deselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushWrite()
	c.selected = false
	return nil
}

// Write feeds bytes into the command parser.
func (c *Chip) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	if !c.selected {
		return ErrNotSelected
	}
	for _, b := range p {
		c.consume(b)
	}
	return nil
}

// Read returns bytes for the address named by the last read command.
func (c *Chip) Read(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	if !c.selected {
		return ErrNotSelected
	}
	if c.readAddr < 0 {
		return errors.New("sim: read without address")
	}
	for i := range p {
		p[i] = c.readByte(uint8(c.readAddr), c.readPos)
		c.readPos++
	}
	return nil
}

func (c *Chip) consume(b byte) {
	if c.writeAddr >= 0 {
		c.writeBuf = append(c.writeBuf, b)
		if c.writeAddr != registers.RegFIFOData && len(c.writeBuf) == registers.Width(uint8(c.writeAddr)) {
			c.flushWrite()
			c.cmdPos = true
		}
		return
	}
	if !c.cmdPos {
		return
	}
	switch {
	case b&a7105.StrobeBit != 0:
		c.strobe(a7105.Strobe(b & 0xF0))
	case b&a7105.ReadFlag != 0:
		c.readAddr = int(b & a7105.AddrMask)
		c.readPos = 0
		c.cmdPos = false
		c.events = append(c.events, Event{Kind: EventRead, Addr: uint8(c.readAddr)})
	default:
		c.writeAddr = int(b & a7105.AddrMask)
		c.writeBuf = nil
		c.cmdPos = false
	}
}

func (c *Chip) flushWrite() {
	if c.writeAddr < 0 {
		return
	}
	addr := uint8(c.writeAddr)
	data := c.writeBuf
	c.writeAddr = -1
	c.writeBuf = nil
	if len(data) == 0 {
		return
	}
	c.events = append(c.events, Event{Kind: EventWrite, Addr: addr, Data: append([]byte(nil), data...)})

	switch addr {
	case registers.RegMode:
		if data[0] == 0x00 {
			c.reset()
		}
	case registers.RegID:
		copy(c.id[:], data)
	case registers.RegFIFOData:
		copy(c.fifo[:], data)
	case registers.RegCalibration:
		c.regs[addr] = data[0]
		c.calPolls = 0
	case registers.RegPLL1:
		if !c.IgnoreChannelWrites {
			c.regs[addr] = data[0]
		}
	default:
		c.regs[addr] = data[0]
	}
}

func (c *Chip) strobe(s a7105.Strobe) {
	c.events = append(c.events, Event{Kind: EventStrobe, Strobe: s})
	switch s {
	case a7105.StrobeSleep:
		c.state = StateSleep
	case a7105.StrobeIdle:
		c.state = StateIdle
	case a7105.StrobeStandby:
		c.state = StateStandby
	case a7105.StrobePLL:
		c.state = StatePLL
	case a7105.StrobeRX:
		c.state = StateRX
		c.rxPolls = 0
		c.ready = false
	case a7105.StrobeTX:
		c.state = StateTX
	case a7105.StrobeFIFOReadReset:
		c.readPtr = 0
	case a7105.StrobeFIFOWriteReset:
	}
}

func (c *Chip) readByte(addr uint8, pos int) byte {
	switch addr {
	case registers.RegMode:
		return c.modeStatus()
	case registers.RegCalibration:
		if pos == 0 {
			c.pollCalibration()
		}
		return c.regs[addr]
	case registers.RegFIFOData:
		b := c.fifo[c.readPtr%len(c.fifo)]
		c.readPtr++
		return b
	case registers.RegID:
		return c.id[pos%len(c.id)]
	case registers.RegRSSI:
		if _, ok := c.air[c.regs[registers.RegPLL1]]; ok && c.state == StateRX {
			return carrierRSSI
		}
		return noiseRSSI
	case registers.RegVCOBandCal1:
		return c.bandCal
	}
	return c.regs[addr]
}

func (c *Chip) pollCalibration() {
	pending := c.regs[registers.RegCalibration]
	if pending == 0 {
		return
	}
	c.calPolls++
	if c.calPolls < c.ClearAfter {
		return
	}
	done := pending &^ c.Stuck
	if done&registers.CalibrateVCOBank != 0 {
		ch := c.regs[registers.RegPLL1]
		c.bandCal = bandValue
		if c.FailBand[ch] {
			c.bandCal |= registers.VCOBandFail
		}
	}
	c.regs[registers.RegCalibration] = pending & c.Stuck
}

func (c *Chip) modeStatus() byte {
	v := c.status
	switch c.state {
	case StateSleep:
	case StateIdle:
		v |= registers.ModeCER
	case StateStandby:
		v |= registers.ModeCER | registers.ModeXER
	case StatePLL:
		v |= registers.ModeCER | registers.ModeXER | registers.ModePLLER
	case StateRX:
		v |= registers.ModeCER | registers.ModeXER | registers.ModePLLER | registers.ModeTRER | registers.ModeTRSR
	case StateTX:
		v |= registers.ModeCER | registers.ModeXER | registers.ModePLLER | registers.ModeTRER
	}
	return v
}

// Ready reports the data-ready condition. It asserts only in RX mode while
// the channel register names a channel with a frame on the air, after Latency polls.
func (c *Chip) Ready() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return false, err
	}
	if c.ready {
		return true, nil
	}
	if c.state != StateRX {
		return false, nil
	}
	frame, ok := c.air[c.regs[registers.RegPLL1]]
	if !ok {
		return false, nil
	}
	c.rxPolls++
	if c.rxPolls <= c.Latency {
		return false, nil
	}
	c.fifo = [64]byte{}
	copy(c.fifo[:], frame)
	c.readPtr = 0
	c.ready = true
	c.state = StateStandby
	return true, nil
}

// Arm clears a previously reported frame.
func (c *Chip) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed++
	c.ready = false
}

var (
	_ a7105.Port     = (*Chip)(nil)
	_ a7105.ReadyPin = (*Chip)(nil)
	_ a7105.Armer    = (*Chip)(nil)
)
