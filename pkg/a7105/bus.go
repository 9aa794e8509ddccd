package a7105

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// Bus frames strobe, read and write transactions over a Port.
// It keeps no copy of chip state: every read queries the hardware.
type Bus struct {
	port  Port
	ready ReadyPin
	pacer Pacer
	mu    sync.Mutex
}

// Option configures a Bus.
type Option func(*Bus)

// WithReadyPin attaches the data-ready input.
func WithReadyPin(pin ReadyPin) Option {
	return func(b *Bus) { b.ready = pin }
}

// WithPacer selects how the bus waits between polls.
func WithPacer(p Pacer) Option {
	return func(b *Bus) { b.pacer = p }
}

// New creates a Bus over port. The default pacer blocks.
func New(port Port, opts ...Option) *Bus {
	b := &Bus{port: port, pacer: BlockingPacer{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Port returns the underlying transport.
func (b *Bus) Port() Port {
	return b.port
}

// ReadyPin returns the data-ready input, or nil.
func (b *Bus) ReadyPin() ReadyPin {
	return b.ready
}

// transact runs fn with chip select asserted and always releases it.
func (b *Bus) transact(op string, addr uint8, fn func() error) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.port.Select(); err != nil {
		return &BusError{Op: op, Addr: addr, Err: fmt.Errorf("select: %w", err)}
	}
	defer func() {
		if derr := b.port.Deselect(); derr != nil && err == nil {
			err = &BusError{Op: op, Addr: addr, Err: fmt.Errorf("deselect: %w", derr)}
		}
	}()

	if ferr := fn(); ferr != nil {
		return &BusError{Op: op, Addr: addr, Err: ferr}
	}
	return nil
}

func checkAddr(addr uint8) error {
	if addr > MaxAddr {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidAddress, addr)
	}
	return nil
}

// Exec sends a Command (a Strobe or Reset) as one transaction.
func (b *Bus) Exec(cmd Command) error {
	frame := cmd.frame()
	err := b.transact("command", frame[0], func() error {
		return b.port.Write(frame)
	})
	if err == nil {
		b.armOn(cmd)
	}
	return err
}

// Strobe sends a single strobe opcode.
func (b *Bus) Strobe(s Strobe) error {
	return b.Exec(s)
}

// Reset issues a software reset.
func (b *Bus) Reset() error {
	return b.Exec(Reset)
}

// Write writes data starting at addr.
func (b *Bus) Write(addr uint8, data []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+1)
	frame = append(frame, WriteAddress(addr))
	frame = append(frame, data...)
	return b.transact("write", addr, func() error {
		return b.port.Write(frame)
	})
}

// WriteReg writes a single byte register.
func (b *Bus) WriteReg(addr, value uint8) error {
	return b.Write(addr, []byte{value})
}

// Read fills buf from addr.
func (b *Bus) Read(addr uint8, buf []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	return b.transact("read", addr, func() error {
		if err := b.port.Write([]byte{ReadAddress(addr)}); err != nil {
			return err
		}
		return b.port.Read(buf)
	})
}

// ReadReg reads a single byte register.
func (b *Bus) ReadReg(addr uint8) (uint8, error) {
	buf := []byte{0}
	if err := b.Read(addr, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteThenStrobe writes data to addr and issues s in the same transaction.
func (b *Bus) WriteThenStrobe(s Strobe, addr uint8, data []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+2)
	frame = append(frame, WriteAddress(addr))
	frame = append(frame, data...)
	frame = append(frame, byte(s))
	err := b.transact("write+strobe", addr, func() error {
		return b.port.Write(frame)
	})
	if err == nil {
		b.armOn(s)
	}
	return err
}

// StrobeThenRead issues s and then reads buf from addr in the same transaction.
func (b *Bus) StrobeThenRead(s Strobe, addr uint8, buf []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	err := b.transact("strobe+read", addr, func() error {
		if err := b.port.Write([]byte{byte(s), ReadAddress(addr)}); err != nil {
			return err
		}
		return b.port.Read(buf)
	})
	if err == nil {
		b.armOn(s)
	}
	return err
}

// ReadID returns the 4 byte identity register, most significant byte first.
func (b *Bus) ReadID() (uint32, error) {
	buf := make([]byte, IDLength)
	if err := b.Read(RegID, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// WriteID programs the identity register.
func (b *Bus) WriteID(id uint32) error {
	buf := make([]byte, IDLength)
	binary.BigEndian.PutUint32(buf, id)
	return b.Write(RegID, buf)
}

// WaitAutoClear polls addr until every bit in mask reads zero.
// It returns ErrTimeout once bound.Polls reads have all shown a set bit.
func (b *Bus) WaitAutoClear(ctx context.Context, addr, mask uint8, bound Bound) error {
	polls := bound.Polls
	if polls < 1 {
		polls = 1
	}
	for i := 0; i < polls; i++ {
		v, err := b.ReadReg(addr)
		if err != nil {
			return err
		}
		if v&mask == 0 {
			return nil
		}
		if i == polls-1 {
			break
		}
		if err := b.pacer.Pause(ctx, bound.Interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("register 0x%02X mask 0x%02X after %d polls: %w", addr, mask, polls, ErrTimeout)
}

// WaitDataReady polls the data-ready pin until it asserts.
func (b *Bus) WaitDataReady(ctx context.Context, bound Bound) error {
	if b.ready == nil {
		return ErrNoReadyPin
	}
	polls := bound.Polls
	if polls < 1 {
		polls = 1
	}
	for i := 0; i < polls; i++ {
		ok, err := b.ready.Ready()
		if err != nil {
			return &BusError{Op: "ready", Err: err}
		}
		if ok {
			return nil
		}
		if i == polls-1 {
			break
		}
		if err := b.pacer.Pause(ctx, bound.Interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("data ready after %d polls: %w", polls, ErrTimeout)
}

// Pause waits d using the bus pacer.
func (b *Bus) Pause(ctx context.Context, d time.Duration) error {
	return b.pacer.Pause(ctx, d)
}

func (b *Bus) armOn(cmd Command) {
	if s, ok := cmd.(Strobe); !ok || s != StrobeRX {
		return
	}
	if a, ok := b.ready.(Armer); ok {
		a.Arm()
	}
}
