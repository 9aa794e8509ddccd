// Package receiver ties the register bus, the calibration sequencer and the
// AFHDS2A decoder into a single-radio receive path.
package receiver

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/calibration"
	"github.com/herlein/goflysky/pkg/registers"
)

// DefaultReadyTimeout bounds one data-ready wait.
const DefaultReadyTimeout = 200 * time.Millisecond

// Reception is one frame taken from the FIFO. Packet is nil when the frame
// did not decode; Raw always holds the bytes read.
type Reception struct {
	Channel  uint8
	Packet   afhds2.Packet
	Raw      []byte
	Received time.Time
}

// FrameError reports a frame flagged by the chip's CRC or FEC check.
type FrameError struct {
	Channel uint8
	Status  registers.ModeStatus
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame error on channel 0x%02X: %s", e.Channel, e.Status)
}

// Receiver owns one bus for its lifetime.
type Receiver struct {
	bus          *a7105.Bus
	seq          *calibration.Sequencer
	pollInterval time.Duration
	channel      uint8
}

// Option configures a Receiver.
type Option func(*Receiver)

// WithSequencer replaces the default calibration sequencer.
func WithSequencer(s *calibration.Sequencer) Option {
	return func(r *Receiver) { r.seq = s }
}

// WithPollInterval sets the spacing of data-ready polls.
func WithPollInterval(d time.Duration) Option {
	return func(r *Receiver) { r.pollInterval = d }
}

// New creates a receiver on bus.
func New(bus *a7105.Bus, opts ...Option) *Receiver {
	r := &Receiver{
		bus:          bus,
		pollInterval: a7105.DefaultReadyInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.seq == nil {
		r.seq = calibration.New(bus)
	}
	return r
}

// Bus returns the underlying register bus.
func (r *Receiver) Bus() *a7105.Bus {
	return r.bus
}

// Channel returns the last channel tuned.
func (r *Receiver) Channel() uint8 {
	return r.channel
}

// Initialize resets and programs the chip.
func (r *Receiver) Initialize(ctx context.Context) error {
	return r.seq.Initialize(ctx)
}

// Calibrate runs the calibration stages.
func (r *Receiver) Calibrate(ctx context.Context) (*calibration.Report, error) {
	return r.seq.Calibrate(ctx)
}

// Standby strobes the chip into standby.
func (r *Receiver) Standby() error {
	return r.bus.Strobe(a7105.StrobeStandby)
}

// SetChannel moves to standby and programs the channel register.
func (r *Receiver) SetChannel(ch uint8) error {
	if err := r.Standby(); err != nil {
		return err
	}
	if err := registers.SetChannel(r.bus, ch); err != nil {
		return err
	}
	r.channel = ch
	return nil
}

// EnterReceiveMode strobes RX and rewinds the FIFO read pointer.
func (r *Receiver) EnterReceiveMode() error {
	if err := r.bus.Strobe(a7105.StrobeRX); err != nil {
		return err
	}
	return r.bus.Strobe(a7105.StrobeFIFOReadReset)
}

// Tune moves to ch and starts receiving. The channel write and the RX strobe
// go out in one chip-select frame.
func (r *Receiver) Tune(ch uint8) error {
	if err := r.Standby(); err != nil {
		return err
	}
	if err := r.bus.WriteThenStrobe(a7105.StrobeRX, registers.RegPLL1, []byte{ch}); err != nil {
		return err
	}
	r.channel = ch
	return r.bus.Strobe(a7105.StrobeFIFOReadReset)
}

// PollFrame waits up to timeout for a frame and decodes it.
//
// A timeout returns an error wrapping a7105.ErrTimeout. A flagged frame
// returns *FrameError. A frame that matches no packet shape returns the
// Reception with a nil Packet together with the decode error.
func (r *Receiver) PollFrame(ctx context.Context, timeout time.Duration) (*Reception, error) {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	if err := r.bus.WaitDataReady(ctx, a7105.BoundFor(timeout, r.pollInterval)); err != nil {
		return nil, err
	}

	status, err := registers.ReadModeStatus(r.bus)
	if err != nil {
		return nil, err
	}
	if status.HasErrors() {
		return nil, &FrameError{Channel: r.channel, Status: status}
	}

	buf := make([]byte, afhds2.FrameLength)
	if err := r.bus.StrobeThenRead(a7105.StrobeFIFOReadReset, registers.RegFIFOData, buf); err != nil {
		return nil, err
	}
	rec := &Reception{Channel: r.channel, Raw: buf, Received: time.Now()}

	pkt, _, err := afhds2.Decode(buf)
	if err != nil {
		if glog.V(2) {
			glog.Infof("channel 0x%02X: %v (% X)", r.channel, err, buf)
		}
		return rec, err
	}
	rec.Packet = pkt
	return rec, nil
}

// ReadRSSI returns the current signal strength reading.
func (r *Receiver) ReadRSSI() (registers.RSSI, error) {
	return registers.ReadRSSI(r.bus)
}
