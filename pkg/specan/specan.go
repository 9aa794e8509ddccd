// Package specan sweeps A7105 channels and samples the RSSI ADC on each,
// giving a coarse picture of 2.4 GHz band occupancy.
package specan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/registers"
)

// DefaultDwell is how long the receiver settles on a channel before sampling.
const DefaultDwell = 500 * time.Microsecond

// Frame represents a single spectrum sweep result
type Frame struct {
	Timestamp time.Time
	Channels  []uint8
	Raw       []uint8 // RSSI ADC readings; lower means a stronger signal
}

// Strength returns the reading for index i inverted so that larger is stronger.
func (f *Frame) Strength(i int) uint8 {
	return 0xFF - f.Raw[i]
}

// Voltage returns the RSSI voltage for index i.
func (f *Frame) Voltage(i int) float64 {
	return registers.RSSI(f.Raw[i]).Voltage()
}

// FrequencyMHz returns the carrier for index i.
func (f *Frame) FrequencyMHz(i int) float64 {
	return registers.ChannelFrequency(f.Channels[i])
}

// Sweep samples every channel in list once. For each channel the chip is
// put in standby, retuned, started in RX and given dwell to settle.
func Sweep(ctx context.Context, bus *a7105.Bus, list channels.List, dwell time.Duration) (*Frame, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}

	frame := &Frame{
		Channels: append([]uint8(nil), list...),
		Raw:      make([]uint8, len(list)),
	}
	for i, ch := range list {
		if err := bus.Strobe(a7105.StrobeStandby); err != nil {
			return nil, err
		}
		if err := bus.WriteThenStrobe(a7105.StrobeRX, registers.RegPLL1, []byte{ch}); err != nil {
			return nil, fmt.Errorf("failed to tune channel 0x%02X: %w", ch, err)
		}
		if err := bus.Pause(ctx, dwell); err != nil {
			return nil, err
		}
		rssi, err := registers.ReadRSSI(bus)
		if err != nil {
			return nil, err
		}
		frame.Raw[i] = uint8(rssi)
	}
	frame.Timestamp = time.Now()

	if err := bus.Strobe(a7105.StrobeStandby); err != nil {
		return nil, err
	}
	return frame, nil
}

// Config holds spectrum analyzer configuration
type Config struct {
	Channels channels.List
	Dwell    time.Duration // settle time per channel
	Interval time.Duration // pause between sweeps
}

// SpecAn runs repeated sweeps in the background
type SpecAn struct {
	bus *a7105.Bus
	cfg Config

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	dataChan chan *Frame
	err      error
}

// New creates a new spectrum analyzer
func New(bus *a7105.Bus) *SpecAn {
	return &SpecAn{
		bus:      bus,
		cfg:      Config{Channels: channels.FullSweep(), Dwell: DefaultDwell},
		dataChan: make(chan *Frame, 10),
	}
}

// Configure sets up the spectrum analyzer parameters
func (s *SpecAn) Configure(cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cannot configure while running")
	}
	if err := cfg.Channels.Validate(); err != nil {
		return err
	}
	if cfg.Dwell < 0 || cfg.Interval < 0 {
		return fmt.Errorf("dwell and interval must not be negative")
	}
	s.cfg = *cfg
	return nil
}

// Start begins sweeping until ctx is cancelled or Stop is called
func (s *SpecAn) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.dataChan = make(chan *Frame, 10)
	s.err = nil

	go s.sweepLoop(ctx, s.cfg, s.dataChan, s.done)
	return nil
}

// Stop halts the analyzer and waits for the current sweep to finish
func (s *SpecAn) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return s.Err()
}

// IsRunning returns true if the analyzer is running
func (s *SpecAn) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Err returns the error that ended the last run, if any
func (s *SpecAn) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Frames returns a channel that receives spectrum frames. It is closed when
// the analyzer stops.
func (s *SpecAn) Frames() <-chan *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataChan
}

func (s *SpecAn) sweepLoop(ctx context.Context, cfg Config, out chan *Frame, done chan struct{}) {
	var loopErr error
	defer func() {
		s.mu.Lock()
		s.running = false
		s.err = loopErr
		s.mu.Unlock()
		close(out)
		close(done)
	}()

	for {
		frame, err := Sweep(ctx, s.bus, cfg.Channels, cfg.Dwell)
		if err != nil {
			if ctx.Err() == nil {
				loopErr = err
				glog.Errorf("specan: sweep failed: %v", err)
			}
			return
		}

		// Non-blocking send
		select {
		case out <- frame:
		default:
			// Drop if channel full
		}

		if err := s.bus.Pause(ctx, cfg.Interval); err != nil {
			return
		}
	}
}
