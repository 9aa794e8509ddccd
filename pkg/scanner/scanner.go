package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/receiver"
)

// Radio is the receive path a scanner drives. *receiver.Receiver implements it.
type Radio interface {
	Tune(ch uint8) error
	PollFrame(ctx context.Context, timeout time.Duration) (*receiver.Reception, error)
}

// Scanner provides channel scanning capabilities
type Scanner interface {
	// Lifecycle
	Start() error
	Stop() error
	IsRunning() bool

	// Configuration
	SetConfig(config *ScanConfig) error
	GetConfig() *ScanConfig

	// Scanning
	ScanOnce(ctx context.Context) (*ScanResult, error)
	ScanContinuous(ctx context.Context, results chan<- *ScanResult) error
	Channel() uint8
	Stats() Stats

	// Transmitter tracking
	GetTransmitters() []*TransmitterInfo
	ClearHistory()
}

// scanner implements the Scanner interface
type scanner struct {
	radio  Radio
	config *ScanConfig

	// State
	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}

	// Channel walk
	cursor  *channels.Cursor
	idle    int
	attempt int

	stats   Stats
	tracker *TransmitterTracker
}

var _ Radio = (*receiver.Receiver)(nil)

// New creates a new Scanner with the given radio and configuration
func New(radio Radio, config *ScanConfig) (Scanner, error) {
	if config == nil {
		config = DefaultConfig()
	}

	s := &scanner{
		radio:    radio,
		stopChan: make(chan struct{}),
	}
	if err := s.SetConfig(config); err != nil {
		return nil, err
	}
	return s, nil
}

// NewFromConfigFile creates a Scanner from a JSON5 configuration file
func NewFromConfigFile(radio Radio, configPath string) (Scanner, error) {
	configFile, err := LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config, err := configFile.ToScanConfig()
	if err != nil {
		return nil, err
	}
	return New(radio, config)
}

// Start marks the scanner running
func (s *scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.running = true
	s.stopChan = make(chan struct{})
	return nil
}

// Stop stops the scanner
func (s *scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}

	close(s.stopChan)
	s.running = false
	return nil
}

// IsRunning returns true if the scanner is running
func (s *scanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetConfig replaces the configuration. The walk restarts at the first
// channel and tracking history is dropped.
func (s *scanner) SetConfig(config *ScanConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	cursor, err := channels.NewCursor(config.Channels)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = config
	s.cursor = cursor
	s.idle = 0
	s.attempt = 0
	s.stats = Stats{PerChannel: make(map[uint8]ChannelStats)}

	s.tracker = NewTransmitterTracker(config.HoldMax, config.LostThreshold)
	s.tracker.SetCallbacks(config.OnTransmitterDetected, config.OnTransmitterLost)

	return nil
}

// GetConfig returns the current configuration
func (s *scanner) GetConfig() *ScanConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Channel returns the channel the next attempt will use
func (s *scanner) Channel() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor.Current()
}

// Stats returns a snapshot of the attempt counters
func (s *scanner) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Stats{
		Total:      s.stats.Total,
		Advances:   s.stats.Advances,
		PerChannel: make(map[uint8]ChannelStats, len(s.stats.PerChannel)),
	}
	for ch, st := range s.stats.PerChannel {
		out.PerChannel[ch] = st
	}
	return out
}

// ScanOnce makes one receive attempt on the current channel.
//
// Timeouts, flagged frames and undecodable frames are outcomes, not errors.
// The returned error is non-nil only for failures the scan cannot recover
// from: bus errors, a missing data-ready pin and context cancellation.
func (s *scanner) ScanOnce(ctx context.Context) (*ScanResult, error) {
	s.mu.RLock()
	config := s.config
	ch := s.cursor.Current()
	tracker := s.tracker
	s.mu.RUnlock()

	if err := s.radio.Tune(ch); err != nil {
		return nil, fmt.Errorf("failed to tune channel 0x%02X: %w", ch, err)
	}

	result := &ScanResult{Channel: ch}
	rec, err := s.radio.PollFrame(ctx, config.ReadyTimeout)
	result.Timestamp = time.Now()

	var frameErr *receiver.FrameError
	switch {
	case err == nil:
		result.Outcome = OutcomePacket
		result.Packet = rec.Packet
		result.Raw = rec.Raw
	case errors.Is(err, a7105.ErrTimeout):
		result.Outcome = OutcomeTimeout
		result.Err = err
	case errors.As(err, &frameErr):
		result.Outcome = OutcomeFrameError
		result.Err = err
		glog.Warningf("%v", err)
	case errors.Is(err, afhds2.ErrDecodeMismatch):
		result.Outcome = OutcomeMismatch
		result.Err = err
		if rec != nil {
			result.Raw = rec.Raw
		}
	default:
		return nil, err
	}

	s.record(config, result)
	tracker.Update(result)

	if glog.V(2) {
		glog.Infof("scan: %s", result)
	}
	return result, nil
}

// record applies the idle policy and updates counters.
func (s *scanner) record(config *ScanConfig, result *ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempt++
	result.Attempt = s.attempt

	s.stats.Total.add(result.Outcome)
	st := s.stats.PerChannel[result.Channel]
	st.add(result.Outcome)
	s.stats.PerChannel[result.Channel] = st

	if result.Outcome == OutcomePacket {
		s.idle = 0
		return
	}
	s.idle++
	if s.idle < config.IdleAttempts {
		return
	}

	next := s.cursor.Advance()
	s.idle = 0
	s.attempt = 0
	s.stats.Advances++
	result.Advanced = true
	if glog.V(2) {
		glog.Infof("scan: channel 0x%02X idle, moving to 0x%02X", result.Channel, next)
	}
}

// ScanContinuous scans until ctx is cancelled, Stop is called or an
// unrecoverable error occurs. results is closed on return.
func (s *scanner) ScanContinuous(ctx context.Context, results chan<- *ScanResult) error {
	defer close(results)
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	s.mu.RLock()
	stop := s.stopChan
	s.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		result, err := s.ScanOnce(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			glog.Errorf("scan stopped: %v", err)
			return err
		}

		// Non-blocking send
		select {
		case results <- result:
		default:
			if glog.V(2) {
				glog.Infof("scan: result channel full, dropping %s", result)
			}
		}

		if dwell := s.GetConfig().Dwell; dwell > 0 {
			if err := sleepContext(ctx, stop, dwell); err != nil {
				return err
			}
		}
	}
}

// GetTransmitters returns all tracked transmitters
func (s *scanner) GetTransmitters() []*TransmitterInfo {
	return s.GetTracker().All()
}

// ClearHistory clears tracked transmitters and counters
func (s *scanner) ClearHistory() {
	s.GetTracker().Clear()
	s.mu.Lock()
	s.stats = Stats{PerChannel: make(map[uint8]ChannelStats)}
	s.mu.Unlock()
}

// GetTracker returns the transmitter tracker (for advanced usage)
func (s *scanner) GetTracker() *TransmitterTracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker
}

func sleepContext(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return nil
	case <-t.C:
		return nil
	}
}
