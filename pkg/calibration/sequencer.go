// Package calibration brings an A7105 up from reset and runs its
// IF filter, VCO current and VCO band calibrations in order.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/profiles"
	"github.com/herlein/goflysky/pkg/registers"
)

// Defaults
const (
	DefaultPowerUpDelay     = 25 * time.Millisecond
	DefaultResetDelay       = 50 * time.Millisecond
	DefaultVCOCurrent       = 0x13
	DefaultVCOBandReference = 0x3B
)

// DefaultReferenceChannels are the band calibration points.
var DefaultReferenceChannels = []uint8{0x00, 0xA0}

// Result is a calibration register read back after its auto-clear.
type Result struct {
	Success bool
	Raw     uint8
}

// StageResult records the outcome of a single-shot stage. Done is set only
// when the stage completed; Err holds the reason otherwise.
type StageResult struct {
	Done bool
	Err  error
}

// ChannelResult is the VCO band outcome at one reference channel.
type ChannelResult struct {
	Channel uint8
	Result  Result
	Err     error
}

// Report summarises one calibration run.
type Report struct {
	IFFilter        StageResult
	VCOCurrent      uint8
	VCOBand         []ChannelResult
	ChannelReadback uint8
	Warnings        []error
}

// Failures returns every stage error, excluding warnings.
func (r *Report) Failures() []error {
	var errs []error
	if r.IFFilter.Err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", StageIFFilter, r.IFFilter.Err))
	}
	for _, ch := range r.VCOBand {
		if ch.Err != nil {
			errs = append(errs, ch.Err)
		}
	}
	return errs
}

// OK reports a run with no stage failures. Warnings do not count.
func (r *Report) OK() bool {
	return len(r.Failures()) == 0
}

// Err aggregates failures and warnings, or returns nil.
func (r *Report) Err() error {
	errs := append(r.Failures(), r.Warnings...)
	if len(errs) == 0 {
		return nil
	}
	return MultiError(errs)
}

// Sequencer drives bring-up and calibration over a bus.
type Sequencer struct {
	bus          *a7105.Bus
	profile      *profiles.Profile
	references   []uint8
	vcoCurrent   uint8
	bandRef      uint8
	bound        a7105.Bound
	powerUpDelay time.Duration
	resetDelay   time.Duration
	verifyID     bool
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithProfile selects the register table programmed by Initialize.
func WithProfile(p *profiles.Profile) Option {
	return func(s *Sequencer) { s.profile = p }
}

// WithReferenceChannels sets the VCO band calibration channels.
func WithReferenceChannels(chs ...uint8) Option {
	return func(s *Sequencer) { s.references = append([]uint8(nil), chs...) }
}

// WithVCOCurrent sets the fixed VCO current.
func WithVCOCurrent(v uint8) Option {
	return func(s *Sequencer) { s.vcoCurrent = v }
}

// WithAutoClearBound bounds every auto-clear wait.
func WithAutoClearBound(b a7105.Bound) Option {
	return func(s *Sequencer) { s.bound = b }
}

// WithPowerUpDelay sets the wait before reset.
func WithPowerUpDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.powerUpDelay = d }
}

// WithResetDelay sets the wait after reset.
func WithResetDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.resetDelay = d }
}

// WithVerifyID toggles the identity read-back after programming.
func WithVerifyID(v bool) Option {
	return func(s *Sequencer) { s.verifyID = v }
}

// New creates a Sequencer with the AFHDS2A profile and datasheet defaults.
func New(bus *a7105.Bus, opts ...Option) *Sequencer {
	s := &Sequencer{
		bus:          bus,
		profile:      profiles.AFHDS2A(),
		references:   append([]uint8(nil), DefaultReferenceChannels...),
		vcoCurrent:   DefaultVCOCurrent,
		bandRef:      DefaultVCOBandReference,
		bound:        a7105.DefaultAutoClearBound,
		powerUpDelay: DefaultPowerUpDelay,
		resetDelay:   DefaultResetDelay,
		verifyID:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the register table in use.
func (s *Sequencer) Profile() *profiles.Profile {
	return s.profile
}

// Initialize resets the chip and programs the profile.
func (s *Sequencer) Initialize(ctx context.Context) error {
	if err := s.profile.Validate(); err != nil {
		return &InitError{Step: "profile", Err: err}
	}
	if err := s.bus.Pause(ctx, s.powerUpDelay); err != nil {
		return &InitError{Step: "power-up", Err: err}
	}
	if err := s.bus.Reset(); err != nil {
		return &InitError{Step: "reset", Err: err}
	}
	if err := s.bus.Pause(ctx, s.resetDelay); err != nil {
		return &InitError{Step: "reset", Err: err}
	}
	if err := s.profile.Apply(s.bus); err != nil {
		return &InitError{Step: "program", Err: err}
	}

	if want, ok := s.profile.ID(); ok && s.verifyID {
		got, err := s.bus.ReadID()
		if err != nil {
			return &InitError{Step: "verify-id", Err: err}
		}
		if got != want {
			return &InitError{Step: "verify-id", Err: &IDMismatchError{Want: want, Got: got}}
		}
	}
	glog.Infof("a7105 initialized with profile %s (%d writes)", s.profile.Name, len(s.profile.Writes))
	return nil
}

// Calibrate runs the calibration stages. Stage failures and timeouts are
// recorded in the report; only bus errors and cancellation abort the run.
func (s *Sequencer) Calibrate(ctx context.Context) (*Report, error) {
	report := &Report{}

	if err := s.bus.Strobe(a7105.StrobeStandby); err != nil {
		return report, err
	}

	// IF filter bank
	if err := s.trigger(ctx, registers.CalibrateIFFilter); err != nil {
		if fatal(err) {
			return report, err
		}
		report.IFFilter.Err = err
		glog.Warningf("IF filter calibration: %v", err)
	} else {
		report.IFFilter.Done = true
	}

	// VCO current is set, not measured
	current := registers.ManualVCOCurrent(s.vcoCurrent)
	if err := registers.Write(s.bus, current); err != nil {
		return report, err
	}
	report.VCOCurrent = current.Encode()

	// VCO band at each reference channel
	if err := s.bus.WriteReg(registers.RegVCOBandCal2, s.bandRef); err != nil {
		return report, err
	}
	for _, ch := range s.references {
		res, err := s.calibrateBand(ctx, ch)
		if fatal(err) {
			return report, err
		}
		if err != nil {
			glog.Warningf("VCO band calibration at 0x%02X: %v", ch, err)
		}
		report.VCOBand = append(report.VCOBand, ChannelResult{Channel: ch, Result: res, Err: err})
	}

	if err := s.bus.WriteReg(registers.RegVCOBandCal1, registers.VCOBandCalibrationOff); err != nil {
		return report, err
	}
	if err := s.bus.Strobe(a7105.StrobeStandby); err != nil {
		return report, err
	}

	// The channel register should still hold the last reference channel
	got, err := registers.GetChannel(s.bus)
	if err != nil {
		return report, err
	}
	report.ChannelReadback = got
	if n := len(s.references); n > 0 && got != s.references[n-1] {
		w := &ChannelPersistenceMismatchError{Expected: s.references[n-1], Actual: got}
		report.Warnings = append(report.Warnings, w)
		glog.Warningf("%v", w)
	}

	if report.OK() {
		glog.Infof("a7105 calibration complete, channel readback 0x%02X", got)
	}
	return report, nil
}

// Run initializes and then calibrates.
func (s *Sequencer) Run(ctx context.Context) (*Report, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.Calibrate(ctx)
}

func (s *Sequencer) trigger(ctx context.Context, mask uint8) error {
	if err := s.bus.WriteReg(registers.RegCalibration, mask); err != nil {
		return err
	}
	return s.bus.WaitAutoClear(ctx, registers.RegCalibration, mask, s.bound)
}

func (s *Sequencer) calibrateBand(ctx context.Context, ch uint8) (Result, error) {
	if err := registers.SetChannel(s.bus, ch); err != nil {
		return Result{}, err
	}
	if err := s.trigger(ctx, registers.CalibrateVCOBank); err != nil {
		return Result{}, err
	}
	band, raw, err := registers.ReadVCOBandResult(s.bus)
	if err != nil {
		return Result{}, err
	}
	res := Result{Success: !band.Failed, Raw: raw}
	if band.Failed {
		return res, &CalibrationFailureError{Stage: StageVCOBand, Channel: ch, Raw: raw}
	}
	return res, nil
}

// fatal reports errors that must abort the sequence.
func fatal(err error) bool {
	if err == nil {
		return false
	}
	return a7105.IsBusError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
