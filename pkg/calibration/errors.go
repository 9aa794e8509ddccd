package calibration

import (
	"fmt"
	"strings"
)

// Stage names a calibration domain.
type Stage string

const (
	StageIFFilter   Stage = "if-filter"
	StageVCOCurrent Stage = "vco-current"
	StageVCOBand    Stage = "vco-band"
)

// CalibrationFailureError is recorded when a stage reports its failure bit.
type CalibrationFailureError struct {
	Stage   Stage
	Channel uint8
	Raw     uint8
}

func (e *CalibrationFailureError) Error() string {
	return fmt.Sprintf("calibration: %s failed on channel 0x%02X (raw 0x%02X)", e.Stage, e.Channel, e.Raw)
}

// ChannelPersistenceMismatchError is a warning raised when the channel
// register does not read back the last programmed reference channel.
type ChannelPersistenceMismatchError struct {
	Expected uint8
	Actual   uint8
}

func (e *ChannelPersistenceMismatchError) Error() string {
	return fmt.Sprintf("calibration: channel register reads 0x%02X, expected 0x%02X", e.Actual, e.Expected)
}

// IDMismatchError means the identity register did not read back as written.
type IDMismatchError struct {
	Want uint32
	Got  uint32
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("ID register reads %08X, wrote %08X", e.Got, e.Want)
}

// InitError wraps a failure during chip bring-up.
type InitError struct {
	Step string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize: %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// MultiError aggregates the non-fatal problems of one calibration run.
type MultiError []error

func (m MultiError) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (m MultiError) Unwrap() []error {
	return m
}
