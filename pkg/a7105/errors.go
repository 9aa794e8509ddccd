package a7105

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates a bounded wait ran out of polls
	ErrTimeout = errors.New("a7105: wait bound exhausted")

	// ErrInvalidAddress indicates a register address above 0x3F
	ErrInvalidAddress = errors.New("a7105: register address out of range")

	// ErrNoReadyPin indicates a data-ready wait on a bus built without a pin
	ErrNoReadyPin = errors.New("a7105: no data-ready pin configured")
)

// BusError is a transport failure reported by the port or pin.
type BusError struct {
	Op   string
	Addr uint8
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("a7105: %s 0x%02X: %v", e.Op, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// IsBusError reports whether err carries a transport failure.
func IsBusError(err error) bool {
	var be *BusError
	return errors.As(err, &be)
}
