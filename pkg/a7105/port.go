package a7105

import (
	"context"
	"time"
)

// Port is a duplex byte transport with a controllable chip-select line.
// Every byte written or read between Select and Deselect belongs to one
// transaction.
type Port interface {
	Select() error
	Deselect() error
	Write(p []byte) error
	Read(p []byte) error
}

// ReadyPin is the level-sensed data-ready input.
type ReadyPin interface {
	Ready() (bool, error)
}

// Armer is implemented by pins that need to be re-armed whenever the chip
// enters receive mode, such as a pin watching the WTR output for its falling edge.
type Armer interface {
	Arm()
}

// Pacer pauses between polls.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

// BlockingPacer sleeps the calling goroutine.
type BlockingPacer struct{}

// Pause sleeps for d after checking ctx.
func (BlockingPacer) Pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d > 0 {
		time.Sleep(d)
	}
	return nil
}

// SuspendingPacer parks on a timer and wakes early when ctx is done.
type SuspendingPacer struct{}

// Pause waits for d or until ctx is done.
func (SuspendingPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
