// Package scanner walks a list of candidate channels looking for AFHDS2A
// transmitters and reports every attempt.
package scanner

import "time"

// Default scanning parameters
const (
	// DefaultIdleAttempts is how many consecutive attempts without a packet
	// are made on a channel before moving to the next one
	DefaultIdleAttempts = 3

	// DefaultReadyTimeout bounds the data-ready wait of one attempt
	DefaultReadyTimeout = 200 * time.Millisecond

	// DefaultDwell is the pause between attempts
	DefaultDwell = 0
)

// Transmitter tracking defaults
const (
	// DefaultHoldMax is the maximum hold counter value
	DefaultHoldMax = 20

	// DefaultLostThreshold is when a transmitter is considered lost
	DefaultLostThreshold = 15
)

// Config file
const (
	ConfigVersion = "1.0"

	// DefaultConfigPath is where tools look for a receiver config
	DefaultConfigPath = "etc/flyrx.json5"
)
