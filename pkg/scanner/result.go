package scanner

import (
	"fmt"
	"time"

	"github.com/herlein/goflysky/pkg/afhds2"
)

// Outcome classifies one scan attempt.
type Outcome int

const (
	OutcomeTimeout Outcome = iota
	OutcomeFrameError
	OutcomeMismatch
	OutcomePacket
)

var outcomeNames = map[Outcome]string{
	OutcomeTimeout:    "timeout",
	OutcomeFrameError: "frame-error",
	OutcomeMismatch:   "mismatch",
	OutcomePacket:     "packet",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return "unknown"
}

// ScanResult holds the result of a single attempt
type ScanResult struct {
	Channel uint8
	Attempt int // consecutive attempt on this channel, from 1
	Outcome Outcome
	Packet  afhds2.Packet // set for OutcomePacket
	Raw     []byte        // frame bytes for OutcomePacket and OutcomeMismatch
	Err     error         // the recovered error for non-packet outcomes

	// Metadata
	Timestamp time.Time
	Advanced  bool // the cursor moved on after this attempt
}

// PacketReceived reports whether the attempt decoded a packet.
func (r *ScanResult) PacketReceived() bool {
	return r.Outcome == OutcomePacket && r.Packet != nil
}

func (r *ScanResult) String() string {
	if r.PacketReceived() {
		return fmt.Sprintf("ch 0x%02X: %s", r.Channel, r.Packet)
	}
	return fmt.Sprintf("ch 0x%02X: %s (attempt %d)", r.Channel, r.Outcome, r.Attempt)
}

// TransmitterInfo represents a transmitter heard at least once
type TransmitterInfo struct {
	ID          uint32
	ReceiverID  uint32
	Channels    []uint8 // channels the transmitter was heard on, in order
	LastChannel uint8
	LastKind    afhds2.Kind
	FirstSeen   time.Time
	LastSeen    time.Time
	PacketCount uint32
}

// ChannelStats counts attempt outcomes.
type ChannelStats struct {
	Attempts    uint64
	Timeouts    uint64
	FrameErrors uint64
	Mismatches  uint64
	Packets     uint64
}

func (c *ChannelStats) add(o Outcome) {
	c.Attempts++
	switch o {
	case OutcomeTimeout:
		c.Timeouts++
	case OutcomeFrameError:
		c.FrameErrors++
	case OutcomeMismatch:
		c.Mismatches++
	case OutcomePacket:
		c.Packets++
	}
}

// Stats is a snapshot of scanner counters.
type Stats struct {
	Total      ChannelStats
	PerChannel map[uint8]ChannelStats
	Advances   uint64
}
