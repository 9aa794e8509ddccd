// Package afhds2 decodes FlySky AFHDS2A transmitter frames.
package afhds2

import (
	"encoding/binary"
	"fmt"
)

// Frame layout
const (
	FrameLength = 37
	NumChannels = 14
	idsLength   = 8

	sticksLength = 1 + idsLength + NumChannels*2
	bindLength   = 1 + idsLength + 1
)

// Packet tags
const (
	TagSticks     = 0x58
	TagBindStage1 = 0xBB
	TagBindStage2 = 0xBC
	TagFailsafe   = 0x56 // known but not decoded
)

// Channel pulse widths in microseconds
const (
	ChannelMin    = 1000
	ChannelCenter = 1500
	ChannelMax    = 2000
)

// Kind names a packet shape.
type Kind int

const (
	KindSticks Kind = iota
	KindBind
)

func (k Kind) String() string {
	switch k {
	case KindSticks:
		return "sticks"
	case KindBind:
		return "bind"
	}
	return "unknown"
}

// Packet is a decoded transmitter frame.
type Packet interface {
	Kind() Kind
	Transmitter() uint32
	Receiver() uint32
	MarshalBinary() ([]byte, error)
}

// Sticks carries the 14 channel values.
type Sticks struct {
	TransmitterID uint32
	ReceiverID    uint32
	Channels      [NumChannels]uint16
}

func (*Sticks) Kind() Kind { return KindSticks }
func (s *Sticks) Transmitter() uint32 { return s.TransmitterID }
func (s *Sticks) Receiver() uint32 { return s.ReceiverID }

// Channel returns channel i (0 based), or 0 when out of range.
func (s *Sticks) Channel(i int) uint16 {
	if i < 0 || i >= NumChannels {
		return 0
	}
	return s.Channels[i]
}

// Normalized maps channel i from 1000..2000 us onto -1..1, clamped.
func (s *Sticks) Normalized(i int) float64 {
	v := float64(s.Channel(i))
	n := (v - ChannelCenter) / (ChannelMax - ChannelCenter)
	if n < -1 {
		return -1
	}
	if n > 1 {
		return 1
	}
	return n
}

// AppendBinary appends the wire form to b.
func (s *Sticks) AppendBinary(b []byte) []byte {
	b = append(b, TagSticks)
	b = binary.LittleEndian.AppendUint32(b, s.TransmitterID)
	b = binary.LittleEndian.AppendUint32(b, s.ReceiverID)
	for _, v := range s.Channels {
		b = binary.LittleEndian.AppendUint16(b, v)
	}
	return b
}

// MarshalBinary returns the 37 byte wire form.
func (s *Sticks) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, sticksLength)), nil
}

func (s *Sticks) String() string {
	return fmt.Sprintf("sticks tx=%08X rx=%08X ch=%v", s.TransmitterID, s.ReceiverID, s.Channels)
}

// Bind is a bind request from a transmitter in bind mode.
type Bind struct {
	Tag           uint8 // TagBindStage1 or TagBindStage2
	TransmitterID uint32
	ReceiverID    uint32
	Stage         uint8
}

func (*Bind) Kind() Kind { return KindBind }
func (b *Bind) Transmitter() uint32 { return b.TransmitterID }
func (b *Bind) Receiver() uint32 { return b.ReceiverID }

// AppendBinary appends the wire form to buf. A zero Tag encodes as stage 1.
func (b *Bind) AppendBinary(buf []byte) []byte {
	tag := b.Tag
	if tag == 0 {
		tag = TagBindStage1
	}
	buf = append(buf, tag)
	buf = binary.LittleEndian.AppendUint32(buf, b.TransmitterID)
	buf = binary.LittleEndian.AppendUint32(buf, b.ReceiverID)
	return append(buf, b.Stage)
}

// MarshalBinary returns the 10 byte wire form.
func (b *Bind) MarshalBinary() ([]byte, error) {
	return b.AppendBinary(make([]byte, 0, bindLength)), nil
}

func (b *Bind) String() string {
	return fmt.Sprintf("bind tag=%02X tx=%08X rx=%08X stage=%d", b.Tag, b.TransmitterID, b.ReceiverID, b.Stage)
}
