package afhds2

import "encoding/binary"

// DecodeSticks parses a sticks packet from the front of b and returns the
// unconsumed remainder.
func DecodeSticks(b []byte) (*Sticks, []byte, error) {
	if len(b) < sticksLength || b[0] != TagSticks {
		return nil, b, mismatch("sticks", b)
	}
	s := &Sticks{
		TransmitterID: binary.LittleEndian.Uint32(b[1:5]),
		ReceiverID:    binary.LittleEndian.Uint32(b[5:9]),
	}
	p := b[9:]
	for i := range s.Channels {
		s.Channels[i] = binary.LittleEndian.Uint16(p[i*2:])
	}
	return s, b[sticksLength:], nil
}

// DecodeBind parses a bind packet from the front of b and returns the
// unconsumed remainder.
func DecodeBind(b []byte) (*Bind, []byte, error) {
	if len(b) < bindLength || (b[0] != TagBindStage1 && b[0] != TagBindStage2) {
		return nil, b, mismatch("bind", b)
	}
	return &Bind{
		Tag:           b[0],
		TransmitterID: binary.LittleEndian.Uint32(b[1:5]),
		ReceiverID:    binary.LittleEndian.Uint32(b[5:9]),
		Stage:         b[9],
	}, b[bindLength:], nil
}

type shape func([]byte) (Packet, []byte, error)

// shapes are tried in order; the first match wins.
var shapes = []shape{
	func(b []byte) (Packet, []byte, error) {
		s, rest, err := DecodeSticks(b)
		if err != nil {
			return nil, b, err
		}
		return s, rest, nil
	},
	func(b []byte) (Packet, []byte, error) {
		p, rest, err := DecodeBind(b)
		if err != nil {
			return nil, b, err
		}
		return p, rest, nil
	},
}

// Decode parses frame as the first matching packet shape. On failure it
// returns a *DecodeMismatchError and the frame should be dropped.
func Decode(frame []byte) (Packet, []byte, error) {
	for _, try := range shapes {
		if p, rest, err := try(frame); err == nil {
			return p, rest, nil
		}
	}
	return nil, frame, mismatch("any", frame)
}
