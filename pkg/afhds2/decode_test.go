package afhds2

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSticks() *Sticks {
	s := &Sticks{TransmitterID: 0x01020304, ReceiverID: 0x05060708}
	for i := range s.Channels {
		s.Channels[i] = uint16(1000 + i)
	}
	return s
}

func TestSticksRoundTrip(t *testing.T) {
	want := testSticks()
	buf, err := want.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, FrameLength)
	assert.Equal(t, byte(TagSticks), buf[0])
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf[1:5])
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05}, buf[5:9])
	assert.Equal(t, []byte{0xE8, 0x03}, buf[9:11])

	got, rest, err := DecodeSticks(buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Empty(t, rest)

	pkt, rest, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, KindSticks, pkt.Kind())
	assert.Equal(t, want, pkt)
	assert.Empty(t, rest)
}

func TestBindPreservesStage(t *testing.T) {
	for _, tag := range []byte{TagBindStage1, TagBindStage2} {
		buf := []byte{tag, 0x04, 0x03, 0x02, 0x01, 0x08, 0x07, 0x06, 0x05, 0x7E}

		b, rest, err := DecodeBind(buf)
		require.NoError(t, err)
		assert.Equal(t, uint8(0x7E), b.Stage)
		assert.Equal(t, tag, b.Tag)
		assert.Equal(t, uint32(0x01020304), b.TransmitterID)
		assert.Equal(t, uint32(0x05060708), b.ReceiverID)
		assert.Empty(t, rest)

		pkt, _, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, KindBind, pkt.Kind())

		enc, err := b.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, buf, enc)
	}
}

func TestBindInFullFrameLeavesPadding(t *testing.T) {
	frame := make([]byte, FrameLength)
	copy(frame, []byte{TagBindStage2, 1, 0, 0, 0, 2, 0, 0, 0, 3})
	pkt, rest, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), pkt.Transmitter())
	assert.Equal(t, uint32(2), pkt.Receiver())
	assert.Len(t, rest, FrameLength-10)
}

func TestUnknownTagMismatchesBothShapes(t *testing.T) {
	for _, tag := range []byte{0x00, TagFailsafe, 0x57, 0xBA, 0xBD, 0xFF} {
		frame := make([]byte, FrameLength)
		frame[0] = tag

		_, rest, err := DecodeSticks(frame)
		require.ErrorIs(t, err, ErrDecodeMismatch)
		assert.Equal(t, frame, rest)

		_, _, err = DecodeBind(frame)
		require.ErrorIs(t, err, ErrDecodeMismatch)

		_, _, err = Decode(frame)
		require.ErrorIs(t, err, ErrDecodeMismatch)
		var me *DecodeMismatchError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, tag, me.Tag)
	}
}

func TestShortBuffers(t *testing.T) {
	full, _ := testSticks().MarshalBinary()

	_, _, err := Decode(full[:FrameLength-1])
	require.ErrorIs(t, err, ErrDecodeMismatch)

	_, _, err = DecodeBind([]byte{TagBindStage1, 1, 2, 3})
	require.ErrorIs(t, err, ErrDecodeMismatch)

	_, _, err = Decode(nil)
	require.ErrorIs(t, err, ErrDecodeMismatch)
}

func TestNormalized(t *testing.T) {
	s := &Sticks{}
	s.Channels[0] = 1000
	s.Channels[1] = 1500
	s.Channels[2] = 2000
	s.Channels[3] = 2200
	assert.Equal(t, -1.0, s.Normalized(0))
	assert.Equal(t, 0.0, s.Normalized(1))
	assert.Equal(t, 1.0, s.Normalized(2))
	assert.Equal(t, 1.0, s.Normalized(3))
	assert.Equal(t, uint16(0), s.Channel(NumChannels))
}
