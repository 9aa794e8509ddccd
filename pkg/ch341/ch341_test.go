package ch341

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridge answers stream and input commands like a CH341A.
type fakeBridge struct {
	writes [][]byte
	miso   []byte // bytes the slave shifts back, MSB first
	pins   []uint8
	reply  []byte
	chunk  int
}

func (f *fakeBridge) WriteContext(ctx context.Context, buf []byte) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), buf...))
	switch buf[0] {
	case cmdSPIStream:
		for range buf[1:] {
			var b byte
			if len(f.miso) > 0 {
				b, f.miso = f.miso[0], f.miso[1:]
			}
			f.reply = append(f.reply, reverse([]byte{b})[0])
		}
	case cmdGetInput:
		var v uint8
		if len(f.pins) > 0 {
			v, f.pins = f.pins[0], f.pins[1:]
		}
		f.reply = append(f.reply, v, 0, 0, 0, 0, 0)
	}
	return len(buf), nil
}

func (f *fakeBridge) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(f.reply) == 0 {
		return 0, errors.New("libusb: timeout")
	}
	n := copy(buf, f.reply)
	if f.chunk > 0 && n > f.chunk {
		n = f.chunk
	}
	f.reply = f.reply[n:]
	return n, nil
}

func newTestDevice(f *fakeBridge) *Device {
	return &Device{epIn: f, epOut: f, readyPin: DefaultReadyPin, timeout: USBDefaultTimeout}
}

func TestStreamPacketsSplit(t *testing.T) {
	data := make([]byte, 40)
	data[0] = 0x01
	data[39] = 0xC0

	pkts := streamPackets(data)
	require.Len(t, pkts, 2)
	assert.Len(t, pkts[0], PacketLength)
	assert.Len(t, pkts[1], 40-maxStreamPayload+1)
	for _, p := range pkts {
		assert.Equal(t, byte(cmdSPIStream), p[0])
	}
	assert.Equal(t, byte(0x80), pkts[0][1])
	assert.Equal(t, byte(0x03), pkts[1][len(pkts[1])-1])

	assert.Empty(t, streamPackets(nil))
}

func TestChipSelectCommands(t *testing.T) {
	assert.Equal(t, []byte{0xAB, 0xB6, 0x7F, 0x20}, csCommand(true))
	assert.Equal(t, []byte{0xAB, 0xB7, 0x7F, 0x20}, csCommand(false))
	assert.Equal(t, []byte{0xAA, 0x62, 0x00}, speedCommand(Speed400K))
}

func TestWriteAndRead(t *testing.T) {
	f := &fakeBridge{miso: []byte{0x00, 0x54, 0x75, 0xC5, 0x2A}, chunk: 3}
	d := newTestDevice(f)

	require.NoError(t, d.Select())
	require.NoError(t, d.Write([]byte{0x46}))
	id := make([]byte, 4)
	require.NoError(t, d.Read(id))
	require.NoError(t, d.Deselect())

	assert.Equal(t, []byte{0x54, 0x75, 0xC5, 0x2A}, id)
	require.Len(t, f.writes, 4)
	assert.Equal(t, csCommand(true), f.writes[0])
	assert.Equal(t, []byte{cmdSPIStream, 0x62}, f.writes[1])
	assert.Equal(t, []byte{cmdSPIStream, 0, 0, 0, 0}, f.writes[2])
	assert.Equal(t, csCommand(false), f.writes[3])
}

func TestLongTransferSpansPackets(t *testing.T) {
	f := &fakeBridge{}
	d := newTestDevice(f)

	buf := make([]byte, 37)
	require.NoError(t, d.Read(buf))
	require.Len(t, f.writes, 2)
	assert.Len(t, f.writes[0], PacketLength)
	assert.Len(t, f.writes[1], 37-maxStreamPayload+1)
}

func TestReadFailsWithoutReply(t *testing.T) {
	d := newTestDevice(&fakeBridge{})
	d.epIn = &fakeBridge{}
	err := d.Read(make([]byte, 2))
	assert.Error(t, err)
}

func TestReadyTracksFallingEdge(t *testing.T) {
	const high = 1 << DefaultReadyPin
	f := &fakeBridge{pins: []uint8{0, high, high, 0}}
	d := newTestDevice(f)

	var got []bool
	for i := 0; i < 4; i++ {
		ok, err := d.Ready()
		require.NoError(t, err)
		got = append(got, ok)
	}
	assert.Equal(t, []bool{false, false, false, true}, got)

	// latched until re-armed, with no further USB traffic
	n := len(f.writes)
	ok, err := d.Ready()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, f.writes, n)

	d.Arm()
	f.pins = []uint8{0}
	ok, err = d.Ready()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPins(t *testing.T) {
	f := &fakeBridge{pins: []uint8{0xA5}}
	v, err := newTestDevice(f).Pins()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xA5), v)
	assert.Equal(t, []byte{cmdGetInput}, f.writes[0])
}

func TestSetup(t *testing.T) {
	f := &fakeBridge{}
	d := newTestDevice(f)
	require.NoError(t, d.Setup(Speed750K, 4))
	assert.Equal(t, uint(4), d.readyPin)
	assert.Equal(t, [][]byte{speedCommand(Speed750K), csCommand(false)}, f.writes)

	assert.Error(t, d.Setup(Speed100K, 8))
}

func TestSelectorParse(t *testing.T) {
	tests := []struct {
		sel     DeviceSelector
		want    parsedSelector
		wantErr bool
	}{
		{"", parsedSelector{kind: selectFirst}, false},
		{"#2", parsedSelector{kind: selectIndex, index: 2}, false},
		{"1:10", parsedSelector{kind: selectBusAddr, bus: 1, addr: 10}, false},
		{"0042", parsedSelector{kind: selectSerial, serial: "0042"}, false},
		{"#x", parsedSelector{}, true},
		{"#-1", parsedSelector{}, true},
		{"a:10", parsedSelector{}, true},
		{"1:b", parsedSelector{}, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			got, err := tt.sel.parse()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectorPick(t *testing.T) {
	devices := []*Device{
		{Bus: 1, Address: 4},
		{Bus: 1, Address: 9, Serial: "dup"},
		{Bus: 2, Address: 3, Serial: "dup"},
		{Bus: 3, Address: 1, Serial: "solo"},
	}

	i, err := parsedSelector{kind: selectFirst}.pick(devices)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = parsedSelector{kind: selectIndex, index: 3}.pick(devices)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = parsedSelector{kind: selectIndex, index: 4}.pick(devices)
	assert.Error(t, err)

	i, err = parsedSelector{kind: selectBusAddr, bus: 2, addr: 3}.pick(devices)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = parsedSelector{kind: selectBusAddr, bus: 9, addr: 9}.pick(devices)
	assert.Error(t, err)

	i, err = parsedSelector{kind: selectSerial, serial: "solo"}.pick(devices)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = parsedSelector{kind: selectSerial, serial: "dup"}.pick(devices)
	assert.ErrorContains(t, err, "multiple devices")

	_, err = parsedSelector{kind: selectSerial, serial: "none"}.pick(devices)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "CH341A (bus 1 address 4)", (&Device{Bus: 1, Address: 4}).String())
	assert.Equal(t, "QinHeng USB2.0-Ser! (Serial: 01)",
		(&Device{Manufacturer: "QinHeng", Product: "USB2.0-Ser!", Serial: "01"}).String())
}
