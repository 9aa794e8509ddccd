package a7105

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackPort stores whatever is written to an address and returns it on read.
type loopbackPort struct {
	regs     map[uint8][]byte
	selected bool
	frame    []byte
	frames   [][]byte
	readAddr int
	failOn   string
}

func newLoopbackPort() *loopbackPort {
	return &loopbackPort{regs: make(map[uint8][]byte), readAddr: -1}
}

func (p *loopbackPort) Select() error {
	if p.failOn == "select" {
		return errors.New("select failed")
	}
	p.selected = true
	p.frame = nil
	p.readAddr = -1
	return nil
}

func (p *loopbackPort) Deselect() error {
	p.selected = false
	if len(p.frame) > 0 {
		frame := p.frame
		p.frames = append(p.frames, frame)
		addr := frame[0]
		if addr&StrobeBit == 0 && addr&ReadFlag == 0 && len(frame) > 1 {
			payload := frame[1:]
			if last := payload[len(payload)-1]; last&StrobeBit != 0 && len(payload) > 1 {
				payload = payload[:len(payload)-1]
			}
			p.regs[addr&AddrMask] = append([]byte(nil), payload...)
		}
	}
	return nil
}

func (p *loopbackPort) Write(b []byte) error {
	if p.failOn == "write" {
		return errors.New("write failed")
	}
	if !p.selected {
		return errors.New("write without chip select")
	}
	p.frame = append(p.frame, b...)
	for _, c := range b {
		if c&StrobeBit == 0 && c&ReadFlag != 0 {
			p.readAddr = int(c & AddrMask)
		}
	}
	return nil
}

func (p *loopbackPort) Read(b []byte) error {
	if p.failOn == "read" {
		return errors.New("read failed")
	}
	if !p.selected || p.readAddr < 0 {
		return errors.New("read without address")
	}
	copy(b, p.regs[uint8(p.readAddr)])
	return nil
}

type countingPin struct {
	readyAfter int
	polls      int
	armed      int
}

func (c *countingPin) Ready() (bool, error) {
	c.polls++
	return c.readyAfter >= 0 && c.polls > c.readyAfter, nil
}

func (c *countingPin) Arm() { c.armed++ }

func TestWriteReadLoopback(t *testing.T) {
	port := newLoopbackPort()
	bus := New(port)

	for addr := 0; addr <= MaxAddr; addr++ {
		want := []byte{uint8(addr) ^ 0xA5}
		if addr == RegID {
			want = []byte{0x54, 0x75, 0xC5, 0x2A}
		}
		require.NoError(t, bus.Write(uint8(addr), want))

		got := make([]byte, len(want))
		require.NoError(t, bus.Read(uint8(addr), got))
		assert.Equal(t, want, got, "address 0x%02X", addr)
	}
	assert.False(t, port.selected)
}

func TestAddressBitSix(t *testing.T) {
	for addr := 0; addr <= MaxAddr; addr++ {
		r := ReadAddress(uint8(addr))
		w := WriteAddress(uint8(addr))
		assert.NotZero(t, r&ReadFlag, "read 0x%02X", addr)
		assert.Zero(t, w&ReadFlag, "write 0x%02X", addr)
		assert.Equal(t, uint8(addr), r&AddrMask)
		assert.Equal(t, uint8(addr), w&AddrMask)
		assert.Zero(t, r&StrobeBit)
		assert.Zero(t, w&StrobeBit)
	}

	port := newLoopbackPort()
	bus := New(port)
	require.NoError(t, bus.WriteReg(0x0F, 0x8B))
	_, err := bus.ReadReg(0x0F)
	require.NoError(t, err)
	require.Len(t, port.frames, 2)
	assert.Zero(t, port.frames[0][0]&ReadFlag)
	assert.NotZero(t, port.frames[1][0]&ReadFlag)
}

func TestStrobeOpcodesDisjointFromAddresses(t *testing.T) {
	for s := range strobeNames {
		assert.Equal(t, uint8(StrobeBit), uint8(s)&StrobeBit, s.String())
		assert.True(t, s.Valid())
	}
	assert.False(t, Strobe(0x12).Valid())
	s, ok := ParseStrobe("STANDBY")
	require.True(t, ok)
	assert.Equal(t, StrobeStandby, s)
}

func TestTransactionFraming(t *testing.T) {
	port := newLoopbackPort()
	pin := &countingPin{readyAfter: -1}
	bus := New(port, WithReadyPin(pin))

	require.NoError(t, bus.Strobe(StrobeStandby))
	require.NoError(t, bus.Reset())
	require.NoError(t, bus.WriteThenStrobe(StrobeRX, 0x0F, []byte{0x8B}))
	buf := make([]byte, 1)
	require.NoError(t, bus.StrobeThenRead(StrobeFIFOReadReset, 0x0F, buf))

	require.Len(t, port.frames, 4)
	assert.Equal(t, []byte{0xA0}, port.frames[0])
	assert.Equal(t, []byte{0x00, 0x00}, port.frames[1])
	assert.Equal(t, []byte{0x0F, 0x8B, 0xC0}, port.frames[2])
	assert.Equal(t, []byte{0xF0, 0x4F}, port.frames[3])
	assert.Equal(t, []byte{0x8B}, buf)
	assert.Equal(t, 1, pin.armed)
}

func TestInvalidAddress(t *testing.T) {
	bus := New(newLoopbackPort())
	err := bus.WriteReg(0x40, 1)
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = bus.ReadReg(0x7F)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestBusErrorReleasesChipSelect(t *testing.T) {
	for _, op := range []string{"write", "read"} {
		t.Run(op, func(t *testing.T) {
			port := newLoopbackPort()
			port.failOn = op
			bus := New(port)
			_, err := bus.ReadReg(0x0F)
			require.Error(t, err)
			assert.True(t, IsBusError(err))
			assert.False(t, port.selected)

			var be *BusError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, uint8(0x0F), be.Addr)
		})
	}
}

func TestWaitAutoClear(t *testing.T) {
	ctx := context.Background()

	t.Run("already clear", func(t *testing.T) {
		port := newLoopbackPort()
		bus := New(port)
		require.NoError(t, bus.WriteReg(0x02, 0x00))
		before := len(port.frames)
		require.NoError(t, bus.WaitAutoClear(ctx, 0x02, 0x01, Bound{Polls: 5}))
		assert.Equal(t, 1, len(port.frames)-before)
	})

	t.Run("never clears", func(t *testing.T) {
		port := newLoopbackPort()
		bus := New(port)
		require.NoError(t, bus.WriteReg(0x02, 0x01))
		before := len(port.frames)
		err := bus.WaitAutoClear(ctx, 0x02, 0x01, Bound{Polls: 7})
		require.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, 7, len(port.frames)-before)
	})

	t.Run("other bits ignored", func(t *testing.T) {
		bus := New(newLoopbackPort())
		require.NoError(t, bus.WriteReg(0x02, 0x02))
		require.NoError(t, bus.WaitAutoClear(ctx, 0x02, 0x01, Bound{Polls: 1}))
	})

	t.Run("cancelled", func(t *testing.T) {
		bus := New(newLoopbackPort(), WithPacer(SuspendingPacer{}))
		require.NoError(t, bus.WriteReg(0x02, 0x01))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := bus.WaitAutoClear(cctx, 0x02, 0x01, Bound{Polls: 3, Interval: time.Second})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitDataReady(t *testing.T) {
	ctx := context.Background()

	bus := New(newLoopbackPort())
	require.ErrorIs(t, bus.WaitDataReady(ctx, Bound{Polls: 1}), ErrNoReadyPin)

	pin := &countingPin{readyAfter: 3}
	bus = New(newLoopbackPort(), WithReadyPin(pin))
	require.NoError(t, bus.WaitDataReady(ctx, Bound{Polls: 10}))
	assert.Equal(t, 4, pin.polls)

	pin = &countingPin{readyAfter: -1}
	bus = New(newLoopbackPort(), WithReadyPin(pin))
	require.ErrorIs(t, bus.WaitDataReady(ctx, Bound{Polls: 10}), ErrTimeout)
	assert.Equal(t, 10, pin.polls)
}

func TestReadID(t *testing.T) {
	bus := New(newLoopbackPort())
	require.NoError(t, bus.WriteID(0x5475C52A))
	id, err := bus.ReadID()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5475C52A), id)
}

func TestBoundFor(t *testing.T) {
	b := BoundFor(200*time.Millisecond, 100*time.Microsecond)
	assert.Equal(t, 2000, b.Polls)
	assert.Equal(t, 200*time.Millisecond, b.Total())
	assert.Equal(t, 1, BoundFor(0, time.Millisecond).Polls)
	assert.Equal(t, 1, BoundFor(time.Second, 0).Polls)
}

func TestSuspendingPacer(t *testing.T) {
	start := time.Now()
	require.NoError(t, SuspendingPacer{}.Pause(context.Background(), 2*time.Millisecond))
	assert.True(t, time.Since(start) >= 2*time.Millisecond)
}
