package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/receiver"
	"github.com/herlein/goflysky/pkg/registers"
	"github.com/herlein/goflysky/pkg/sim"
)

type instantPacer struct{}

func (instantPacer) Pause(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newSimRadio(chip *sim.Chip) *receiver.Receiver {
	bus := a7105.New(chip, a7105.WithReadyPin(chip), a7105.WithPacer(instantPacer{}))
	return receiver.New(bus, receiver.WithPollInterval(10*time.Microsecond))
}

func testConfig(list ...uint8) *ScanConfig {
	cfg := DefaultConfig()
	cfg.Channels = list
	cfg.ReadyTimeout = time.Millisecond
	return cfg
}

func sticks(t *testing.T, txid uint32) (*afhds2.Sticks, []byte) {
	t.Helper()
	s := &afhds2.Sticks{TransmitterID: txid, ReceiverID: 0x5475C52A}
	for i := range s.Channels {
		s.Channels[i] = afhds2.ChannelCenter
	}
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	return s, b
}

func scanN(t *testing.T, s Scanner, n int) []*ScanResult {
	t.Helper()
	out := make([]*ScanResult, 0, n)
	for i := 0; i < n; i++ {
		r, err := s.ScanOnce(context.Background())
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestScanFindsTransmitterOnBindChannel(t *testing.T) {
	chip := sim.NewChip()
	want, frame := sticks(t, 0x0A0B0C0D)
	chip.Transmit(0x8B, frame)

	s, err := New(newSimRadio(chip), testConfig(0x0C, 0x8B, 0x20))
	require.NoError(t, err)

	// three quiet attempts on 0x0C, then the cursor moves on
	results := scanN(t, s, 3)
	for i, r := range results {
		assert.Equal(t, uint8(0x0C), r.Channel)
		assert.Equal(t, OutcomeTimeout, r.Outcome)
		assert.Equal(t, i+1, r.Attempt)
		assert.ErrorIs(t, r.Err, a7105.ErrTimeout)
	}
	assert.False(t, results[1].Advanced)
	assert.True(t, results[2].Advanced)
	assert.Equal(t, uint8(0x8B), s.Channel())

	// packets keep the scanner on 0x8B
	results = scanN(t, s, 5)
	for _, r := range results {
		require.Equal(t, OutcomePacket, r.Outcome)
		assert.Equal(t, uint8(0x8B), r.Channel)
		assert.Equal(t, want, r.Packet)
		assert.False(t, r.Advanced)
	}

	st := s.Stats()
	assert.Equal(t, uint64(8), st.Total.Attempts)
	assert.Equal(t, uint64(5), st.Total.Packets)
	assert.Equal(t, uint64(3), st.PerChannel[0x0C].Timeouts)
	assert.Equal(t, uint64(5), st.PerChannel[0x8B].Packets)
	assert.Zero(t, st.PerChannel[0x20].Attempts)
	assert.Equal(t, uint64(1), st.Advances)

	txs := s.GetTransmitters()
	require.Len(t, txs, 1)
	assert.Equal(t, uint32(0x0A0B0C0D), txs[0].ID)
	assert.Equal(t, []uint8{0x8B}, txs[0].Channels)
	assert.Equal(t, uint32(5), txs[0].PacketCount)
}

func TestScanWrapsWhenQuiet(t *testing.T) {
	chip := sim.NewChip()
	s, err := New(newSimRadio(chip), testConfig(0x0C, 0x8B))
	require.NoError(t, err)

	var seen []uint8
	for _, r := range scanN(t, s, 12) {
		assert.Equal(t, OutcomeTimeout, r.Outcome)
		if r.Advanced {
			seen = append(seen, r.Channel)
		}
	}
	assert.Equal(t, []uint8{0x0C, 0x8B, 0x0C, 0x8B}, seen)
	assert.Equal(t, uint8(0x0C), s.Channel())
}

func TestScanClassifiesBadFrames(t *testing.T) {
	chip := sim.NewChip()
	_, frame := sticks(t, 1)
	chip.Transmit(0x8B, frame)
	chip.SetStatusFlags(registers.ModeFECF)

	s, err := New(newSimRadio(chip), testConfig(0x8B))
	require.NoError(t, err)
	r, err := s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFrameError, r.Outcome)
	var fe *receiver.FrameError
	assert.True(t, errors.As(r.Err, &fe))

	chip.SetStatusFlags(0)
	junk := make([]byte, afhds2.FrameLength)
	junk[0] = afhds2.TagFailsafe
	chip.Transmit(0x8B, junk)
	r, err = s.ScanOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMismatch, r.Outcome)
	assert.Equal(t, junk, r.Raw)
	assert.ErrorIs(t, r.Err, afhds2.ErrDecodeMismatch)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Total.FrameErrors)
	assert.Equal(t, uint64(1), st.Total.Mismatches)
}

func TestBusErrorStopsContinuousScan(t *testing.T) {
	chip := sim.NewChip()
	s, err := New(newSimRadio(chip), testConfig(0x0C))
	require.NoError(t, err)

	_, err = s.ScanOnce(context.Background())
	require.NoError(t, err)

	chip.FailNext(errors.New("spi: transfer failed"))
	results := make(chan *ScanResult, 16)
	err = s.ScanContinuous(context.Background(), results)
	require.Error(t, err)
	assert.True(t, a7105.IsBusError(err))
	assert.False(t, s.IsRunning())

	_, open := <-results
	assert.False(t, open)
}

func TestContinuousScanUntilCancelled(t *testing.T) {
	chip := sim.NewChip()
	_, frame := sticks(t, 7)
	chip.Transmit(0x8B, frame)

	s, err := New(newSimRadio(chip), testConfig(0x0C, 0x8B))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan *ScanResult, 64)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(ctx, results) }()

	var got *ScanResult
	for r := range results {
		if r.PacketReceived() {
			got = r
			break
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, uint8(0x8B), got.Channel)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop")
	}
}

func TestStopEndsContinuousScan(t *testing.T) {
	s, err := New(newSimRadio(sim.NewChip()), testConfig(0x0C))
	require.NoError(t, err)

	results := make(chan *ScanResult, 1)
	done := make(chan error, 1)
	go func() { done <- s.ScanContinuous(context.Background(), results) }()

	require.Eventually(t, s.IsRunning, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop")
	}
}

func TestContinuousScanClosesResultsWhenAlreadyRunning(t *testing.T) {
	s, err := New(newSimRadio(sim.NewChip()), testConfig(0x0C))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()

	results := make(chan *ScanResult, 1)
	err = s.ScanContinuous(context.Background(), results)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	select {
	case _, open := <-results:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("results left open")
	}
}

func TestLifecycle(t *testing.T) {
	s, err := New(newSimRadio(sim.NewChip()), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyRunning)
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())

	assert.Equal(t, channels.BindChannels, s.GetConfig().Channels)
	assert.ErrorIs(t, s.SetConfig(&ScanConfig{}), ErrInvalidConfig)
}

// scriptedRadio replays errors in order, then times out forever.
type scriptedRadio struct {
	tuned  []uint8
	script []error
}

func (r *scriptedRadio) Tune(ch uint8) error {
	r.tuned = append(r.tuned, ch)
	return nil
}

func (r *scriptedRadio) PollFrame(ctx context.Context, timeout time.Duration) (*receiver.Reception, error) {
	if len(r.script) == 0 {
		return nil, a7105.ErrTimeout
	}
	err := r.script[0]
	r.script = r.script[1:]
	if err != nil {
		return nil, err
	}
	return &receiver.Reception{Packet: &afhds2.Bind{Tag: afhds2.TagBindStage1, TransmitterID: 9}}, nil
}

func TestPacketResetsIdleCount(t *testing.T) {
	radio := &scriptedRadio{script: []error{a7105.ErrTimeout, a7105.ErrTimeout, nil, a7105.ErrTimeout, a7105.ErrTimeout}}
	cfg := testConfig(0x10, 0x20)
	s, err := New(radio, cfg)
	require.NoError(t, err)

	results := scanN(t, s, 6)
	for i := 0; i < 5; i++ {
		assert.False(t, results[i].Advanced, "attempt %d", i)
	}
	assert.True(t, results[5].Advanced)
	assert.Equal(t, []uint8{0x10, 0x10, 0x10, 0x10, 0x10, 0x10}, radio.tuned)
	assert.Equal(t, uint8(0x20), s.Channel())
}

func TestUnexpectedErrorIsReturned(t *testing.T) {
	radio := &scriptedRadio{script: []error{a7105.ErrNoReadyPin}}
	s, err := New(radio, testConfig(0x10))
	require.NoError(t, err)
	_, err = s.ScanOnce(context.Background())
	assert.ErrorIs(t, err, a7105.ErrNoReadyPin)
	assert.Zero(t, s.Stats().Total.Attempts)
}
