package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/goflysky/pkg/afhds2"
)

func packetResult(ch uint8, txid uint32, at time.Time) *ScanResult {
	return &ScanResult{
		Channel:   ch,
		Outcome:   OutcomePacket,
		Packet:    &afhds2.Sticks{TransmitterID: txid, ReceiverID: 0x11},
		Timestamp: at,
	}
}

func quietResult(ch uint8) *ScanResult {
	return &ScanResult{Channel: ch, Outcome: OutcomeTimeout, Timestamp: time.Now()}
}

func TestTrackerHysteresis(t *testing.T) {
	detected := make(chan *TransmitterInfo, 4)
	lost := make(chan *TransmitterInfo, 4)

	tr := NewTransmitterTracker(4, 2)
	tr.SetCallbacks(
		func(i *TransmitterInfo) { detected <- i },
		func(i *TransmitterInfo) { lost <- i },
	)

	now := time.Now()
	tr.Update(packetResult(0x0C, 42, now))
	tr.Update(packetResult(0x8B, 42, now.Add(time.Second)))

	select {
	case info := <-detected:
		assert.Equal(t, uint32(42), info.ID)
	case <-time.After(time.Second):
		t.Fatal("no detection callback")
	}
	assert.True(t, tr.IsActive())
	assert.Equal(t, 4, tr.HoldCounter())

	active := tr.Active()
	require.NotNil(t, active)
	assert.Equal(t, []uint8{0x0C, 0x8B}, active.Channels)
	assert.Equal(t, uint32(2), active.PacketCount)
	assert.Equal(t, uint8(0x8B), active.LastChannel)
	assert.Equal(t, afhds2.KindSticks, active.LastKind)

	tr.Update(quietResult(0x8B))
	tr.Update(quietResult(0x8B))
	select {
	case info := <-lost:
		assert.Equal(t, uint32(42), info.ID)
	case <-time.After(time.Second):
		t.Fatal("no lost callback")
	}

	tr.Update(quietResult(0x8B))
	tr.Update(quietResult(0x8B))
	assert.False(t, tr.IsActive())
	assert.Nil(t, tr.Active())
	assert.Equal(t, 1, tr.Count())
	assert.Empty(t, detected)
}

func TestTrackerRedetectsAfterLost(t *testing.T) {
	detected := make(chan *TransmitterInfo, 4)
	lost := make(chan *TransmitterInfo, 4)

	tr := NewTransmitterTracker(4, 2)
	tr.SetCallbacks(
		func(i *TransmitterInfo) { detected <- i },
		func(i *TransmitterInfo) { lost <- i },
	)

	tr.Update(packetResult(0x0C, 42, time.Now()))
	tr.Update(quietResult(0x0C))
	tr.Update(quietResult(0x0C))
	select {
	case <-lost:
	case <-time.After(time.Second):
		t.Fatal("no lost callback")
	}
	assert.False(t, tr.IsActive())
	assert.Equal(t, 2, tr.HoldCounter())

	// back before the hold runs out
	tr.Update(packetResult(0x0C, 42, time.Now()))
	for i := 0; i < 2; i++ {
		select {
		case info := <-detected:
			assert.Equal(t, uint32(42), info.ID)
		case <-time.After(time.Second):
			t.Fatalf("detection %d missing", i+1)
		}
	}
	assert.True(t, tr.IsActive())

	// one more quiet attempt does not report it lost again
	tr.Update(quietResult(0x0C))
	assert.Empty(t, lost)
}

func TestTrackerPruneAndCopies(t *testing.T) {
	tr := NewTransmitterTracker(DefaultHoldMax, DefaultLostThreshold)
	old := time.Now().Add(-time.Hour)
	tr.Update(packetResult(0x10, 1, old))
	tr.Update(packetResult(0x20, 2, time.Now()))

	all := tr.All()
	require.Len(t, all, 2)
	assert.Equal(t, uint32(1), all[0].ID)
	all[0].Channels[0] = 0xFF
	assert.Equal(t, []uint8{0x10}, tr.All()[0].Channels)

	assert.Equal(t, 1, tr.PruneOld(time.Now().Add(-time.Minute)))
	assert.Equal(t, 1, tr.Count())

	tr.Clear()
	assert.Zero(t, tr.Count())
	assert.False(t, tr.IsActive())
}
