package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/registers"
)

func TestChipRegisterFile(t *testing.T) {
	chip := NewChip()
	bus := a7105.New(chip)

	require.NoError(t, bus.WriteReg(registers.RegDataRate, 0x07))
	v, err := bus.ReadReg(registers.RegDataRate)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x07), v)

	require.NoError(t, bus.WriteID(0x5475C52A))
	assert.Equal(t, [4]byte{0x54, 0x75, 0xC5, 0x2A}, chip.ID())

	require.NoError(t, bus.Reset())
	assert.Equal(t, uint8(0), chip.Reg(registers.RegDataRate))
	assert.Equal(t, [4]byte{}, chip.ID())
	assert.False(t, chip.Selected())
}

func TestChipStrobesTrackState(t *testing.T) {
	chip := NewChip()
	bus := a7105.New(chip)

	for _, tc := range []struct {
		strobe a7105.Strobe
		state  State
		mode   uint8
	}{
		{a7105.StrobeSleep, StateSleep, 0},
		{a7105.StrobeIdle, StateIdle, registers.ModeCER},
		{a7105.StrobePLL, StatePLL, registers.ModeCER | registers.ModeXER | registers.ModePLLER},
		{a7105.StrobeRX, StateRX, 0x1F},
		{a7105.StrobeStandby, StateStandby, registers.ModeCER | registers.ModeXER},
	} {
		require.NoError(t, bus.Strobe(tc.strobe))
		assert.Equal(t, tc.state, chip.State(), tc.strobe.String())
		m, err := registers.ReadModeStatus(bus)
		require.NoError(t, err)
		assert.Equal(t, tc.mode, m.Encode(), tc.strobe.String())
	}
}

func TestChipCalibrationAutoClear(t *testing.T) {
	chip := NewChip()
	chip.ClearAfter = 3
	bus := a7105.New(chip)

	require.NoError(t, bus.WriteReg(registers.RegCalibration, registers.CalibrateVCOBank))
	for i := 0; i < 2; i++ {
		v, err := bus.ReadReg(registers.RegCalibration)
		require.NoError(t, err)
		assert.Equal(t, uint8(registers.CalibrateVCOBank), v)
	}
	v, err := bus.ReadReg(registers.RegCalibration)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestChipBandFailure(t *testing.T) {
	chip := NewChip()
	chip.ClearAfter = 1
	chip.FailBand[0x20] = true
	bus := a7105.New(chip)

	require.NoError(t, registers.SetChannel(bus, 0x20))
	require.NoError(t, bus.WriteReg(registers.RegCalibration, registers.CalibrateVCOBank))
	_, err := bus.ReadReg(registers.RegCalibration)
	require.NoError(t, err)

	band, raw, err := registers.ReadVCOBandResult(bus)
	require.NoError(t, err)
	assert.True(t, band.Failed)
	assert.Equal(t, uint8(0x0B), raw)
}

func TestChipReceivePath(t *testing.T) {
	chip := NewChip()
	chip.Latency = 1
	bus := a7105.New(chip, a7105.WithReadyPin(chip))
	frame := []byte{0x58, 1, 2, 3}
	chip.Transmit(0x30, frame)

	// not listening yet
	ok, err := chip.Ready()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bus.WriteThenStrobe(a7105.StrobeRX, registers.RegPLL1, []byte{0x30}))
	assert.Equal(t, 1, chip.Armed())

	ok, _ = chip.Ready()
	assert.False(t, ok)
	ok, _ = chip.Ready()
	assert.True(t, ok)
	assert.Equal(t, StateStandby, chip.State())

	buf := make([]byte, 4)
	require.NoError(t, bus.StrobeThenRead(a7105.StrobeFIFOReadReset, registers.RegFIFOData, buf))
	assert.Equal(t, frame, buf)

	chip.Silence(0x30)
	require.NoError(t, bus.Strobe(a7105.StrobeRX))
	for i := 0; i < 5; i++ {
		ok, _ = chip.Ready()
		assert.False(t, ok)
	}
}

func TestChipRSSI(t *testing.T) {
	chip := NewChip()
	chip.Transmit(0x10, []byte{0x58})
	bus := a7105.New(chip)

	require.NoError(t, registers.SetChannel(bus, 0x10))
	rssi, err := registers.ReadRSSI(bus)
	require.NoError(t, err)
	assert.Equal(t, registers.RSSI(noiseRSSI), rssi)

	require.NoError(t, bus.Strobe(a7105.StrobeRX))
	rssi, err = registers.ReadRSSI(bus)
	require.NoError(t, err)
	assert.Equal(t, registers.RSSI(carrierRSSI), rssi)
}

func TestChipIgnoreChannelWrites(t *testing.T) {
	chip := NewChip()
	chip.IgnoreChannelWrites = true
	bus := a7105.New(chip)
	require.NoError(t, registers.SetChannel(bus, 0x44))
	ch, err := registers.GetChannel(bus)
	require.NoError(t, err)
	assert.Zero(t, ch)
}

func TestChipFailNext(t *testing.T) {
	chip := NewChip()
	bus := a7105.New(chip)
	boom := errors.New("boom")
	chip.FailNext(boom)

	err := bus.Strobe(a7105.StrobeIdle)
	require.ErrorIs(t, err, boom)
	assert.True(t, a7105.IsBusError(err))

	require.NoError(t, bus.Strobe(a7105.StrobeIdle))
}

func TestChipRejectsUnselectedTransfers(t *testing.T) {
	chip := NewChip()
	assert.ErrorIs(t, chip.Write([]byte{0x90}), ErrNotSelected)
	assert.ErrorIs(t, chip.Read(make([]byte, 1)), ErrNotSelected)
}

func TestChipEventLog(t *testing.T) {
	chip := NewChip()
	bus := a7105.New(chip)
	require.NoError(t, bus.WriteThenStrobe(a7105.StrobeRX, registers.RegPLL1, []byte{0x8B}))
	_, err := bus.ReadReg(registers.RegMode)
	require.NoError(t, err)

	ev := chip.Events()
	require.Len(t, ev, 3)
	assert.Equal(t, Event{Kind: EventWrite, Addr: registers.RegPLL1, Data: []byte{0x8B}}, ev[0])
	assert.Equal(t, Event{Kind: EventStrobe, Strobe: a7105.StrobeRX}, ev[1])
	assert.Equal(t, Event{Kind: EventRead, Addr: registers.RegMode}, ev[2])

	chip.ClearEvents()
	assert.Empty(t, chip.Events())
}
