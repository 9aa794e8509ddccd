package calibration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/profiles"
	"github.com/herlein/goflysky/pkg/registers"
	"github.com/herlein/goflysky/pkg/sim"
)

func newSequencer(t *testing.T, chip *sim.Chip, opts ...Option) *Sequencer {
	t.Helper()
	bus := a7105.New(chip, a7105.WithReadyPin(chip))
	base := []Option{
		WithPowerUpDelay(0),
		WithResetDelay(0),
		WithAutoClearBound(a7105.Bound{Polls: 8}),
	}
	return New(bus, append(base, opts...)...)
}

func TestRunSucceeds(t *testing.T) {
	chip := sim.NewChip()
	report, err := newSequencer(t, chip).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.True(t, report.IFFilter.Done)
	assert.Equal(t, uint8(0x13), report.VCOCurrent)
	require.Len(t, report.VCOBand, 2)
	for i, ch := range DefaultReferenceChannels {
		assert.Equal(t, ch, report.VCOBand[i].Channel)
		assert.True(t, report.VCOBand[i].Result.Success)
		assert.NoError(t, report.VCOBand[i].Err)
	}
	assert.Equal(t, uint8(0xA0), report.ChannelReadback)
	assert.Empty(t, report.Warnings)

	assert.Equal(t, uint8(0x13), chip.Reg(registers.RegVCOCurrentCal))
	assert.Equal(t, uint8(0x3B), chip.Reg(registers.RegVCOBandCal2))
	assert.Equal(t, uint8(registers.VCOBandCalibrationOff), chip.Reg(registers.RegVCOBandCal1))
	assert.Equal(t, [4]byte{0x54, 0x75, 0xC5, 0x2A}, chip.ID())
	assert.Equal(t, sim.StateStandby, chip.State())
	assert.False(t, chip.Selected())
}

func TestCalibrationWriteOrder(t *testing.T) {
	chip := sim.NewChip()
	seq := newSequencer(t, chip)
	require.NoError(t, seq.Initialize(context.Background()))
	chip.ClearEvents()

	_, err := seq.Calibrate(context.Background())
	require.NoError(t, err)

	var got []string
	for _, ev := range chip.Events() {
		if ev.Kind != sim.EventRead {
			got = append(got, ev.String())
		}
	}
	want := []string{
		"strobe STANDBY",
		"write 0x02 01",
		"write 0x24 13",
		"write 0x26 3B",
		"write 0x0F 00",
		"write 0x02 02",
		"write 0x0F A0",
		"write 0x02 02",
		"write 0x25 08",
		"strobe STANDBY",
	}
	assert.Equal(t, want, got)
}

func TestBandFailureIsRecorded(t *testing.T) {
	chip := sim.NewChip()
	chip.FailBand[0xA0] = true

	report, err := newSequencer(t, chip).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.OK())

	require.Len(t, report.VCOBand, 2)
	assert.NoError(t, report.VCOBand[0].Err)
	var cf *CalibrationFailureError
	require.True(t, errors.As(report.VCOBand[1].Err, &cf))
	assert.Equal(t, StageVCOBand, cf.Stage)
	assert.Equal(t, uint8(0xA0), cf.Channel)
	assert.False(t, report.VCOBand[1].Result.Success)

	// the sequence still finishes
	assert.Equal(t, uint8(registers.VCOBandCalibrationOff), chip.Reg(registers.RegVCOBandCal1))
	assert.True(t, errors.As(report.Err(), &cf))
}

func TestStuckIFFilterTimesOut(t *testing.T) {
	chip := sim.NewChip()
	chip.Stuck = registers.CalibrateIFFilter

	report, err := newSequencer(t, chip).Run(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, report.IFFilter.Err, a7105.ErrTimeout)
	assert.False(t, report.IFFilter.Done)
	assert.False(t, report.OK())
	require.Len(t, report.VCOBand, 2)
	assert.NoError(t, report.VCOBand[1].Err)
}

func TestChannelPersistenceWarning(t *testing.T) {
	chip := sim.NewChip()
	chip.IgnoreChannelWrites = true

	report, err := newSequencer(t, chip).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	require.Len(t, report.Warnings, 1)

	var pm *ChannelPersistenceMismatchError
	require.True(t, errors.As(report.Err(), &pm))
	assert.Equal(t, uint8(0xA0), pm.Expected)
	assert.Equal(t, uint8(0x00), pm.Actual)
}

func TestIDMismatch(t *testing.T) {
	p := &profiles.Profile{
		Name: "double-id",
		Writes: []profiles.RegisterWrite{
			{Addr: registers.RegID, Value: []byte{0x11, 0x22, 0x33, 0x44}},
			{Addr: registers.RegID, Value: []byte{0x55, 0x66, 0x77, 0x88}},
		},
	}
	err := newSequencer(t, sim.NewChip(), WithProfile(p)).Initialize(context.Background())
	var ie *InitError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "verify-id", ie.Step)
	var im *IDMismatchError
	require.True(t, errors.As(err, &im))
	assert.Equal(t, uint32(0x11223344), im.Want)
	assert.Equal(t, uint32(0x55667788), im.Got)

	err = newSequencer(t, sim.NewChip(), WithProfile(p), WithVerifyID(false)).Initialize(context.Background())
	assert.NoError(t, err)
}

func TestBusErrorAborts(t *testing.T) {
	chip := sim.NewChip()
	seq := newSequencer(t, chip)
	require.NoError(t, seq.Initialize(context.Background()))

	chip.FailNext(errors.New("usb: device gone"))
	report, err := seq.Calibrate(context.Background())
	require.Error(t, err)
	assert.True(t, a7105.IsBusError(err))
	assert.Empty(t, report.VCOBand)
	assert.False(t, chip.Selected())
}

func TestCancelledContextAborts(t *testing.T) {
	chip := sim.NewChip()
	seq := newSequencer(t, chip)
	require.NoError(t, seq.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := seq.Calibrate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitializeRejectsInvalidProfile(t *testing.T) {
	p := &profiles.Profile{Name: "bad", Writes: []profiles.RegisterWrite{{Addr: registers.RegFIFOData, Value: []byte{0}}}}
	err := newSequencer(t, sim.NewChip(), WithProfile(p)).Initialize(context.Background())
	var ie *InitError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "profile", ie.Step)
}
