// Package backend opens an A7105 bus on one of the supported transports.
package backend

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"periph.io/x/periph/conn/physic"

	"github.com/herlein/goflysky/pkg/a7105"
	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/channels"
	"github.com/herlein/goflysky/pkg/ch341"
	"github.com/herlein/goflysky/pkg/sim"
	"github.com/herlein/goflysky/pkg/spidev"
)

// Backend kinds
const (
	KindSim    = "sim"
	KindCH341  = "ch341"
	KindSPIDev = "spidev"
)

// Options selects and configures a backend.
type Options struct {
	Kind    string
	Device  string // ch341 device selector
	SPI     string // spidev port name
	CS      string // spidev chip select GPIO
	Ready   string // spidev GPIO name, or ch341 D pin number (default D6)
	SpeedHz int    // spidev clock

	// SimTransmit lists channels on which the sim backend hears a demo
	// transmitter.
	SimTransmit string
}

// DefaultOptions returns options for the first CH341A bridge.
func DefaultOptions() Options {
	return Options{
		Kind:    KindCH341,
		SpeedHz: int(spidev.DefaultSpeed / physic.Hertz),
	}
}

// SetupFlags registers backend flags on fs and returns the options they fill.
func SetupFlags(fs *flag.FlagSet) *Options {
	o := DefaultOptions()
	fs.StringVar(&o.Kind, "backend", o.Kind, "Radio backend: sim, ch341 or spidev")
	fs.StringVar(&o.Device, "d", o.Device, ch341.DeviceFlagUsage())
	fs.StringVar(&o.SPI, "spi", o.SPI, "spidev: SPI port name, empty for the first one")
	fs.StringVar(&o.CS, "cs", o.CS, "spidev: chip select GPIO (e.g. GPIO8)")
	fs.StringVar(&o.Ready, "ready", o.Ready, "Data-ready input: GPIO name for spidev, D pin number for ch341 (default "+strconv.Itoa(ch341.DefaultReadyPin)+")")
	fs.IntVar(&o.SpeedHz, "speed", o.SpeedHz, "spidev: SPI clock in Hz")
	fs.StringVar(&o.SimTransmit, "sim-tx", o.SimTransmit, "sim: channels with a demo transmitter (e.g. 0x0C,0x8B)")
	return &o
}

// Handle is an open backend.
type Handle struct {
	Bus  *a7105.Bus
	Kind string
	Desc string

	// Chip is the simulated radio when Kind is sim.
	Chip *sim.Chip

	closers []func() error
}

// Close releases the transport.
func (h *Handle) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// Open opens the backend named by opts.Kind.
func Open(opts Options) (*Handle, error) {
	var h *Handle
	var err error
	switch opts.Kind {
	case KindSim:
		h, err = openSim(opts)
	case KindCH341:
		h, err = openCH341(opts)
	case KindSPIDev:
		h, err = openSPIDev(opts)
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}
	h.Kind = opts.Kind
	glog.Infof("using %s backend: %s", h.Kind, h.Desc)
	return h, nil
}

// DemoTransmitter is the id used by the sim backend's demo transmitter.
const DemoTransmitter = 0x1A2B3C4D

func openSim(opts Options) (*Handle, error) {
	chip := sim.NewChip()
	if opts.SimTransmit != "" {
		list, err := channels.Parse(opts.SimTransmit)
		if err != nil {
			return nil, fmt.Errorf("invalid sim-tx channels: %w", err)
		}
		frame, err := DemoSticks().MarshalBinary()
		if err != nil {
			return nil, err
		}
		for _, ch := range list {
			chip.Transmit(ch, frame)
		}
	}
	return &Handle{
		Bus:  a7105.New(chip, a7105.WithReadyPin(chip)),
		Desc: "simulated A7105",
		Chip: chip,
	}, nil
}

// DemoSticks returns the centred stick frame the sim backend transmits.
func DemoSticks() *afhds2.Sticks {
	s := &afhds2.Sticks{TransmitterID: DemoTransmitter}
	for i := range s.Channels {
		s.Channels[i] = afhds2.ChannelCenter
	}
	s.Channels[2] = afhds2.ChannelMin // throttle down
	return s
}

// ch341ReadyPin parses a D pin number, defaulting to ch341.DefaultReadyPin.
func ch341ReadyPin(s string) (uint, error) {
	if s == "" {
		return ch341.DefaultReadyPin, nil
	}
	pin, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid ch341 ready pin %q: %w", s, err)
	}
	return uint(pin), nil
}

func openCH341(opts Options) (*Handle, error) {
	pin, err := ch341ReadyPin(opts.Ready)
	if err != nil {
		return nil, err
	}

	usbCtx := gousb.NewContext()
	dev, err := ch341.SelectDevice(usbCtx, ch341.DeviceSelector(opts.Device))
	if err != nil {
		usbCtx.Close()
		return nil, err
	}
	if err := dev.Setup(ch341.Speed750K, pin); err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, err
	}

	return &Handle{
		Bus:     a7105.New(dev, a7105.WithReadyPin(dev), a7105.WithPacer(a7105.SuspendingPacer{})),
		Desc:    dev.String(),
		closers: []func() error{usbCtx.Close, dev.Close},
	}, nil
}

func openSPIDev(opts Options) (*Handle, error) {
	if opts.Ready == "" {
		glog.Warningf("spidev: no -ready pin set, data-ready waits will fail")
	}
	dev, err := spidev.Open(spidev.Config{
		SPI:   opts.SPI,
		CS:    opts.CS,
		Ready: opts.Ready,
		Speed: physic.Frequency(opts.SpeedHz) * physic.Hertz,
	})
	if err != nil {
		return nil, err
	}

	busOpts := []a7105.Option{a7105.WithPacer(a7105.SuspendingPacer{})}
	if dev.Ready != nil {
		busOpts = append(busOpts, a7105.WithReadyPin(dev.Ready))
	}
	return &Handle{
		Bus:     a7105.New(dev.Port, busOpts...),
		Desc:    fmt.Sprintf("spidev %q cs %s", opts.SPI, opts.CS),
		closers: []func() error{dev.Close},
	}, nil
}
