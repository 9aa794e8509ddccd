// Package spidev drives an A7105 wired straight to a Linux SPI bus, with
// chip select and the WTR line on GPIOs.
package spidev

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// DefaultSpeed is safely below the A7105 10 MHz limit.
const DefaultSpeed = 4 * physic.MegaHertz

// Config names the SPI port and pins. Names are anything periph's
// registries accept, e.g. "/dev/spidev0.0" and "GPIO25".
type Config struct {
	SPI   string
	CS    string
	Ready string
	Speed physic.Frequency
}

type txer interface {
	Tx(w, r []byte) error
}

// Port is an a7105.Port over a spi.Conn with a GPIO chip select. The
// kernel chip select is disabled because an A7105 transaction spans
// several Tx calls.
type Port struct {
	conn txer
	cs   gpio.PinOut
	mu   sync.Mutex
}

// NewPort wraps an already connected SPI conn.
func NewPort(conn txer, cs gpio.PinOut) (*Port, error) {
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("failed to release chip select %s: %w", cs, err)
	}
	return &Port{conn: conn, cs: cs}, nil
}

// Select drives chip select low.
func (p *Port) Select() error {
	return p.cs.Out(gpio.Low)
}

// Deselect drives chip select high.
func (p *Port) Deselect() error {
	return p.cs.Out(gpio.High)
}

// Write shifts p out and ignores MISO.
func (p *Port) Write(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(b) == 0 {
		return nil
	}
	return p.conn.Tx(b, make([]byte, len(b)))
}

// Read shifts out zeros and fills b.
func (p *Port) Read(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(b) == 0 {
		return nil
	}
	return p.conn.Tx(make([]byte, len(b)), b)
}

// WTRPin turns the WTR level into a frame-ready flag. WTR is high while a
// frame is being received, so ready means a high level was seen since the
// last Arm and the line is now low.
type WTRPin struct {
	pin       gpio.PinIn
	sawHigh   bool
	frameDone bool
	mu        sync.Mutex
}

// NewWTRPin configures pin as a floating input.
func NewWTRPin(pin gpio.PinIn) (*WTRPin, error) {
	if err := pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure %s as input: %w", pin, err)
	}
	return &WTRPin{pin: pin}, nil
}

// Ready implements a7105.ReadyPin.
func (w *WTRPin) Ready() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frameDone {
		return true, nil
	}
	switch {
	case w.pin.Read() == gpio.High:
		w.sawHigh = true
	case w.sawHigh:
		w.frameDone = true
	}
	return w.frameDone, nil
}

// Arm implements a7105.Armer.
func (w *WTRPin) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sawHigh = false
	w.frameDone = false
}

// Device is an opened SPI port with its pins.
type Device struct {
	*Port
	Ready *WTRPin
	port  spi.PortCloser
}

// Close releases the SPI port.
func (d *Device) Close() error {
	return d.port.Close()
}

// Open initializes the host drivers and opens the port and pins.
func Open(cfg Config) (*Device, error) {
	if cfg.CS == "" {
		return nil, errors.New("a chip select GPIO is required")
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}

	port, err := spireg.Open(cfg.SPI)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", cfg.SPI, err)
	}
	conn, err := port.Connect(cfg.Speed, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect SPI port %q: %w", cfg.SPI, err)
	}

	cs := gpioreg.ByName(cfg.CS)
	if cs == nil {
		port.Close()
		return nil, fmt.Errorf("chip select pin %q not found", cfg.CS)
	}
	p, err := NewPort(conn, cs)
	if err != nil {
		port.Close()
		return nil, err
	}

	d := &Device{Port: p, port: port}
	if cfg.Ready != "" {
		pin := gpioreg.ByName(cfg.Ready)
		if pin == nil {
			port.Close()
			return nil, fmt.Errorf("ready pin %q not found", cfg.Ready)
		}
		if d.Ready, err = NewWTRPin(pin); err != nil {
			port.Close()
			return nil, err
		}
	}

	glog.Infof("opened %s at %s, cs %s, ready %q", conn, cfg.Speed, cfg.CS, cfg.Ready)
	return d, nil
}
