package ch341

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
)

type inEndpoint interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type outEndpoint interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

// Device is an opened CH341A bridge. It implements a7105.Port and
// a7105.ReadyPin.
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         inEndpoint
	epOut        outEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int

	readyPin  uint
	timeout   time.Duration
	sawHigh   bool
	frameDone bool
	mu        sync.Mutex
}

// FindAllDevices opens every connected CH341A.
func FindAllDevices(context *gousb.Context) ([]*Device, error) {
	devices := []*Device{}

	usbDevices, err := context.OpenDevices(func(descriptor *gousb.DeviceDesc) bool {
		return descriptor.Vendor == gousb.ID(VendorID) && descriptor.Product == gousb.ID(ProductID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			glog.Warningf("skipping CH341A on bus %d address %d: %v", usbDev.Desc.Bus, usbDev.Desc.Address, err)
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(endpointNum)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(endpointNum)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	desc := usbDev.Desc
	device := &Device{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		Bus:          desc.Bus,
		Address:      desc.Address,
		readyPin:     DefaultReadyPin,
		timeout:      USBDefaultTimeout,
	}
	return device, nil
}

// Setup sets the stream clock, releases chip select and picks the D pin
// sensed by Ready.
func (d *Device) Setup(speed uint8, readyPin uint) error {
	if readyPin > 7 {
		return fmt.Errorf("ready pin D%d out of range", readyPin)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.readyPin = readyPin
	if err := d.send(speedCommand(speed)); err != nil {
		return fmt.Errorf("failed to set stream speed: %w", err)
	}
	if err := d.send(csCommand(false)); err != nil {
		return fmt.Errorf("failed to release chip select: %w", err)
	}
	if glog.V(2) {
		glog.Infof("%s: speed %d, ready pin D%d", d, speed, readyPin)
	}
	return nil
}

// Reset issues a USB port reset.
func (d *Device) Reset() error {
	if d.usbDevice == nil {
		return fmt.Errorf("device not open")
	}
	return d.usbDevice.Reset()
}

// Close releases chip select and all USB resources.
func (d *Device) Close() error {
	if d.epOut != nil {
		// best effort so the chip is not left selected
		d.send(csCommand(false))
	}

	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	name := d.Product
	if name == "" {
		name = "CH341A"
	}
	if d.Serial == "" {
		return fmt.Sprintf("%s (bus %d address %d)", name, d.Bus, d.Address)
	}
	return fmt.Sprintf("%s %s (Serial: %s)", d.Manufacturer, name, d.Serial)
}
