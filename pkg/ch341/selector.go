package ch341

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// DeviceSelector specifies how to identify a CH341A bridge.
// Supported formats:
//   - ""           : Use first available device
//   - "serial"     : Match by serial number
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth device, 0-indexed (e.g., "#0", "#1")
//
// Most CH341A boards report no serial number, so bus:addr and #N are the
// usual choices when more than one is plugged in.
type DeviceSelector string

type selectorKind int

const (
	selectFirst selectorKind = iota
	selectIndex
	selectBusAddr
	selectSerial
)

type parsedSelector struct {
	kind   selectorKind
	index  int
	bus    int
	addr   int
	serial string
}

func (s DeviceSelector) parse() (parsedSelector, error) {
	sel := string(s)
	if sel == "" {
		return parsedSelector{kind: selectFirst}, nil
	}

	if strings.HasPrefix(sel, "#") {
		index, err := strconv.Atoi(sel[1:])
		if err != nil || index < 0 {
			return parsedSelector{}, fmt.Errorf("invalid device index: %s", sel)
		}
		return parsedSelector{kind: selectIndex, index: index}, nil
	}

	if strings.Contains(sel, ":") {
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return parsedSelector{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		return parsedSelector{kind: selectBusAddr, bus: bus, addr: addr}, nil
	}

	return parsedSelector{kind: selectSerial, serial: sel}, nil
}

// SelectDevice opens the CH341A matching the selector.
func SelectDevice(context *gousb.Context, selector DeviceSelector) (*Device, error) {
	p, err := selector.parse()
	if err != nil {
		return nil, err
	}

	devices, err := FindAllDevices(context)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no CH341A devices found")
	}

	i, err := p.pick(devices)
	for j, d := range devices {
		if j != i {
			d.Close()
		}
	}
	if err != nil {
		return nil, err
	}
	return devices[i], nil
}

// pick returns the index of the matching device, or -1 with an error.
func (p parsedSelector) pick(devices []*Device) (int, error) {
	switch p.kind {
	case selectFirst:
		return 0, nil

	case selectIndex:
		if p.index >= len(devices) {
			return -1, fmt.Errorf("device index %d out of range (found %d devices)", p.index, len(devices))
		}
		return p.index, nil

	case selectBusAddr:
		for i, d := range devices {
			if d.Bus == p.bus && d.Address == p.addr {
				return i, nil
			}
		}
		return -1, fmt.Errorf("no CH341A found at bus %d address %d", p.bus, p.addr)

	default:
		found := -1
		count := 0
		for i, d := range devices {
			if d.Serial == p.serial {
				found = i
				count++
			}
		}
		switch {
		case count == 0:
			return -1, fmt.Errorf("no CH341A found with serial %s", p.serial)
		case count > 1:
			return -1, fmt.Errorf("multiple devices (%d) found with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", count, p.serial)
		}
		return found, nil
	}
}

// DeviceFlagUsage returns usage text for the -d flag.
func DeviceFlagUsage() string {
	return `Device selector. Formats:
    ""        - Use first available device
    "serial"  - Match by serial number
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth device, 0-indexed (e.g., "#0", "#1")`
}
