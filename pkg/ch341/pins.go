package ch341

import "fmt"

// Pins returns the D0..D7 input levels.
func (d *Device) Pins() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pins()
}

func (d *Device) pins() (uint8, error) {
	if err := d.send([]byte{cmdGetInput}); err != nil {
		return 0, err
	}
	reply, err := d.recv(inputReplyLen)
	if err != nil {
		return 0, fmt.Errorf("failed to read pins: %w", err)
	}
	return reply[0], nil
}

// Ready reports a completed frame on the WTR pin. WTR rises when the
// receiver starts and falls when the frame is in the FIFO, so a low level
// only counts after a high one has been seen since the last Arm.
func (d *Device) Ready() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameDone {
		return true, nil
	}
	v, err := d.pins()
	if err != nil {
		return false, err
	}
	high := v&(1<<d.readyPin) != 0
	switch {
	case high:
		d.sawHigh = true
	case d.sawHigh:
		d.frameDone = true
	}
	return d.frameDone, nil
}

// Arm restarts WTR edge tracking. The bus calls it on every RX strobe.
func (d *Device) Arm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sawHigh = false
	d.frameDone = false
}
