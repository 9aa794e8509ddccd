package ch341

import (
	"context"
	"fmt"
	"math/bits"
)

// reverse returns p with every byte bit-reversed. The bridge shifts LSB
// first and the A7105 expects MSB first.
func reverse(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = bits.Reverse8(b)
	}
	return out
}

// streamPackets splits data into SPI stream packets of at most
// PacketLength bytes, bit-reversing the payload.
func streamPackets(data []byte) [][]byte {
	var packets [][]byte
	for len(data) > 0 {
		n := len(data)
		if n > maxStreamPayload {
			n = maxStreamPayload
		}
		pkt := make([]byte, 0, n+1)
		pkt = append(pkt, cmdSPIStream)
		pkt = append(pkt, reverse(data[:n])...)
		packets = append(packets, pkt)
		data = data[n:]
	}
	return packets
}

func csCommand(assert bool) []byte {
	pins := byte(pinsCSDeasserted)
	if assert {
		pins = pinsCSAsserted
	}
	return []byte{cmdUIOStream, uioStreamOut | pins, uioStreamDir | pinsDirection, uioStreamEnd}
}

func speedCommand(speed uint8) []byte {
	return []byte{cmdI2CStream, i2cStreamSet | (speed & 0x03), i2cStreamEnd}
}

// transfer clocks out and returns the full-duplex reply.
func (d *Device) transfer(out []byte) ([]byte, error) {
	in := make([]byte, 0, len(out))
	for _, pkt := range streamPackets(out) {
		if err := d.send(pkt); err != nil {
			return nil, err
		}
		reply, err := d.recv(len(pkt) - 1)
		if err != nil {
			return nil, err
		}
		in = append(in, reverse(reply)...)
	}
	return in, nil
}

func (d *Device) send(pkt []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	n, err := d.epOut.WriteContext(ctx, pkt)
	if err != nil {
		return fmt.Errorf("failed to write to bridge: %w", err)
	}
	if n != len(pkt) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(pkt))
	}
	return nil
}

// recv reads exactly n bytes, which may arrive over several bulk reads.
func (d *Device) recv(n int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	buf := make([]byte, 0, n)
	chunk := make([]byte, PacketLength)
	for len(buf) < n {
		m, err := d.epIn.ReadContext(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to read from bridge: %w", err)
		}
		if m > n-len(buf) {
			m = n - len(buf)
		}
		buf = append(buf, chunk[:m]...)
	}
	return buf, nil
}

// Select asserts chip select.
func (d *Device) Select() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.send(csCommand(true))
}

// Deselect releases chip select.
func (d *Device) Deselect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.send(csCommand(false))
}

// Write clocks p out and discards the reply.
func (d *Device) Write(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.transfer(p)
	return err
}

// Read clocks out zeros and fills p with the reply.
func (d *Device) Read(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	in, err := d.transfer(make([]byte, len(p)))
	if err != nil {
		return err
	}
	copy(p, in)
	return nil
}
