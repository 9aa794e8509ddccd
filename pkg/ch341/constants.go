// Package ch341 drives an A7105 through a CH341A USB-to-SPI bridge.
//
// The bridge exposes one bulk pipe. SPI bytes go out in stream packets and
// the same number of bytes come back. Chip select and the data-ready input
// are D pins driven through the UIO stream and input commands.
package ch341

import "time"

// USB identifiers
const (
	VendorID  = 0x1A86
	ProductID = 0x5512

	endpointNum = 2 // bulk OUT 0x02, IN 0x82
)

// Bridge commands
const (
	cmdGetInput   = 0xA0
	cmdSPIStream  = 0xA8
	cmdI2CStream  = 0xAA
	cmdUIOStream  = 0xAB
	i2cStreamSet  = 0x60
	i2cStreamEnd  = 0x00
	uioStreamOut  = 0x80
	uioStreamDir  = 0x40
	uioStreamEnd  = 0x20
	inputReplyLen = 6
)

// PacketLength is the bulk packet size. One byte of every SPI packet is
// the stream command.
const (
	PacketLength     = 32
	maxStreamPayload = PacketLength - 1
)

// Pin states on D0..D5. D0 is chip select, active low.
const (
	pinsCSAsserted   = 0x36
	pinsCSDeasserted = 0x37
	pinsDirection    = 0x3F // D0..D5 outputs, D6 and D7 inputs
)

// DefaultReadyPin is the D pin wired to the A7105 GIO2 (WTR) output.
const DefaultReadyPin = 6

// Stream speeds for the 0xAA set command
const (
	Speed20K  = 0
	Speed100K = 1
	Speed400K = 2
	Speed750K = 3
)

// USBDefaultTimeout bounds every bulk transfer
const USBDefaultTimeout = 500 * time.Millisecond
