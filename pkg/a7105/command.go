package a7105

// Command is a single-transaction chip command: a Strobe or Reset.
type Command interface {
	frame() []byte
}

func (s Strobe) frame() []byte { return []byte{byte(s)} }

type resetCommand struct{}

func (resetCommand) frame() []byte { return []byte{WriteAddress(RegMode), 0x00} }

func (resetCommand) String() string { return "RESET" }

// Reset restores every register to its power-on default.
var Reset Command = resetCommand{}

// WriteAddress returns the address byte for a write to addr.
func WriteAddress(addr uint8) byte {
	return addr & AddrMask
}

// ReadAddress returns the address byte for a read of addr.
func ReadAddress(addr uint8) byte {
	return (addr & AddrMask) | ReadFlag
}
