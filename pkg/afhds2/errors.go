package afhds2

import (
	"errors"
	"fmt"
)

// ErrDecodeMismatch indicates a frame that matches no known packet shape.
var ErrDecodeMismatch = errors.New("afhds2: frame matches no packet shape")

// DecodeMismatchError describes a rejected frame.
type DecodeMismatchError struct {
	Shape  string // shape tried, or "any"
	Tag    uint8
	Length int
}

func (e *DecodeMismatchError) Error() string {
	return fmt.Sprintf("afhds2: %s: no match for tag 0x%02X length %d", e.Shape, e.Tag, e.Length)
}

// Is matches ErrDecodeMismatch.
func (e *DecodeMismatchError) Is(target error) bool {
	return target == ErrDecodeMismatch
}

func mismatch(shape string, b []byte) error {
	e := &DecodeMismatchError{Shape: shape, Length: len(b)}
	if len(b) > 0 {
		e.Tag = b[0]
	}
	return e
}
