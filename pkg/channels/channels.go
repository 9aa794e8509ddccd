// Package channels provides candidate channel lists and a wrapping cursor
// for the receive scanner. Channels are A7105 PLL channel numbers.
package channels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Channel range
const (
	First = 0x00
	Last  = 0xA0
)

// ErrEmpty indicates a channel list with no entries.
var ErrEmpty = errors.New("channel list is empty")

// List is an ordered set of candidate channels.
type List []uint8

// BindChannels are the two channels AFHDS2A transmitters bind on.
var BindChannels = List{0x0C, 0x8B}

// Sweep returns every channel from first to last inclusive.
func Sweep(first, last uint8) List {
	if last < first {
		first, last = last, first
	}
	l := make(List, 0, int(last)-int(first)+1)
	for ch := int(first); ch <= int(last); ch++ {
		l = append(l, uint8(ch))
	}
	return l
}

// FullSweep returns 0x00 through 0xA0.
func FullSweep() List {
	return Sweep(First, Last)
}

// Validate rejects empty lists and channels past Last.
func (l List) Validate() error {
	if len(l) == 0 {
		return ErrEmpty
	}
	for _, ch := range l {
		if ch > Last {
			return fmt.Errorf("channel 0x%02X out of range (max 0x%02X)", ch, Last)
		}
	}
	return nil
}

// Contains reports whether ch is in the list.
func (l List) Contains(ch uint8) bool {
	for _, c := range l {
		if c == ch {
			return true
		}
	}
	return false
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, ch := range l {
		parts[i] = fmt.Sprintf("0x%02X", ch)
	}
	return strings.Join(parts, ",")
}

// Parse reads a channel list. Accepted forms are "bind", "sweep", and comma
// separated entries that are either single channels or "a-b" ranges, in
// decimal or 0x-prefixed hex.
func Parse(s string) (List, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "bind":
		return append(List(nil), BindChannels...), nil
	case "sweep", "all":
		return FullSweep(), nil
	}

	var out List
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err := parseChannel(lo)
			if err != nil {
				return nil, err
			}
			b, err := parseChannel(hi)
			if err != nil {
				return nil, err
			}
			out = append(out, Sweep(a, b)...)
			continue
		}
		ch, err := parseChannel(part)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseChannel(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid channel %q: %w", s, err)
	}
	return uint8(v), nil
}

// Cursor walks a List and wraps around indefinitely.
type Cursor struct {
	list List
	idx  int
	mu   sync.Mutex
}

// NewCursor creates a cursor at the first entry of list.
func NewCursor(list List) (*Cursor, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}
	l := make(List, len(list))
	copy(l, list)
	return &Cursor{list: l}, nil
}

// Current returns the channel under the cursor.
func (c *Cursor) Current() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list[c.idx]
}

// Advance moves to the next channel, wrapping at the end, and returns it.
func (c *Cursor) Advance() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = (c.idx + 1) % len(c.list)
	return c.list[c.idx]
}

// Index returns the cursor position.
func (c *Cursor) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idx
}

// Len returns the list length.
func (c *Cursor) Len() int {
	return len(c.list)
}

// Reset moves back to the first entry.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.idx = 0
}

// List returns a copy of the underlying list.
func (c *Cursor) List() List {
	l := make(List, len(c.list))
	copy(l, c.list)
	return l
}
