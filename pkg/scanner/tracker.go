package scanner

import (
	"sort"
	"sync"
	"time"
)

// TransmitterTracker manages heard transmitters with hysteresis
type TransmitterTracker struct {
	transmitters map[uint32]*TransmitterInfo
	mu           sync.RWMutex
	holdCounter  int // Counts down on attempts without a packet
	holdMax      int // Maximum hold count
	lostAt       int // Counter value when "lost" callback fires

	// Current active transmitter
	active *TransmitterInfo

	// Callbacks
	onDetected func(*TransmitterInfo)
	onLost     func(*TransmitterInfo)
}

// NewTransmitterTracker creates a new tracker with the given parameters
func NewTransmitterTracker(holdMax, lostAt int) *TransmitterTracker {
	return &TransmitterTracker{
		transmitters: make(map[uint32]*TransmitterInfo),
		holdMax:      holdMax,
		lostAt:       lostAt,
	}
}

// SetCallbacks sets the detection callbacks. They run on their own goroutine
// and receive copies.
func (t *TransmitterTracker) SetCallbacks(onDetected, onLost func(*TransmitterInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDetected = onDetected
	t.onLost = onLost
}

// Update processes a scan result and updates tracking state
func (t *TransmitterTracker) Update(result *ScanResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !result.PacketReceived() {
		t.decay()
		return
	}

	t.holdCounter = t.holdMax
	pkt := result.Packet
	id := pkt.Transmitter()

	info, exists := t.transmitters[id]
	if !exists {
		info = &TransmitterInfo{
			ID:        id,
			FirstSeen: result.Timestamp,
		}
		t.transmitters[id] = info
	}
	info.ReceiverID = pkt.Receiver()
	info.LastChannel = result.Channel
	info.LastKind = pkt.Kind()
	info.LastSeen = result.Timestamp
	info.PacketCount++
	if !containsChannel(info.Channels, result.Channel) {
		info.Channels = append(info.Channels, result.Channel)
	}

	if t.active == nil || t.active.ID != id {
		t.active = info
		if t.onDetected != nil {
			infoCopy := copyInfo(info)
			go t.onDetected(infoCopy)
		}
	}
}

func (t *TransmitterTracker) decay() {
	if t.holdCounter == 0 {
		return
	}
	t.holdCounter--

	// Once reported lost, the next packet is a new detection
	if t.active != nil && t.holdCounter <= t.lostAt {
		if t.onLost != nil {
			infoCopy := copyInfo(t.active)
			go t.onLost(infoCopy)
		}
		t.active = nil
	}
}

// Active returns the transmitter currently being heard, if any
func (t *TransmitterTracker) Active() *TransmitterInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.active == nil {
		return nil
	}
	return copyInfo(t.active)
}

// All returns every tracked transmitter ordered by id
func (t *TransmitterTracker) All() []*TransmitterInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*TransmitterInfo, 0, len(t.transmitters))
	for _, info := range t.transmitters {
		out = append(out, copyInfo(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of tracked transmitters
func (t *TransmitterTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.transmitters)
}

// Clear removes all tracked transmitters
func (t *TransmitterTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.transmitters = make(map[uint32]*TransmitterInfo)
	t.active = nil
	t.holdCounter = 0
}

// PruneOld removes transmitters not heard since the given time
func (t *TransmitterTracker) PruneOld(since time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for id, info := range t.transmitters {
		if info.LastSeen.Before(since) {
			delete(t.transmitters, id)
			if t.active == info {
				t.active = nil
			}
			count++
		}
	}
	return count
}

// IsActive returns true if a transmitter is currently held
func (t *TransmitterTracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active != nil && t.holdCounter > 0
}

// HoldCounter returns the current hold counter value
func (t *TransmitterTracker) HoldCounter() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.holdCounter
}

func copyInfo(info *TransmitterInfo) *TransmitterInfo {
	c := *info
	c.Channels = append([]uint8(nil), info.Channels...)
	return &c
}

func containsChannel(list []uint8, ch uint8) bool {
	for _, c := range list {
		if c == ch {
			return true
		}
	}
	return false
}
