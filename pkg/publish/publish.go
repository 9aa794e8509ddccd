// Package publish forwards received packets to MQTT and Redis.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/publish/msgs"
	"github.com/herlein/goflysky/pkg/scanner"
)

// Sink receives scan results. Results without a packet are ignored.
type Sink interface {
	Publish(ctx context.Context, r *scanner.ScanResult) error
	Close() error
}

// Message converts a packet result to its protobuf message and kind name.
// It returns nil for results without a packet.
func Message(r *scanner.ScanResult) (proto.Message, string) {
	if !r.PacketReceived() {
		return nil, ""
	}
	ts := r.Timestamp.UnixNano()
	switch p := r.Packet.(type) {
	case *afhds2.Sticks:
		m := &msgs.SticksMessage{
			TransmitterID: p.TransmitterID,
			ReceiverID:    p.ReceiverID,
			Channel:       uint32(r.Channel),
			Channels:      make([]uint32, len(p.Channels)),
			Timestamp:     ts,
		}
		for i, v := range p.Channels {
			m.Channels[i] = uint32(v)
		}
		return m, afhds2.KindSticks.String()
	case *afhds2.Bind:
		return &msgs.BindMessage{
			TransmitterID: p.TransmitterID,
			ReceiverID:    p.ReceiverID,
			Channel:       uint32(r.Channel),
			Tag:           uint32(p.Tag),
			Stage:         uint32(p.Stage),
			Timestamp:     ts,
		}, afhds2.KindBind.String()
	}
	return nil, ""
}

// TransmitterKey formats a transmitter id the way topics and keys use it.
func TransmitterKey(id uint32) string {
	return fmt.Sprintf("%08X", id)
}

// Multi fans results out to every sink.
type Multi []Sink

// Publish sends r to all sinks and joins their errors.
func (m Multi) Publish(ctx context.Context, r *scanner.ScanResult) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
