// Package msgs defines the protobuf messages published for received packets.
package msgs

import (
	"github.com/golang/protobuf/proto"
)

// SticksMessage is a decoded stick frame.
type SticksMessage struct {
	TransmitterID uint32   `protobuf:"varint,1,opt,name=transmitter_id,proto3" json:"transmitter_id,omitempty"`
	ReceiverID    uint32   `protobuf:"varint,2,opt,name=receiver_id,proto3" json:"receiver_id,omitempty"`
	Channel       uint32   `protobuf:"varint,3,opt,name=channel,proto3" json:"channel,omitempty"`
	Channels      []uint32 `protobuf:"varint,4,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	Timestamp     int64    `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *SticksMessage) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SticksMessage) Reset() { *m = SticksMessage{} }

// String implements proto.Message.
func (m *SticksMessage) String() string { return proto.CompactTextString(m) }

// BindMessage is a bind request.
type BindMessage struct {
	TransmitterID uint32 `protobuf:"varint,1,opt,name=transmitter_id,proto3" json:"transmitter_id,omitempty"`
	ReceiverID    uint32 `protobuf:"varint,2,opt,name=receiver_id,proto3" json:"receiver_id,omitempty"`
	Channel       uint32 `protobuf:"varint,3,opt,name=channel,proto3" json:"channel,omitempty"`
	Tag           uint32 `protobuf:"varint,4,opt,name=tag,proto3" json:"tag,omitempty"`
	Stage         uint32 `protobuf:"varint,5,opt,name=stage,proto3" json:"stage,omitempty"`
	Timestamp     int64  `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *BindMessage) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BindMessage) Reset() { *m = BindMessage{} }

// String implements proto.Message.
func (m *BindMessage) String() string { return proto.CompactTextString(m) }
