package publish

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/herlein/goflysky/pkg/afhds2"
	"github.com/herlein/goflysky/pkg/scanner"
)

// Redis keys
const (
	RedisKeyPrefix     = "afhds2:tx:"
	RedisPacketChannel = "afhds2:packets"
)

type redisClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink keeps the latest state of every transmitter in a hash and
// announces each update on a pub/sub channel.
type RedisSink struct {
	db redisClient
}

// NewRedisSink connects to a Redis server at addr.
func NewRedisSink(ctx context.Context, addr string) (*RedisSink, error) {
	db := redis.NewClient(&redis.Options{Addr: addr})
	if err := db.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &RedisSink{db: db}, nil
}

// Fields returns the hash fields stored for a packet result.
func Fields(r *scanner.ScanResult) map[string]interface{} {
	f := map[string]interface{}{
		"channel":   int(r.Channel),
		"kind":      r.Packet.Kind().String(),
		"receiver":  TransmitterKey(r.Packet.Receiver()),
		"last_seen": r.Timestamp.UnixNano(),
	}
	switch p := r.Packet.(type) {
	case *afhds2.Sticks:
		for i, v := range p.Channels {
			f[fmt.Sprintf("ch%d", i+1)] = int(v)
		}
	case *afhds2.Bind:
		f["stage"] = int(p.Stage)
	}
	return f
}

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, r *scanner.ScanResult) error {
	if !r.PacketReceived() {
		return nil
	}
	id := TransmitterKey(r.Packet.Transmitter())
	if err := s.db.HSet(ctx, RedisKeyPrefix+id, Fields(r)).Err(); err != nil {
		return fmt.Errorf("failed to store transmitter %s: %w", id, err)
	}
	if err := s.db.Publish(ctx, RedisPacketChannel, id).Err(); err != nil {
		return fmt.Errorf("failed to announce transmitter %s: %w", id, err)
	}
	return nil
}

// Close closes the connection.
func (s *RedisSink) Close() error {
	return s.db.Close()
}
