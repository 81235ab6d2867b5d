package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror appends every published Event to a Redis stream keyed by
// session id, so a second process can XRANGE/XREAD the same ordered log
// without going through this process's in-memory Bus, adapting
// internal/infrastructure/cache.RedisCache.
type RedisMirror struct {
	client     *redis.Client
	streamTTL  int64 // seconds; 0 disables expiry
	streamKey  func(sessionID string) string
}

// NewRedisMirror wraps an existing redis client.
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{
		client: client,
		streamKey: func(sessionID string) string {
			return fmt.Sprintf("mbflow:session:%s", sessionID)
		},
	}
}

// Append publishes ev onto the session's Redis stream.
func (m *RedisMirror) Append(ctx context.Context, sessionID string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("session mirror: marshal event: %w", err)
	}
	key := m.streamKey(sessionID)
	if err := m.client.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{"event": payload},
	}).Err(); err != nil {
		return fmt.Errorf("session mirror: xadd: %w", err)
	}
	if ev.Kind.Terminal() {
		// keep terminal runs around briefly for reconnect, then let Redis
		// reclaim the stream; the in-memory Bus is the source of truth
		// while the session is live.
		m.client.Expire(ctx, key, GracePeriod)
	}
	return nil
}
