package status

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisBroadcaster publishes every committed Status update to a Redis
// pub/sub channel so external processes (a dashboard, a second API replica)
// can observe progress without querying the in-memory Store directly. It is
// purely additive: the Store remains the source of truth, and a publish
// failure is logged and swallowed rather than surfaced to the caller.
type RedisBroadcaster struct {
	client redis.UniversalClient
}

// NewRedisBroadcaster builds a broadcaster against addr. Returns nil, nil
// when addr is empty so callers can pass the result straight to NewStore
// without a branch.
func NewRedisBroadcaster(addr string) (*RedisBroadcaster, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("status: redis ping: %w", err)
	}
	return &RedisBroadcaster{client: client}, nil
}

func (b *RedisBroadcaster) channel(promptID string) string {
	return "status:" + promptID
}

// Publish implements Broadcaster.
func (b *RedisBroadcaster) Publish(ctx context.Context, promptID string, s Status) {
	if b == nil || b.client == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		log.Error().Err(err).Str("promptId", promptID).Msg("status: marshal for redis publish failed")
		return
	}
	if err := b.client.Publish(ctx, b.channel(promptID), data).Err(); err != nil {
		log.Warn().Err(err).Str("promptId", promptID).Msg("status: redis publish failed")
	}
}

// Close releases the underlying Redis client.
func (b *RedisBroadcaster) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}
