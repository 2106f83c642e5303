package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// TickBus implements domain.TickBus using Redis Pub/Sub. Ticks are JSON
// encoded on the wire so non-Go producers can feed the core.
type TickBus struct {
	rdb *redis.Client
}

// NewTickBus creates a TickBus backed by the given Client.
func NewTickBus(c *Client) *TickBus {
	return &TickBus{rdb: c.Underlying()}
}

// PublishTick publishes a tick on the ticks channel.
func (b *TickBus) PublishTick(ctx context.Context, tick domain.Tick) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return fmt.Errorf("redis: marshal tick %s: %w", tick.Symbol, err)
	}
	return b.PublishEvent(ctx, domain.TicksChannel, payload)
}

// PublishEvent publishes a raw payload on a Pub/Sub channel.
func (b *TickBus) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a read-only channel
// of raw payloads. The subscription is closed when the context is cancelled;
// the returned channel is closed at that point as well.
func (b *TickBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = b.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = b.rdb.Subscribe(ctx, channel)
	}

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// hasPattern returns true when the Redis channel includes glob-style
// wildcards, in which case PSubscribe must be used instead of Subscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// Compile-time interface check.
var _ domain.TickBus = (*TickBus)(nil)
