package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

//go:embed scripts/fixed_window.lua
var fixedWindowLua string

// SharedBudget implements domain.SharedBudget with a fixed-window counter in
// Redis, so multiple processes draining the same exchange account share one
// budget. The count-and-expire step is a Lua script to keep it atomic.
type SharedBudget struct {
	rdb         *redis.Client
	fixedWindow *redis.Script
}

// NewSharedBudget creates a SharedBudget backed by the given Client.
func NewSharedBudget(c *Client) *SharedBudget {
	return &SharedBudget{
		rdb:         c.Underlying(),
		fixedWindow: redis.NewScript(fixedWindowLua),
	}
}

func budgetKey(key string) string {
	return "budget:" + key
}

// Reserve attempts to consume one unit of the keyed budget. It returns true
// when the reservation was granted, false when the window's limit is already
// spent.
func (b *SharedBudget) Reserve(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	result, err := b.fixedWindow.Run(
		ctx,
		b.rdb,
		[]string{budgetKey(key)},
		limit,
		window.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: budget reserve %s: %w", key, err)
	}

	return result == 1, nil
}

// Compile-time interface check.
var _ domain.SharedBudget = (*SharedBudget)(nil)
