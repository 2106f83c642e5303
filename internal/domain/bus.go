package domain

import "context"

// TickBus carries ticks and position events between processes. The core
// itself has no network surface; the bus is host plumbing that feeds the
// dispatch registry and publishes lifecycle telemetry.
type TickBus interface {
	// PublishTick publishes a tick on the ticks channel.
	PublishTick(ctx context.Context, tick Tick) error

	// PublishEvent publishes a raw payload on an arbitrary channel.
	PublishEvent(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a channel of raw payloads for the given bus channel.
	// The returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// TicksChannel is the bus channel ticks are published on.
const TicksChannel = "ticks"

// PositionsChannel is the bus channel position lifecycle events are
// published on.
const PositionsChannel = "positions"
