package domain

import "errors"

var (
	// ErrStatsSource marks failures of the trade-stats backend. Expectancy
	// evaluations propagate it instead of substituting defaults.
	ErrStatsSource = errors.New("trade stats source unavailable")

	// ErrBusClosed is returned when a bus subscription ends before its
	// context is cancelled.
	ErrBusClosed = errors.New("bus closed")

	// ErrWSDisconnect is returned when a market-data WebSocket drops.
	ErrWSDisconnect = errors.New("websocket disconnected")
)
