package domain

import (
	"strings"
	"time"
)

// Tick is a single trade print received from a market-data feed. Ticks are
// immutable once produced; the dispatch registry hands each worker its own
// copy.
type Tick struct {
	Symbol    string
	Price     float64
	Quantity  float64
	Timestamp time.Time
	TradeID   string
	IsMaker   bool
}

// NormalizeSymbol canonicalizes an instrument symbol for use as a map key.
// Symbols are matched case-insensitively throughout the core.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SignalSide is the direction a strategy worker wants to act in.
type SignalSide string

const (
	SignalBuy  SignalSide = "buy"
	SignalSell SignalSide = "sell"
	SignalHold SignalSide = "hold"
)

// Signal is an actionable intent emitted by a strategy worker. The core
// treats workers as opaque signal producers; a Signal carries just enough
// for the controller to gate and size an entry.
type Signal struct {
	WorkerID string
	Symbol   string
	Side     SignalSide
	Price    float64
	Quantity float64
	At       time.Time
}
