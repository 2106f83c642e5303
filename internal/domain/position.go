package domain

import "time"

// ExitTrigger is the closed set of reasons the core (or an external caller)
// can raise to close an open position. New trigger kinds are a compile-time
// change; the exit orchestrator matches exhaustively.
type ExitTrigger int

const (
	ExitStopLossProtection ExitTrigger = iota
	ExitMaxHoldingTime
	ExitRiskDegrade
	ExitSignalReversal
	ExitEmergencyClose
)

// String returns the snake_case trigger name.
func (t ExitTrigger) String() string {
	switch t {
	case ExitStopLossProtection:
		return "stop_loss_protection"
	case ExitMaxHoldingTime:
		return "max_holding_time"
	case ExitRiskDegrade:
		return "risk_degrade"
	case ExitSignalReversal:
		return "signal_reversal"
	case ExitEmergencyClose:
		return "emergency_close"
	default:
		return "unknown"
	}
}

// PositionLifecycleState tracks one open position from entry fill to close.
// At most one state exists per instrument at any time; the lifecycle engine
// owns each entry exclusively between creation and removal.
//
// MaxFavorableExcursion and MaxAdverseExcursion are the best and worst
// unrealized PnL observed so far, in quote currency.
type PositionLifecycleState struct {
	ID                    string
	SourceTag             string
	Instrument            string
	OpenedAt              time.Time
	EntryPrice            float64
	Quantity              float64
	MaxFavorableExcursion float64
	MaxAdverseExcursion   float64
	ExpectedHolding       time.Duration
	StopLossOrderID       string
}
