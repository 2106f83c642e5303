package lifecycle

import "github.com/alanyoungcy/tradecore/internal/domain"

// ExitOrchestrator maps an exit trigger to the reason string recorded with
// the closed position. The mapping is pure and stable so downstream
// consumers can key on the reason.
type ExitOrchestrator struct{}

// NewExitOrchestrator returns an ExitOrchestrator.
func NewExitOrchestrator() *ExitOrchestrator {
	return &ExitOrchestrator{}
}

// Decide returns the "exit.<reason>" string for a trigger. Unrecognized
// trigger values map to "exit.unknown" rather than panicking, since triggers
// may arrive from external callers.
func (o *ExitOrchestrator) Decide(trigger domain.ExitTrigger) string {
	switch trigger {
	case domain.ExitStopLossProtection,
		domain.ExitMaxHoldingTime,
		domain.ExitRiskDegrade,
		domain.ExitSignalReversal,
		domain.ExitEmergencyClose:
		return "exit." + trigger.String()
	default:
		return "exit.unknown"
	}
}
