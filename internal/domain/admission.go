package domain

import (
	"context"
	"time"
)

// EndpointGroup names an isolated per-endpoint rate budget.
type EndpointGroup string

const (
	EndpointOrders     EndpointGroup = "orders"
	EndpointAccount    EndpointGroup = "account"
	EndpointMarketData EndpointGroup = "market-data"
)

// BudgetSnapshot is a read-only view of one budget's consumption within its
// current window.
type BudgetSnapshot struct {
	Used  int
	Limit int
}

// AdmissionController gates outbound exchange calls against replenishing
// rate budgets. A false return is a denial, not an error: the caller skips
// or retries later. The "now" timestamp is supplied by the caller so all
// window arithmetic stays deterministic and testable.
type AdmissionController interface {
	ReserveGlobal(now time.Time) bool
	ReserveEndpoint(group EndpointGroup, now time.Time) bool
	EndpointSnapshot(group EndpointGroup) BudgetSnapshot
}

// SharedBudget is a rate budget shared across processes (e.g. Redis-backed).
// Unlike AdmissionController it is fallible because it involves I/O.
type SharedBudget interface {
	Reserve(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
