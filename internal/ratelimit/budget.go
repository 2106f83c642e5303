// Package ratelimit implements fixed-window rate budgets and the admission
// controller that gates outbound exchange calls.
//
// A fixed-window counter keeps O(1) state per budget. Boundary bursts up to
// 2C across a window edge are an accepted tradeoff at this system's call
// volumes.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// DefaultWindow is the budget window used when none is configured.
const DefaultWindow = time.Minute

// Budget is a fixed-window counter: capacity C per window. Reserve is a
// single atomic check-and-increment critical section, so exactly C of any
// number of concurrent reservations succeed within one window.
type Budget struct {
	mu          sync.Mutex
	capacity    int
	window      time.Duration
	used        int
	windowStart time.Time
}

// NewBudget creates a budget of the given per-window capacity. Malformed
// configuration is normalized here rather than failing later: a negative
// capacity becomes 0 (always deny) and a non-positive window becomes
// DefaultWindow.
func NewBudget(capacity int, window time.Duration) *Budget {
	if capacity < 0 {
		capacity = 0
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Budget{capacity: capacity, window: window}
}

// Reserve takes one unit of the budget. It resets the window when the
// elapsed time since the window start reaches the window length, then
// grants iff the used count is below capacity. It never blocks or retries.
func (b *Budget) Reserve(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.used = 0
	}
	if b.used >= b.capacity {
		return false
	}
	b.used++
	return true
}

// Snapshot returns the budget's consumption within its current window. It
// never mutates state.
func (b *Budget) Snapshot() domain.BudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BudgetSnapshot{Used: b.used, Limit: b.capacity}
}

// AdmissionConfig holds the per-minute capacities for the global budget and
// each endpoint group.
type AdmissionConfig struct {
	GlobalPerMinute     int
	OrdersPerMinute     int
	AccountPerMinute    int
	MarketDataPerMinute int
}

// Admission is the in-process admission controller: one global budget plus
// one fully isolated budget per endpoint group. Budgets never contend with
// one another; exhausting one group leaves the others' remaining capacity
// untouched.
type Admission struct {
	global *Budget
	groups map[domain.EndpointGroup]*Budget
	logger *slog.Logger
}

// NewAdmission creates an Admission controller from per-minute capacities.
func NewAdmission(cfg AdmissionConfig, logger *slog.Logger) *Admission {
	return &Admission{
		global: NewBudget(cfg.GlobalPerMinute, DefaultWindow),
		groups: map[domain.EndpointGroup]*Budget{
			domain.EndpointOrders:     NewBudget(cfg.OrdersPerMinute, DefaultWindow),
			domain.EndpointAccount:    NewBudget(cfg.AccountPerMinute, DefaultWindow),
			domain.EndpointMarketData: NewBudget(cfg.MarketDataPerMinute, DefaultWindow),
		},
		logger: logger.With(slog.String("component", "admission")),
	}
}

// ReserveGlobal reserves one unit of the global budget.
func (a *Admission) ReserveGlobal(now time.Time) bool {
	return a.global.Reserve(now)
}

// ReserveEndpoint reserves one unit of the named group's budget. An unknown
// group is denied.
func (a *Admission) ReserveEndpoint(group domain.EndpointGroup, now time.Time) bool {
	b, ok := a.groups[group]
	if !ok {
		a.logger.Warn("reservation against unknown endpoint group",
			slog.String("group", string(group)),
		)
		return false
	}
	return b.Reserve(now)
}

// EndpointSnapshot returns the named group's consumption. An unknown group
// yields a zero snapshot.
func (a *Admission) EndpointSnapshot(group domain.EndpointGroup) domain.BudgetSnapshot {
	b, ok := a.groups[group]
	if !ok {
		return domain.BudgetSnapshot{}
	}
	return b.Snapshot()
}

// GlobalSnapshot returns the global budget's consumption.
func (a *Admission) GlobalSnapshot() domain.BudgetSnapshot {
	return a.global.Snapshot()
}

// Compile-time interface check.
var _ domain.AdmissionController = (*Admission)(nil)
