package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// SharedAdmission layers a cross-process budget (e.g. Redis-backed) on top
// of the in-process Admission, so several instances draining one exchange
// account stay under the account's limits together. The local budget is
// checked first; a shared-budget I/O failure denies the reservation, since
// over-spending an exchange limit is worse than skipping a call.
type SharedAdmission struct {
	local  *Admission
	shared domain.SharedBudget
	cfg    AdmissionConfig
	logger *slog.Logger
}

// NewSharedAdmission wraps the local admission controller with the shared
// budget.
func NewSharedAdmission(local *Admission, shared domain.SharedBudget, cfg AdmissionConfig, logger *slog.Logger) *SharedAdmission {
	return &SharedAdmission{
		local:  local,
		shared: shared,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "shared_admission")),
	}
}

// ReserveGlobal reserves one unit of both the local and the shared global
// budget.
func (s *SharedAdmission) ReserveGlobal(now time.Time) bool {
	if !s.local.ReserveGlobal(now) {
		return false
	}
	return s.reserveShared("global", s.cfg.GlobalPerMinute)
}

// ReserveEndpoint reserves one unit of both the local and the shared budget
// for the named group.
func (s *SharedAdmission) ReserveEndpoint(group domain.EndpointGroup, now time.Time) bool {
	if !s.local.ReserveEndpoint(group, now) {
		return false
	}
	return s.reserveShared("endpoint:"+string(group), s.endpointCapacity(group))
}

// EndpointSnapshot reports the local view of the group's consumption. The
// shared counter lives in Redis and is not mirrored here.
func (s *SharedAdmission) EndpointSnapshot(group domain.EndpointGroup) domain.BudgetSnapshot {
	return s.local.EndpointSnapshot(group)
}

func (s *SharedAdmission) endpointCapacity(group domain.EndpointGroup) int {
	switch group {
	case domain.EndpointOrders:
		return s.cfg.OrdersPerMinute
	case domain.EndpointAccount:
		return s.cfg.AccountPerMinute
	case domain.EndpointMarketData:
		return s.cfg.MarketDataPerMinute
	default:
		return 0
	}
}

func (s *SharedAdmission) reserveShared(key string, limit int) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := s.shared.Reserve(ctx, key, limit, DefaultWindow)
	if err != nil {
		s.logger.Warn("shared budget unreachable, denying reservation",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// Compile-time interface check.
var _ domain.AdmissionController = (*SharedAdmission)(nil)
