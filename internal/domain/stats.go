package domain

import (
	"context"
	"time"
)

// TradeStatsSample is one historical trade outcome used by the expectancy
// estimator. AgeDays is the sample's age at evaluation time; RealizedPnL is
// in quote currency.
type TradeStatsSample struct {
	AgeDays         float64
	RealizedPnL     float64
	HoldingDuration time.Duration
}

// TradeStatsWindow is a read-only window of past trade outcomes.
type TradeStatsWindow struct {
	Samples []TradeStatsSample
}

// Empty reports whether the window holds no samples.
func (w TradeStatsWindow) Empty() bool {
	return len(w.Samples) == 0
}

// TradeStatsReader loads historical trade outcomes for the expectancy
// estimator. Implementations return an empty window rather than partial data
// when no history exists; an error means the backing store itself failed and
// is propagated to the caller unmodified.
type TradeStatsReader interface {
	// LoadLocalStats returns up to lookback outcomes for one source tag and
	// instrument, most recent first.
	LoadLocalStats(ctx context.Context, sourceTag, instrument string, lookback int) (TradeStatsWindow, error)

	// LoadGlobalStats returns up to lookback outcomes for the source tag
	// across all instruments, most recent first.
	LoadGlobalStats(ctx context.Context, sourceTag string, lookback int) (TradeStatsWindow, error)
}
