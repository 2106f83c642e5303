// Package stats provides trade-stats sources for the expectancy estimator.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// MemoryReader is an in-memory domain.TradeStatsReader, used as a test
// fixture and for paper-trading sessions that have no database. Samples are
// stored most recent first, matching the store-backed readers.
type MemoryReader struct {
	mu     sync.RWMutex
	local  map[string][]domain.TradeStatsSample // sourceTag + "/" + instrument
	global map[string][]domain.TradeStatsSample // sourceTag
}

// NewMemoryReader returns an empty MemoryReader.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{
		local:  make(map[string][]domain.TradeStatsSample),
		global: make(map[string][]domain.TradeStatsSample),
	}
}

func localKey(sourceTag, instrument string) string {
	return sourceTag + "/" + domain.NormalizeSymbol(instrument)
}

// Add records a sample under both the local (tag, instrument) window and the
// tag's global window, newest first.
func (m *MemoryReader) Add(sourceTag, instrument string, sample domain.TradeStatsSample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lk := localKey(sourceTag, instrument)
	m.local[lk] = append([]domain.TradeStatsSample{sample}, m.local[lk]...)
	m.global[sourceTag] = append([]domain.TradeStatsSample{sample}, m.global[sourceTag]...)
}

// AddGlobal records a sample only in the tag's global window, for building
// cross-strategy baselines that no single instrument owns.
func (m *MemoryReader) AddGlobal(sourceTag string, sample domain.TradeStatsSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global[sourceTag] = append([]domain.TradeStatsSample{sample}, m.global[sourceTag]...)
}

// RecordOutcome folds a closed position back into the in-memory windows, so
// a paper session's expectancy sharpens as it trades.
func (m *MemoryReader) RecordOutcome(_ context.Context, snap domain.PositionLifecycleState, _ string, exitPrice float64, closedAt time.Time) error {
	m.Add(snap.SourceTag, snap.Instrument, domain.TradeStatsSample{
		AgeDays:         0,
		RealizedPnL:     (exitPrice - snap.EntryPrice) * snap.Quantity,
		HoldingDuration: closedAt.Sub(snap.OpenedAt),
	})
	return nil
}

// LoadLocalStats implements domain.TradeStatsReader.
func (m *MemoryReader) LoadLocalStats(_ context.Context, sourceTag, instrument string, lookback int) (domain.TradeStatsWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.local[localKey(sourceTag, instrument)], lookback), nil
}

// LoadGlobalStats implements domain.TradeStatsReader.
func (m *MemoryReader) LoadGlobalStats(_ context.Context, sourceTag string, lookback int) (domain.TradeStatsWindow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return window(m.global[sourceTag], lookback), nil
}

func window(samples []domain.TradeStatsSample, lookback int) domain.TradeStatsWindow {
	if lookback > 0 && len(samples) > lookback {
		samples = samples[:lookback]
	}
	out := make([]domain.TradeStatsSample, len(samples))
	copy(out, samples)
	return domain.TradeStatsWindow{Samples: out}
}

// Compile-time interface check.
var _ domain.TradeStatsReader = (*MemoryReader)(nil)
