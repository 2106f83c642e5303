// Package lifecycle tracks open positions from entry fill to close and
// decides when a position must be exited.
package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// Entry describes a filled entry order handed to the engine.
type Entry struct {
	SourceTag       string
	Instrument      string
	EntryPrice      float64
	Quantity        float64
	ExpectedHolding time.Duration
	FilledAt        time.Time
}

// Engine owns at most one PositionLifecycleState per instrument. All methods
// are safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	positions map[string]*domain.PositionLifecycleState
	logger    *slog.Logger
}

// NewEngine creates an empty lifecycle engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		positions: make(map[string]*domain.PositionLifecycleState),
		logger:    logger.With(slog.String("component", "lifecycle")),
	}
}

// OnEntryFilled registers a new open position and returns its state. A
// position already open on the same instrument is overwritten; the caller is
// expected to have closed it first, so the overwrite is logged but not an
// error.
func (e *Engine) OnEntryFilled(entry Entry) domain.PositionLifecycleState {
	instrument := domain.NormalizeSymbol(entry.Instrument)

	hold := entry.ExpectedHolding
	if hold < time.Millisecond {
		hold = time.Millisecond
	}

	state := &domain.PositionLifecycleState{
		ID:              uuid.New().String(),
		SourceTag:       entry.SourceTag,
		Instrument:      instrument,
		OpenedAt:        entry.FilledAt,
		EntryPrice:      entry.EntryPrice,
		Quantity:        entry.Quantity,
		ExpectedHolding: hold,
	}

	e.mu.Lock()
	if prev, ok := e.positions[instrument]; ok {
		e.logger.Warn("open position overwritten",
			slog.String("instrument", instrument),
			slog.String("previous_id", prev.ID),
			slog.String("id", state.ID),
		)
	}
	e.positions[instrument] = state
	e.mu.Unlock()

	e.logger.Info("position opened",
		slog.String("instrument", instrument),
		slog.String("id", state.ID),
		slog.String("source_tag", entry.SourceTag),
		slog.Float64("entry_price", entry.EntryPrice),
		slog.Float64("quantity", entry.Quantity),
		slog.Duration("expected_holding", hold),
	)

	return *state
}

// OnTick updates the excursion extremes of the instrument's open position
// from a mark price and reports whether a time-based exit is due. Ticks for
// instruments with no open position are ignored.
func (e *Engine) OnTick(instrument string, markPrice float64, now time.Time) (domain.ExitTrigger, bool) {
	instrument = domain.NormalizeSymbol(instrument)

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.positions[instrument]
	if !ok {
		return 0, false
	}

	unrealized := (markPrice - state.EntryPrice) * state.Quantity
	if unrealized > state.MaxFavorableExcursion {
		state.MaxFavorableExcursion = unrealized
	}
	if unrealized < state.MaxAdverseExcursion {
		state.MaxAdverseExcursion = unrealized
	}

	if now.Sub(state.OpenedAt) >= state.ExpectedHolding {
		return domain.ExitMaxHoldingTime, true
	}
	return 0, false
}

// SetStopLossOrderID records the protective order covering the instrument's
// open position. It reports false when no position is open.
func (e *Engine) SetStopLossOrderID(instrument, orderID string) bool {
	instrument = domain.NormalizeSymbol(instrument)

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.positions[instrument]
	if !ok {
		return false
	}
	state.StopLossOrderID = orderID
	return true
}

// HasValidStopLoss reports whether the instrument's open position has a
// protective order attached.
func (e *Engine) HasValidStopLoss(instrument string) bool {
	instrument = domain.NormalizeSymbol(instrument)

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.positions[instrument]
	return ok && state.StopLossOrderID != ""
}

// OnPositionClosed removes the instrument's open position and returns its
// final state. The second return is false when nothing was open.
func (e *Engine) OnPositionClosed(instrument string) (domain.PositionLifecycleState, bool) {
	instrument = domain.NormalizeSymbol(instrument)

	e.mu.Lock()
	state, ok := e.positions[instrument]
	if ok {
		delete(e.positions, instrument)
	}
	e.mu.Unlock()

	if !ok {
		return domain.PositionLifecycleState{}, false
	}

	e.logger.Info("position closed",
		slog.String("instrument", instrument),
		slog.String("id", state.ID),
		slog.Float64("max_favorable_excursion", state.MaxFavorableExcursion),
		slog.Float64("max_adverse_excursion", state.MaxAdverseExcursion),
	)

	return *state, true
}

// Snapshot returns a copy of the instrument's open position, if any.
func (e *Engine) Snapshot(instrument string) (domain.PositionLifecycleState, bool) {
	instrument = domain.NormalizeSymbol(instrument)

	e.mu.RLock()
	defer e.mu.RUnlock()

	state, ok := e.positions[instrument]
	if !ok {
		return domain.PositionLifecycleState{}, false
	}
	return *state, true
}

// OpenInstruments returns the instruments that currently have an open
// position, in no particular order.
func (e *Engine) OpenInstruments() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.positions))
	for instrument := range e.positions {
		out = append(out, instrument)
	}
	return out
}
