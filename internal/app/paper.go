package app

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// PaperPlacer simulates a venue for paper mode: entries fill at the signal
// price and closes fill at the last tick seen for the instrument. Every
// entry gets a simulated protective stop order id so the lifecycle engine
// exercises its stop tracking.
type PaperPlacer struct {
	mu        sync.RWMutex
	lastPrice map[string]float64
}

// NewPaperPlacer returns an empty PaperPlacer.
func NewPaperPlacer() *PaperPlacer {
	return &PaperPlacer{lastPrice: make(map[string]float64)}
}

// ObserveTick records the instrument's latest traded price, used as the
// simulated fill price on close.
func (p *PaperPlacer) ObserveTick(tick domain.Tick) {
	p.mu.Lock()
	p.lastPrice[domain.NormalizeSymbol(tick.Symbol)] = tick.Price
	p.mu.Unlock()
}

// PlaceEntry fills immediately at the signal price.
func (p *PaperPlacer) PlaceEntry(_ context.Context, signal domain.Signal) (float64, string, error) {
	return signal.Price, "paper-stop-" + uuid.New().String(), nil
}

// ClosePosition fills at the last observed tick price, falling back to zero
// when no tick has been seen.
func (p *PaperPlacer) ClosePosition(_ context.Context, instrument string, _ float64) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPrice[domain.NormalizeSymbol(instrument)], nil
}
