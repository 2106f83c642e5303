package lifecycle

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

func newTestEngine() *Engine {
	return NewEngine(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestExcursionTrackingFromTicks(t *testing.T) {
	e := newTestEngine()
	opened := time.Unix(1000, 0)

	state := e.OnEntryFilled(Entry{
		SourceTag:       "scalper",
		Instrument:      "btcusdt",
		EntryPrice:      100,
		Quantity:        2,
		ExpectedHolding: time.Hour,
		FilledAt:        opened,
	})
	require.NotEmpty(t, state.ID)
	assert.Equal(t, "BTCUSDT", state.Instrument)

	// +1 then -3 per unit, qty 2: MFE = +2, MAE = -6.
	_, due := e.OnTick("BTCUSDT", 101, opened.Add(time.Second))
	assert.False(t, due)
	_, due = e.OnTick("BTCUSDT", 97, opened.Add(2*time.Second))
	assert.False(t, due)

	snap, ok := e.Snapshot("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 2.0, snap.MaxFavorableExcursion, 1e-9)
	assert.InDelta(t, -6.0, snap.MaxAdverseExcursion, 1e-9)
}

func TestExcursionsAreMonotone(t *testing.T) {
	e := newTestEngine()
	opened := time.Unix(1000, 0)
	e.OnEntryFilled(Entry{
		Instrument: "ETHUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: opened,
	})

	prices := []float64{105, 102, 95, 99, 110, 90}
	var bestMFE, worstMAE float64
	for i, p := range prices {
		e.OnTick("ETHUSDT", p, opened.Add(time.Duration(i)*time.Second))
		snap, ok := e.Snapshot("ETHUSDT")
		require.True(t, ok)
		assert.GreaterOrEqual(t, snap.MaxFavorableExcursion, bestMFE)
		assert.LessOrEqual(t, snap.MaxAdverseExcursion, worstMAE)
		bestMFE = snap.MaxFavorableExcursion
		worstMAE = snap.MaxAdverseExcursion
	}
	assert.InDelta(t, 10.0, bestMFE, 1e-9)
	assert.InDelta(t, -10.0, worstMAE, 1e-9)
}

func TestMaxHoldingTimeTrigger(t *testing.T) {
	e := newTestEngine()
	opened := time.Unix(1, 0)
	e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Second, FilledAt: opened,
	})

	_, due := e.OnTick("BTCUSDT", 100, opened.Add(500*time.Millisecond))
	assert.False(t, due)

	trigger, due := e.OnTick("BTCUSDT", 100, opened.Add(1500*time.Millisecond))
	require.True(t, due)
	assert.Equal(t, domain.ExitMaxHoldingTime, trigger)

	// The trigger keeps firing until the position is closed.
	trigger, due = e.OnTick("BTCUSDT", 100, opened.Add(2*time.Second))
	require.True(t, due)
	assert.Equal(t, domain.ExitMaxHoldingTime, trigger)
}

func TestTicksForAbsentInstrumentAreIgnored(t *testing.T) {
	e := newTestEngine()
	_, due := e.OnTick("BTCUSDT", 100, time.Now())
	assert.False(t, due)
	_, ok := e.Snapshot("BTCUSDT")
	assert.False(t, ok)
}

func TestStopLossOrderTracking(t *testing.T) {
	e := newTestEngine()
	assert.False(t, e.SetStopLossOrderID("BTCUSDT", "sl-1"))
	assert.False(t, e.HasValidStopLoss("BTCUSDT"))

	e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: time.Now(),
	})
	assert.False(t, e.HasValidStopLoss("BTCUSDT"))

	assert.True(t, e.SetStopLossOrderID("btcusdt", "sl-1"))
	assert.True(t, e.HasValidStopLoss("BTCUSDT"))

	snap, ok := e.Snapshot("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "sl-1", snap.StopLossOrderID)
}

func TestCloseReturnsFinalStateAndRemoves(t *testing.T) {
	e := newTestEngine()
	opened := time.Unix(1000, 0)
	e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: opened,
	})
	e.OnTick("BTCUSDT", 104, opened.Add(time.Second))

	final, ok := e.OnPositionClosed("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 4.0, final.MaxFavorableExcursion, 1e-9)

	_, ok = e.OnPositionClosed("BTCUSDT")
	assert.False(t, ok)
	_, ok = e.Snapshot("BTCUSDT")
	assert.False(t, ok)
	assert.Empty(t, e.OpenInstruments())
}

func TestReentryAfterCloseStartsFresh(t *testing.T) {
	e := newTestEngine()
	opened := time.Unix(1000, 0)
	first := e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: opened,
	})
	e.OnTick("BTCUSDT", 110, opened.Add(time.Second))
	e.OnPositionClosed("BTCUSDT")

	second := e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 200, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: opened.Add(time.Minute),
	})
	assert.NotEqual(t, first.ID, second.ID)
	assert.Zero(t, second.MaxFavorableExcursion)
	assert.Zero(t, second.MaxAdverseExcursion)
	assert.Empty(t, second.StopLossOrderID)
}

func TestConcurrentTicksAndSnapshots(t *testing.T) {
	e := newTestEngine()
	opened := time.Now()
	e.OnEntryFilled(Entry{
		Instrument: "BTCUSDT", EntryPrice: 100, Quantity: 1,
		ExpectedHolding: time.Hour, FilledAt: opened,
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(2)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				e.OnTick("BTCUSDT", 100+float64((seed+i)%11)-5, opened.Add(time.Second))
			}
		}(g)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				e.Snapshot("BTCUSDT")
				e.HasValidStopLoss("BTCUSDT")
			}
		}()
	}
	wg.Wait()

	snap, ok := e.Snapshot("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, 5.0, snap.MaxFavorableExcursion, 1e-9)
	assert.InDelta(t, -5.0, snap.MaxAdverseExcursion, 1e-9)
}
