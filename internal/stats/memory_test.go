package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

func sample(pnl float64) domain.TradeStatsSample {
	return domain.TradeStatsSample{
		AgeDays:         1,
		RealizedPnL:     pnl,
		HoldingDuration: time.Minute,
	}
}

func TestRecordOutcomeFoldsIntoBothWindows(t *testing.T) {
	m := NewMemoryReader()
	ctx := context.Background()

	opened := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(90 * time.Second)

	err := m.RecordOutcome(ctx, domain.PositionLifecycleState{
		ID:         "pos-1",
		SourceTag:  "momentum",
		Instrument: "btcusdt",
		OpenedAt:   opened,
		EntryPrice: 100,
		Quantity:   2,
	}, "exit.max_holding_time", 103, closed)
	require.NoError(t, err)

	local, err := m.LoadLocalStats(ctx, "momentum", "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, local.Samples, 1)
	assert.InDelta(t, 6.0, local.Samples[0].RealizedPnL, 1e-9)
	assert.Equal(t, 90*time.Second, local.Samples[0].HoldingDuration)
	assert.Zero(t, local.Samples[0].AgeDays)

	global, err := m.LoadGlobalStats(ctx, "momentum", 10)
	require.NoError(t, err)
	require.Len(t, global.Samples, 1)
	assert.InDelta(t, 6.0, global.Samples[0].RealizedPnL, 1e-9)
}

func TestAddGlobalLeavesLocalWindowsEmpty(t *testing.T) {
	m := NewMemoryReader()
	ctx := context.Background()

	m.AddGlobal("momentum", sample(3))

	global, err := m.LoadGlobalStats(ctx, "momentum", 10)
	require.NoError(t, err)
	assert.Len(t, global.Samples, 1)

	local, err := m.LoadLocalStats(ctx, "momentum", "BTCUSDT", 10)
	require.NoError(t, err)
	assert.True(t, local.Empty())
}

func TestLookbackTruncatesNewestFirst(t *testing.T) {
	m := NewMemoryReader()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		m.Add("momentum", "BTCUSDT", sample(float64(i)))
	}

	local, err := m.LoadLocalStats(ctx, "momentum", "BTCUSDT", 3)
	require.NoError(t, err)
	require.Len(t, local.Samples, 3)
	// Most recent additions survive the truncation.
	assert.InDelta(t, 5.0, local.Samples[0].RealizedPnL, 1e-9)
	assert.InDelta(t, 4.0, local.Samples[1].RealizedPnL, 1e-9)
	assert.InDelta(t, 3.0, local.Samples[2].RealizedPnL, 1e-9)

	global, err := m.LoadGlobalStats(ctx, "momentum", 2)
	require.NoError(t, err)
	assert.Len(t, global.Samples, 2)
}

func TestWindowsAreIsolatedCopies(t *testing.T) {
	m := NewMemoryReader()
	ctx := context.Background()

	m.Add("momentum", "ethusdt", sample(1))

	local, err := m.LoadLocalStats(ctx, "momentum", "ETHUSDT", 10)
	require.NoError(t, err)
	local.Samples[0].RealizedPnL = -99

	again, err := m.LoadLocalStats(ctx, "momentum", "ETHUSDT", 10)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, again.Samples[0].RealizedPnL, 1e-9)

	// A different tag sees nothing.
	other, err := m.LoadLocalStats(ctx, "meanrev", "ETHUSDT", 10)
	require.NoError(t, err)
	assert.True(t, other.Empty())
}
