package expectancy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradecore/internal/domain"
	"github.com/alanyoungcy/tradecore/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestHistoricalEVFromEquallyWeightedSamples(t *testing.T) {
	reader := stats.NewMemoryReader()
	// Three wins of +2 and two losses of -1, all fresh so every weight is 1:
	// p_win = 0.6, avg_win = 2, avg_loss = 1, ev = 0.6*2 - 0.4*1 = 0.8.
	for i := 0; i < 3; i++ {
		reader.Add("scalper", "BTCUSDT", domain.TradeStatsSample{
			AgeDays: 0, RealizedPnL: 2, HoldingDuration: 2 * time.Second,
		})
	}
	for i := 0; i < 2; i++ {
		reader.Add("scalper", "BTCUSDT", domain.TradeStatsSample{
			AgeDays: 0, RealizedPnL: -1, HoldingDuration: 2 * time.Second,
		})
	}

	est := NewEstimator(reader, DefaultConfig(), testLogger())
	snap, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, snap.Probability.WinProbability, 1e-9)
	assert.InDelta(t, 0.8, snap.ExpectedReturn, 1e-9)
	assert.InDelta(t, 1.0, snap.WorstCaseLoss, 1e-9)
	assert.Equal(t, 2*time.Second, snap.ExpectedHolding)
	assert.InDelta(t, 5.0, snap.Probability.EffectiveSampleSize, 1e-9)
	assert.Equal(t, "hist-decay-v1", snap.ModelTag)
}

func TestHistoricalRecencyWeighting(t *testing.T) {
	reader := stats.NewMemoryReader()
	// A fresh win and a ten-half-lives-old loss. The stale sample carries
	// weight 2^-10, so the win probability should be close to 1.
	reader.Add("scalper", "ETHUSDT", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 5})
	reader.Add("scalper", "ETHUSDT", domain.TradeStatsSample{AgeDays: 140, RealizedPnL: -5})

	est := NewEstimator(reader, DefaultConfig(), testLogger())
	snap, err := est.EvaluateHistorical(context.Background(), "scalper", "ETHUSDT", time.Now(), 100)
	require.NoError(t, err)

	assert.Greater(t, snap.Probability.WinProbability, 0.95)
	assert.Less(t, snap.Probability.EffectiveSampleSize, 1.01)
}

func TestHistoricalShrinkageTowardGlobalBaseline(t *testing.T) {
	reader := stats.NewMemoryReader()
	// One local win plus nine global-only losses. With K = 10 the local
	// weight is 1/11, so p = (1/11)*1 + (10/11)*(1/10) = 2/11.
	reader.Add("scalper", "SOLUSDT", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 3})
	for i := 0; i < 9; i++ {
		reader.AddGlobal("scalper", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: -1})
	}

	est := NewEstimator(reader, DefaultConfig(), testLogger())
	snap, err := est.EvaluateHistorical(context.Background(), "scalper", "SOLUSDT", time.Now(), 100)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/11.0, snap.Probability.WinProbability, 1e-9)
}

func TestHistoricalConfidenceTiers(t *testing.T) {
	t.Run("single local sample is low even with a large global window", func(t *testing.T) {
		reader := stats.NewMemoryReader()
		reader.Add("scalper", "BTCUSDT", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 1})
		for i := 0; i < 50; i++ {
			reader.AddGlobal("scalper", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 1})
		}

		est := NewEstimator(reader, DefaultConfig(), testLogger())
		snap, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
		require.NoError(t, err)
		assert.Equal(t, domain.ConfidenceLow, snap.Probability.Confidence)
	})

	t.Run("dense fresh local window is high", func(t *testing.T) {
		reader := stats.NewMemoryReader()
		for i := 0; i < 25; i++ {
			reader.Add("scalper", "BTCUSDT", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 1})
		}

		est := NewEstimator(reader, DefaultConfig(), testLogger())
		snap, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
		require.NoError(t, err)
		assert.Equal(t, domain.ConfidenceHigh, snap.Probability.Confidence)
	})

	t.Run("mid-size window is medium", func(t *testing.T) {
		reader := stats.NewMemoryReader()
		for i := 0; i < 10; i++ {
			reader.Add("scalper", "BTCUSDT", domain.TradeStatsSample{AgeDays: 0, RealizedPnL: 1})
		}

		est := NewEstimator(reader, DefaultConfig(), testLogger())
		snap, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
		require.NoError(t, err)
		assert.Equal(t, domain.ConfidenceMedium, snap.Probability.Confidence)
	})
}

func TestHistoricalEmptyWindowsYieldNeutralSnapshot(t *testing.T) {
	est := NewEstimator(stats.NewMemoryReader(), DefaultConfig(), testLogger())
	snap, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, snap.Probability.WinProbability, 1e-9)
	assert.Zero(t, snap.ExpectedReturn)
	assert.Equal(t, time.Millisecond, snap.ExpectedHolding)
	assert.Equal(t, domain.ConfidenceLow, snap.Probability.Confidence)
	assert.Zero(t, snap.Probability.EffectiveSampleSize)
	assert.InDelta(t, 0.5, snap.Probability.TimeoutExitProbability, 1e-9)
}

var errStatsDown = errors.New("stats source down")

type failingReader struct{ failGlobal bool }

func (f failingReader) LoadLocalStats(context.Context, string, string, int) (domain.TradeStatsWindow, error) {
	if f.failGlobal {
		return domain.TradeStatsWindow{}, nil
	}
	return domain.TradeStatsWindow{}, errStatsDown
}

func (f failingReader) LoadGlobalStats(context.Context, string, int) (domain.TradeStatsWindow, error) {
	return domain.TradeStatsWindow{}, errStatsDown
}

func TestHistoricalPropagatesReaderErrors(t *testing.T) {
	for name, reader := range map[string]domain.TradeStatsReader{
		"local fails":  failingReader{},
		"global fails": failingReader{failGlobal: true},
	} {
		t.Run(name, func(t *testing.T) {
			est := NewEstimator(reader, DefaultConfig(), testLogger())
			_, err := est.EvaluateHistorical(context.Background(), "scalper", "BTCUSDT", time.Now(), 100)
			require.Error(t, err)
			assert.ErrorIs(t, err, errStatsDown)
		})
	}
}

func TestConfigNormalizationSwapsInvertedBand(t *testing.T) {
	cfg := Config{ConfidenceLowNEff: 20, ConfidenceHighNEff: 5}.normalized()
	assert.InDelta(t, 5.0, cfg.ConfidenceLowNEff, 1e-9)
	assert.InDelta(t, 20.0, cfg.ConfidenceHighNEff, 1e-9)
	assert.Positive(t, cfg.DecayHalfLifeDays)
	assert.Positive(t, cfg.ShrinkageStrength)
}
