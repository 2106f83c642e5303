package expectancy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

func TestAnalyticSpotLongDrift(t *testing.T) {
	est := NewEstimator(nil, DefaultConfig(), testLogger())

	snap := est.EvaluateAnalyticSpot(AnalyticInputs{
		Side:       domain.SignalBuy,
		EntryPrice: 100,
		Quantity:   1,
		Mu:         0.01,
		Sigma:      0.02,
		Horizon:    time.Hour,
	}, time.Now())

	// ev = 100 * 0.01 with no costs; p_win = Phi(0.01/0.02) = Phi(0.5).
	assert.InDelta(t, 1.0, snap.ExpectedReturn, 1e-9)
	assert.InDelta(t, normCDF(0.5), snap.Probability.WinProbability, 1e-9)
	assert.InDelta(t, 2.0, snap.ReturnStdDev, 1e-9)
	assert.InDelta(t, 6.0, snap.WorstCaseLoss, 1e-9)
	assert.Equal(t, time.Hour, snap.ExpectedHolding)
	assert.Equal(t, "analytic-spot-v1", snap.ModelTag)
}

func TestAnalyticShortFlipsDrift(t *testing.T) {
	est := NewEstimator(nil, DefaultConfig(), testLogger())

	long := est.EvaluateAnalyticSpot(AnalyticInputs{
		Side: domain.SignalBuy, EntryPrice: 100, Quantity: 1, Mu: 0.01, Sigma: 0.02,
	}, time.Now())
	short := est.EvaluateAnalyticSpot(AnalyticInputs{
		Side: domain.SignalSell, EntryPrice: 100, Quantity: 1, Mu: 0.01, Sigma: 0.02,
	}, time.Now())

	assert.InDelta(t, -long.ExpectedReturn, short.ExpectedReturn, 1e-9)
	assert.InDelta(t, 1-long.Probability.WinProbability, short.Probability.WinProbability, 1e-9)
}

func TestAnalyticSpotSubtractsCosts(t *testing.T) {
	est := NewEstimator(nil, DefaultConfig(), testLogger())

	snap := est.EvaluateAnalyticSpot(AnalyticInputs{
		Side:        domain.SignalBuy,
		EntryPrice:  100,
		Quantity:    1,
		Mu:          0.01,
		Sigma:       0.02,
		FeePct:      0.001,
		SlippagePct: 0.002,
		BorrowPct:   0.001,
	}, time.Now())

	// costs = 100 * 0.004 = 0.4, ev = 1.0 - 0.4.
	assert.InDelta(t, 0.6, snap.ExpectedReturn, 1e-9)
	assert.InDelta(t, 0.4, snap.FeeSlippagePenalty, 1e-9)
}

func TestAnalyticFuturesMultiplierScalesEVAndDispersion(t *testing.T) {
	est := NewEstimator(nil, DefaultConfig(), testLogger())

	in := AnalyticInputs{
		Side:       domain.SignalBuy,
		EntryPrice: 100,
		Quantity:   1,
		Mu:         0.01,
		Sigma:      0.02,
		FeePct:     0.001,
		FundingPct: 0.001,
	}

	var prevAbsEV, prevStd float64
	for _, m := range []float64{1, 2, 5, 10, 25} {
		in.ContractMultiplier = m
		snap := est.EvaluateAnalyticFutures(in, time.Now())

		assert.Greater(t, math.Abs(snap.ExpectedReturn), prevAbsEV,
			"multiplier %v must increase |ev|", m)
		assert.Greater(t, snap.ReturnStdDev, prevStd,
			"multiplier %v must increase dispersion", m)
		prevAbsEV = math.Abs(snap.ExpectedReturn)
		prevStd = snap.ReturnStdDev
	}
}

func TestAnalyticFuturesLiquidationPenaltyWidensWorstCase(t *testing.T) {
	est := NewEstimator(nil, DefaultConfig(), testLogger())

	base := AnalyticInputs{
		Side: domain.SignalBuy, EntryPrice: 100, Quantity: 1,
		Mu: 0.01, Sigma: 0.02, ContractMultiplier: 5,
	}
	withPenalty := base
	withPenalty.LiquidationPenaltyPct = 0.05

	a := est.EvaluateAnalyticFutures(base, time.Now())
	b := est.EvaluateAnalyticFutures(withPenalty, time.Now())

	assert.Greater(t, b.WorstCaseLoss, a.WorstCaseLoss)
	assert.Less(t, b.ExpectedReturn, a.ExpectedReturn)
}

func TestDriftWinProbabilityDegeneratesWithoutVariance(t *testing.T) {
	assert.InDelta(t, 1.0, driftWinProbability(0.01, 0), 1e-9)
	assert.InDelta(t, 0.0, driftWinProbability(-0.01, 0), 1e-9)
	assert.InDelta(t, 0.5, driftWinProbability(0, 0), 1e-9)
	assert.InDelta(t, 0.5, driftWinProbability(0, 0.02), 1e-9)
}
