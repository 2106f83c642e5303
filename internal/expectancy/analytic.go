package expectancy

import (
	"math"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

const (
	analyticSpotModelTag    = "analytic-spot-v1"
	analyticFuturesModelTag = "analytic-futures-v1"
)

// AnalyticInputs describe a holding-horizon log-return distribution
// N(mu, sigma) plus the instrument's cost structure. The futures fields are
// ignored by the spot evaluation.
type AnalyticInputs struct {
	Side       domain.SignalSide // buy = long, sell = short
	EntryPrice float64
	Quantity   float64
	Mu         float64 // mean log return over the horizon
	Sigma      float64 // log-return standard deviation over the horizon
	Horizon    time.Duration

	FeePct      float64
	SlippagePct float64
	BorrowPct   float64

	// Futures / leveraged only.
	ContractMultiplier    float64
	FundingPct            float64
	LiquidationPenaltyPct float64
}

// EvaluateAnalyticSpot estimates expectancy for a spot position from the
// return distribution: EV = qty*p0*(side*mu) minus fee/slippage/borrow
// costs, with win probability Phi(side*mu / sigma).
func (e *Estimator) EvaluateAnalyticSpot(in AnalyticInputs, now time.Time) domain.EntryExpectancySnapshot {
	notional, sign, sigma := in.sanitize()

	drift := sign * in.Mu
	costs := notional * (clampPct(in.FeePct) + clampPct(in.SlippagePct) + clampPct(in.BorrowPct))
	ev := notional*drift - costs

	return e.analyticSnapshot(analyticSpotModelTag, ev, notional*sigma, notional*3*sigma, drift, sigma, costs, in.Horizon, now)
}

// EvaluateAnalyticFutures estimates expectancy for a leveraged position.
// PnL is scaled by the contract multiplier and further reduced by funding
// cost and a liquidation-risk penalty; the EV dispersion scales with
// sigma * multiplier, so for fixed mu and sigma a larger multiplier
// strictly increases both |EV| and the dispersion.
func (e *Estimator) EvaluateAnalyticFutures(in AnalyticInputs, now time.Time) domain.EntryExpectancySnapshot {
	notional, sign, sigma := in.sanitize()

	m := in.ContractMultiplier
	if m < 1 {
		m = 1
	}

	drift := sign * in.Mu
	costPct := clampPct(in.FeePct) + clampPct(in.SlippagePct) +
		clampPct(in.FundingPct) + clampPct(in.LiquidationPenaltyPct)
	costs := m * notional * costPct
	ev := m * (notional*drift - notional*costPct)
	worst := m * notional * (3*sigma + clampPct(in.LiquidationPenaltyPct))

	return e.analyticSnapshot(analyticFuturesModelTag, ev, m*notional*sigma, worst, drift, sigma, costs, in.Horizon, now)
}

func (in AnalyticInputs) sanitize() (notional, sign, sigma float64) {
	price := math.Max(in.EntryPrice, 0)
	qty := math.Abs(in.Quantity)
	sign = 1.0
	if in.Side == domain.SignalSell {
		sign = -1
	}
	sigma = math.Max(in.Sigma, 0)
	return price * qty, sign, sigma
}

func (e *Estimator) analyticSnapshot(tag string, ev, evStd, worst, drift, sigma, costs float64, horizon time.Duration, now time.Time) domain.EntryExpectancySnapshot {
	pWin := driftWinProbability(drift, sigma)
	tail := 0.0
	if sigma > 0 {
		// Probability of an adverse move beyond two standard deviations.
		tail = normCDF(-2 - drift/sigma)
	}

	if horizon < time.Millisecond {
		horizon = time.Millisecond
	}

	return domain.EntryExpectancySnapshot{
		ExpectedReturn:     ev,
		ExpectedHolding:    horizon,
		ReturnStdDev:       evStd,
		WorstCaseLoss:      worst,
		FeeSlippagePenalty: costs,
		Probability: domain.ProbabilitySnapshot{
			WinProbability:         pWin,
			TailLossProbability:    clamp01(tail),
			TimeoutExitProbability: 0.5,
			EffectiveSampleSize:    0,
			Confidence:             domain.ConfidenceLow,
			ModelTag:               tag,
		},
		ModelTag:   tag,
		ComputedAt: now,
	}
}

// driftWinProbability is Phi(drift/sigma), degenerating to a step function
// when sigma is zero.
func driftWinProbability(drift, sigma float64) float64 {
	if sigma <= 0 {
		switch {
		case drift > 0:
			return 1
		case drift < 0:
			return 0
		default:
			return 0.5
		}
	}
	return normCDF(drift / sigma)
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
