// Package expectancy estimates the monetary outcome of entering a position
// now, so order logic can size or skip a trade.
//
// Three modes are provided: historical-stats (recency-weighted win rates
// from past trade outcomes), forward-static (risk/reward arithmetic when no
// history exists), and analytic (a log-return distribution over the holding
// horizon). Every mode always returns a valid snapshot; degenerate inputs
// are clamped to safe defaults rather than surfaced as errors, because a
// gating decision must stay computable even from malformed upstream data.
package expectancy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

const historicalModelTag = "hist-decay-v1"

// Config holds the estimator's tunables. Zero values are replaced with the
// defaults below at construction, and an inverted confidence band is
// normalized by swapping, so a malformed config never becomes a runtime
// failure.
type Config struct {
	// FeeSlippagePenalty is subtracted from every historical and
	// forward-static expected return, in quote currency.
	FeeSlippagePenalty float64

	// DecayHalfLifeDays controls the exponential age decay: a sample this
	// many days old contributes half the weight of a fresh one.
	DecayHalfLifeDays float64

	// ConfidenceLowNEff / ConfidenceHighNEff are the effective-sample-size
	// thresholds for the Low/Medium/High tiers.
	ConfidenceLowNEff  float64
	ConfidenceHighNEff float64

	// ShrinkageStrength is the pseudo-count K in the local-confidence
	// weight w = n_eff / (n_eff + K) used to pull sparse local windows
	// toward the cross-strategy baseline.
	ShrinkageStrength float64

	// DefaultStopLossPct / DefaultTargetRR fill in forward-static inputs
	// left at zero.
	DefaultStopLossPct float64
	DefaultTargetRR    float64
}

// DefaultConfig returns the estimator defaults.
func DefaultConfig() Config {
	return Config{
		FeeSlippagePenalty: 0,
		DecayHalfLifeDays:  14,
		ConfidenceLowNEff:  5,
		ConfidenceHighNEff: 20,
		ShrinkageStrength:  10,
		DefaultStopLossPct: 0.01,
		DefaultTargetRR:    2,
	}
}

// normalized clamps malformed values to the defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.DecayHalfLifeDays <= 0 {
		c.DecayHalfLifeDays = def.DecayHalfLifeDays
	}
	if c.ConfidenceLowNEff <= 0 {
		c.ConfidenceLowNEff = def.ConfidenceLowNEff
	}
	if c.ConfidenceHighNEff <= 0 {
		c.ConfidenceHighNEff = def.ConfidenceHighNEff
	}
	if c.ConfidenceLowNEff > c.ConfidenceHighNEff {
		c.ConfidenceLowNEff, c.ConfidenceHighNEff = c.ConfidenceHighNEff, c.ConfidenceLowNEff
	}
	if c.ShrinkageStrength <= 0 {
		c.ShrinkageStrength = def.ShrinkageStrength
	}
	if c.FeeSlippagePenalty < 0 {
		c.FeeSlippagePenalty = 0
	}
	if c.DefaultStopLossPct < 0 {
		c.DefaultStopLossPct = def.DefaultStopLossPct
	}
	if c.DefaultTargetRR < 0 {
		c.DefaultTargetRR = def.DefaultTargetRR
	}
	return c
}

// Estimator computes entry expectancy snapshots. It holds no mutable state
// beyond its configuration, so concurrent evaluations for different
// instruments and tags are independent.
type Estimator struct {
	stats  domain.TradeStatsReader
	cfg    Config
	logger *slog.Logger
}

// NewEstimator creates an Estimator over the given stats source. The stats
// reader may be nil when only the forward-static and analytic modes are
// used.
func NewEstimator(stats domain.TradeStatsReader, cfg Config, logger *slog.Logger) *Estimator {
	return &Estimator{
		stats:  stats,
		cfg:    cfg.normalized(),
		logger: logger.With(slog.String("component", "expectancy")),
	}
}

// windowStats is the decay-weighted summary of one trade-stats window.
type windowStats struct {
	nEff        float64
	winProb     float64
	avgWin      float64 // mean winning PnL, quote currency
	avgLoss     float64 // mean losing PnL magnitude
	worstLoss   float64 // largest losing PnL magnitude
	tailFrac    float64 // weighted share of losses at least 2x avgLoss
	avgHold     time.Duration
	maxHold     time.Duration
	timeoutFrac float64 // weighted share of samples that held to the window ceiling
	hasHold     bool
}

// summarize reduces a window to decay-weighted statistics. More recent
// samples count more: weight = 2^(-age/halfLife), so a handful of recent
// outcomes outweighs a large stale history.
func (e *Estimator) summarize(w domain.TradeStatsWindow) windowStats {
	var s windowStats
	if w.Empty() {
		return s
	}

	var wSum, winSum, winAmt, winW, lossAmt, lossW float64
	var holdSum float64
	var holdW float64
	for _, sample := range w.Samples {
		age := sample.AgeDays
		if age < 0 {
			age = 0
		}
		wgt := math.Exp2(-age / e.cfg.DecayHalfLifeDays)
		wSum += wgt

		if sample.RealizedPnL > 0 {
			winSum += wgt
			winAmt += wgt * sample.RealizedPnL
			winW += wgt
		} else if sample.RealizedPnL < 0 {
			mag := -sample.RealizedPnL
			lossAmt += wgt * mag
			lossW += wgt
			if mag > s.worstLoss {
				s.worstLoss = mag
			}
		}

		if sample.HoldingDuration > 0 {
			holdSum += wgt * float64(sample.HoldingDuration)
			holdW += wgt
			if sample.HoldingDuration > s.maxHold {
				s.maxHold = sample.HoldingDuration
			}
		}
	}

	s.nEff = wSum
	if wSum > 0 {
		s.winProb = winSum / wSum
	}
	if winW > 0 {
		s.avgWin = winAmt / winW
	}
	if lossW > 0 {
		s.avgLoss = lossAmt / lossW
	}
	if holdW > 0 {
		s.avgHold = time.Duration(holdSum / holdW)
		s.hasHold = true
	}

	// Second pass for the distribution-relative fractions.
	if wSum > 0 {
		var tailSum, timeoutSum float64
		ceiling := time.Duration(float64(s.maxHold) * 0.95)
		for _, sample := range w.Samples {
			age := sample.AgeDays
			if age < 0 {
				age = 0
			}
			wgt := math.Exp2(-age / e.cfg.DecayHalfLifeDays)
			if s.avgLoss > 0 && sample.RealizedPnL <= -2*s.avgLoss {
				tailSum += wgt
			}
			if s.maxHold > 0 && sample.HoldingDuration >= ceiling {
				timeoutSum += wgt
			}
		}
		s.tailFrac = tailSum / wSum
		s.timeoutFrac = timeoutSum / wSum
	}

	return s
}

// confidenceFor maps an effective sample size to a tier.
func (e *Estimator) confidenceFor(nEff float64) domain.Confidence {
	switch {
	case nEff < e.cfg.ConfidenceLowNEff:
		return domain.ConfidenceLow
	case nEff >= e.cfg.ConfidenceHighNEff:
		return domain.ConfidenceHigh
	default:
		return domain.ConfidenceMedium
	}
}

// EvaluateHistorical estimates expectancy from past trade outcomes for the
// given source tag and instrument. The local window drives the estimate;
// when it is sparse the cross-strategy global window is blended in as a
// shrinkage prior in proportion to (1 - local confidence weight).
//
// A failing stats source is propagated to the caller rather than silently
// substituted, since defaulting here would corrupt the expectancy math.
// Empty windows are absence, not failure.
func (e *Estimator) EvaluateHistorical(ctx context.Context, sourceTag, instrument string, now time.Time, lookback int) (domain.EntryExpectancySnapshot, error) {
	if lookback < 1 {
		lookback = 1
	}

	local, err := e.stats.LoadLocalStats(ctx, sourceTag, instrument, lookback)
	if err != nil {
		return domain.EntryExpectancySnapshot{}, fmt.Errorf("expectancy: load local stats %s/%s: %w", sourceTag, instrument, err)
	}
	global, err := e.stats.LoadGlobalStats(ctx, sourceTag, lookback)
	if err != nil {
		return domain.EntryExpectancySnapshot{}, fmt.Errorf("expectancy: load global stats %s: %w", sourceTag, err)
	}

	ls := e.summarize(local)
	gs := e.summarize(global)

	// Shrink the local estimate toward the cross-strategy baseline.
	weight := ls.nEff / (ls.nEff + e.cfg.ShrinkageStrength)
	var pWin float64
	switch {
	case ls.nEff == 0 && gs.nEff == 0:
		pWin = 0.5
	case gs.nEff == 0:
		pWin = ls.winProb
	case ls.nEff == 0:
		pWin = gs.winProb
	default:
		pWin = weight*ls.winProb + (1-weight)*gs.winProb
	}
	pWin = clamp01(pWin)

	avgWin := pickPositive(ls.avgWin, gs.avgWin)
	avgLoss := pickPositive(ls.avgLoss, gs.avgLoss)
	worst := ls.worstLoss
	if worst == 0 {
		worst = gs.worstLoss
	}

	ev := pWin*avgWin - (1-pWin)*avgLoss - e.cfg.FeeSlippagePenalty

	hold := ls.avgHold
	if !ls.hasHold {
		hold = gs.avgHold
	}
	if hold < time.Millisecond {
		hold = time.Millisecond
	}

	tail := ls.tailFrac
	if ls.nEff == 0 {
		tail = gs.tailFrac
	}
	timeout := 0.5
	switch {
	case ls.hasHold:
		timeout = ls.timeoutFrac
	case gs.hasHold:
		timeout = gs.timeoutFrac
	}

	snap := domain.EntryExpectancySnapshot{
		ExpectedReturn:     ev,
		ExpectedHolding:    hold,
		WorstCaseLoss:      worst,
		FeeSlippagePenalty: e.cfg.FeeSlippagePenalty,
		Probability: domain.ProbabilitySnapshot{
			WinProbability:         pWin,
			TailLossProbability:    clamp01(tail),
			TimeoutExitProbability: clamp01(timeout),
			EffectiveSampleSize:    ls.nEff,
			Confidence:             e.confidenceFor(ls.nEff),
			ModelTag:               historicalModelTag,
		},
		ModelTag:   historicalModelTag,
		ComputedAt: now,
	}

	e.logger.Debug("historical expectancy computed",
		slog.String("source_tag", sourceTag),
		slog.String("instrument", instrument),
		slog.Float64("expected_return", snap.ExpectedReturn),
		slog.Float64("win_probability", pWin),
		slog.Float64("n_eff", ls.nEff),
		slog.String("confidence", snap.Probability.Confidence.String()),
	)

	return snap, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func pickPositive(local, global float64) float64 {
	if local > 0 {
		return local
	}
	return global
}
