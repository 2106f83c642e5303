package expectancy

import (
	"math"
	"time"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

const forwardModelTag = "forward-rr-v1"

// ForwardInputs are the parameters for the forward-static mode, used when no
// historical outcomes exist for a source. Zero StopLossPct and TargetRR are
// filled from the configured defaults before clamping.
type ForwardInputs struct {
	EntryPrice     float64
	Quantity       float64
	StopLossPct    float64
	TargetRR       float64
	WinProbability float64
	MaxHolding     time.Duration
}

// EvaluateForward computes a static risk/reward expectancy:
//
//	risk    = entry_price * stop_loss_pct * qty
//	reward  = risk * target_rr
//	ev      = p_win*reward - (1-p_win)*risk - fee_slippage_penalty
//
// All inputs are defensively clamped; the snapshot is always valid. The
// confidence is fixed at Low and the timeout-exit probability at 0.5, since
// there is no historical basis for either.
func (e *Estimator) EvaluateForward(in ForwardInputs, now time.Time) domain.EntryExpectancySnapshot {
	if in.StopLossPct == 0 {
		in.StopLossPct = e.cfg.DefaultStopLossPct
	}
	if in.TargetRR == 0 {
		in.TargetRR = e.cfg.DefaultTargetRR
	}

	price := math.Max(in.EntryPrice, 0)
	qty := math.Abs(in.Quantity)
	stop := math.Max(in.StopLossPct, 0)
	rr := math.Max(in.TargetRR, 0)
	pWin := clamp01(in.WinProbability)
	hold := in.MaxHolding
	if hold < time.Millisecond {
		hold = time.Millisecond
	}

	risk := price * stop * qty
	reward := risk * rr
	ev := pWin*reward - (1-pWin)*risk - e.cfg.FeeSlippagePenalty

	return domain.EntryExpectancySnapshot{
		ExpectedReturn:     ev,
		ExpectedHolding:    hold,
		WorstCaseLoss:      risk,
		FeeSlippagePenalty: e.cfg.FeeSlippagePenalty,
		Probability: domain.ProbabilitySnapshot{
			WinProbability:         pWin,
			TailLossProbability:    clamp01(1 - pWin),
			TimeoutExitProbability: 0.5,
			EffectiveSampleSize:    0,
			Confidence:             domain.ConfidenceLow,
			ModelTag:               forwardModelTag,
		},
		ModelTag:   forwardModelTag,
		ComputedAt: now,
	}
}
