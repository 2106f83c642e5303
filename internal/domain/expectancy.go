package domain

import "time"

// Confidence is the statistical confidence tier attached to a probability
// estimate, derived from the effective sample size behind it.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the lower-case tier name for logging and telemetry.
func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ProbabilitySnapshot is the probability model behind an expectancy estimate.
// Probabilities each lie in [0,1]; they need not sum to 1 because a timeout
// exit is a third outcome alongside win and loss.
type ProbabilitySnapshot struct {
	WinProbability         float64
	TailLossProbability    float64
	TimeoutExitProbability float64
	EffectiveSampleSize    float64
	Confidence             Confidence
	ModelTag               string
}

// EntryExpectancySnapshot is an immutable, timestamped estimate of the
// monetary outcome of entering a position now. One snapshot is produced per
// evaluation; ExpectedHolding is always at least one millisecond.
type EntryExpectancySnapshot struct {
	ExpectedReturn     float64
	ExpectedHolding    time.Duration
	ReturnStdDev       float64
	WorstCaseLoss      float64
	FeeSlippagePenalty float64
	Probability        ProbabilitySnapshot
	ModelTag           string
	ComputedAt         time.Time
}
