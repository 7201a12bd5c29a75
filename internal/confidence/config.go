package confidence

import (
	"os"
	"strconv"
)

// Config tunes the confidence estimator. Weights must sum to 1.0; the
// defaults are the calibration the marking pipeline shipped with.
type Config struct {
	// ReviewThreshold is the score below which a marking result is
	// flagged for human review.
	ReviewThreshold int

	// ExpectedWordsPerMark sizes the expected answer length from the
	// question's mark allocation.
	ExpectedWordsPerMark int

	// Signal weights.
	LengthWeight    float64
	CoverageWeight  float64
	AmbiguityWeight float64
	HedgingWeight   float64
	DepthWeight     float64
	BoundaryWeight  float64
}

// DefaultConfig returns the shipped calibration.
func DefaultConfig() Config {
	return Config{
		ReviewThreshold:      70,
		ExpectedWordsPerMark: 20,
		LengthWeight:         0.15,
		CoverageWeight:       0.25,
		AmbiguityWeight:      0.20,
		HedgingWeight:        0.15,
		DepthWeight:          0.15,
		BoundaryWeight:       0.10,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values. Only the review threshold is operator
// tunable; reweighting the signals is a recalibration, not a deployment
// setting.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("STUDYFLOW_REVIEW_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			cfg.ReviewThreshold = n
		}
	}
	return cfg
}
