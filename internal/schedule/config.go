package schedule

import (
	"os"
	"strconv"
)

// Config holds the scheduling constants. The defaults mirror the tuning
// the product shipped with; none of them is baked into the algorithm body.
type Config struct {
	// MaxTopicsPerDay is the cognitive-load cap on a single day.
	MaxTopicsPerDay int

	// ClusterCap limits how many related topics form one cluster.
	ClusterCap int

	// InterleaveRounds is how many times each cluster member appears in
	// the within-session practice sequence.
	InterleaveRounds int

	// ExamWindowDays is the final stretch before the exam in which
	// computed intervals are ignored and every day becomes forced
	// review, exam proximity beating spacing theory.
	ExamWindowDays int
}

// DefaultConfig returns a Config with the shipped defaults.
func DefaultConfig() Config {
	return Config{
		MaxTopicsPerDay:  3,
		ClusterCap:       3,
		InterleaveRounds: 3,
		ExamWindowDays:   7,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("STUDYFLOW_INTERLEAVE_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InterleaveRounds = n
		}
	}
	if v := os.Getenv("STUDYFLOW_EXAM_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ExamWindowDays = n
		}
	}

	return cfg
}
