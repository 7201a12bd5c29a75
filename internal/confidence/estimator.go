package confidence

import "math"

// Question describes the marked question as the estimator needs it: the
// mark allocation, the scheme points the answer should cover, and
// whether the command word demands evaluation.
type Question struct {
	MaxMarks             int
	MarkScheme           []string
	RequiresEvaluation   bool
	ExpectedWordsPerMark int
}

// MarkResult is the marking output being assessed.
type MarkResult struct {
	AwardedMarks int
	Feedback     string
}

// Signals holds the six per-signal scores, each 0-100, for transparency
// in review tooling.
type Signals struct {
	Length    int `json:"length"`
	Coverage  int `json:"coverage"`
	Ambiguity int `json:"ambiguity"`
	Hedging   int `json:"hedging"`
	Depth     int `json:"depth"`
	Boundary  int `json:"boundary"`
}

// Assessment is the estimator's verdict on a single marking result.
type Assessment struct {
	Score       int     `json:"score"`
	NeedsReview bool    `json:"needs_review"`
	Signals     Signals `json:"signals"`
}

// Estimator scores how much a marking result can be trusted without a
// human looking at it. It is a pure heuristic: no model call, no
// randomness, identical inputs always produce identical output.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an Estimator with the given configuration.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Assess combines the six weighted signals into a confidence score for
// the marking result and flags it for review when the score falls below
// the threshold.
func (e *Estimator) Assess(result MarkResult, question Question, studentAnswer string) Assessment {
	wordsPerMark := question.ExpectedWordsPerMark
	if wordsPerMark <= 0 {
		wordsPerMark = e.cfg.ExpectedWordsPerMark
	}

	sig := Signals{
		Length:    lengthSignal(studentAnswer, question.MaxMarks, wordsPerMark),
		Coverage:  coverageSignal(studentAnswer, question.MarkScheme),
		Ambiguity: ambiguitySignal(result.AwardedMarks, question.MaxMarks),
		Hedging:   hedgingSignal(result.Feedback),
		Depth:     depthSignal(studentAnswer, question.RequiresEvaluation),
		Boundary:  boundarySignal(result.AwardedMarks, question.MaxMarks),
	}

	weighted := e.cfg.LengthWeight*float64(sig.Length) +
		e.cfg.CoverageWeight*float64(sig.Coverage) +
		e.cfg.AmbiguityWeight*float64(sig.Ambiguity) +
		e.cfg.HedgingWeight*float64(sig.Hedging) +
		e.cfg.DepthWeight*float64(sig.Depth) +
		e.cfg.BoundaryWeight*float64(sig.Boundary)

	score := clampScore(int(math.Round(weighted)))

	return Assessment{
		Score:       score,
		NeedsReview: score < e.cfg.ReviewThreshold,
		Signals:     sig,
	}
}
