package confidence

import (
	"reflect"
	"testing"
)

func TestAssessHighConfidence(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	question := Question{
		MaxMarks:   8,
		MarkScheme: []string{"opportunity cost", "scarcity"},
	}
	result := MarkResult{
		AwardedMarks: 8,
		Feedback:     "Full marks: precise definition with a correct example.",
	}

	// 149 words, inside the expected band, touching both scheme points.
	answer := "Opportunity cost is the next best alternative forgone; because of scarcity every choice carries one. " + words(134)
	got := est.Assess(result, question, answer)
	if got.Score != 100 {
		t.Errorf("score = %d, want 100 (signals: %+v)", got.Score, got.Signals)
	}
	if got.NeedsReview {
		t.Error("clean full-mark result flagged for review")
	}
}

func TestAssessLowConfidence(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	question := Question{
		MaxMarks:           8,
		MarkScheme:         []string{"elasticity coefficient", "diagram"},
		RequiresEvaluation: true,
	}
	result := MarkResult{
		AwardedMarks: 4,
		Feedback:     "The answer might be partially correct. It is unclear if the key point was made. Possibly deserves more credit.",
	}

	got := est.Assess(result, question, words(30))

	// Hand-computed: length 27, coverage 0, ambiguity 50, hedging 40,
	// depth 30, boundary 40 -> 0.15*27 + 0.20*50 + 0.15*40 + 0.15*30 +
	// 0.10*40 = 28.55, rounded to 29.
	wantSignals := Signals{Length: 27, Coverage: 0, Ambiguity: 50, Hedging: 40, Depth: 30, Boundary: 40}
	if got.Signals != wantSignals {
		t.Errorf("signals = %+v, want %+v", got.Signals, wantSignals)
	}
	if got.Score != 29 {
		t.Errorf("score = %d, want 29", got.Score)
	}
	if !got.NeedsReview {
		t.Error("low-confidence result not flagged for review")
	}
}

func TestAssessCoverageScansAnswerNotFeedback(t *testing.T) {
	est := NewEstimator(DefaultConfig())
	question := Question{MaxMarks: 4, MarkScheme: []string{"inflation"}}
	result := MarkResult{
		AwardedMarks: 4,
		Feedback:     "No mention of inflation anywhere in the answer.",
	}

	got := est.Assess(result, question, words(80))
	if got.Signals.Coverage != 0 {
		t.Errorf("coverage = %d, want 0 when the answer omits every scheme point", got.Signals.Coverage)
	}
}

func TestAssessDeterministic(t *testing.T) {
	est := NewEstimator(DefaultConfig())
	question := Question{MaxMarks: 6, MarkScheme: []string{"supply shift"}, RequiresEvaluation: true}
	result := MarkResult{AwardedMarks: 4, Feedback: "Covers the supply shift but the diagram seems incomplete."}
	answer := "Prices rise because supply falls; however, the size of the rise depends on elasticity."

	first := est.Assess(result, question, answer)
	for i := 0; i < 10; i++ {
		if again := est.Assess(result, question, answer); !reflect.DeepEqual(again, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestAssessThresholdConfigurable(t *testing.T) {
	question := Question{
		MaxMarks:           8,
		MarkScheme:         []string{"elasticity coefficient", "diagram"},
		RequiresEvaluation: true,
	}
	result := MarkResult{
		AwardedMarks: 4,
		Feedback:     "The answer might be partially correct. It is unclear if the key point was made. Possibly deserves more credit.",
	}
	answer := words(30)

	strict := DefaultConfig()
	strict.ReviewThreshold = 30
	if got := NewEstimator(strict).Assess(result, question, answer); !got.NeedsReview {
		t.Errorf("score %d below threshold 30 but not flagged", got.Score)
	}

	lax := DefaultConfig()
	lax.ReviewThreshold = 29
	if got := NewEstimator(lax).Assess(result, question, answer); got.NeedsReview {
		t.Errorf("score %d at threshold 29 should not be flagged", got.Score)
	}
}

func TestAssessQuestionOverridesExpectedLength(t *testing.T) {
	est := NewEstimator(DefaultConfig())

	// A 2-mark definition question expects short answers: with 40 words
	// per mark, a 60-word answer sits inside the band.
	question := Question{MaxMarks: 2, ExpectedWordsPerMark: 40}
	result := MarkResult{AwardedMarks: 2, Feedback: "Correct definition."}

	got := est.Assess(result, question, words(60))
	if got.Signals.Length != 100 {
		t.Errorf("length signal = %d, want 100 with per-question word budget", got.Signals.Length)
	}
}
