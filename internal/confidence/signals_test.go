package confidence

import (
	"strings"
	"testing"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("demand ", n))
}

func TestLengthSignal(t *testing.T) {
	cases := []struct {
		name   string
		answer string
		marks  int
		want   int
	}{
		{"in band", words(120), 8, 100},          // ratio 0.75
		{"upper band edge", words(208), 8, 100},  // ratio 1.3
		{"far too short", words(30), 8, 27},      // ratio 0.1875
		{"slightly long", words(240), 8, 92},     // ratio 1.5
		{"rambling", words(480), 8, 40},          // ratio 3.0, floored
		{"unknown allocation", words(5), 0, 100}, // no marks, no judgement
	}
	for _, c := range cases {
		if got := lengthSignal(c.answer, c.marks, 20); got != c.want {
			t.Errorf("%s: lengthSignal = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestCoverageSignal(t *testing.T) {
	scheme := []string{"opportunity cost", "scarcity", "marginal analysis"}
	answer := "The Opportunity Cost of studying is leisure forgone, a direct result of scarcity."

	if got := coverageSignal(answer, scheme); got != 67 {
		t.Errorf("coverageSignal = %d, want 67 (two of three points)", got)
	}
	if got := coverageSignal("nothing relevant", scheme); got != 0 {
		t.Errorf("no coverage = %d, want 0", got)
	}
	if got := coverageSignal("anything", nil); got != 100 {
		t.Errorf("empty scheme = %d, want 100", got)
	}
}

func TestAmbiguitySignal(t *testing.T) {
	cases := []struct{ awarded, max, want int }{
		{0, 8, 100},
		{8, 8, 100},
		{4, 8, 50}, // mid-range, the model hedged
		{3, 8, 50},
		{7, 8, 75},
		{2, 8, 75},
		{1, 0, 100},
	}
	for _, c := range cases {
		if got := ambiguitySignal(c.awarded, c.max); got != c.want {
			t.Errorf("ambiguitySignal(%d, %d) = %d, want %d", c.awarded, c.max, got, c.want)
		}
	}
}

func TestHedgingSignal(t *testing.T) {
	cases := []struct {
		feedback string
		want     int
	}{
		{"The answer is correct and complete.", 100},
		{"This might be right, possibly.", 60},
		{"A mighty fine answer.", 100}, // word boundary, not a hedge
		{"It is unclear whether this could be valid; it may be wrong and might possibly not hold, perhaps.", 0},
	}
	for _, c := range cases {
		if got := hedgingSignal(c.feedback); got != c.want {
			t.Errorf("hedgingSignal(%q) = %d, want %d", c.feedback, got, c.want)
		}
	}
}

func TestDepthSignal(t *testing.T) {
	deep := "Lower rates boost investment; however, the effect depends on confidence, whereas in a recession it may stall."
	shallow := "Lower rates boost investment."

	if got := depthSignal(deep, true); got != 100 {
		t.Errorf("three markers = %d, want 100", got)
	}
	if got := depthSignal("It works, although slowly.", true); got != 70 {
		t.Errorf("one marker = %d, want 70", got)
	}
	if got := depthSignal(shallow, true); got != 30 {
		t.Errorf("no markers = %d, want 30", got)
	}
	if got := depthSignal(shallow, false); got != 100 {
		t.Errorf("evaluation not required = %d, want 100", got)
	}
}

func TestBoundarySignal(t *testing.T) {
	cases := []struct{ awarded, max, want int }{
		{4, 8, 40},  // exactly 50%
		{5, 8, 70},  // 62.5%, within 5 of a boundary
		{8, 8, 100}, // 100%, ten points clear
		{3, 8, 100}, // 37.5%
		{1, 0, 100},
	}
	for _, c := range cases {
		if got := boundarySignal(c.awarded, c.max); got != c.want {
			t.Errorf("boundarySignal(%d, %d) = %d, want %d", c.awarded, c.max, got, c.want)
		}
	}
}

func TestCountPhraseWordBoundaries(t *testing.T) {
	if got := countPhrase("might mighty might", "might"); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	if got := countPhrase("It could be; it really could be.", "could be"); got != 2 {
		t.Errorf("multi-word count = %d, want 2", got)
	}
	if got := countPhrase("", "might"); got != 0 {
		t.Errorf("empty text count = %d", got)
	}
}
