package confidence

import (
	"math"
	"strings"
	"unicode"
)

// hedgePhrases are the uncertainty markers counted by the hedging signal.
var hedgePhrases = []string{
	"might",
	"possibly",
	"perhaps",
	"could be",
	"may be",
	"unclear",
	"seems",
}

// depthMarkers are the evaluative-language markers counted by the
// analytical-depth signal.
var depthMarkers = []string{
	"however",
	"on the other hand",
	"depends on",
	"whereas",
	"in contrast",
	"although",
}

// gradeBoundaries are the percentage cut points used by the boundary
// proximity signal.
var gradeBoundaries = []float64{50, 60, 70, 80, 90}

// lengthSignal scores how well the answer length matches the expected
// length for the question's mark allocation. Undershooting is penalised
// more steeply than overshooting: a too-short answer usually means the
// marker had too little to judge.
func lengthSignal(answer string, maxMarks, wordsPerMark int) int {
	if maxMarks <= 0 || wordsPerMark <= 0 {
		return 100
	}
	expected := float64(maxMarks * wordsPerMark)
	ratio := float64(countWords(answer)) / expected
	switch {
	case ratio >= 0.7 && ratio <= 1.3:
		return 100
	case ratio < 0.7:
		return clampScore(int(math.Round(ratio / 0.7 * 100)))
	default:
		s := 100 - int(math.Round((ratio-1.3)*40))
		if s < 40 {
			s = 40
		}
		return s
	}
}

// coverageSignal scores what fraction of the mark-scheme points the
// student answer touches. An answer missing scheme points is hard to
// mark consistently. An empty mark scheme is treated as fully covered.
func coverageSignal(answer string, scheme []string) int {
	if len(scheme) == 0 {
		return 100
	}
	lower := strings.ToLower(answer)
	hit := 0
	for _, point := range scheme {
		if strings.Contains(lower, strings.ToLower(point)) {
			hit++
		}
	}
	return int(math.Round(float64(hit) / float64(len(scheme)) * 100))
}

// ambiguitySignal scores how decisive the mark award is. Awards near the
// middle of the available range signal the model hedged between two
// scores; full or zero marks are the most decisive.
func ambiguitySignal(awarded, maxMarks int) int {
	if maxMarks <= 0 {
		return 100
	}
	if awarded <= 0 || awarded >= maxMarks {
		return 100
	}
	frac := float64(awarded) / float64(maxMarks)
	if frac >= 1.0/3.0 && frac <= 2.0/3.0 {
		return 50
	}
	return 75
}

// hedgingSignal penalises uncertainty language in the feedback. Each
// occurrence costs 20 points, floored at zero.
func hedgingSignal(feedback string) int {
	n := 0
	for _, phrase := range hedgePhrases {
		n += countPhrase(feedback, phrase)
	}
	s := 100 - 20*n
	if s < 0 {
		s = 0
	}
	return s
}

// depthSignal scores the analytical depth of the student answer for
// questions that demand evaluation. Questions that do not are scored
// neutral.
func depthSignal(answer string, requiresEvaluation bool) int {
	if !requiresEvaluation {
		return 100
	}
	n := 0
	for _, marker := range depthMarkers {
		n += countPhrase(answer, marker)
	}
	switch {
	case n >= 3:
		return 100
	case n >= 1:
		return 70
	default:
		return 30
	}
}

// boundarySignal penalises awards that land near a grade boundary, where
// a one-mark disagreement flips the grade.
func boundarySignal(awarded, maxMarks int) int {
	if maxMarks <= 0 {
		return 100
	}
	pct := float64(awarded) / float64(maxMarks) * 100
	closest := math.MaxFloat64
	for _, b := range gradeBoundaries {
		if d := math.Abs(pct - b); d < closest {
			closest = d
		}
	}
	switch {
	case closest <= 2:
		return 40
	case closest <= 5:
		return 70
	default:
		return 100
	}
}

// countPhrase counts word-boundary occurrences of phrase in text,
// case-insensitively. "Might" in "mighty" does not count.
func countPhrase(text, phrase string) int {
	lower := strings.ToLower(text)
	phrase = strings.ToLower(phrase)
	n := 0
	for start := 0; ; {
		i := strings.Index(lower[start:], phrase)
		if i < 0 {
			break
		}
		at := start + i
		end := at + len(phrase)
		if boundaryBefore(lower, at) && boundaryAfter(lower, end) {
			n++
		}
		start = at + 1
	}
	return n
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
