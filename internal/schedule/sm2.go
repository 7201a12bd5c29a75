package schedule

import "math"

// SM-2 constants. Easiness starts at the maximum and is floored at 1.3,
// preventing runaway interval shrinkage for a struggling topic.
const (
	DefaultEasiness = 2.5
	MinEasiness     = 1.3

	firstInterval  = 1
	secondInterval = 6
)

// QualityForScore maps a 0-100 performance score to an SM-2 quality
// grade in 0..5.
func QualityForScore(score int) int {
	switch {
	case score >= 90:
		return 5
	case score >= 80:
		return 4
	case score >= 70:
		return 3
	case score >= 60:
		return 2
	case score >= 50:
		return 1
	default:
		return 0
	}
}

// NextEasiness applies the SM-2 easiness update for a quality grade,
// floored at MinEasiness.
func NextEasiness(ef float64, quality int) float64 {
	q := float64(quality)
	next := ef + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if next < MinEasiness {
		return MinEasiness
	}
	return next
}

// NextInterval returns the gap in days until a topic's next review, given
// how many times it has been seen. The first exposure is reviewed the
// next day, the second after six days, and later ones grow by the
// easiness factor.
func NextInterval(exposures, prevInterval int, ef float64) int {
	switch {
	case exposures <= 1:
		return firstInterval
	case exposures == 2:
		return secondInterval
	default:
		next := int(math.Round(float64(prevInterval) * ef))
		if next < 1 {
			next = 1
		}
		return next
	}
}
