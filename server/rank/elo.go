package rank

import "math"

const (
	// DefaultScore is the population default substituted for unrated items.
	DefaultScore = 1000.0
	// DefaultK is the session sensitivity for the plain Elo update.
	DefaultK = 2.0
	// FirstRatingK replaces the caller's k when either side is unrated, so a
	// track's first comparisons move its score gently.
	FirstRatingK = 2.0
)

// Predict returns the probability that the item scoring a beats the item
// scoring b, on sensitivity k.
func Predict(a, b, k float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/k))
}

// NewScore computes the zero-sum Elo update for an observed outcome
// (1 = left wins, 0 = right wins, 0.5 = draw). Unrated sides fall back to
// DefaultScore on both ends with FirstRatingK, so the first verdict between
// fresh tracks starts from an even 0.5 prediction.
func NewScore(a, b *float64, outcome, k float64) (float64, float64) {
	av, bv := DefaultScore, DefaultScore
	if a == nil || b == nil {
		k = FirstRatingK
	} else {
		av, bv = *a, *b
	}
	delta := k * (outcome - Predict(av, bv, k))
	return av + delta, bv - delta
}
