package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictEqualScoresIsEven(t *testing.T) {
	for _, tc := range []struct{ a, k float64 }{
		{1000, 2}, {1500, 4}, {0, 1}, {-250, 10},
	} {
		assert.InDelta(t, 0.5, Predict(tc.a, tc.a, tc.k), 1e-12)
	}
}

func TestPredictFavorsHigherScore(t *testing.T) {
	assert.Greater(t, Predict(1200, 1000, 4), 0.5)
	assert.Less(t, Predict(1000, 1200, 4), 0.5)
	// Symmetric: P(a beats b) + P(b beats a) = 1
	assert.InDelta(t, 1.0, Predict(1300, 900, 4)+Predict(900, 1300, 4), 1e-12)
}

func TestNewScoreIsZeroSum(t *testing.T) {
	cases := []struct {
		a, b       float64
		outcome, k float64
	}{
		{1500, 1500, 1.0, 4},
		{1200, 900, 0.0, 2},
		{1000.5, 999.5, 0.5, 1},
		{100, 2000, 1.0, 8},
	}
	for _, tc := range cases {
		a, b := tc.a, tc.b
		na, nb := NewScore(&a, &b, tc.outcome, tc.k)
		assert.InDelta(t, a+b, na+nb, 1e-9, "a=%v b=%v outcome=%v", tc.a, tc.b, tc.outcome)
	}
}

func TestNewScoreKnownResult(t *testing.T) {
	// Even match at k=4: the winner takes exactly k/2.
	a, b := 1500.0, 1500.0
	na, nb := NewScore(&a, &b, 1.0, 4)
	assert.InDelta(t, 1502.0, na, 1e-9)
	assert.InDelta(t, 1498.0, nb, 1e-9)
}

func TestNewScoreUnratedFallsBackToDefaults(t *testing.T) {
	b := 1400.0

	// Either side missing: both start from the default, reduced k.
	na, nb := NewScore(nil, &b, 1.0, 8)
	assert.InDelta(t, DefaultScore+FirstRatingK*0.5, na, 1e-9)
	assert.InDelta(t, DefaultScore-FirstRatingK*0.5, nb, 1e-9)

	na, nb = NewScore(&b, nil, 0.0, 8)
	assert.InDelta(t, DefaultScore-FirstRatingK*0.5, na, 1e-9)
	assert.InDelta(t, DefaultScore+FirstRatingK*0.5, nb, 1e-9)
}

func TestNewScoreDrawOnEvenMatchChangesNothing(t *testing.T) {
	a, b := 1234.0, 1234.0
	na, nb := NewScore(&a, &b, 0.5, 4)
	assert.InDelta(t, a, na, 1e-12)
	assert.InDelta(t, b, nb, 1e-12)
}
