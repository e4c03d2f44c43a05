package main

import "math"

// WilsonCI95 gives a 95% confidence interval for a track's true win rate
// from its session-or-career tallies, counting draws as half a win. Small
// samples get appropriately wide intervals, so a 2-0 track does not outrank
// a 40-5 track with any confidence.
func WilsonCI95(wins, draws, total int) (low, high float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(draws)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}
