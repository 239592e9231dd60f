package policy

import "math"

// EpsilonAt is the exploration schedule: a pure function of the episode
// index so runs replay identically from a seed. It decays geometrically
// from start toward the floor.
func EpsilonAt(episode int, start, decay, min float64) float64 {
	if episode < 0 {
		episode = 0
	}
	eps := start
	if decay > 0 && decay < 1 {
		eps = start * math.Pow(decay, float64(episode))
	}
	if eps < min {
		return min
	}
	return eps
}
