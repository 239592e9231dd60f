package curriculum

import (
	"fmt"

	"sortforge/internal/isa"
)

// TestCase is one fixed input permutation. Cases are values and are never
// mutated; executions copy them into their own State.
type TestCase struct {
	Name  string
	Input isa.State
}

// Stage is a named evaluation subset. Later stages always contain every
// case of earlier ones, so difficulty grows monotonically.
type Stage struct {
	Name  string
	Cases []TestCase
}

// Permutations returns the six orderings of three distinct values in a
// fixed order, hardest-last so small stages start with near-sorted inputs.
func Permutations(a, b, c int) []TestCase {
	return []TestCase{
		{Name: "abc", Input: isa.State{a, b, c}},
		{Name: "acb", Input: isa.State{a, c, b}},
		{Name: "bac", Input: isa.State{b, a, c}},
		{Name: "bca", Input: isa.State{b, c, a}},
		{Name: "cab", Input: isa.State{c, a, b}},
		{Name: "cba", Input: isa.State{c, b, a}},
	}
}

// DefaultLadder builds the standard four-rung ladder over the permutations
// of (1,2,3): subset sizes 1, 2, 3, then the full space.
func DefaultLadder() []Stage {
	return Ladder(Permutations(1, 2, 3), []int{1, 2, 3, 6})
}

// Ladder slices cases into prefix subsets of the given sizes. Prefixes of
// a single ordering guarantee the superset invariant by construction.
func Ladder(cases []TestCase, sizes []int) []Stage {
	stages := make([]Stage, 0, len(sizes))
	for _, size := range sizes {
		if size > len(cases) {
			size = len(cases)
		}
		if size < 1 {
			size = 1
		}
		stages = append(stages, Stage{
			Name:  fmt.Sprintf("cases-%d", size),
			Cases: cases[:size],
		})
	}
	return stages
}
