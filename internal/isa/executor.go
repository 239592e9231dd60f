package isa

// State is the integer triple a program rearranges. Each execution owns
// its copy; Execute never aliases caller state.
type State [3]int

func (s State) Sorted() bool {
	return s[0] <= s[1] && s[1] <= s[2]
}

// Execute interprets prog against state strictly in order. Swaps exchange
// positions only on a strict greater-than, so duplicate values are stable
// and execution is fully deterministic. Execution halts at the terminal
// marker (terminated=true) or after maxSteps instructions (terminated=false).
// A non-positive maxSteps means the program's own length bounds execution.
func Execute(state State, prog Program, maxSteps int) (State, int, bool) {
	if maxSteps <= 0 || maxSteps > len(prog) {
		maxSteps = len(prog)
	}

	steps := 0
	for _, ins := range prog[:maxSteps] {
		steps++
		switch ins {
		case SwapAB:
			if state[0] > state[1] {
				state[0], state[1] = state[1], state[0]
			}
		case SwapAC:
			if state[0] > state[2] {
				state[0], state[2] = state[2], state[0]
			}
		case SwapBC:
			if state[1] > state[2] {
				state[1], state[2] = state[2], state[1]
			}
		case Nop:
			// timing hint, no state effect
		case Done:
			return state, steps, true
		}
	}
	return state, steps, false
}

// Correct reports whether prog terminates on input and leaves it in
// ascending order.
func Correct(input State, prog Program, maxSteps int) bool {
	out, _, terminated := Execute(input, prog, maxSteps)
	return terminated && out.Sorted()
}
