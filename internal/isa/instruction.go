package isa

import "fmt"

// Instruction is one action from the fixed sorting vocabulary. Swap
// instructions compare two of the three positions and exchange them only
// when the first strictly exceeds the second, Nop is a timing hint with no
// state effect, and Done terminates execution.
type Instruction uint8

const (
	SwapAB Instruction = iota
	SwapAC
	SwapBC
	Nop
	Done
)

var instructionNames = [...]string{
	SwapAB: "swap_ab",
	SwapAC: "swap_ac",
	SwapBC: "swap_bc",
	Nop:    "nop",
	Done:   "done",
}

func (i Instruction) Valid() bool {
	return int(i) < len(instructionNames)
}

func (i Instruction) String() string {
	if !i.Valid() {
		return fmt.Sprintf("instruction(%d)", uint8(i))
	}
	return instructionNames[i]
}

func ParseInstruction(token string) (Instruction, error) {
	for idx, name := range instructionNames {
		if token == name {
			return Instruction(idx), nil
		}
	}
	return 0, fmt.Errorf("unknown instruction token: %q", token)
}

// Vocabulary returns the sampleable instruction set. The timing hint is
// excluded unless requested; Done is always last so priors index cleanly.
func Vocabulary(includeNop bool) []Instruction {
	if includeNop {
		return []Instruction{SwapAB, SwapAC, SwapBC, Nop, Done}
	}
	return []Instruction{SwapAB, SwapAC, SwapBC, Done}
}

// VocabularySize is the full action-space width including the timing hint.
const VocabularySize = 5
