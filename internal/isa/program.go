package isa

import (
	"fmt"
	"strings"
)

// Program is an ordered candidate instruction sequence. The text form is
// the canonical serialization: space-separated instruction tokens.
type Program []Instruction

func (p Program) String() string {
	tokens := make([]string, len(p))
	for i, ins := range p {
		tokens[i] = ins.String()
	}
	return strings.Join(tokens, " ")
}

func ParseProgram(text string) (Program, error) {
	fields := strings.Fields(text)
	prog := make(Program, 0, len(fields))
	for _, token := range fields {
		ins, err := ParseInstruction(token)
		if err != nil {
			return nil, err
		}
		prog = append(prog, ins)
	}
	return prog, nil
}

func (p Program) MarshalText() ([]byte, error) {
	for _, ins := range p {
		if !ins.Valid() {
			return nil, fmt.Errorf("program contains invalid instruction %d", uint8(ins))
		}
	}
	return []byte(p.String()), nil
}

func (p *Program) UnmarshalText(data []byte) error {
	prog, err := ParseProgram(string(data))
	if err != nil {
		return err
	}
	*p = prog
	return nil
}

func (p Program) Clone() Program {
	out := make(Program, len(p))
	copy(out, p)
	return out
}

// Terminated reports whether the terminal marker appears in the sequence.
func (p Program) Terminated() bool {
	for _, ins := range p {
		if ins == Done {
			return true
		}
	}
	return false
}

// WellFormed reports syntactic validity: every token is a known
// instruction, exactly one terminal marker appears, it is the final
// instruction, and the sequence fits the length bound.
func (p Program) WellFormed(maxLen int) bool {
	if len(p) == 0 || len(p) > maxLen {
		return false
	}
	doneCount := 0
	for _, ins := range p {
		if !ins.Valid() {
			return false
		}
		if ins == Done {
			doneCount++
		}
	}
	return doneCount == 1 && p[len(p)-1] == Done
}

// Reference returns the known-correct four-instruction sorting network
// used as the latency baseline and in tests.
func Reference() Program {
	return Program{SwapBC, SwapAB, SwapBC, Done}
}
