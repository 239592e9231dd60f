package policy

import "sortforge/internal/isa"

// StateInput is the per-step observation the agent maps to an action
// distribution: position in the episode, the previous action, remaining
// budget, curriculum progress, and (stage 3) pattern-match features against
// previously discovered high-reward prefixes.
type StateInput struct {
	Step       int
	MaxSteps   int
	LastAction isa.Instruction
	HasLast    bool
	StageIndex int
	StageCount int
	Pattern    []float64 // one entry per vocabulary slot, may be nil
}

// FeatureDim is the fixed width of the encoded observation: step fraction,
// remaining budget, curriculum progress, one-hot last action, and the
// pattern-prior row.
const FeatureDim = 3 + isa.VocabularySize + isa.VocabularySize

// Features encodes an observation into the network input vector. The
// encoding is total: absent pattern features and the no-last-action case
// encode as zeros.
func Features(in StateInput) []float64 {
	out := make([]float64, FeatureDim)

	if in.MaxSteps > 0 {
		out[0] = float64(in.Step) / float64(in.MaxSteps)
		remaining := in.MaxSteps - in.Step
		if remaining < 0 {
			remaining = 0
		}
		out[1] = float64(remaining) / float64(in.MaxSteps)
	}
	if in.StageCount > 1 {
		out[2] = float64(in.StageIndex) / float64(in.StageCount-1)
	}

	if in.HasLast && in.LastAction.Valid() {
		out[3+int(in.LastAction)] = 1
	}

	base := 3 + isa.VocabularySize
	for i, v := range in.Pattern {
		if i >= isa.VocabularySize {
			break
		}
		out[base+i] = v
	}
	return out
}
