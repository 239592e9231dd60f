package policy

import "sortforge/internal/isa"

// Prior is a per-step tabulated action distribution derived from the best
// discovered programs. It accelerates exploration by nudging sampling
// toward known-good prefixes through one fixed mixing rule; it never
// replaces the learned distribution.
type Prior struct {
	Weight float64
	vocab  []isa.Instruction
	table  [][]float64 // [step][vocab index]
}

// BuildPrior tabulates, for each step, the smoothed frequency of each
// vocabulary action at that position across the given programs. Programs
// shorter than maxSteps simply stop contributing past their end.
func BuildPrior(programs []isa.Program, vocab []isa.Instruction, maxSteps int, weight float64) *Prior {
	if maxSteps <= 0 || len(vocab) == 0 {
		return nil
	}
	slot := make(map[isa.Instruction]int, len(vocab))
	for i, ins := range vocab {
		slot[ins] = i
	}

	table := make([][]float64, maxSteps)
	for step := range table {
		counts := make([]float64, len(vocab))
		for i := range counts {
			counts[i] = 1 // Laplace smoothing keeps every action reachable
		}
		for _, prog := range programs {
			if step >= len(prog) {
				continue
			}
			if idx, ok := slot[prog[step]]; ok {
				counts[idx]++
			}
		}
		total := 0.0
		for _, c := range counts {
			total += c
		}
		for i := range counts {
			counts[i] /= total
		}
		table[step] = counts
	}
	return &Prior{Weight: weight, vocab: vocab, table: table}
}

// Row returns the prior distribution for a step, or nil past the table.
// The trainer also feeds this row in as pattern-match features.
func (p *Prior) Row(step int) []float64 {
	if p == nil || step < 0 || step >= len(p.table) {
		return nil
	}
	return p.table[step]
}

// Mix combines the model distribution with the prior row for a step as a
// weighted average of probabilities, renormalized. With no row available
// the model distribution passes through unchanged.
func (p *Prior) Mix(step int, probs []float64) []float64 {
	row := p.Row(step)
	if row == nil || p.Weight <= 0 {
		return probs
	}
	w := p.Weight
	if w > 1 {
		w = 1
	}
	mixed := make([]float64, len(probs))
	sum := 0.0
	for i := range mixed {
		prior := 0.0
		if i < len(row) {
			prior = row[i]
		}
		mixed[i] = (1-w)*probs[i] + w*prior
		sum += mixed[i]
	}
	if sum <= 0 {
		return probs
	}
	for i := range mixed {
		mixed[i] /= sum
	}
	return mixed
}
