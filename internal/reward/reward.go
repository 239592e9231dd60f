package reward

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"sortforge/internal/curriculum"
	"sortforge/internal/isa"
)

// Trace is the per-episode diagnostic payload attached to every score.
type Trace map[string]any

// Config carries the reward weights. These are tunable options, not
// constants; DefaultConfig gives the reference values.
type Config struct {
	WeightCorrectness float64
	WeightLatencyMax  float64
	WeightLengthMax   float64
	TruncationPenalty float64
	InvalidPenalty    float64
	MaxProgramLength  int
}

func DefaultConfig() Config {
	return Config{
		WeightCorrectness: 1.0,
		WeightLatencyMax:  2.0,
		WeightLengthMax:   0.6,
		TruncationPenalty: 0.5,
		InvalidPenalty:    1.0,
		MaxProgramLength:  8,
	}
}

// Outcome is one episode's score plus the flags the trainer and scheduler
// consume.
type Outcome struct {
	Reward          float64
	CorrectnessRate float64
	Correct         bool
	Terminated      bool
	Trace           Trace
}

// Stage1 scores syntax only: +1 for a well-formed sequence, -1 otherwise.
func Stage1(prog isa.Program, cfg Config) Outcome {
	wellFormed := prog.WellFormed(cfg.MaxProgramLength)
	r := -1.0
	if wellFormed {
		r = 1.0
	}
	return Outcome{
		Reward:     r,
		Correct:    wellFormed,
		Terminated: prog.Terminated(),
		Trace: Trace{
			"stage":       1,
			"well_formed": wellFormed,
			"length":      len(prog),
		},
	}
}

// Stage2 scores functional correctness over the active curriculum cases,
// with a small capped bonus for shorter programs and a penalty for
// sequences that never reach the terminal marker.
func Stage2(prog isa.Program, cases []curriculum.TestCase, cfg Config, workers int) Outcome {
	rate := CorrectnessRate(prog, cases, cfg.MaxProgramLength, workers)
	terminated := prog.Terminated()

	r := rate*cfg.WeightCorrectness + LengthBonus(len(prog), cfg)
	if !terminated {
		r -= cfg.TruncationPenalty
	}
	return Outcome{
		Reward:          r,
		CorrectnessRate: rate,
		Correct:         rate == 1.0,
		Terminated:      terminated,
		Trace: Trace{
			"stage":            2,
			"correctness_rate": rate,
			"length":           len(prog),
			"length_bonus":     LengthBonus(len(prog), cfg),
			"terminated":       terminated,
		},
	}
}

// Stage3 scores the multi-objective reward: full correctness indicator,
// clipped latency improvement, clipped length bonus, minus a fixed penalty
// for truncated or malformed sequences.
func Stage3(prog isa.Program, cases []curriculum.TestCase, cfg Config, latencyImprovement float64, workers int) Outcome {
	rate := CorrectnessRate(prog, cases, cfg.MaxProgramLength, workers)
	wellFormed := prog.WellFormed(cfg.MaxProgramLength)

	r := 0.0
	if rate == 1.0 {
		r += cfg.WeightCorrectness
	}
	latTerm := clip(latencyImprovement, 0, cfg.WeightLatencyMax)
	lenTerm := clip(LengthBonus(len(prog), cfg), 0, cfg.WeightLengthMax)
	r += latTerm + lenTerm
	if !wellFormed {
		r -= cfg.InvalidPenalty
	}
	return Outcome{
		Reward:          r,
		CorrectnessRate: rate,
		Correct:         rate == 1.0,
		Terminated:      prog.Terminated(),
		Trace: Trace{
			"stage":            3,
			"correctness_rate": rate,
			"latency_term":     latTerm,
			"length_term":      lenTerm,
			"well_formed":      wellFormed,
			"length":           len(prog),
		},
	}
}

// LengthBonus decreases strictly with instruction count down to zero at
// the length bound, capped at WeightLengthMax. Three instructions is the
// shortest useful sequence, so anything at or below it earns the cap.
func LengthBonus(length int, cfg Config) float64 {
	const minUseful = 3
	maxLen := cfg.MaxProgramLength
	if maxLen <= minUseful {
		if length <= maxLen {
			return cfg.WeightLengthMax
		}
		return 0
	}
	bonus := cfg.WeightLengthMax * float64(maxLen-length) / float64(maxLen-minUseful)
	return clip(bonus, 0, cfg.WeightLengthMax)
}

// CorrectnessRate is the fraction of cases the program sorts. With
// workers > 1 the cases are evaluated concurrently; results are identical
// either way since each execution owns its state copy.
func CorrectnessRate(prog isa.Program, cases []curriculum.TestCase, maxSteps, workers int) float64 {
	if len(cases) == 0 {
		return 0
	}
	if workers <= 1 || len(cases) == 1 {
		correct := 0
		for _, tc := range cases {
			if isa.Correct(tc.Input, prog, maxSteps) {
				correct++
			}
		}
		return float64(correct) / float64(len(cases))
	}

	var mu sync.Mutex
	correct := 0
	var group errgroup.Group
	group.SetLimit(workers)
	for _, tc := range cases {
		tc := tc
		group.Go(func() error {
			if isa.Correct(tc.Input, prog, maxSteps) {
				mu.Lock()
				correct++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return float64(correct) / float64(len(cases))
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
