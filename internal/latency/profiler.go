package latency

import (
	"time"

	"sortforge/internal/curriculum"
	"sortforge/internal/isa"
)

// Profiler measures real execution cost of a candidate program relative to
// a fixed baseline and normalizes it into a bounded reward term. Wall-clock
// timing is noisy, so results are clipped and degenerate measurements fall
// back to an instruction-count proxy; measurement trouble never surfaces as
// an error.
type Profiler struct {
	Baseline       isa.Program
	Repetitions    int
	MaxSteps       int
	MaxImprovement float64

	// SpreadLimit bounds the relative spread of per-case timings before the
	// measurement is considered unstable. Zero means the default.
	SpreadLimit float64

	// now is swappable for tests.
	now func() time.Time
}

const (
	defaultRepetitions = 200
	defaultSpreadLimit = 4.0
)

func NewProfiler(baseline isa.Program, repetitions, maxSteps int, maxImprovement float64) *Profiler {
	if repetitions <= 0 {
		repetitions = defaultRepetitions
	}
	return &Profiler{
		Baseline:       baseline,
		Repetitions:    repetitions,
		MaxSteps:       maxSteps,
		MaxImprovement: maxImprovement,
		now:            time.Now,
	}
}

// Measure returns the normalized latency improvement of prog over the
// baseline across the given cases, clipped to [0, MaxImprovement].
func (p *Profiler) Measure(prog isa.Program, cases []curriculum.TestCase) float64 {
	if len(prog) == 0 || len(cases) == 0 {
		return 0
	}

	baseTime, baseOK := p.timeAcross(p.Baseline, cases)
	progTime, progOK := p.timeAcross(prog, cases)
	if !baseOK || !progOK || baseTime <= 0 {
		return p.proxyImprovement(prog)
	}

	improvement := (baseTime - progTime) / baseTime
	return clip(improvement, 0, p.MaxImprovement)
}

// timeAcross averages the per-case mean execution time and reports false
// when the measurement looks unstable: a non-positive timing, or per-case
// means spread wider than SpreadLimit allows.
func (p *Profiler) timeAcross(prog isa.Program, cases []curriculum.TestCase) (float64, bool) {
	if p.now == nil {
		p.now = time.Now
	}
	perCase := make([]float64, 0, len(cases))
	for _, tc := range cases {
		start := p.now()
		for rep := 0; rep < p.Repetitions; rep++ {
			isa.Execute(tc.Input, prog, p.MaxSteps)
		}
		elapsed := p.now().Sub(start)
		mean := float64(elapsed.Nanoseconds()) / float64(p.Repetitions)
		if mean <= 0 {
			return 0, false
		}
		perCase = append(perCase, mean)
	}

	lo, hi, sum := perCase[0], perCase[0], 0.0
	for _, v := range perCase {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	limit := p.SpreadLimit
	if limit <= 0 {
		limit = defaultSpreadLimit
	}
	if lo > 0 && hi/lo > limit {
		return 0, false
	}
	return sum / float64(len(perCase)), true
}

// proxyImprovement is the static fallback: instruction count stands in for
// time, so shorter programs still earn a bounded improvement signal.
func (p *Profiler) proxyImprovement(prog isa.Program) float64 {
	baseLen := float64(len(p.Baseline))
	if baseLen <= 0 {
		return 0
	}
	improvement := (baseLen - float64(len(prog))) / baseLen
	return clip(improvement, 0, p.MaxImprovement)
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
