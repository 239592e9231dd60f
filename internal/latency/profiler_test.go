package latency

import (
	"testing"
	"time"

	"sortforge/internal/curriculum"
	"sortforge/internal/isa"
)

// scriptedClock returns a now() that advances by the scripted deltas, one
// per call, holding the last time once exhausted.
func scriptedClock(deltas ...time.Duration) func() time.Time {
	current := time.Unix(0, 0)
	i := 0
	return func() time.Time {
		t := current
		if i < len(deltas) {
			current = current.Add(deltas[i])
			i++
		}
		return t
	}
}

func twoCases() []curriculum.TestCase {
	return curriculum.Permutations(1, 2, 3)[:2]
}

func TestMeasureNormalizedImprovement(t *testing.T) {
	p := NewProfiler(isa.Reference(), 10, 8, 2.0)
	// Two calls per case: baseline cases take 100ns*reps, program 50ns*reps.
	p.now = scriptedClock(
		1000*time.Nanosecond, 0, // baseline case 1 (start->stop consumes one delta)
		1000*time.Nanosecond, 0, // baseline case 2
		500*time.Nanosecond, 0, // program case 1
		500*time.Nanosecond, 0, // program case 2
	)

	improvement := p.Measure(isa.Program{isa.SwapBC, isa.Done}, twoCases())
	if diff := improvement - 0.5; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected improvement 0.5, got %f", improvement)
	}
}

func TestMeasureClipsToBounds(t *testing.T) {
	p := NewProfiler(isa.Reference(), 10, 8, 2.0)
	// Program slower than baseline: raw improvement is negative.
	p.now = scriptedClock(
		500*time.Nanosecond, 0,
		500*time.Nanosecond, 0,
		2000*time.Nanosecond, 0,
		2000*time.Nanosecond, 0,
	)
	if got := p.Measure(isa.Reference(), twoCases()); got != 0 {
		t.Fatalf("slower program must clip to 0, got %f", got)
	}
}

func TestMeasureFallsBackOnZeroTiming(t *testing.T) {
	p := NewProfiler(isa.Reference(), 10, 8, 2.0)
	p.now = scriptedClock() // clock never advances: degenerate measurement

	short := isa.Program{isa.SwapBC, isa.Done}
	got := p.Measure(short, twoCases())
	want := (4.0 - 2.0) / 4.0
	if diff := got - want; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected proxy improvement %f, got %f", want, got)
	}
}

func TestMeasureFallsBackOnUnstableSpread(t *testing.T) {
	p := NewProfiler(isa.Reference(), 10, 8, 2.0)
	p.SpreadLimit = 2.0
	// Baseline per-case means of 100ns and 1000ns: spread 10x > limit.
	p.now = scriptedClock(
		1000*time.Nanosecond, 0,
		10000*time.Nanosecond, 0,
		500*time.Nanosecond, 0,
		500*time.Nanosecond, 0,
	)

	got := p.Measure(isa.Program{isa.SwapBC, isa.Done}, twoCases())
	want := (4.0 - 2.0) / 4.0
	if diff := got - want; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected proxy fallback %f, got %f", want, got)
	}
}

func TestProxyNeverRewardsLongerPrograms(t *testing.T) {
	p := NewProfiler(isa.Reference(), 10, 8, 2.0)
	p.now = scriptedClock()

	long := isa.Program{isa.SwapAB, isa.SwapBC, isa.SwapAC, isa.SwapAB, isa.SwapBC, isa.Done}
	if got := p.Measure(long, twoCases()); got != 0 {
		t.Fatalf("longer program proxy must clip to 0, got %f", got)
	}
}

func TestMeasureRealClockNeverNegative(t *testing.T) {
	p := NewProfiler(isa.Reference(), 50, 8, 2.0)
	got := p.Measure(isa.Program{isa.SwapBC, isa.SwapAB, isa.SwapBC, isa.Done}, curriculum.Permutations(1, 2, 3))
	if got < 0 || got > 2.0 {
		t.Fatalf("improvement out of bounds: %f", got)
	}
}
