package curriculum

import "testing"

func TestLadderMonotonicSupersets(t *testing.T) {
	stages := DefaultLadder()
	if len(stages) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(stages))
	}
	for k := 1; k < len(stages); k++ {
		prev, next := stages[k-1].Cases, stages[k].Cases
		if len(next) < len(prev) {
			t.Fatalf("stage %d shrank: %d -> %d cases", k, len(prev), len(next))
		}
		for i, tc := range prev {
			if next[i].Input != tc.Input {
				t.Fatalf("stage %d is not a superset of stage %d at case %d", k, k-1, i)
			}
		}
	}
	if len(stages[len(stages)-1].Cases) != 6 {
		t.Fatalf("final stage must cover the full permutation space")
	}
}

func TestPermutationsAreDistinct(t *testing.T) {
	seen := map[[3]int]bool{}
	for _, tc := range Permutations(1, 2, 3) {
		key := [3]int(tc.Input)
		if seen[key] {
			t.Fatalf("duplicate permutation %v", tc.Input)
		}
		seen[key] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 distinct permutations, got %d", len(seen))
	}
}

func TestSchedulerHoldsWhileWindowUnderfull(t *testing.T) {
	s, err := NewScheduler(DefaultLadder(), 5, 0.8)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	for i := 0; i < 4; i++ {
		if s.Observe(true) {
			t.Fatalf("promoted on underfull window at episode %d", i)
		}
	}
	if s.Index() != 0 {
		t.Fatalf("expected stage 0 with underfull window, got %d", s.Index())
	}
	if s.SuccessRate() != 0 {
		t.Fatalf("underfull window should report rate 0, got %f", s.SuccessRate())
	}
}

func TestSchedulerPromotesAboveThreshold(t *testing.T) {
	s, err := NewScheduler(DefaultLadder(), 4, 0.7)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	// Three of four successes is 0.75, strictly above the threshold.
	s.Observe(true)
	s.Observe(true)
	s.Observe(false)
	if !s.Observe(true) {
		t.Fatalf("rate 0.75 above threshold 0.7 must promote")
	}
	if s.Index() != 1 {
		t.Fatalf("expected stage 1 after promotion, got %d", s.Index())
	}
	if s.Promotions() != 1 {
		t.Fatalf("expected 1 promotion recorded, got %d", s.Promotions())
	}

	// Rate exactly equal to the threshold holds the stage.
	s2, _ := NewScheduler(DefaultLadder(), 4, 0.75)
	s2.Observe(true)
	s2.Observe(true)
	s2.Observe(false)
	if s2.Observe(true) {
		t.Fatalf("rate equal to threshold must hold, not promote")
	}
}

func TestSchedulerNeverDemotesOrOverruns(t *testing.T) {
	s, _ := NewScheduler(DefaultLadder(), 2, 0.5)
	for i := 0; i < 50; i++ {
		s.Observe(true)
	}
	if s.Index() != s.StageCount()-1 {
		t.Fatalf("expected final stage, got %d", s.Index())
	}
	for i := 0; i < 20; i++ {
		s.Observe(false)
	}
	if s.Index() != s.StageCount()-1 {
		t.Fatalf("scheduler demoted to %d", s.Index())
	}
}

func TestSchedulerWindowResetsAfterPromotion(t *testing.T) {
	s, _ := NewScheduler(DefaultLadder(), 3, 0.5)
	s.Observe(true)
	s.Observe(true)
	if !s.Observe(true) {
		t.Fatalf("expected promotion")
	}
	// Fresh window: the next two observations must not promote again.
	if s.Observe(true) || s.Observe(true) {
		t.Fatalf("promoted before new window filled")
	}
}
