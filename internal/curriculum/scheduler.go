package curriculum

import "errors"

// Scheduler holds the active stage and the promotion policy: advance when
// the rolling success rate over a full window exceeds the threshold, and
// never demote. An underfull window simply holds the current stage.
type Scheduler struct {
	stages    []Stage
	index     int
	threshold float64

	window  []bool
	next    int
	filled  int
	hits    int
	promote int
}

func NewScheduler(stages []Stage, windowSize int, threshold float64) (*Scheduler, error) {
	if len(stages) == 0 {
		return nil, errors.New("at least one curriculum stage is required")
	}
	if windowSize <= 0 {
		return nil, errors.New("rolling window must be > 0")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, errors.New("success threshold must be in (0, 1]")
	}
	return &Scheduler{
		stages:    stages,
		threshold: threshold,
		window:    make([]bool, windowSize),
	}, nil
}

func (s *Scheduler) Active() Stage {
	return s.stages[s.index]
}

func (s *Scheduler) Index() int {
	return s.index
}

func (s *Scheduler) StageCount() int {
	return len(s.stages)
}

// SetIndex restores a stage position from a checkpoint.
func (s *Scheduler) SetIndex(index int) error {
	if index < 0 || index >= len(s.stages) {
		return errors.New("curriculum index out of range")
	}
	s.index = index
	return nil
}

// SuccessRate is the rolling estimate; zero while the window is underfull.
func (s *Scheduler) SuccessRate() float64 {
	if s.filled < len(s.window) {
		return 0
	}
	return float64(s.hits) / float64(len(s.window))
}

// Observe records one episode outcome and returns true when the scheduler
// promotes to the next stage. Promotion clears the window so the new
// stage earns its own evidence.
func (s *Scheduler) Observe(success bool) bool {
	if s.filled == len(s.window) && s.window[s.next] {
		s.hits--
	}
	s.window[s.next] = success
	if success {
		s.hits++
	}
	s.next = (s.next + 1) % len(s.window)
	if s.filled < len(s.window) {
		s.filled++
	}

	if s.filled < len(s.window) || s.index >= len(s.stages)-1 {
		return false
	}
	if s.SuccessRate() <= s.threshold {
		return false
	}

	s.index++
	s.promote++
	s.filled = 0
	s.hits = 0
	s.next = 0
	for i := range s.window {
		s.window[i] = false
	}
	return true
}

// Promotions counts stage advances since construction.
func (s *Scheduler) Promotions() int {
	return s.promote
}
