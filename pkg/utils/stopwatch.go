package utils

import "time"

// Stopwatch tracks wall-clock time against an optional budget. Solvers use
// it for periodic progress logging and budget checks.
type Stopwatch struct {
	start  time.Time
	budget time.Duration
}

// NewStopwatch starts a stopwatch with no budget
func NewStopwatch() *Stopwatch {
	return &Stopwatch{start: time.Now()}
}

// NewBudgetStopwatch starts a stopwatch with the given wall-clock budget
func NewBudgetStopwatch(budget time.Duration) *Stopwatch {
	return &Stopwatch{start: time.Now(), budget: budget}
}

// Elapsed returns the time since the stopwatch started
func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Remaining returns the unused portion of the budget, or zero when the
// budget is exhausted or was never set
func (s *Stopwatch) Remaining() time.Duration {
	if s.budget <= 0 {
		return 0
	}
	remaining := s.budget - s.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the budget has been used up. A stopwatch without
// a budget never expires.
func (s *Stopwatch) Expired() bool {
	return s.budget > 0 && s.Elapsed() >= s.budget
}
