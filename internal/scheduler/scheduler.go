// Package scheduler paces the render loop to a target frame rate.
package scheduler

import "time"

// FrameScheduler holds the fixed time budget for one rendered frame.
type FrameScheduler struct {
	budget time.Duration
}

// New builds a scheduler for the given target frame rate. Rates below 1
// are treated as 1.
func New(targetFPS int) *FrameScheduler {
	if targetFPS < 1 {
		targetFPS = 1
	}
	return &FrameScheduler{budget: time.Second / time.Duration(targetFPS)}
}

// FrameBudget returns the wall-clock budget for one frame.
func (s *FrameScheduler) FrameBudget() time.Duration {
	return s.budget
}

// Remaining returns how much of the budget is left after spending spent
// on a frame, or zero if the frame overran its budget.
func (s *FrameScheduler) Remaining(spent time.Duration) time.Duration {
	if spent >= s.budget {
		return 0
	}
	return s.budget - spent
}
