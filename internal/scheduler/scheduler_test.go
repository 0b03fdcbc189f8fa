package scheduler

import (
	"testing"
	"time"
)

func TestFrameBudget(t *testing.T) {
	cases := []struct {
		fps  int
		want time.Duration
	}{
		{1, time.Second},
		{30, time.Second / 30},
		{60, time.Second / 60},
		{144, time.Second / 144},
	}
	for _, tc := range cases {
		got := New(tc.fps).FrameBudget()
		if got != tc.want {
			t.Errorf("FrameBudget(%d) = %v, want %v", tc.fps, got, tc.want)
		}
		wantNanos := int64(1_000_000_000) / int64(tc.fps)
		if got.Nanoseconds() != wantNanos {
			t.Errorf("FrameBudget(%d) = %dns, want %dns", tc.fps, got.Nanoseconds(), wantNanos)
		}
	}
}

func TestFrameBudgetZeroBehavesAsOne(t *testing.T) {
	if got, want := New(0).FrameBudget(), New(1).FrameBudget(); got != want {
		t.Errorf("FrameBudget(0) = %v, want %v", got, want)
	}
	if got := New(-5).FrameBudget(); got != time.Second {
		t.Errorf("FrameBudget(-5) = %v, want %v", got, time.Second)
	}
}

func TestRemaining(t *testing.T) {
	s := New(60)
	if got := s.Remaining(s.FrameBudget() * 2); got != 0 {
		t.Errorf("overran frame should leave zero budget, got %v", got)
	}
	if got := s.Remaining(0); got != s.FrameBudget() {
		t.Errorf("idle frame should leave full budget, got %v", got)
	}
	half := s.FrameBudget() / 2
	if got := s.Remaining(half); got != s.FrameBudget()-half {
		t.Errorf("Remaining(half) = %v", got)
	}
}
