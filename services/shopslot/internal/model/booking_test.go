package model

import "testing"

func TestStatusOccupies(t *testing.T) {
	occupying := []Status{StatusPending, StatusConfirmed}
	for _, s := range occupying {
		if !s.Occupies() {
			t.Errorf("%s should occupy time", s)
		}
	}
	terminal := []Status{StatusCompleted, StatusCancelled, StatusNoShow}
	for _, s := range terminal {
		if s.Occupies() {
			t.Errorf("%s should not occupy time", s)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusNoShow, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusCompleted, false},
		{StatusPending, Status("bogus"), false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
