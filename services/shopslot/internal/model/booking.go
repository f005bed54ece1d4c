package model

import "time"

// Status is the lifecycle state of a booking. Only pending and confirmed
// bookings occupy time on the calendar; the terminal states do not block
// new bookings.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Occupies reports whether a booking in this state blocks its time range.
func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo reports whether a status change is allowed. Terminal
// states (completed, cancelled, no_show) accept no further transitions.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.Valid() || next == s {
		return false
	}
	switch next {
	case StatusConfirmed:
		return s == StatusPending
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return s.Occupies()
	}
	return false
}

type Booking struct {
	ID                 string
	ShopID             string
	StaffID            string
	ServiceID          string
	Date               time.Time // calendar date, midnight in the shop's timezone
	StartMinute        int       // minutes since midnight
	EndMinute          int
	Status             Status
	GuestName          string
	GuestEmail         string
	GuestPhone         string
	Notes              string
	CancellationReason string
	Price              string // snapshot of the service price at booking time
	CancelledAt        *time.Time
	CreatedAt          time.Time
}
