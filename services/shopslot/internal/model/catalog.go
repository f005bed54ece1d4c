package model

import "time"

type Service struct {
	ID              string
	ShopID          string
	Name            string
	Description     string
	DurationMinutes int
	Price           string
	BufferBefore    int // minutes reserved before each appointment
	BufferAfter     int // minutes reserved after each appointment
	IsActive        bool
	CreatedAt       time.Time
}

type Staff struct {
	ID              string
	ShopID          string
	Name            string
	JobTitle        string
	IsActive        bool
	AcceptsBookings bool
	CreatedAt       time.Time
}

// StaffHours is a staff member's schedule rule for one weekday
// (0=Monday .. 6=Sunday). Nil start/end minutes inherit the shop's hours
// for that weekday, independently per field.
type StaffHours struct {
	StaffID     string
	Weekday     int
	StartMinute *int
	EndMinute   *int
	IsDayOff    bool
}

// StaffTimeOff is a vacation or leave range. Dates are inclusive on both
// ends. Only approved ranges remove the staff member from availability.
type StaffTimeOff struct {
	ID         string
	StaffID    string
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
	IsApproved bool
	CreatedAt  time.Time
}
