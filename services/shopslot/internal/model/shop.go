package model

import "time"

type Shop struct {
	ID                   string
	Slug                 string
	Name                 string
	Timezone             string
	IsActive             bool
	AcceptsOnlineBooking bool
	CreatedAt            time.Time
}

// ShopHours is the operating-hours rule for one weekday (0=Monday .. 6=Sunday).
// A closed day ignores the open/close minutes. An open day with nil minutes
// has no usable hours and is unbookable.
type ShopHours struct {
	ShopID      string
	Weekday     int
	OpenMinute  *int
	CloseMinute *int
	IsClosed    bool
}

// ShopClosure is an exceptional full-day closure (holiday, renovation).
// Closures are managed alongside hours but are not currently consulted by
// the slot computation, mirroring how hours rules take precedence today.
type ShopClosure struct {
	ID     string
	ShopID string
	Date   time.Time
	Reason string
}

// Location resolves the shop's IANA timezone, falling back to UTC.
func (s Shop) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
