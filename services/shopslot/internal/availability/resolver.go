package availability

import (
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
)

// SlotStep is the fixed grid candidate slots are generated on, in minutes.
const SlotStep = 30

// ShopDay is a shop's hours rule for the requested weekday.
type ShopDay struct {
	Open   *TimeOfDay
	Close  *TimeOfDay
	Closed bool
}

// StaffDay is a staff member's hours rule for the requested weekday. A nil
// Start or End inherits the corresponding shop value, independently per field.
type StaffDay struct {
	Start  *TimeOfDay
	End    *TimeOfDay
	DayOff bool
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(r.Start)) && !d.After(dateOnly(r.End))
}

// Booking is an existing booking on the requested date. Its status decides
// whether it occupies time.
type Booking struct {
	Start  TimeOfDay
	End    TimeOfDay
	Status model.Status
}

// Slot is a bookable candidate of exactly the service duration.
type Slot struct {
	Start TimeOfDay `json:"-"`
	End   TimeOfDay `json:"-"`
	Key   string    `json:"time"`  // "HH:MM", 24-hour
	Label string    `json:"label"` // "hh:mm AM/PM"
}

// Reason explains why a day produced no usable window. A zero Reason with an
// empty slot list means the day was open but nothing fit (fully booked, past,
// or the duration exceeds the window).
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoShopHours
	ReasonShopClosed
	ReasonStaffDayOff
	ReasonStaffTimeOff
	ReasonHoursNotSet
)

func (r Reason) String() string {
	switch r {
	case ReasonNoShopHours:
		return "no_shop_hours"
	case ReasonShopClosed:
		return "shop_closed"
	case ReasonStaffDayOff:
		return "staff_day_off"
	case ReasonStaffTimeOff:
		return "staff_time_off"
	case ReasonHoursNotSet:
		return "hours_not_set"
	}
	return ""
}

// StaffContext carries the staff-scoped inputs when a specific staff member
// was requested. TimeOff must contain approved ranges only.
type StaffContext struct {
	Day     *StaffDay // nil when the staff has no rule for this weekday
	TimeOff []DateRange
}

// Request is a read-only snapshot of everything the resolver needs for one
// (shop, service, staff, date) computation.
type Request struct {
	ShopDay      *ShopDay // nil when the shop has no rule for this weekday
	Staff        *StaffContext
	Date         time.Time
	Now          time.Time // current wall clock in the shop's timezone
	Duration     int       // service duration, minutes
	BufferBefore int       // minutes blocked before each occupying booking
	BufferAfter  int       // minutes blocked after each occupying booking
	Bookings     []Booking
}

type Result struct {
	Slots  []Slot
	Reason Reason
}

// Resolve computes the ordered list of bookable slots for one day. It never
// errors: every condition that makes the day unbookable yields an empty slot
// list with the reason tagged on the result.
func Resolve(req Request) Result {
	if req.ShopDay == nil {
		return Result{Reason: ReasonNoShopHours}
	}
	if req.ShopDay.Closed {
		return Result{Reason: ReasonShopClosed}
	}

	openAt := req.ShopDay.Open
	closeAt := req.ShopDay.Close
	if req.Staff != nil {
		if day := req.Staff.Day; day != nil {
			if day.DayOff {
				return Result{Reason: ReasonStaffDayOff}
			}
			if day.Start != nil {
				openAt = day.Start
			}
			if day.End != nil {
				closeAt = day.End
			}
		}
		for _, r := range req.Staff.TimeOff {
			if r.Contains(req.Date) {
				return Result{Reason: ReasonStaffTimeOff}
			}
		}
	}

	// An open day with no explicit hours is unbookable, not 24-hour.
	if openAt == nil || closeAt == nil {
		return Result{Reason: ReasonHoursNotSet}
	}
	if req.Duration <= 0 {
		return Result{}
	}

	busy := occupiedIntervals(req.Bookings, req.BufferBefore, req.BufferAfter)

	cutoff := TimeOfDay(-1)
	if sameDate(req.Date, req.Now) {
		cutoff = TimeOfDayOf(req.Now)
	}

	var slots []Slot
	for start := *openAt; start+TimeOfDay(req.Duration) <= *closeAt; start += SlotStep {
		end := start + TimeOfDay(req.Duration)
		// A slot starting exactly now has already passed.
		if start <= cutoff {
			continue
		}
		if overlapsAny(start, end, busy) {
			continue
		}
		slots = append(slots, Slot{Start: start, End: end, Key: start.Key(), Label: start.Label()})
	}
	return Result{Slots: slots}
}

type interval struct {
	start TimeOfDay
	end   TimeOfDay
}

func occupiedIntervals(bookings []Booking, bufferBefore, bufferAfter int) []interval {
	var busy []interval
	for _, b := range bookings {
		if !b.Status.Occupies() {
			continue
		}
		busy = append(busy, interval{
			start: b.Start - TimeOfDay(bufferBefore),
			end:   b.End + TimeOfDay(bufferAfter),
		})
	}
	return busy
}

func overlapsAny(start, end TimeOfDay, busy []interval) bool {
	for _, b := range busy {
		// Half-open intervals: touching endpoints do not conflict.
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
