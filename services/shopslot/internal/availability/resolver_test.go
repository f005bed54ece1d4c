package availability

import (
	"testing"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
)

func tod(h, m int) *TimeOfDay {
	t := TimeOfDay(h*60 + m)
	return &t
}

func openDay(openH, openM, closeH, closeM int) *ShopDay {
	return &ShopDay{Open: tod(openH, openM), Close: tod(closeH, closeM)}
}

var (
	tuesday = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)   // a Tuesday
	someday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)  // the following Tuesday
	distant = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)  // "now" on a different day
)

func keys(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Key)
	}
	return out
}

func assertKeys(t *testing.T, got []Slot, want ...string) {
	t.Helper()
	gotKeys := keys(got)
	if len(gotKeys) != len(want) {
		t.Fatalf("expected slots %v, got %v", want, gotKeys)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Fatalf("expected slots %v, got %v", want, gotKeys)
		}
	}
}

func TestResolve_NoConflictsFullCoverage(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 0),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonNone {
		t.Fatalf("expected no reason, got %s", res.Reason)
	}
	assertKeys(t, res.Slots, "09:00", "09:30")
}

func TestResolve_NoShopRule(t *testing.T) {
	res := Resolve(Request{Date: tuesday, Now: distant, Duration: 30})
	if res.Reason != ReasonNoShopHours {
		t.Fatalf("expected no_shop_hours, got %s", res.Reason)
	}
	if len(res.Slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(res.Slots))
	}
}

func TestResolve_ClosedDay(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  &ShopDay{Open: tod(9, 0), Close: tod(18, 0), Closed: true},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		Bookings: nil,
	})
	if res.Reason != ReasonShopClosed {
		t.Fatalf("expected shop_closed, got %s", res.Reason)
	}
	if len(res.Slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(res.Slots))
	}
}

func TestResolve_DurationExceedsWindow(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 9, 20),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonNone {
		t.Fatalf("expected no reason, got %s", res.Reason)
	}
	if len(res.Slots) != 0 {
		t.Fatalf("expected no slots, got %v", keys(res.Slots))
	}
}

func TestResolve_ExactFitIsIncluded(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 9, 30),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "09:00")
}

func TestResolve_OverlapRejectionTouchingAllowed(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 30),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		Bookings: []Booking{
			{Start: 9 * 60, End: 9*60 + 30, Status: model.StatusConfirmed},
		},
	})
	// 09:00 conflicts, 09:30 touches the booking's end and is allowed, 10:00 fits.
	assertKeys(t, res.Slots, "09:30", "10:00")
}

func TestResolve_GenuineOverlapExcluded(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 15, 10, 15),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		Bookings: []Booking{
			{Start: 9 * 60, End: 9*60 + 30, Status: model.StatusPending},
		},
	})
	// Candidate 09:15-09:45 genuinely overlaps 09:00-09:30.
	assertKeys(t, res.Slots, "09:45")
}

func TestResolve_TerminalStatusesDoNotBlock(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 0),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		Bookings: []Booking{
			{Start: 9 * 60, End: 10 * 60, Status: model.StatusCancelled},
			{Start: 9 * 60, End: 10 * 60, Status: model.StatusCompleted},
			{Start: 9 * 60, End: 10 * 60, Status: model.StatusNoShow},
		},
	})
	assertKeys(t, res.Slots, "09:00", "09:30")
}

func TestResolve_MultipleBookingsEachChecked(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 11, 0),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		Bookings: []Booking{
			{Start: 9 * 60, End: 9*60 + 45, Status: model.StatusConfirmed},
			{Start: 9*60 + 30, End: 10 * 60, Status: model.StatusPending},
		},
	})
	assertKeys(t, res.Slots, "10:00", "10:30")
}

func TestResolve_PastSlotFilteringIsDateScoped(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 10, 0, 0, time.UTC)

	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 0),
		Date:     tuesday,
		Now:      now,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "09:30")

	// Same wall clock, future date: nothing is filtered.
	res = Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 0),
		Date:     someday,
		Now:      now,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "09:00", "09:30")
}

func TestResolve_SlotExactlyAtNowIsPassed(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 11, 0),
		Date:     tuesday,
		Now:      now,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "10:00", "10:30")
}

func TestResolve_StaffDayOff(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 18, 0),
		Staff:    &StaffContext{Day: &StaffDay{DayOff: true}},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonStaffDayOff {
		t.Fatalf("expected staff_day_off, got %s", res.Reason)
	}
}

func TestResolve_StaffTimeOffOverridesHours(t *testing.T) {
	res := Resolve(Request{
		ShopDay: openDay(9, 0, 18, 0),
		Staff: &StaffContext{
			Day: &StaffDay{Start: tod(9, 0), End: tod(17, 0)},
			TimeOff: []DateRange{
				{Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
			},
		},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonStaffTimeOff {
		t.Fatalf("expected staff_time_off, got %s", res.Reason)
	}
	if len(res.Slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(res.Slots))
	}
}

func TestResolve_TimeOffOutsideDateDoesNotBlock(t *testing.T) {
	res := Resolve(Request{
		ShopDay: openDay(9, 0, 10, 0),
		Staff: &StaffContext{
			TimeOff: []DateRange{
				{Start: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)},
			},
		},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "09:00", "09:30")
}

func TestResolve_PerFieldFallback(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 18, 0),
		Staff:    &StaffContext{Day: &StaffDay{Start: tod(10, 0)}}, // end inherits 18:00
		Date:     tuesday,
		Now:      distant,
		Duration: 60,
	})
	if res.Reason != ReasonNone {
		t.Fatalf("expected no reason, got %s", res.Reason)
	}
	if len(res.Slots) == 0 {
		t.Fatal("expected slots")
	}
	if res.Slots[0].Key != "10:00" {
		t.Fatalf("expected first slot 10:00, got %s", res.Slots[0].Key)
	}
	last := res.Slots[len(res.Slots)-1]
	if last.Key != "17:00" {
		t.Fatalf("expected last slot 17:00, got %s", last.Key)
	}
}

func TestResolve_StaffWithoutRuleInheritsShopHours(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 10, 0),
		Staff:    &StaffContext{},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	assertKeys(t, res.Slots, "09:00", "09:30")
}

func TestResolve_OpenDayWithoutHoursIsUnbookable(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  &ShopDay{},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonHoursNotSet {
		t.Fatalf("expected hours_not_set, got %s", res.Reason)
	}
}

func TestResolve_StaffOpenOverrideCloseMissingInherits(t *testing.T) {
	// Shop close missing too: resolved close is nil even though staff sets start.
	res := Resolve(Request{
		ShopDay:  &ShopDay{Open: tod(9, 0)},
		Staff:    &StaffContext{Day: &StaffDay{Start: tod(10, 0)}},
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
	})
	if res.Reason != ReasonHoursNotSet {
		t.Fatalf("expected hours_not_set, got %s", res.Reason)
	}
}

func TestResolve_BuffersExtendOccupiedRange(t *testing.T) {
	res := Resolve(Request{
		ShopDay:  openDay(9, 0, 11, 0),
		Date:     tuesday,
		Now:      distant,
		Duration: 30,
		// 10 minutes of cleanup after each appointment.
		BufferAfter: 10,
		Bookings: []Booking{
			{Start: 9 * 60, End: 9*60 + 30, Status: model.StatusConfirmed},
		},
	})
	// The booking blocks 09:00-09:40, so 09:30 now conflicts.
	assertKeys(t, res.Slots, "10:00", "10:30")
}

func TestResolve_Deterministic(t *testing.T) {
	req := Request{
		ShopDay:  openDay(9, 0, 12, 0),
		Date:     tuesday,
		Now:      distant,
		Duration: 45,
		Bookings: []Booking{
			{Start: 10 * 60, End: 10*60 + 45, Status: model.StatusPending},
		},
	}
	first := Resolve(req)
	second := Resolve(req)
	assertKeys(t, second.Slots, keys(first.Slots)...)
}
