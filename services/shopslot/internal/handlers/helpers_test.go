package handlers

import (
	"testing"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/availability"
)

func TestDateOrToday(t *testing.T) {
	now := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)

	got := dateOrToday("2025-03-15", now)
	if got.Format(dateLayout) != "2025-03-15" {
		t.Fatalf("valid date: got %s", got.Format(dateLayout))
	}

	for _, raw := range []string{"", "not-a-date", "2025-13-40", "15/03/2025"} {
		got := dateOrToday(raw, now)
		if got.Format(dateLayout) != "2025-03-10" {
			t.Fatalf("input %q: expected fallback to today, got %s", raw, got.Format(dateLayout))
		}
	}
}

func TestUpcomingDates(t *testing.T) {
	now := time.Date(2025, time.March, 30, 9, 0, 0, 0, time.UTC)
	dates := upcomingDates(now, 14)
	if len(dates) != 14 {
		t.Fatalf("expected 14 dates, got %d", len(dates))
	}
	if dates[0] != "2025-03-30" {
		t.Fatalf("first date should be today, got %s", dates[0])
	}
	// Crosses the month boundary.
	if dates[2] != "2025-04-01" {
		t.Fatalf("third date should be 2025-04-01, got %s", dates[2])
	}
	if dates[13] != "2025-04-12" {
		t.Fatalf("last date should be 2025-04-12, got %s", dates[13])
	}
}

func TestParseDayWindow(t *testing.T) {
	openAt, closeAt := "09:00", "17:00"

	o, c, err := parseDayWindow(0, &openAt, &closeAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o == nil || *o != 540 || c == nil || *c != 1020 {
		t.Fatalf("expected 540/1020, got %v/%v", o, c)
	}

	// Nil times stay nil.
	o, c, err = parseDayWindow(3, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil || c != nil {
		t.Fatal("nil inputs should stay nil")
	}

	if _, _, err := parseDayWindow(7, &openAt, &closeAt); err == nil {
		t.Fatal("expected error for weekday out of range")
	}
	bad := "25:99"
	if _, _, err := parseDayWindow(0, &bad, &closeAt); err == nil {
		t.Fatal("expected error for malformed time")
	}
	if _, _, err := parseDayWindow(0, &closeAt, &openAt); err == nil {
		t.Fatal("expected error when close precedes open")
	}
	same := "09:00"
	if _, _, err := parseDayWindow(0, &openAt, &same); err == nil {
		t.Fatal("expected error for zero-length window")
	}
}

func TestSlotOffered(t *testing.T) {
	res := availability.Result{Slots: []availability.Slot{
		{Start: 540, End: 570},
		{Start: 570, End: 600},
	}}
	if !slotOffered(res, 540) {
		t.Fatal("09:00 should be offered")
	}
	if slotOffered(res, 600) {
		t.Fatal("10:00 should not be offered")
	}
	if slotOffered(availability.Result{}, 540) {
		t.Fatal("empty result offers nothing")
	}
}

func TestSlotsPayloadNeverNil(t *testing.T) {
	p := slotsPayload(availability.Result{Reason: availability.ReasonShopClosed})
	if p.Slots == nil {
		t.Fatal("slots must serialize as an empty array, not null")
	}
	if p.Reason != "shop_closed" {
		t.Fatalf("unexpected reason %q", p.Reason)
	}
}
