package availability

import (
	"testing"
	"time"
)

func TestTimeOfDayKeyAndLabel(t *testing.T) {
	cases := []struct {
		minutes int
		key     string
		label   string
	}{
		{0, "00:00", "12:00 AM"},
		{9 * 60, "09:00", "09:00 AM"},
		{12 * 60, "12:00", "12:00 PM"},
		{14*60 + 30, "14:30", "02:30 PM"},
		{23*60 + 59, "23:59", "11:59 PM"},
	}
	for _, c := range cases {
		got := TimeOfDay(c.minutes)
		if got.Key() != c.key {
			t.Errorf("Key(%d) = %q, want %q", c.minutes, got.Key(), c.key)
		}
		if got.Label() != c.label {
			t.Errorf("Label(%d) = %q, want %q", c.minutes, got.Label(), c.label)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("14:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay failed: %v", err)
	}
	if got != TimeOfDay(14*60+30) {
		t.Fatalf("expected 870, got %d", got)
	}

	for _, bad := range []string{"", "25:00", "12:61", "noon", "-1:00"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWeekdayIndex(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if WeekdayIndex(monday) != 0 {
		t.Fatalf("expected Monday index 0, got %d", WeekdayIndex(monday))
	}
	sunday := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if WeekdayIndex(sunday) != 6 {
		t.Fatalf("expected Sunday index 6, got %d", WeekdayIndex(sunday))
	}
}

func TestTimeOfDayOfTruncatesSeconds(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 59, 0, time.UTC)
	if TimeOfDayOf(now) != TimeOfDay(9*60) {
		t.Fatalf("expected 540, got %d", TimeOfDayOf(now))
	}
}
