package availability

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight.
// It matches the start_minute/end_minute storage representation.
type TimeOfDay int

// Key formats a 24-hour machine-readable time, e.g. "09:00", "14:30".
func (t TimeOfDay) Key() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Label formats a 12-hour human label, e.g. "09:00 AM", "02:30 PM".
func (t TimeOfDay) Label() string {
	h := int(t) / 60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, int(t)%60, suffix)
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// TimeOfDayOf truncates a wall-clock instant to its minute of day.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// WeekdayIndex maps a date to the 0=Monday .. 6=Sunday convention used by
// the hours rules.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
