package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseDate parses a YYYY-MM-DD calendar date.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// dateOrToday parses a YYYY-MM-DD date, falling back to today in the given
// location when the value is missing or malformed.
func dateOrToday(s string, now time.Time) time.Time {
	d, err := parseDate(s)
	if err != nil {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return d
}

// upcomingDates returns n consecutive calendar dates starting from today.
func upcomingDates(now time.Time, n int) []string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, today.AddDate(0, 0, i).Format(dateLayout))
	}
	return out
}
