package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// DayUTC truncates t to midnight of its UTC calendar day.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDayUTC returns 23:59:59.999 of t's UTC calendar day.
func EndOfDayUTC(t time.Time) time.Time {
	return DayUTC(t).Add(24*time.Hour - time.Millisecond)
}

// DaysInRange enumerates every UTC calendar day in [since, until],
// ascending. It returns nil when since is after until.
func DaysInRange(since, until time.Time) []time.Time {
	start, end := DayUTC(since), DayUTC(until)
	if start.After(end) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ParseDay parses a YYYY-MM-DD string as a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDay formats t's UTC calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return DayUTC(t).Format(DateLayout)
}

// DateSet is a set of UTC calendar days keyed by their YYYY-MM-DD form.
type DateSet map[string]struct{}

// Add inserts t's calendar day.
func (s DateSet) Add(t time.Time) {
	s[FormatDay(t)] = struct{}{}
}

// Has reports whether t's calendar day is in the set.
func (s DateSet) Has(t time.Time) bool {
	_, ok := s[FormatDay(t)]
	return ok
}
