// Package calendar holds civil-date helpers shared by cycles and the ledger.
// A civil date is represented as a time.Time at midnight UTC so that dates
// compare, subtract and round-trip through DATE columns without drift.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO 8601 calendar date format used on every boundary.
const Layout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current civil date as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// DaysBetween returns the whole number of days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Format renders a civil date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Range is an inclusive civil-date interval.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls within [From, To].
func (r Range) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(r.From)) && !d.After(DateOf(r.To))
}

func (r Range) String() string {
	return Format(r.From) + ".." + Format(r.To)
}
