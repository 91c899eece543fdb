package cycle

import (
	"time"

	"chama_admin/internal/domain/calendar"
)

// Progress is the display-only position of a date within a cycle.
type Progress struct {
	PercentComplete float64 `json:"percent_complete"`
	DaysRemaining   int     `json:"days_remaining"`
}

// ComputeProgress places asOf within the cycle's date span.
func ComputeProgress(c *Cycle, asOf time.Time) Progress {
	total := calendar.DaysBetween(c.StartDate, c.EndDate)
	elapsed := calendar.DaysBetween(c.StartDate, asOf)

	var percent float64
	if total > 0 {
		percent = 100 * float64(elapsed) / float64(total)
	} else if elapsed >= 0 {
		percent = 100
	}
	percent = min(100, max(0, percent))

	return Progress{
		PercentComplete: percent,
		DaysRemaining:   max(0, calendar.DaysBetween(asOf, c.EndDate)),
	}
}
