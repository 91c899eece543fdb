package cycle

import (
	"errors"
	"time"

	"chama_admin/internal/domain/calendar"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a savings cycle.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// MaxLengthDays is the longest span allowed between a cycle's start and end dates.
const MaxLengthDays = 366

var ErrNotFound = errors.New("savings cycle not found")
var ErrActiveCycleExists = errors.New("an active savings cycle already exists")

// Cycle is a bounded savings period. Corresponds to the 'savings_cycles' table.
type Cycle struct {
	ID           string          `json:"id"`
	Name         string          `json:"cycle_name"`
	StartDate    time.Time       `json:"start_date"` // civil date, midnight UTC
	EndDate      time.Time       `json:"end_date"`   // civil date, midnight UTC
	Status       Status          `json:"status"`
	TotalSavings decimal.Decimal `json:"total_savings"` // authoritative only once ended
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CreatedBy    string          `json:"created_by"`
}

// IsActive reports whether the cycle still accepts contributions.
func (c *Cycle) IsActive() bool {
	return c.Status == StatusActive
}

// Range is the inclusive date span whose contributions count toward the cycle.
func (c *Cycle) Range() calendar.Range {
	return calendar.Range{From: c.StartDate, To: c.EndDate}
}

// IsExpired reports whether an active cycle's end date lies strictly before today.
// A cycle ending today is still running.
func (c *Cycle) IsExpired(today time.Time) bool {
	return c.IsActive() && calendar.DateOf(c.EndDate).Before(calendar.DateOf(today))
}

// FindActive returns the active cycle in cycles, or nil.
func FindActive(cycles []*Cycle) *Cycle {
	for _, c := range cycles {
		if c.IsActive() {
			return c
		}
	}
	return nil
}
