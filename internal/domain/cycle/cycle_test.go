package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeProgress(t *testing.T) {
	c := &Cycle{StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 11), Status: StatusActive}

	tests := []struct {
		name        string
		asOf        time.Time
		wantPercent float64
		wantDays    int
	}{
		{"midpoint", date(2026, 1, 6), 50, 5},
		{"first day", date(2026, 1, 1), 0, 10},
		{"last day", date(2026, 1, 11), 100, 0},
		{"before start", date(2025, 12, 25), 0, 17},
		{"after end", date(2026, 2, 1), 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProgress(c, tt.asOf)
			assert.InDelta(t, tt.wantPercent, p.PercentComplete, 0.0001)
			assert.Equal(t, tt.wantDays, p.DaysRemaining)
		})
	}
}

func TestIsExpired(t *testing.T) {
	today := date(2026, 10, 15)

	endsToday := &Cycle{StartDate: date(2026, 10, 1), EndDate: today, Status: StatusActive}
	endedYesterday := &Cycle{StartDate: date(2026, 10, 1), EndDate: date(2026, 10, 14), Status: StatusActive}
	alreadyEnded := &Cycle{StartDate: date(2026, 9, 1), EndDate: date(2026, 9, 30), Status: StatusEnded}

	assert.False(t, endsToday.IsExpired(today))
	assert.True(t, endedYesterday.IsExpired(today))
	assert.False(t, alreadyEnded.IsExpired(today), "ended cycles are never re-expired")
}

func TestFindActive(t *testing.T) {
	ended := &Cycle{ID: "a", Status: StatusEnded}
	active := &Cycle{ID: "b", Status: StatusActive}

	assert.Nil(t, FindActive(nil))
	assert.Nil(t, FindActive([]*Cycle{ended}))
	assert.Same(t, active, FindActive([]*Cycle{ended, active}))
}
