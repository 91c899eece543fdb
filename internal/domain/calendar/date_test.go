package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"", "2026-02-30", "01/03/2026", "2026-3-1"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, DaysBetween(start, start.AddDate(0, 0, 10)))
	assert.Equal(t, -1, DaysBetween(start, start.AddDate(0, 0, -1)))
	assert.Equal(t, 0, DaysBetween(start, start.Add(23*time.Hour)))
	// 2028 is a leap year
	assert.Equal(t, 366, DaysBetween(time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestToday(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	// 22:30 UTC on the 14th is already the 15th in Nairobi.
	now := time.Date(2026, 10, 14, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), Today(now, nairobi))
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), Today(now, nil))
}

func TestRangeContains(t *testing.T) {
	r := Range{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		date string
		want bool
	}{
		{"2026-02-28", false},
		{"2026-03-01", true},
		{"2026-03-15", true},
		{"2026-03-31", true},
		{"2026-04-01", false},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.Contains(d), tt.date)
	}
	assert.Equal(t, "2026-03-01..2026-03-31", r.String())
}
