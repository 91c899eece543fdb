package httpapi

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/cycle"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func settledCycle(t *testing.T) *cycle.Cycle {
	t.Helper()
	start, err := calendar.ParseDate("2026-01-01")
	require.NoError(t, err)
	end, err := calendar.ParseDate("2026-01-31")
	require.NoError(t, err)
	return &cycle.Cycle{
		ID: "c1", Name: "January", StartDate: start, EndDate: end,
		Status: cycle.StatusEnded, TotalSavings: decimal.RequireFromString("4200.5"),
		Notes: "New year, new savings", CreatedAt: time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC),
	}
}

func TestWriteCyclesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCyclesCSV(&buf, []*cycle.Cycle{settledCycle(t)}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `January,2026-01-01,2026-01-31,4200.50,"New year, new savings",2026-01-01T06:00:00Z`, lines[1])
}

func TestWriteCyclesCSV_ReportsWriteFailure(t *testing.T) {
	err := writeCyclesCSV(failingWriter{}, []*cycle.Cycle{settledCycle(t)})
	assert.EqualError(t, err, "connection reset")
}

func TestBuildCyclesWorkbook(t *testing.T) {
	f, err := buildCyclesWorkbook([]*cycle.Cycle{settledCycle(t)})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	header, err := f.GetCellValue(exportSheet, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Total Savings", header)
	total, err := f.GetCellValue(exportSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "4200.5", total)
	width, err := f.GetColWidth(exportSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 24.0, width)
}
