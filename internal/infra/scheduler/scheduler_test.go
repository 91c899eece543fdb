package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"chama_admin/internal/domain/cycle"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	calls   []time.Time
	settled []*cycle.Cycle
	err     error
}

func (f *fakeDetector) DetectAndSettleExpiredCycles(_ context.Context, now time.Time) ([]*cycle.Cycle, error) {
	f.calls = append(f.calls, now)
	return f.settled, f.err
}

func newTestScheduler(d ExpiryDetector, spec string) (*ExpiryScheduler, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewExpiryScheduler(d, logrus.NewEntry(logger), spec, time.UTC), hook
}

func TestRunOnceReportsSettledCycles(t *testing.T) {
	d := &fakeDetector{settled: []*cycle.Cycle{{ID: "c1", Name: "March", TotalSavings: decimal.NewFromInt(10)}}}
	s, hook := newTestScheduler(d, "*/15 * * * *")
	fixed := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	assert.Equal(t, 1, s.RunOnce(context.Background()))
	require.Len(t, d.calls, 1)
	assert.Equal(t, fixed, d.calls[0])
	assert.Equal(t, "Expired cycle settled by scheduler", hook.LastEntry().Message)
	assert.Equal(t, "10.00", hook.LastEntry().Data["total_savings"])
}

func TestRunOnceLogsErrors(t *testing.T) {
	d := &fakeDetector{err: errors.New("database unavailable")}
	s, hook := newTestScheduler(d, "*/15 * * * *")

	assert.Equal(t, 0, s.RunOnce(context.Background()))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(&fakeDetector{}, "not a cron spec")

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s, _ := newTestScheduler(&fakeDetector{}, "@every 1h")

	require.NoError(t, s.Start())
	s.Stop()
}
