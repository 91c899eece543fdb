package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	assert.GreaterOrEqual(t, timer.Duration(), 10*time.Millisecond)
}

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_duration_seconds", Help: "test"})

	NewTimer().ObserveDuration(h)

	assert.Equal(t, 1, testutil.CollectAndCount(h))
}

func TestSettlementsTotalLabels(t *testing.T) {
	before := testutil.ToFloat64(SettlementsTotal.WithLabelValues("manual", "won"))
	SettlementsTotal.WithLabelValues("manual", "won").Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(SettlementsTotal.WithLabelValues("manual", "won")))
}
