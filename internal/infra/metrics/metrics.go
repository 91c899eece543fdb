package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cycle metrics
	CyclesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chama_cycles_created_total",
			Help: "Total number of savings cycles created",
		},
	)

	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_settlements_total",
			Help: "Settlement attempts by trigger and outcome (won, lost, failed)",
		},
		[]string{"trigger", "outcome"},
	)

	SettlementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chama_settlement_duration_seconds",
			Help:    "Time taken to settle a cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	MembersRevealed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chama_members_revealed_total",
			Help: "Total number of member balances revealed by settlements",
		},
	)

	// Ledger metrics
	ContributionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_contributions_recorded_total",
			Help: "Total number of contributions appended to the ledger by source",
		},
		[]string{"source"},
	)

	PaymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_payment_callbacks_total",
			Help: "Payment callbacks by resulting local status",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chama_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WithdrawalsReviewed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_withdrawals_reviewed_total",
			Help: "Withdrawal requests reviewed by decision",
		},
		[]string{"decision"},
	)

	// Scheduler metrics
	ExpiryChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chama_expiry_checks_total",
			Help: "Scheduled expiry checks by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(CyclesCreated)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(SettlementDuration)
	prometheus.MustRegister(MembersRevealed)
	prometheus.MustRegister(ContributionsRecorded)
	prometheus.MustRegister(PaymentCallbacks)
	prometheus.MustRegister(WithdrawalsReviewed)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(ExpiryChecks)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in seconds on o.
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
