package scheduler

import (
	"context"
	"fmt"
	"time"

	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const expiryCheckTimeout = 1 * time.Minute

// ExpiryDetector settles cycles whose end date has passed.
type ExpiryDetector interface {
	DetectAndSettleExpiredCycles(ctx context.Context, now time.Time) ([]*cycle.Cycle, error)
}

// ExpiryScheduler runs the expiry check on a cron schedule. Each run is
// idempotent, so overlapping with page-load checks or manual ends is safe.
type ExpiryScheduler struct {
	cronEngine *cron.Cron
	detector   ExpiryDetector
	logger     *logrus.Entry
	cronSpec   string
	now        func() time.Time
}

func NewExpiryScheduler(detector ExpiryDetector, logger *logrus.Entry, cronSpec string, loc *time.Location) *ExpiryScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExpiryScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		detector:   detector,
		logger:     logger.WithField("component", "expiry_scheduler"),
		cronSpec:   cronSpec, // e.g., "*/15 * * * *" (every 15 minutes)
		now:        time.Now,
	}
}

func (s *ExpiryScheduler) Start() error {
	s.logger.Info("Starting expiry scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for expiry check.")
		ctx, cancel := context.WithTimeout(context.Background(), expiryCheckTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("could not add expiry check cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Expiry scheduler started.")
	return nil
}

// RunOnce performs a single expiry check and reports how many cycles it settled.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) int {
	settled, err := s.detector.DetectAndSettleExpiredCycles(ctx, s.now())
	if err != nil {
		metrics.ExpiryChecks.WithLabelValues("error").Inc()
		s.logger.WithError(err).Error("Error during expiry check")
	} else {
		metrics.ExpiryChecks.WithLabelValues("ok").Inc()
	}

	for _, c := range settled {
		s.logger.WithFields(logrus.Fields{
			"cycle_id":      c.ID,
			"cycle_name":    c.Name,
			"total_savings": c.TotalSavings.StringFixed(2),
		}).Info("Expired cycle settled by scheduler")
	}
	return len(settled)
}

func (s *ExpiryScheduler) Stop() {
	s.logger.Info("Stopping expiry scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Expiry scheduler gracefully stopped.")
}
