package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Trigger names what caused a settlement.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerExpiry Trigger = "expiry"
)

// notifyTimeout bounds how long a settlement waits for its notice to go out.
const notifyTimeout = 5 * time.Second

// Board is what the admin surfaces render after every cycle command: all
// cycles newest first, the running cycle if any, and messages to show.
type Board struct {
	Cycles   []*cycle.Cycle  `json:"cycles"`
	Active   *cycle.Cycle    `json:"active_cycle,omitempty"`
	Progress *cycle.Progress `json:"progress,omitempty"`
	Messages []string        `json:"messages,omitempty"`
}

// CycleService owns the savings-cycle state machine: creation with the
// fresh-start reset, settlement on explicit end or on expiry, and progress.
type CycleService struct {
	cycles      cycle.Repository
	members     member.Store
	ledger      contribution.Ledger
	tx          Transactor
	notifier    Notifier
	adminUserID string
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Entry
}

func NewCycleService(
	cr cycle.Repository,
	ms member.Store,
	l contribution.Ledger,
	tx Transactor,
	n Notifier,
	adminUserID string,
	loc *time.Location,
	log *logrus.Entry,
) *CycleService {
	if n == nil {
		n = NopNotifier{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CycleService{
		cycles:      cr,
		members:     ms,
		ledger:      l,
		tx:          tx,
		notifier:    n,
		adminUserID: adminUserID,
		loc:         loc,
		now:         time.Now,
		log:         log.WithField("component", "cycle_service"),
	}
}

// Today is the current civil date in the configured timezone.
func (s *CycleService) Today() time.Time {
	return calendar.Today(s.now(), s.loc)
}

// CreateCycle validates the request and starts a new active cycle. Every
// member's adjustment is reset to zero and their balance hidden in the same
// transaction as the insert.
func (s *CycleService) CreateCycle(ctx context.Context, actorID, name, startDate, endDate, notes string) (*cycle.Cycle, error) {
	if err := authorize(actorID, s.adminUserID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	start, end, err := validateCycle(name, startDate, endDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load cycles", err)
	}
	if cycle.FindActive(existing) != nil {
		return nil, ErrActiveCycleExists
	}

	c := &cycle.Cycle{
		ID:           uuid.NewString(),
		Name:         name,
		StartDate:    start,
		EndDate:      end,
		Status:       cycle.StatusActive,
		TotalSavings: decimal.Zero,
		Notes:        strings.TrimSpace(notes),
		CreatedAt:    s.now().UTC(),
		CreatedBy:    actorID,
	}

	var reset int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if reset, err = s.members.ResetAllAdjustments(ctx, s.adminUserID); err != nil {
			return err
		}
		if _, err = s.members.SetAllBalanceVisible(ctx, false, s.adminUserID); err != nil {
			return err
		}
		return s.cycles.Insert(ctx, c)
	})
	if err != nil {
		if errors.Is(err, cycle.ErrActiveCycleExists) {
			return nil, ErrActiveCycleExists
		}
		return nil, storageFailure("failed to create cycle", err)
	}

	metrics.CyclesCreated.Inc()
	s.log.WithFields(logrus.Fields{
		"cycle_id":      c.ID,
		"cycle_name":    c.Name,
		"range":         c.Range().String(),
		"members_reset": reset,
	}).Info("Savings cycle created")
	return c, nil
}

func validateCycle(name, startDate, endDate string) (time.Time, time.Time, error) {
	if name == "" {
		return time.Time{}, time.Time{}, validation("Cycle name is required")
	}
	start, err := calendar.ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, validation("Start date must be a valid date (YYYY-MM-DD)")
	}
	end, err := calendar.ParseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, validation("End date must be a valid date (YYYY-MM-DD)")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, validation("End date must be after start date")
	}
	if calendar.DaysBetween(start, end) > cycle.MaxLengthDays {
		return time.Time{}, time.Time{}, validation("Cycle cannot exceed one year")
	}
	return start, end, nil
}

// EndCycle settles an active cycle on the admin's request. Ending a cycle that
// is already ended returns the ended cycle together with ErrCycleAlreadyEnded.
func (s *CycleService) EndCycle(ctx context.Context, actorID, cycleID string) (*cycle.Cycle, error) {
	if err := authorize(actorID, s.adminUserID); err != nil {
		return nil, err
	}

	c, err := s.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return c, ErrCycleAlreadyEnded
	}

	ended, won, err := s.settle(ctx, c, TriggerManual)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another caller settled it first; report their result.
		current, err := s.GetCycle(ctx, cycleID)
		if err != nil {
			return nil, err
		}
		return current, ErrCycleAlreadyEnded
	}
	return ended, nil
}

// DetectAndSettleExpiredCycles settles every active cycle whose end date is
// before today. Cycles settled concurrently by someone else are skipped. A
// failure on one cycle does not stop the rest; failures are joined.
func (s *CycleService) DetectAndSettleExpiredCycles(ctx context.Context, now time.Time) ([]*cycle.Cycle, error) {
	today := calendar.Today(now, s.loc)

	cycles, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load cycles", err)
	}

	settled := make([]*cycle.Cycle, 0)
	var errs []error
	for _, c := range cycles {
		if !c.IsExpired(today) {
			continue
		}
		ended, won, err := s.settle(ctx, c, TriggerExpiry)
		if err != nil {
			s.log.WithError(err).WithField("cycle_id", c.ID).Error("Failed to settle expired cycle")
			errs = append(errs, fmt.Errorf("cycle %s: %w", c.ID, err))
			continue
		}
		if !won {
			s.log.WithField("cycle_id", c.ID).Debug("Expired cycle already settled elsewhere")
			continue
		}
		settled = append(settled, ended)
	}
	return settled, errors.Join(errs...)
}

// settle runs the settlement of c in one transaction: the ledger total over the
// cycle's range, the active-to-ended compare-and-swap with that total, and,
// only for the caller that wins the swap, the group-wide balance reveal.
func (s *CycleService) settle(ctx context.Context, c *cycle.Cycle, trigger Trigger) (*cycle.Cycle, bool, error) {
	timer := metrics.NewTimer()
	logEntry := s.log.WithFields(logrus.Fields{
		"cycle_id": c.ID,
		"trigger":  trigger,
		"range":    c.Range().String(),
	})

	var (
		won      bool
		total    decimal.Decimal
		revealed int64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		total, err = s.ledger.SumAmount(ctx, contribution.Filter{Range: c.Range()})
		if err != nil {
			return err
		}
		won, err = s.cycles.ConditionalUpdateStatus(ctx, c.ID, cycle.StatusActive, cycle.StatusEnded, total)
		if err != nil || !won {
			return err
		}
		revealed, err = s.members.SetAllBalanceVisible(ctx, true, s.adminUserID)
		return err
	})
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(string(trigger), "failed").Inc()
		return nil, false, storageFailure("failed to settle cycle", err)
	}
	if !won {
		metrics.SettlementsTotal.WithLabelValues(string(trigger), "lost").Inc()
		logEntry.Info("Settlement skipped, cycle is no longer active")
		return nil, false, nil
	}

	timer.ObserveDuration(metrics.SettlementDuration.WithLabelValues(string(trigger)))
	metrics.SettlementsTotal.WithLabelValues(string(trigger), "won").Inc()
	metrics.MembersRevealed.Add(float64(revealed))

	ended := *c
	ended.Status = cycle.StatusEnded
	ended.TotalSavings = total

	logEntry.WithFields(logrus.Fields{
		"total_savings":    total.StringFixed(2),
		"members_revealed": revealed,
	}).Info("Savings cycle settled")
	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	s.notifier.CycleSettled(notifyCtx, &ended, trigger)
	return &ended, true, nil
}

// RefreshAndDetectExpired settles anything that has expired and returns the
// board to display. Settlement failures are logged and reported as messages.
func (s *CycleService) RefreshAndDetectExpired(ctx context.Context) (*Board, error) {
	board := &Board{}

	settled, err := s.DetectAndSettleExpiredCycles(ctx, s.now())
	for _, c := range settled {
		board.Messages = append(board.Messages, settledMessage(c))
	}
	if err != nil {
		board.Messages = append(board.Messages, Message(err))
	}

	cycles, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load cycles", err)
	}
	board.Cycles = cycles
	if active := cycle.FindActive(cycles); active != nil {
		p := cycle.ComputeProgress(active, s.Today())
		board.Active = active
		board.Progress = &p
	}
	return board, nil
}

func settledMessage(c *cycle.Cycle) string {
	return fmt.Sprintf("%q has ended. Balances are now visible to all members.", c.Name)
}

// ListCycles returns every cycle, newest start date first.
func (s *CycleService) ListCycles(ctx context.Context) ([]*cycle.Cycle, error) {
	cycles, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load cycles", err)
	}
	return cycles, nil
}

func (s *CycleService) GetCycle(ctx context.Context, cycleID string) (*cycle.Cycle, error) {
	if _, err := uuid.Parse(cycleID); err != nil {
		return nil, ErrCycleNotFound
	}
	c, err := s.cycles.GetByID(ctx, cycleID)
	if err != nil {
		if errors.Is(err, cycle.ErrNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, storageFailure("failed to load cycle", err)
	}
	return c, nil
}

// Progress places today within the given cycle.
func (s *CycleService) Progress(ctx context.Context, cycleID string) (*cycle.Cycle, cycle.Progress, error) {
	c, err := s.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, cycle.Progress{}, err
	}
	return c, cycle.ComputeProgress(c, s.Today()), nil
}
