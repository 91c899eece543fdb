package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ContributionService accepts manual deposits recorded by the admin.
type ContributionService struct {
	cycles      cycle.Repository
	members     member.Store
	ledger      contribution.Ledger
	tx          Transactor
	adminUserID string
	log         *logrus.Entry
}

func NewContributionService(cr cycle.Repository, ms member.Store, l contribution.Ledger, tx Transactor, adminUserID string, log *logrus.Entry) *ContributionService {
	return &ContributionService{
		cycles:      cr,
		members:     ms,
		ledger:      l,
		tx:          tx,
		adminUserID: adminUserID,
		log:         log.WithField("component", "contribution_service"),
	}
}

// Record appends a deposit for memberID. The date must fall inside the range
// of the active cycle; with no active cycle nothing is accepted.
func (s *ContributionService) Record(ctx context.Context, actorID, memberID string, amount decimal.Decimal, date, notes string) (*contribution.Contribution, error) {
	if err := authorize(actorID, s.adminUserID); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, validation("Amount must be greater than zero")
	}
	day, err := calendar.ParseDate(date)
	if err != nil {
		return nil, validation("Contribution date must be a valid date (YYYY-MM-DD)")
	}

	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageFailure("failed to load member", err)
	}

	c := &contribution.Contribution{
		ID:               uuid.NewString(),
		MemberID:         memberID,
		Amount:           amount,
		ContributionDate: day,
		Status:           contribution.StatusCompleted,
		Notes:            strings.TrimSpace(notes),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.activeCycle(ctx)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveCycle
		}
		if !active.Range().Contains(day) {
			return validation(fmt.Sprintf("Contribution date must fall within the active cycle (%s)", active.Range()))
		}
		return s.ledger.Append(ctx, c)
	})
	if err != nil {
		return nil, storageFailure("failed to record contribution", err)
	}

	metrics.ContributionsRecorded.WithLabelValues("manual").Inc()
	s.log.WithFields(logrus.Fields{
		"user_id": memberID,
		"amount":  amount.StringFixed(2),
		"date":    calendar.Format(day),
	}).Info("Contribution recorded")
	return c, nil
}

func (s *ContributionService) activeCycle(ctx context.Context) (*cycle.Cycle, error) {
	cycles, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return cycle.FindActive(cycles), nil
}
