package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"chama_admin/internal/domain/member"
	"chama_admin/internal/domain/withdrawal"
	"chama_admin/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WithdrawalService takes withdrawal requests and lets the admin approve or
// reject each one exactly once.
type WithdrawalService struct {
	withdrawals withdrawal.Repository
	members     member.Store
	adminUserID string
	now         func() time.Time
	log         *logrus.Entry
}

func NewWithdrawalService(wr withdrawal.Repository, ms member.Store, adminUserID string, log *logrus.Entry) *WithdrawalService {
	return &WithdrawalService{
		withdrawals: wr,
		members:     ms,
		adminUserID: adminUserID,
		now:         time.Now,
		log:         log.WithField("component", "withdrawal_service"),
	}
}

// Submit files a pending request for memberID.
func (s *WithdrawalService) Submit(ctx context.Context, memberID string, amount decimal.Decimal, reason string) (*withdrawal.Request, error) {
	if !amount.IsPositive() {
		return nil, validation("Amount must be greater than zero")
	}
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageFailure("failed to load member", err)
	}

	w := &withdrawal.Request{
		ID:       uuid.NewString(),
		MemberID: memberID,
		Amount:   amount,
		Status:   withdrawal.StatusPending,
		Reason:   strings.TrimSpace(reason),
	}
	if err := s.withdrawals.Create(ctx, w); err != nil {
		return nil, storageFailure("failed to create withdrawal request", err)
	}

	s.log.WithFields(logrus.Fields{
		"withdrawal_id": w.ID,
		"user_id":       memberID,
		"amount":        amount.StringFixed(2),
	}).Info("Withdrawal requested")
	return w, nil
}

// List returns pending requests, or every request when all is set.
func (s *WithdrawalService) List(ctx context.Context, all bool) ([]*withdrawal.Request, error) {
	status := withdrawal.StatusPending
	if all {
		status = ""
	}
	requests, err := s.withdrawals.List(ctx, status)
	if err != nil {
		return nil, storageFailure("failed to load withdrawal requests", err)
	}
	return requests, nil
}

func (s *WithdrawalService) Approve(ctx context.Context, actorID, id string) (*withdrawal.Request, error) {
	return s.review(ctx, actorID, id, withdrawal.StatusApproved, "")
}

// Reject closes the request with a reason the member will see.
func (s *WithdrawalService) Reject(ctx context.Context, actorID, id, reason string) (*withdrawal.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation("Rejection reason is required")
	}
	return s.review(ctx, actorID, id, withdrawal.StatusRejected, reason)
}

// review moves a pending request to next. A request someone already decided
// is reported as ErrWithdrawalAlreadyReviewed along with its current state.
func (s *WithdrawalService) review(ctx context.Context, actorID, id string, next withdrawal.Status, reason string) (*withdrawal.Request, error) {
	if err := authorize(actorID, s.adminUserID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrWithdrawalNotFound
	}

	won, err := s.withdrawals.Decide(ctx, id, withdrawal.Review{
		Next:            next,
		AdminID:         actorID,
		RejectionReason: reason,
		ReviewedAt:      s.now().UTC(),
	})
	if err != nil {
		return nil, storageFailure("failed to review withdrawal request", err)
	}

	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, withdrawal.ErrNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, storageFailure("failed to load withdrawal request", err)
	}
	if !won {
		return w, ErrWithdrawalAlreadyReviewed
	}

	metrics.WithdrawalsReviewed.WithLabelValues(string(next)).Inc()
	s.log.WithFields(logrus.Fields{
		"withdrawal_id": id,
		"user_id":       w.MemberID,
		"decision":      next,
	}).Info("Withdrawal request reviewed")
	return w, nil
}
