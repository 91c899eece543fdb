package app

import (
	"context"
	"errors"
	"strings"

	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/member"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// authorize rejects every actor other than the configured admin.
func authorize(actorID, adminUserID string) error {
	if adminUserID == "" || actorID != adminUserID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// Balance is a member's displayed balance. While the balance is hidden the
// amounts are zero unless the viewer is the admin.
type Balance struct {
	MemberID      string          `json:"user_id"`
	FullName      string          `json:"full_name"`
	Visible       bool            `json:"balance_visible"`
	Contributions decimal.Decimal `json:"contributions"`
	Adjustment    decimal.Decimal `json:"balance_adjustment"`
	Total         decimal.Decimal `json:"total"`
}

// MemberService covers the admin's member operations: registration, listing,
// penalties and rewards, and balance lookups.
type MemberService struct {
	members     member.Store
	ledger      contribution.Ledger
	tx          Transactor
	adminUserID string
	log         *logrus.Entry
}

func NewMemberService(ms member.Store, l contribution.Ledger, tx Transactor, adminUserID string, log *logrus.Entry) *MemberService {
	return &MemberService{
		members:     ms,
		ledger:      l,
		tx:          tx,
		adminUserID: adminUserID,
		log:         log.WithField("component", "member_service"),
	}
}

// Register adds a member record. New members start active with a hidden balance.
func (s *MemberService) Register(ctx context.Context, m *member.Member) (*member.Member, error) {
	m.ID = strings.TrimSpace(m.ID)
	m.FullName = strings.TrimSpace(m.FullName)
	if m.ID == "" {
		return nil, validation("Member ID is required")
	}
	if m.FullName == "" {
		return nil, validation("Full name is required")
	}
	if m.DailyContributionAmount.IsNegative() {
		return nil, validation("Daily contribution amount cannot be negative")
	}
	if m.Status == "" {
		m.Status = member.StatusActive
	}

	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, member.ErrDuplicateMember) {
			return nil, ErrMemberAlreadyExists
		}
		return nil, storageFailure("failed to create member", err)
	}
	s.log.WithField("user_id", m.ID).Info("Member registered")
	return m, nil
}

func (s *MemberService) List(ctx context.Context) ([]*member.Member, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, storageFailure("failed to load members", err)
	}
	return members, nil
}

func (s *MemberService) Get(ctx context.Context, memberID string) (*member.Member, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageFailure("failed to load member", err)
	}
	return m, nil
}

// ApplyAdjustment records a penalty or reward against a member's balance. The
// history entry and the balance change are written in one transaction.
func (s *MemberService) ApplyAdjustment(ctx context.Context, actorID, memberID string, kind member.AdjustmentKind, amount decimal.Decimal, reason string) (*member.Member, error) {
	if err := authorize(actorID, s.adminUserID); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, validation("Adjustment type must be penalty or reward")
	}
	if !amount.IsPositive() {
		return nil, validation("Amount must be greater than zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation("Reason is required")
	}

	entry := &member.Adjustment{
		ID:       uuid.NewString(),
		MemberID: memberID,
		AdminID:  actorID,
		Amount:   kind.Signed(amount),
		Kind:     kind,
		Reason:   reason,
	}

	var m *member.Member
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if m, err = s.members.AddAdjustment(ctx, memberID, entry.Amount); err != nil {
			return err
		}
		return s.members.RecordAdjustment(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageFailure("failed to apply adjustment", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": memberID,
		"kind":    kind,
		"amount":  amount.StringFixed(2),
		"reason":  reason,
	}).Info("Balance adjustment applied")
	return m, nil
}

// Adjustments returns a member's penalty and reward history, newest first.
func (s *MemberService) Adjustments(ctx context.Context, memberID string) ([]*member.Adjustment, error) {
	if _, err := s.Get(ctx, memberID); err != nil {
		return nil, err
	}
	history, err := s.members.ListAdjustments(ctx, memberID)
	if err != nil {
		return nil, storageFailure("failed to load adjustments", err)
	}
	return history, nil
}

// Balance returns a member's all-time contributions plus adjustment.
func (s *MemberService) Balance(ctx context.Context, viewerID, memberID string) (*Balance, error) {
	m, err := s.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	b := &Balance{
		MemberID:      m.ID,
		FullName:      m.FullName,
		Visible:       m.BalanceVisible,
		Contributions: decimal.Zero,
		Adjustment:    decimal.Zero,
		Total:         decimal.Zero,
	}
	if !m.BalanceVisible && viewerID != s.adminUserID {
		return b, nil
	}

	sum, err := s.ledger.SumAmount(ctx, contribution.Filter{MemberID: &m.ID})
	if err != nil {
		return nil, storageFailure("failed to load contributions", err)
	}
	b.Contributions = sum
	b.Adjustment = m.BalanceAdjustment
	b.Total = sum.Add(m.BalanceAdjustment)
	return b, nil
}
