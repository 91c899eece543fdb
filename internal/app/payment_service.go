package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/domain/payment"
	"chama_admin/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaymentNotice is a gateway callback reduced to what the ledger needs.
type PaymentNotice struct {
	MerchantReference string `json:"merchant_reference"`
	TrackingID        string `json:"tracking_id"`
	Status            string `json:"status"`
}

// PaymentService tracks mobile-money collections and books each confirmed
// payment as exactly one contribution.
type PaymentService struct {
	payments payment.Repository
	members  member.Store
	ledger   contribution.Ledger
	tx       Transactor
	loc      *time.Location
	now      func() time.Time
	log      *logrus.Entry
}

func NewPaymentService(pr payment.Repository, ms member.Store, l contribution.Ledger, tx Transactor, loc *time.Location, log *logrus.Entry) *PaymentService {
	if loc == nil {
		loc = time.UTC
	}
	return &PaymentService{
		payments: pr,
		members:  ms,
		ledger:   l,
		tx:       tx,
		loc:      loc,
		now:      time.Now,
		log:      log.WithField("component", "payment_service"),
	}
}

// Register records a pending collection for memberID under a fresh merchant reference.
func (s *PaymentService) Register(ctx context.Context, memberID string, amount decimal.Decimal, phone string) (*payment.Transaction, error) {
	if !amount.IsPositive() {
		return nil, validation("Amount must be greater than zero")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, validation("Phone number is required")
	}
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, storageFailure("failed to load member", err)
	}

	id := uuid.New()
	t := &payment.Transaction{
		ID:                id.String(),
		MemberID:          memberID,
		Amount:            amount,
		PhoneNumber:       phone,
		MerchantReference: merchantReference(s.now(), id),
		Status:            payment.StatusPending,
	}
	if err := s.payments.Create(ctx, t); err != nil {
		if errors.Is(err, payment.ErrDuplicateReference) {
			return nil, &Error{kind: ErrConflict, msg: "Payment reference already in use"}
		}
		return nil, storageFailure("failed to register payment", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   memberID,
		"reference": t.MerchantReference,
		"amount":    amount.StringFixed(2),
	}).Info("Payment registered")
	return t, nil
}

func merchantReference(now time.Time, id uuid.UUID) string {
	return fmt.Sprintf("CHAMA-%d-%s", now.Unix(), strings.ToUpper(id.String()[:8]))
}

// HandleCallback applies a gateway status update. The first move out of
// pending wins; the move to confirmed appends the contribution in the same
// transaction. Repeated or late callbacks leave the payment unchanged.
func (s *PaymentService) HandleCallback(ctx context.Context, n PaymentNotice) (*payment.Transaction, error) {
	ref := strings.TrimSpace(n.MerchantReference)
	if ref == "" {
		return nil, validation("Merchant reference is required")
	}
	next := payment.StatusFromProvider(n.Status)
	metrics.PaymentCallbacks.WithLabelValues(string(next)).Inc()

	t, err := s.payments.GetByReference(ctx, ref)
	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, storageFailure("failed to load payment", err)
	}

	logEntry := s.log.WithFields(logrus.Fields{"reference": ref, "status": next})
	if next == payment.StatusPending || t.Status != payment.StatusPending {
		logEntry.WithField("current", t.Status).Info("Payment callback ignored")
		return t, nil
	}

	var day *time.Time
	if next == payment.StatusConfirmed {
		d := calendar.Today(s.now(), s.loc)
		day = &d
	}

	var won bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		won, err = s.payments.TransitionStatus(ctx, ref, payment.StatusPending, next, strings.TrimSpace(n.TrackingID), day)
		if err != nil || !won || day == nil {
			return err
		}
		c := payment.ContributionFor(t, *day)
		c.ID = uuid.NewString()
		return s.ledger.Append(ctx, c)
	})
	if err != nil {
		return nil, storageFailure("failed to apply payment callback", err)
	}

	if won {
		if day != nil {
			metrics.ContributionsRecorded.WithLabelValues("payment").Inc()
		}
		logEntry.Info("Payment status updated")
	}

	t, err = s.payments.GetByReference(ctx, ref)
	if err != nil {
		return nil, storageFailure("failed to load payment", err)
	}
	return t, nil
}
