package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"chama_admin/internal/domain/contribution"

	"github.com/shopspring/decimal"
)

// Status is the local state of a mobile-money payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var ErrNotFound = errors.New("payment transaction not found")
var ErrDuplicateReference = errors.New("payment transaction with this merchant reference already exists")

// Transaction is a collection attempt. Corresponds to the 'payment_transactions' table.
type Transaction struct {
	ID                 string          `json:"id"`
	MemberID           string          `json:"user_id"`
	Amount             decimal.Decimal `json:"amount"`
	PhoneNumber        string          `json:"phone_number"`
	MerchantReference  string          `json:"merchant_reference"`
	ProviderTrackingID string          `json:"provider_tracking_id,omitempty"`
	Status             Status          `json:"status"`
	ContributionDate   *time.Time      `json:"contribution_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// StatusFromProvider maps a gateway order status onto a local status.
// Unknown values leave the payment pending.
func StatusFromProvider(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "success":
		return StatusConfirmed
	case "failed", "error":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Repository defines persistence for payment transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByReference(ctx context.Context, merchantReference string) (*Transaction, error)
	// TransitionStatus moves the transaction identified by merchantReference from
	// expected to next, recording the provider tracking id and, when non-nil, the
	// contribution date. It reports whether the stored status still equalled expected.
	TransitionStatus(ctx context.Context, merchantReference string, expected, next Status, trackingID string, contributionDate *time.Time) (bool, error)
}

// ContributionFor builds the single ledger entry a confirmed payment produces.
func ContributionFor(t *Transaction, date time.Time) *contribution.Contribution {
	return &contribution.Contribution{
		MemberID:         t.MemberID,
		Amount:           t.Amount,
		ContributionDate: date,
		Status:           contribution.StatusCompleted,
		Notes:            "Mobile money payment - Ref: " + t.MerchantReference,
	}
}
