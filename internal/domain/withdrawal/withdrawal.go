package withdrawal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status mirrors the withdrawal_status enum.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var ErrNotFound = errors.New("withdrawal request not found")

// Request is a member's request to take money out of the group.
// Corresponds to the 'withdrawal_requests' table.
type Request struct {
	ID              string          `json:"id"`
	MemberID        string          `json:"user_id"`
	AdminID         string          `json:"admin_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
}

// IsPending reports whether the request still awaits a decision.
func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Review is the admin's decision on a pending request.
type Review struct {
	Next            Status
	AdminID         string
	RejectionReason string
	ReviewedAt      time.Time
}

// Repository defines persistence for withdrawal requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	// List returns requests newest first; an empty status returns every request.
	List(ctx context.Context, status Status) ([]*Request, error)
	// Decide applies rv to the request only while it is still pending and
	// reports whether it did.
	Decide(ctx context.Context, id string, rv Review) (bool, error)
}
