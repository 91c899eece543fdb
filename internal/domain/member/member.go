package member

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status mirrors the member_status enum.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

var ErrNotFound = errors.New("member not found")
var ErrDuplicateMember = errors.New("member with this ID already exists")

// Member is a member's balance record. Corresponds to the 'profiles' table.
// The cumulative contribution total is derived from the ledger, not stored here.
type Member struct {
	ID                      string          `json:"user_id"`
	FullName                string          `json:"full_name"`
	PhoneNumber             string          `json:"phone_number,omitempty"`
	Status                  Status          `json:"member_status"`
	BalanceAdjustment       decimal.Decimal `json:"balance_adjustment"`
	BalanceVisible          bool            `json:"balance_visible"`
	DailyContributionAmount decimal.Decimal `json:"daily_contribution_amount"`
	MissedContributions     int             `json:"missed_contributions"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// AdjustmentKind distinguishes penalties from rewards.
type AdjustmentKind string

const (
	AdjustmentPenalty AdjustmentKind = "penalty"
	AdjustmentReward  AdjustmentKind = "reward"
)

// Signed returns amount as a balance delta: negative for penalties.
func (k AdjustmentKind) Signed(amount decimal.Decimal) decimal.Decimal {
	if k == AdjustmentPenalty {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Valid reports whether k is a known adjustment kind.
func (k AdjustmentKind) Valid() bool {
	return k == AdjustmentPenalty || k == AdjustmentReward
}

// Adjustment is one penalty or reward entry. Corresponds to the 'balance_adjustments' table.
// Amount carries the sign applied to the member's balance.
type Adjustment struct {
	ID        string          `json:"id"`
	MemberID  string          `json:"user_id"`
	AdminID   string          `json:"admin_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      AdjustmentKind  `json:"adjustment_type"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}
