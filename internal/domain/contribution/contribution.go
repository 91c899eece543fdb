package contribution

import (
	"context"
	"time"

	"chama_admin/internal/domain/calendar"

	"github.com/shopspring/decimal"
)

// StatusCompleted is the only status the ledger records today.
const StatusCompleted = "completed"

// Contribution is a single dated deposit. Corresponds to the 'contributions' table.
type Contribution struct {
	ID               string          `json:"id"`
	MemberID         string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	ContributionDate time.Time       `json:"contribution_date"` // civil date, midnight UTC
	Status           string          `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Filter narrows a ledger aggregate. A nil MemberID sums across all members;
// a zero Range means no date restriction.
type Filter struct {
	MemberID *string
	Range    calendar.Range
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c *Contribution) bool {
	if f.MemberID != nil && c.MemberID != *f.MemberID {
		return false
	}
	if f.Range.From.IsZero() && f.Range.To.IsZero() {
		return true
	}
	return f.Range.Contains(c.ContributionDate)
}

// Ledger is the append-only contribution log.
type Ledger interface {
	Append(ctx context.Context, c *Contribution) error
	SumAmount(ctx context.Context, f Filter) (decimal.Decimal, error)
}
