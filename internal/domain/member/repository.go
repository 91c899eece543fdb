package member

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store defines the operations on member balance records.
// The bulk operations touch every member except the record whose ID equals
// exceptID; an empty exceptID excludes nobody.
type Store interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	ListAll(ctx context.Context) ([]*Member, error)

	SetAllBalanceVisible(ctx context.Context, visible bool, exceptID string) (int64, error)
	ResetAllAdjustments(ctx context.Context, exceptID string) (int64, error)
	// AddAdjustment adds delta to one member's balance adjustment and returns the updated record.
	AddAdjustment(ctx context.Context, id string, delta decimal.Decimal) (*Member, error)

	// RecordAdjustment appends a penalty or reward to the adjustment history.
	RecordAdjustment(ctx context.Context, a *Adjustment) error
	// ListAdjustments returns one member's adjustment history, newest first.
	ListAdjustments(ctx context.Context, memberID string) ([]*Adjustment, error)
}
