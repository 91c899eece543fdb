package cycle

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines persistence for savings cycles.
type Repository interface {
	// Insert stores a new cycle. It returns ErrActiveCycleExists if the cycle is
	// active and another active cycle is already stored.
	Insert(ctx context.Context, c *Cycle) error
	GetByID(ctx context.Context, id string) (*Cycle, error)
	// ListAll returns every cycle ordered by start date, newest first.
	ListAll(ctx context.Context) ([]*Cycle, error)
	// ConditionalUpdateStatus moves a cycle from expected to next and records
	// total, only if its stored status still equals expected. It reports whether
	// this call performed the transition.
	ConditionalUpdateStatus(ctx context.Context, id string, expected, next Status, total decimal.Decimal) (bool, error)
}
