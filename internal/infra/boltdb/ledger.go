package boltdb

import (
	"context"
	"fmt"

	"chama_admin/internal/domain/contribution"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"
)

type ContributionLedger struct {
	db *DB
}

func NewContributionLedger(db *DB) *ContributionLedger {
	return &ContributionLedger{db: db}
}

func (l *ContributionLedger) Append(ctx context.Context, c *contribution.Contribution) error {
	return l.db.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMembers).Get([]byte(c.MemberID)) == nil {
			return fmt.Errorf("error recording contribution: unknown member %q", c.MemberID)
		}
		c.CreatedAt = now()
		if err := put(tx.Bucket(bucketContributions), c.ID, c); err != nil {
			return fmt.Errorf("error recording contribution: %w", err)
		}
		return nil
	})
}

func (l *ContributionLedger) SumAmount(ctx context.Context, f contribution.Filter) (decimal.Decimal, error) {
	total := decimal.Zero
	err := l.db.view(ctx, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketContributions), func(c *contribution.Contribution) error {
			if f.Matches(c) {
				total = total.Add(c.Amount)
			}
			return nil
		})
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("error summing contributions: %w", err)
	}
	return total, nil
}
