package boltdb

import (
	"context"
	"fmt"
	"sort"

	"chama_admin/internal/domain/cycle"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"
)

type CycleRepository struct {
	db *DB
}

func NewCycleRepository(db *DB) *CycleRepository {
	return &CycleRepository{db: db}
}

func (r *CycleRepository) Insert(ctx context.Context, c *cycle.Cycle) error {
	return r.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCycles)
		if c.IsActive() {
			err := each(b, func(existing *cycle.Cycle) error {
				if existing.IsActive() {
					return cycle.ErrActiveCycleExists
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now()
		}
		if err := put(b, c.ID, c); err != nil {
			return fmt.Errorf("error creating savings cycle: %w", err)
		}
		return nil
	})
}

func (r *CycleRepository) GetByID(ctx context.Context, id string) (*cycle.Cycle, error) {
	var c cycle.Cycle
	err := r.db.view(ctx, func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(bucketCycles), id, &c)
		if err != nil {
			return fmt.Errorf("error getting savings cycle by ID: %w", err)
		}
		if !found {
			return cycle.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CycleRepository) ListAll(ctx context.Context) ([]*cycle.Cycle, error) {
	cycles := make([]*cycle.Cycle, 0)
	err := r.db.view(ctx, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketCycles), func(c *cycle.Cycle) error {
			cycles = append(cycles, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing savings cycles: %w", err)
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		if !cycles[i].StartDate.Equal(cycles[j].StartDate) {
			return cycles[i].StartDate.After(cycles[j].StartDate)
		}
		return cycles[i].CreatedAt.After(cycles[j].CreatedAt)
	})
	return cycles, nil
}

func (r *CycleRepository) ConditionalUpdateStatus(ctx context.Context, id string, expected, next cycle.Status, total decimal.Decimal) (bool, error) {
	var won bool
	err := r.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCycles)
		var c cycle.Cycle
		found, err := get(b, id, &c)
		if err != nil {
			return err
		}
		if !found || c.Status != expected {
			return nil
		}
		c.Status = next
		c.TotalSavings = total
		if err := put(b, id, &c); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error updating savings cycle status: %w", err)
	}
	return won, nil
}
