package boltdb

import (
	"context"
	"fmt"
	"sort"

	"chama_admin/internal/domain/withdrawal"

	bolt "go.etcd.io/bbolt"
)

type WithdrawalRepository struct {
	db *DB
}

func NewWithdrawalRepository(db *DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *withdrawal.Request) error {
	return r.db.update(ctx, func(tx *bolt.Tx) error {
		if tx.Bucket(bucketMembers).Get([]byte(w.MemberID)) == nil {
			return fmt.Errorf("error creating withdrawal request: unknown member %q", w.MemberID)
		}
		w.CreatedAt = now()
		if err := put(tx.Bucket(bucketWithdrawals), w.ID, w); err != nil {
			return fmt.Errorf("error creating withdrawal request: %w", err)
		}
		return nil
	})
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*withdrawal.Request, error) {
	var w withdrawal.Request
	err := r.db.view(ctx, func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(bucketWithdrawals), id, &w)
		if err != nil {
			return fmt.Errorf("error getting withdrawal request by ID: %w", err)
		}
		if !found {
			return withdrawal.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepository) List(ctx context.Context, status withdrawal.Status) ([]*withdrawal.Request, error) {
	requests := make([]*withdrawal.Request, 0)
	err := r.db.view(ctx, func(tx *bolt.Tx) error {
		return each(tx.Bucket(bucketWithdrawals), func(w *withdrawal.Request) error {
			if status == "" || w.Status == status {
				requests = append(requests, w)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error listing withdrawal requests: %w", err)
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (r *WithdrawalRepository) Decide(ctx context.Context, id string, rv withdrawal.Review) (bool, error) {
	var won bool
	err := r.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWithdrawals)
		var w withdrawal.Request
		found, err := get(b, id, &w)
		if err != nil {
			return err
		}
		if !found || !w.IsPending() {
			return nil
		}
		reviewedAt := rv.ReviewedAt.UTC()
		w.Status = rv.Next
		w.AdminID = rv.AdminID
		w.RejectionReason = rv.RejectionReason
		w.ReviewedAt = &reviewedAt
		if err := put(b, id, &w); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error reviewing withdrawal request: %w", err)
	}
	return won, nil
}
