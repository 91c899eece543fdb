package boltdb

import (
	"context"
	"fmt"
	"time"

	"chama_admin/internal/domain/payment"

	bolt "go.etcd.io/bbolt"
)

// PaymentRepository keys transactions by merchant reference.
type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, t *payment.Transaction) error {
	return r.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		if b.Get([]byte(t.MerchantReference)) != nil {
			return payment.ErrDuplicateReference
		}
		t.CreatedAt = now()
		t.UpdatedAt = t.CreatedAt
		if err := put(b, t.MerchantReference, t); err != nil {
			return fmt.Errorf("error creating payment transaction: %w", err)
		}
		return nil
	})
}

func (r *PaymentRepository) GetByReference(ctx context.Context, merchantReference string) (*payment.Transaction, error) {
	var t payment.Transaction
	err := r.db.view(ctx, func(tx *bolt.Tx) error {
		found, err := get(tx.Bucket(bucketPayments), merchantReference, &t)
		if err != nil {
			return fmt.Errorf("error getting payment transaction by reference: %w", err)
		}
		if !found {
			return payment.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PaymentRepository) TransitionStatus(ctx context.Context, merchantReference string, expected, next payment.Status, trackingID string, contributionDate *time.Time) (bool, error) {
	var won bool
	err := r.db.update(ctx, func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPayments)
		var t payment.Transaction
		found, err := get(b, merchantReference, &t)
		if err != nil {
			return err
		}
		if !found || t.Status != expected {
			return nil
		}
		t.Status = next
		if trackingID != "" {
			t.ProviderTrackingID = trackingID
		}
		if contributionDate != nil {
			t.ContributionDate = contributionDate
		}
		t.UpdatedAt = now()
		if err := put(b, merchantReference, &t); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error updating payment transaction status: %w", err)
	}
	return won, nil
}
