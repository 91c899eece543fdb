package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/payment"
)

const paymentReferenceKey = "payment_transactions_reference_key"

type PostgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (r *PostgresPaymentRepository) Create(ctx context.Context, t *payment.Transaction) error {
	query := `INSERT INTO payment_transactions (id, user_id, amount, phone_number, merchant_reference, status)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING created_at, updated_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		t.ID, t.MemberID, t.Amount, t.PhoneNumber, t.MerchantReference, string(t.Status),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, paymentReferenceKey) {
			return payment.ErrDuplicateReference
		}
		return fmt.Errorf("error creating payment transaction: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepository) GetByReference(ctx context.Context, merchantReference string) (*payment.Transaction, error) {
	query := `SELECT id, user_id, amount, phone_number, merchant_reference, provider_tracking_id,
               status, contribution_date, created_at, updated_at
               FROM payment_transactions WHERE merchant_reference = $1`

	t := &payment.Transaction{}
	var tracking sql.NullString
	var status string
	var day sql.NullTime
	err := conn(ctx, r.db).QueryRowContext(ctx, query, merchantReference).Scan(
		&t.ID, &t.MemberID, &t.Amount, &t.PhoneNumber, &t.MerchantReference, &tracking,
		&status, &day, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}
		return nil, fmt.Errorf("error getting payment transaction by reference: %w", err)
	}
	t.ProviderTrackingID = tracking.String
	t.Status = payment.Status(status)
	if day.Valid {
		d := calendar.DateOf(day.Time)
		t.ContributionDate = &d
	}
	return t, nil
}

func (r *PostgresPaymentRepository) TransitionStatus(ctx context.Context, merchantReference string, expected, next payment.Status, trackingID string, contributionDate *time.Time) (bool, error) {
	query := `UPDATE payment_transactions
               SET status = $1, provider_tracking_id = COALESCE($2, provider_tracking_id),
                   contribution_date = COALESCE($3::date, contribution_date), updated_at = NOW()
               WHERE merchant_reference = $4 AND status = $5`

	var day sql.NullString
	if contributionDate != nil {
		day = sql.NullString{String: calendar.Format(*contributionDate), Valid: true}
	}

	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(next), nullString(trackingID), day, merchantReference, string(expected))
	if err != nil {
		return false, fmt.Errorf("error updating payment transaction status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}
