package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chama_admin/internal/domain/withdrawal"
)

const withdrawalColumns = `id, user_id, admin_id, amount, status, reason, rejection_reason, created_at, reviewed_at`

type PostgresWithdrawalRepository struct {
	db *sql.DB
}

func NewPostgresWithdrawalRepository(db *sql.DB) *PostgresWithdrawalRepository {
	return &PostgresWithdrawalRepository{db: db}
}

func (r *PostgresWithdrawalRepository) Create(ctx context.Context, w *withdrawal.Request) error {
	query := `INSERT INTO withdrawal_requests (id, user_id, amount, status, reason)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		w.ID, w.MemberID, w.Amount, string(w.Status), nullString(w.Reason),
	).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating withdrawal request: %w", err)
	}
	return nil
}

func (r *PostgresWithdrawalRepository) GetByID(ctx context.Context, id string) (*withdrawal.Request, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	w, err := scanWithdrawal(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, withdrawal.ErrNotFound
		}
		return nil, fmt.Errorf("error getting withdrawal request by ID: %w", err)
	}
	return w, nil
}

func (r *PostgresWithdrawalRepository) List(ctx context.Context, status withdrawal.Status) ([]*withdrawal.Request, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
               WHERE ($1 = '' OR status = $1)
               ORDER BY created_at DESC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("error listing withdrawal requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*withdrawal.Request, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning withdrawal request: %w", err)
		}
		requests = append(requests, w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return requests, nil
}

func (r *PostgresWithdrawalRepository) Decide(ctx context.Context, id string, rv withdrawal.Review) (bool, error) {
	query := `UPDATE withdrawal_requests
               SET status = $1, admin_id = $2, rejection_reason = $3, reviewed_at = $4
               WHERE id = $5 AND status = $6`

	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(rv.Next), rv.AdminID, nullString(rv.RejectionReason), rv.ReviewedAt.UTC(), id, string(withdrawal.StatusPending))
	if err != nil {
		return false, fmt.Errorf("error reviewing withdrawal request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}

func scanWithdrawal(row rowScanner) (*withdrawal.Request, error) {
	w := &withdrawal.Request{}
	var adminID, reason, rejection sql.NullString
	var status string
	var reviewedAt sql.NullTime
	err := row.Scan(&w.ID, &w.MemberID, &adminID, &w.Amount, &status, &reason, &rejection, &w.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	w.AdminID = adminID.String
	w.Status = withdrawal.Status(status)
	w.Reason = reason.String
	w.RejectionReason = rejection.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		w.ReviewedAt = &t
	}
	return w, nil
}
