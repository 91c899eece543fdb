package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/cycle"

	"github.com/shopspring/decimal"
)

// singleActiveIndex is the partial unique index that allows one active cycle.
const singleActiveIndex = "savings_cycles_single_active"

const cycleColumns = `id, cycle_name, start_date, end_date, status, total_savings, notes, created_by, created_at`

type PostgresCycleRepository struct {
	db *sql.DB
}

func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{db: db}
}

func (r *PostgresCycleRepository) Insert(ctx context.Context, c *cycle.Cycle) error {
	query := `INSERT INTO savings_cycles (id, cycle_name, start_date, end_date, status, total_savings, notes, created_by)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		c.ID, c.Name, calendar.Format(c.StartDate), calendar.Format(c.EndDate),
		string(c.Status), c.TotalSavings, nullString(c.Notes), c.CreatedBy,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, singleActiveIndex) {
			return cycle.ErrActiveCycleExists
		}
		return fmt.Errorf("error creating savings cycle: %w", err)
	}
	return nil
}

func (r *PostgresCycleRepository) GetByID(ctx context.Context, id string) (*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM savings_cycles WHERE id = $1`
	c, err := scanCycle(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cycle.ErrNotFound
		}
		return nil, fmt.Errorf("error getting savings cycle by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresCycleRepository) ListAll(ctx context.Context) ([]*cycle.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM savings_cycles ORDER BY start_date DESC, created_at DESC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing savings cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]*cycle.Cycle, 0)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning savings cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating savings cycles: %w", err)
	}
	return cycles, nil
}

func (r *PostgresCycleRepository) ConditionalUpdateStatus(ctx context.Context, id string, expected, next cycle.Status, total decimal.Decimal) (bool, error) {
	query := `UPDATE savings_cycles SET status = $1, total_savings = $2
               WHERE id = $3 AND status = $4`

	res, err := conn(ctx, r.db).ExecContext(ctx, query, string(next), total, id, string(expected))
	if err != nil {
		return false, fmt.Errorf("error updating savings cycle status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*cycle.Cycle, error) {
	c := &cycle.Cycle{}
	var status string
	var notes sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &status, &c.TotalSavings, &notes, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Status = cycle.Status(status)
	c.Notes = notes.String
	c.StartDate = calendar.DateOf(c.StartDate)
	c.EndDate = calendar.DateOf(c.EndDate)
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
