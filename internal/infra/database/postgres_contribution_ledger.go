package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"

	"github.com/shopspring/decimal"
)

type PostgresContributionLedger struct {
	db *sql.DB
}

func NewPostgresContributionLedger(db *sql.DB) *PostgresContributionLedger {
	return &PostgresContributionLedger{db: db}
}

func (l *PostgresContributionLedger) Append(ctx context.Context, c *contribution.Contribution) error {
	query := `INSERT INTO contributions (id, user_id, amount, contribution_date, status, notes)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING created_at`

	err := conn(ctx, l.db).QueryRowContext(ctx, query,
		c.ID, c.MemberID, c.Amount, calendar.Format(c.ContributionDate), c.Status, nullString(c.Notes),
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error recording contribution: %w", err)
	}
	return nil
}

// SumAmount totals every contribution matching f, whatever its status. Both range bounds are inclusive.
func (l *PostgresContributionLedger) SumAmount(ctx context.Context, f contribution.Filter) (decimal.Decimal, error) {
	var where []string
	var args []any

	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !f.Range.From.IsZero() || !f.Range.To.IsZero() {
		args = append(args, calendar.Format(f.Range.From), calendar.Format(f.Range.To))
		where = append(where, fmt.Sprintf("contribution_date BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM contributions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	var total decimal.Decimal
	if err := conn(ctx, l.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("error summing contributions: %w", err)
	}
	return total, nil
}
