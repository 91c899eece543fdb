package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chama_admin/internal/domain/member"

	"github.com/shopspring/decimal"
)

const profilesKey = "profiles_pkey"

const memberColumns = `user_id, full_name, phone_number, member_status, balance_adjustment, balance_visible,
               daily_contribution_amount, missed_contributions, created_at, updated_at`

type PostgresMemberStore struct {
	db *sql.DB
}

func NewPostgresMemberStore(db *sql.DB) *PostgresMemberStore {
	return &PostgresMemberStore{db: db}
}

func (s *PostgresMemberStore) Create(ctx context.Context, m *member.Member) error {
	query := `INSERT INTO profiles (user_id, full_name, phone_number, member_status, balance_adjustment,
               balance_visible, daily_contribution_amount, missed_contributions)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
               RETURNING created_at, updated_at`

	err := conn(ctx, s.db).QueryRowContext(ctx, query,
		m.ID, m.FullName, nullString(m.PhoneNumber), string(m.Status), m.BalanceAdjustment,
		m.BalanceVisible, m.DailyContributionAmount, m.MissedContributions,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, profilesKey) {
			return member.ErrDuplicateMember
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (s *PostgresMemberStore) GetByID(ctx context.Context, id string) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM profiles WHERE user_id = $1`
	m, err := scanMember(conn(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (s *PostgresMemberStore) ListAll(ctx context.Context) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM profiles ORDER BY full_name, user_id`

	rows, err := conn(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (s *PostgresMemberStore) SetAllBalanceVisible(ctx context.Context, visible bool, exceptID string) (int64, error) {
	query := `UPDATE profiles SET balance_visible = $1, updated_at = NOW() WHERE user_id <> $2`
	return s.bulkUpdate(ctx, "balance visibility", query, visible, exceptID)
}

func (s *PostgresMemberStore) ResetAllAdjustments(ctx context.Context, exceptID string) (int64, error) {
	query := `UPDATE profiles SET balance_adjustment = 0, updated_at = NOW() WHERE user_id <> $1`
	return s.bulkUpdate(ctx, "balance adjustments", query, exceptID)
}

func (s *PostgresMemberStore) bulkUpdate(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := conn(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error updating %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n, nil
}

func (s *PostgresMemberStore) AddAdjustment(ctx context.Context, id string, delta decimal.Decimal) (*member.Member, error) {
	query := `UPDATE profiles SET balance_adjustment = balance_adjustment + $1, updated_at = NOW()
               WHERE user_id = $2
               RETURNING ` + memberColumns

	m, err := scanMember(conn(ctx, s.db).QueryRowContext(ctx, query, delta, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error applying balance adjustment: %w", err)
	}
	return m, nil
}

func scanMember(row rowScanner) (*member.Member, error) {
	m := &member.Member{}
	var phone sql.NullString
	var status string
	err := row.Scan(&m.ID, &m.FullName, &phone, &status, &m.BalanceAdjustment, &m.BalanceVisible,
		&m.DailyContributionAmount, &m.MissedContributions, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.PhoneNumber = phone.String
	m.Status = member.Status(status)
	return m, nil
}

func (s *PostgresMemberStore) RecordAdjustment(ctx context.Context, a *member.Adjustment) error {
	query := `INSERT INTO balance_adjustments (id, user_id, admin_id, amount, adjustment_type, reason)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING created_at`

	err := conn(ctx, s.db).QueryRowContext(ctx, query,
		a.ID, a.MemberID, a.AdminID, a.Amount, string(a.Kind), nullString(a.Reason),
	).Scan(&a.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return member.ErrNotFound
		}
		return fmt.Errorf("error recording balance adjustment: %w", err)
	}
	return nil
}

func (s *PostgresMemberStore) ListAdjustments(ctx context.Context, memberID string) ([]*member.Adjustment, error) {
	query := `SELECT id, user_id, admin_id, amount, adjustment_type, reason, created_at
               FROM balance_adjustments WHERE user_id = $1
               ORDER BY created_at DESC`

	rows, err := conn(ctx, s.db).QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("error listing balance adjustments: %w", err)
	}
	defer rows.Close()

	adjustments := make([]*member.Adjustment, 0)
	for rows.Next() {
		a := &member.Adjustment{}
		var kind string
		var reason sql.NullString
		if err := rows.Scan(&a.ID, &a.MemberID, &a.AdminID, &a.Amount, &kind, &reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning balance adjustment: %w", err)
		}
		a.Kind = member.AdjustmentKind(kind)
		a.Reason = reason.String
		adjustments = append(adjustments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance adjustments: %w", err)
	}
	return adjustments, nil
}
