package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/domain/withdrawal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to CHAMA_TEST_DATABASE_URL and resets the schema.
// Tests are skipped when the variable is not set.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("CHAMA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CHAMA_TEST_DATABASE_URL not set")
	}
	db, err := NewPostgresConnection(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `DROP TABLE IF EXISTS withdrawal_requests, balance_adjustments, payment_transactions, contributions, savings_cycles, profiles`)
	require.NoError(t, err)
	_, err = Migrate(ctx, db)
	require.NoError(t, err)
	return db
}

func day(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPostgresCycleLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPostgresCycleRepository(db)

	c := &cycle.Cycle{
		ID: uuid.NewString(), Name: "Q1", StartDate: day("2026-01-01"), EndDate: day("2026-03-31"),
		Status: cycle.StatusActive, CreatedBy: "admin",
	}
	require.NoError(t, repo.Insert(ctx, c))

	second := &cycle.Cycle{
		ID: uuid.NewString(), Name: "Q2", StartDate: day("2026-04-01"), EndDate: day("2026-06-30"),
		Status: cycle.StatusActive, CreatedBy: "admin",
	}
	assert.ErrorIs(t, repo.Insert(ctx, second), cycle.ErrActiveCycleExists)

	won, err := repo.ConditionalUpdateStatus(ctx, c.ID, cycle.StatusActive, cycle.StatusEnded, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.ConditionalUpdateStatus(ctx, c.ID, cycle.StatusActive, cycle.StatusEnded, decimal.NewFromInt(999))
	require.NoError(t, err)
	assert.False(t, won)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusEnded, got.Status)
	assert.True(t, got.TotalSavings.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, day("2026-03-31"), got.EndDate)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, cycle.ErrNotFound)
}

func TestPostgresLedgerAndMembers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	members := NewPostgresMemberStore(db)
	ledger := NewPostgresContributionLedger(db)
	tx := NewPostgresTransactor(db)

	for _, id := range []string{"admin", "alice", "bob"} {
		require.NoError(t, members.Create(ctx, &member.Member{ID: id, FullName: id, Status: member.StatusActive}))
	}
	assert.ErrorIs(t, members.Create(ctx, &member.Member{ID: "bob", FullName: "bob", Status: member.StatusActive}), member.ErrDuplicateMember)

	for _, e := range []struct {
		who, date string
		amount    int64
	}{{"alice", "2026-03-01", 100}, {"bob", "2026-03-31", 200}, {"bob", "2026-04-01", 50}} {
		require.NoError(t, ledger.Append(ctx, &contribution.Contribution{
			ID: uuid.NewString(), MemberID: e.who, Amount: decimal.NewFromInt(e.amount),
			ContributionDate: day(e.date), Status: contribution.StatusCompleted,
		}))
	}

	total, err := ledger.SumAmount(ctx, contribution.Filter{Range: calendar.Range{From: day("2026-03-01"), To: day("2026-03-31")}})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(300)), total.String())

	bob := "bob"
	total, err = ledger.SumAmount(ctx, contribution.Filter{MemberID: &bob})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(250)), total.String())

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := members.AddAdjustment(ctx, "alice", decimal.NewFromInt(-20)); err != nil {
			return err
		}
		n, err := members.SetAllBalanceVisible(ctx, true, "admin")
		assert.EqualValues(t, 2, n)
		return err
	})
	require.NoError(t, err)

	admin, err := members.GetByID(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, admin.BalanceVisible)

	alice, err := members.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, alice.BalanceVisible)
	assert.True(t, alice.BalanceAdjustment.Equal(decimal.NewFromInt(-20)))

	n, err := members.ResetAllAdjustments(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestPostgresAdjustmentsAndWithdrawals(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	members := NewPostgresMemberStore(db)
	withdrawals := NewPostgresWithdrawalRepository(db)

	require.NoError(t, members.Create(ctx, &member.Member{ID: "alice", FullName: "alice", Status: member.StatusActive}))

	require.NoError(t, members.RecordAdjustment(ctx, &member.Adjustment{
		ID: uuid.NewString(), MemberID: "alice", AdminID: "admin", Amount: decimal.NewFromInt(-15),
		Kind: member.AdjustmentPenalty, Reason: "Late",
	}))
	assert.ErrorIs(t, members.RecordAdjustment(ctx, &member.Adjustment{
		ID: uuid.NewString(), MemberID: "nobody", AdminID: "admin", Amount: decimal.NewFromInt(5),
		Kind: member.AdjustmentReward, Reason: "x",
	}), member.ErrNotFound)

	history, err := members.ListAdjustments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(-15)))
	assert.Equal(t, "Late", history[0].Reason)

	w := &withdrawal.Request{ID: uuid.NewString(), MemberID: "alice", Amount: decimal.NewFromInt(80), Status: withdrawal.StatusPending}
	require.NoError(t, withdrawals.Create(ctx, w))

	rv := withdrawal.Review{Next: withdrawal.StatusRejected, AdminID: "admin", RejectionReason: "No funds", ReviewedAt: time.Now()}
	won, err := withdrawals.Decide(ctx, w.ID, rv)
	require.NoError(t, err)
	assert.True(t, won)

	rv.Next = withdrawal.StatusApproved
	won, err = withdrawals.Decide(ctx, w.ID, rv)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := withdrawals.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, withdrawal.StatusRejected, got.Status)
	assert.Equal(t, "No funds", got.RejectionReason)
	require.NotNil(t, got.ReviewedAt)

	pending, err := withdrawals.List(ctx, withdrawal.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
