package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chama_admin/internal/domain/cycle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCycle_SingleActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")

	_, err := h.cycleSvc.CreateCycle(ctx, adminID, "April 2026", "2026-04-01", "2026-04-30", "")
	assert.ErrorIs(t, err, ErrActiveCycleExists)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "An active cycle already exists", Message(err))

	cycles, err := h.cycleSvc.ListCycles(ctx)
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}

func TestCreateCycle_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cycle   string
		start   string
		end     string
		message string
	}{
		{"empty name", "   ", "2026-01-01", "2026-02-01", "Cycle name is required"},
		{"bad start", "Q1", "2026-13-01", "2026-02-01", "Start date must be a valid date (YYYY-MM-DD)"},
		{"bad end", "Q1", "2026-01-01", "soon", "End date must be a valid date (YYYY-MM-DD)"},
		{"end equals start", "Q1", "2026-01-01", "2026-01-01", "End date must be after start date"},
		{"end before start", "Q1", "2026-02-01", "2026-01-01", "End date must be after start date"},
		{"367 days", "Q1", "2026-01-01", "2027-01-03", "Cycle cannot exceed one year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.cycleSvc.CreateCycle(context.Background(), adminID, tt.cycle, tt.start, tt.end, "")
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.message, Message(err))

			cycles, err := h.cycleSvc.ListCycles(context.Background())
			require.NoError(t, err)
			assert.Empty(t, cycles)
		})
	}
}

func TestCreateCycle_AllowsExactlyOneYear(t *testing.T) {
	h := newHarness(t)

	c := h.createCycle(t, "Year", "2026-01-01", "2027-01-02")

	assert.Equal(t, cycle.StatusActive, c.Status)
	assert.True(t, c.TotalSavings.IsZero())
	assert.Equal(t, adminID, c.CreatedBy)
}

func TestCreateCycle_RequiresAdmin(t *testing.T) {
	h := newHarness(t)

	_, err := h.cycleSvc.CreateCycle(context.Background(), "alice", "Q1", "2026-01-01", "2026-03-31", "")

	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateCycle_ResetsBalances(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.members.AddAdjustment(ctx, "alice", decimal.NewFromInt(-50))
	require.NoError(t, err)
	_, err = h.members.AddAdjustment(ctx, adminID, decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = h.members.SetAllBalanceVisible(ctx, true, "")
	require.NoError(t, err)

	h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")

	for _, id := range []string{"alice", "bob", "carol"} {
		m := h.member(t, id)
		assert.True(t, m.BalanceAdjustment.IsZero(), id)
		assert.False(t, m.BalanceVisible, id)
	}

	admin := h.member(t, adminID)
	assert.True(t, admin.BalanceAdjustment.Equal(decimal.NewFromInt(5)))
	assert.True(t, admin.BalanceVisible)
}

func TestEndCycle_TotalCoversInclusiveRange(t *testing.T) {
	h := newHarness(t)
	c := h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")

	h.deposit(t, "alice", "2026-02-28", 100)
	h.deposit(t, "alice", "2026-03-01", 200)
	h.deposit(t, "bob", "2026-03-31", 300)
	h.deposit(t, "bob", "2026-04-01", 400)

	ended, err := h.cycleSvc.EndCycle(context.Background(), adminID, c.ID)
	require.NoError(t, err)

	assert.Equal(t, cycle.StatusEnded, ended.Status)
	assert.True(t, ended.TotalSavings.Equal(decimal.NewFromInt(500)), ended.TotalSavings.String())

	stored, err := h.cycleSvc.GetCycle(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalSavings.Equal(decimal.NewFromInt(500)))

	// carol contributed nothing and is revealed anyway
	for _, id := range []string{"alice", "bob", "carol"} {
		assert.True(t, h.member(t, id).BalanceVisible, id)
	}
	assert.Equal(t, 1, h.notifier.count())
}

func TestEndCycle_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")
	h.deposit(t, "alice", "2026-03-10", 250)

	first, err := h.cycleSvc.EndCycle(ctx, adminID, c.ID)
	require.NoError(t, err)

	// A late back-dated deposit and a manual re-hide must both survive a second end.
	h.deposit(t, "bob", "2026-03-20", 1000)
	_, err = h.members.SetAllBalanceVisible(ctx, false, "")
	require.NoError(t, err)

	second, err := h.cycleSvc.EndCycle(ctx, adminID, c.ID)
	assert.ErrorIs(t, err, ErrCycleAlreadyEnded)
	assert.ErrorIs(t, err, ErrConflict)
	require.NotNil(t, second)

	assert.Equal(t, cycle.StatusEnded, second.Status)
	assert.True(t, second.TotalSavings.Equal(first.TotalSavings))
	assert.False(t, h.member(t, "alice").BalanceVisible)
	assert.Equal(t, 1, h.notifier.count())
}

func TestEndCycle_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.cycleSvc.EndCycle(context.Background(), adminID, uuid.NewString())
	assert.ErrorIs(t, err, ErrCycleNotFound)

	_, err = h.cycleSvc.EndCycle(context.Background(), adminID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDetectAndSettleExpiredCycles_Boundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")
	h.deposit(t, "alice", "2026-03-31", 75)

	// 20:59 UTC on the 31st is still the 31st in Nairobi.
	settled, err := h.cycleSvc.DetectAndSettleExpiredCycles(ctx, time.Date(2026, 3, 31, 20, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, settled)

	stored, err := h.cycleSvc.GetCycle(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())

	// 21:00 UTC on the 31st is already April 1st in Nairobi.
	settled, err = h.cycleSvc.DetectAndSettleExpiredCycles(ctx, time.Date(2026, 3, 31, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, c.ID, settled[0].ID)
	assert.True(t, settled[0].TotalSavings.Equal(decimal.NewFromInt(75)))
	assert.True(t, h.member(t, "bob").BalanceVisible)

	settled, err = h.cycleSvc.DetectAndSettleExpiredCycles(ctx, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, settled)
	assert.Equal(t, 1, h.notifier.count())
}

func TestSettlement_ConcurrentTriggersHaveOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	c := h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")
	h.deposit(t, "alice", "2026-03-05", 120)
	h.deposit(t, "bob", "2026-03-06", 80)

	after := time.Date(2026, 4, 5, 12, 0, 0, 0, time.UTC)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		manualWins int
		detectWins int
		failures   []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ended, err := h.cycleSvc.EndCycle(ctx, adminID, c.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				manualWins++
			case errors.Is(err, ErrCycleAlreadyEnded):
				if ended == nil || !ended.TotalSavings.Equal(decimal.NewFromInt(200)) {
					failures = append(failures, errors.New("loser did not observe the settled total"))
				}
			default:
				failures = append(failures, err)
			}
		}()
		go func() {
			defer wg.Done()
			settled, err := h.cycleSvc.DetectAndSettleExpiredCycles(ctx, after)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
			}
			detectWins += len(settled)
		}()
	}
	wg.Wait()

	assert.Empty(t, failures)
	assert.Equal(t, 1, manualWins+detectWins)
	assert.Equal(t, 1, h.notifier.count())

	stored, err := h.cycleSvc.GetCycle(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusEnded, stored.Status)
	assert.True(t, stored.TotalSavings.Equal(decimal.NewFromInt(200)))
}

func TestRefreshAndDetectExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.createCycle(t, "February 2026", "2026-02-01", "2026-02-28")

	board, err := h.cycleSvc.RefreshAndDetectExpired(ctx)
	require.NoError(t, err)
	require.Len(t, board.Messages, 1)
	assert.Contains(t, board.Messages[0], `"February 2026" has ended`)
	assert.Nil(t, board.Active)

	h.createCycle(t, "March 2026", "2026-03-05", "2026-03-25")

	board, err = h.cycleSvc.RefreshAndDetectExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, board.Messages)
	require.Len(t, board.Cycles, 2)
	assert.Equal(t, "March 2026", board.Cycles[0].Name)
	require.NotNil(t, board.Active)
	require.NotNil(t, board.Progress)
	assert.InDelta(t, 50.0, board.Progress.PercentComplete, 0.001)
	assert.Equal(t, 10, board.Progress.DaysRemaining)
}

func TestSettlementIsLogged(t *testing.T) {
	h := newHarness(t)
	c := h.createCycle(t, "March 2026", "2026-03-01", "2026-03-31")

	_, err := h.cycleSvc.EndCycle(context.Background(), adminID, c.ID)
	require.NoError(t, err)

	entry := h.logHook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Savings cycle settled", entry.Message)
	assert.Equal(t, TriggerManual, entry.Data["trigger"])
	assert.Equal(t, "0.00", entry.Data["total_savings"])
}
