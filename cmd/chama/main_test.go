package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/infra/boltdb"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoster = `
members:
  - user_id: admin
    full_name: Grace Admin
  - user_id: alice
    full_name: Alice Wanjiku
    phone_number: "254712345678"
    daily_contribution_amount: "100.50"
`

func TestParseRoster(t *testing.T) {
	ro, err := parseRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)
	require.Len(t, ro.Members, 2)

	m, err := ro.Members[1].toMember()
	require.NoError(t, err)
	assert.Equal(t, "alice", m.ID)
	assert.True(t, m.DailyContributionAmount.Equal(decimal.RequireFromString("100.50")))

	_, err = rosterMember{ID: "x", DailyContributionAmount: "lots"}.toMember()
	assert.Error(t, err)
}

func TestSeedMembersSkipsExisting(t *testing.T) {
	db, err := boltdb.Open(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	svc := app.NewMemberService(boltdb.NewMemberStore(db), boltdb.NewContributionLedger(db), boltdb.NewTransactor(db), "admin", logger.WithField("t", "seed"))

	ro, err := parseRoster(strings.NewReader(sampleRoster))
	require.NoError(t, err)

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, seedMembers(cmd, svc, ro))
	assert.Contains(t, out.String(), "2 member(s) registered, 0 already present")

	out.Reset()
	require.NoError(t, seedMembers(cmd, svc, ro))
	assert.Contains(t, out.String(), "0 member(s) registered, 2 already present")

	members, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestPrintBoard(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	active := &cycle.Cycle{
		ID:        "c1",
		Name:      "March",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 30),
		Status:    cycle.StatusActive,
	}
	board := &app.Board{
		Cycles:   []*cycle.Cycle{active},
		Active:   active,
		Progress: &cycle.Progress{PercentComplete: 50, DaysRemaining: 15},
		Messages: []string{`"February" has ended. Balances are now visible to all members.`},
	}

	var out bytes.Buffer
	printBoard(&out, board, "KES")

	assert.Contains(t, out.String(), `"February" has ended`)
	assert.Contains(t, out.String(), "2026-03-01..2026-03-31")
	assert.Contains(t, out.String(), "Active: March, 50% complete, 15 day(s) remaining")

	out.Reset()
	printBoard(&out, &app.Board{}, "KES")
	assert.Equal(t, "No cycles yet.\n", out.String())
}
