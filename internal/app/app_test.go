package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/infra/boltdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const adminID = "admin"

// eat is UTC+3, the offset of the default timezone.
var eat = time.FixedZone("EAT", 3*60*60)

type recordingNotifier struct {
	mu      sync.Mutex
	settled []*cycle.Cycle
}

func (n *recordingNotifier) CycleSettled(_ context.Context, c *cycle.Cycle, _ Trigger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settled = append(n.settled, c)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.settled)
}

type harness struct {
	cycleRepo *boltdb.CycleRepository
	members   *boltdb.MemberStore
	ledger    *boltdb.ContributionLedger

	cycleSvc        *CycleService
	memberSvc       *MemberService
	contributionSvc *ContributionService
	paymentSvc      *PaymentService
	withdrawalSvc   *WithdrawalService

	notifier *recordingNotifier
	logHook  *test.Hook
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := boltdb.Open(filepath.Join(t.TempDir(), "chama.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger)

	h := &harness{
		cycleRepo: boltdb.NewCycleRepository(db),
		members:   boltdb.NewMemberStore(db),
		ledger:    boltdb.NewContributionLedger(db),
		notifier:  &recordingNotifier{},
		logHook:   hook,
		clock:     time.Date(2026, 3, 15, 9, 0, 0, 0, eat),
	}
	tx := boltdb.NewTransactor(db)
	clock := func() time.Time { return h.clock }

	h.cycleSvc = NewCycleService(h.cycleRepo, h.members, h.ledger, tx, h.notifier, adminID, eat, log)
	h.cycleSvc.now = clock
	h.memberSvc = NewMemberService(h.members, h.ledger, tx, adminID, log)
	h.contributionSvc = NewContributionService(h.cycleRepo, h.members, h.ledger, tx, adminID, log)
	h.paymentSvc = NewPaymentService(boltdb.NewPaymentRepository(db), h.members, h.ledger, tx, eat, log)
	h.paymentSvc.now = clock
	h.withdrawalSvc = NewWithdrawalService(boltdb.NewWithdrawalRepository(db), h.members, adminID, log)
	h.withdrawalSvc.now = clock

	for _, id := range []string{adminID, "alice", "bob", "carol"} {
		_, err := h.memberSvc.Register(context.Background(), &member.Member{ID: id, FullName: id})
		require.NoError(t, err)
	}
	return h
}

func (h *harness) deposit(t *testing.T, memberID, date string, amount int64) {
	t.Helper()
	d, err := calendar.ParseDate(date)
	require.NoError(t, err)
	require.NoError(t, h.ledger.Append(context.Background(), &contribution.Contribution{
		ID:               uuid.NewString(),
		MemberID:         memberID,
		Amount:           decimal.NewFromInt(amount),
		ContributionDate: d,
		Status:           contribution.StatusCompleted,
	}))
}

func (h *harness) member(t *testing.T, id string) *member.Member {
	t.Helper()
	m, err := h.members.GetByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (h *harness) createCycle(t *testing.T, name, start, end string) *cycle.Cycle {
	t.Helper()
	c, err := h.cycleSvc.CreateCycle(context.Background(), adminID, name, start, end, "")
	require.NoError(t, err)
	return c
}
