package main

import (
	"fmt"
	"time"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/contribution"
	"chama_admin/internal/domain/cycle"
	"chama_admin/internal/domain/member"
	"chama_admin/internal/domain/payment"
	"chama_admin/internal/domain/withdrawal"
	"chama_admin/internal/infra/boltdb"
	"chama_admin/internal/infra/config"
	idb "chama_admin/internal/infra/database"
	"chama_admin/internal/infra/logger"
	"chama_admin/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// stores is the repository set of the configured storage driver.
type stores struct {
	cycles      cycle.Repository
	members     member.Store
	ledger      contribution.Ledger
	payments    payment.Repository
	withdrawals withdrawal.Repository
	tx          app.Transactor
	close       func() error
}

func openStores(cfg *config.AppConfig) (*stores, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverBolt:
		db, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return &stores{
			cycles:      boltdb.NewCycleRepository(db),
			members:     boltdb.NewMemberStore(db),
			ledger:      boltdb.NewContributionLedger(db),
			payments:    boltdb.NewPaymentRepository(db),
			withdrawals: boltdb.NewWithdrawalRepository(db),
			tx:          boltdb.NewTransactor(db),
			close:       db.Close,
		}, nil
	case config.StorageDriverPostgres:
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stores{
			cycles:      idb.NewPostgresCycleRepository(db),
			members:     idb.NewPostgresMemberStore(db),
			ledger:      idb.NewPostgresContributionLedger(db),
			payments:    idb.NewPostgresPaymentRepository(db),
			withdrawals: idb.NewPostgresWithdrawalRepository(db),
			tx:          idb.NewPostgresTransactor(db),
			close:       db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

type services struct {
	cycles        *app.CycleService
	members       *app.MemberService
	contributions *app.ContributionService
	payments      *app.PaymentService
	withdrawals   *app.WithdrawalService
}

func newServices(cfg *config.AppConfig, st *stores, notifier app.Notifier) *services {
	return &services{
		cycles: app.NewCycleService(st.cycles, st.members, st.ledger, st.tx, notifier,
			cfg.AdminUserID, cfg.Location, logger.Log.WithField("service", "cycles")),
		members: app.NewMemberService(st.members, st.ledger, st.tx, cfg.AdminUserID,
			logger.Log.WithField("service", "members")),
		contributions: app.NewContributionService(st.cycles, st.members, st.ledger, st.tx,
			cfg.AdminUserID, logger.Log.WithField("service", "contributions")),
		payments: app.NewPaymentService(st.payments, st.members, st.ledger, st.tx,
			cfg.Location, logger.Log.WithField("service", "payments")),
		withdrawals: app.NewWithdrawalService(st.withdrawals, st.members, cfg.AdminUserID,
			logger.Log.WithField("service", "withdrawals")),
	}
}

// loadConfig loads configuration and initializes the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, nil
}

// newBot creates the Telegram bot, or returns nil when no token is configured.
func newBot(cfg *config.AppConfig, poll bool) (*telebot.Bot, error) {
	if !cfg.TelegramEnabled() {
		return nil, nil
	}
	botLogger := logger.Component("telebot")

	pref := telebot.Settings{
		Token: cfg.TelegramToken,
		OnError: func(err error, c telebot.Context) {
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":    c.Text(),
					"sender":  c.Sender().ID,
					"chat_id": c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	if poll {
		pref.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	}

	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// notifierFor sends settlement notices through b when the bot is enabled.
func notifierFor(cfg *config.AppConfig, b *telebot.Bot) app.Notifier {
	if b == nil {
		return app.NopNotifier{}
	}
	return app.NewAdminNotificationService(telegram.NewTelebotAdapter(b), cfg.AdminTelegramID,
		cfg.Currency, logger.Component("notifications"))
}
