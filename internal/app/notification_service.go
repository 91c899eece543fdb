package app

import (
	"context"
	"fmt"

	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/cycle"
	domainTelegram "chama_admin/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Notifier is told about every settlement this process wins.
type Notifier interface {
	CycleSettled(ctx context.Context, c *cycle.Cycle, trigger Trigger)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) CycleSettled(context.Context, *cycle.Cycle, Trigger) {}

// AdminNotificationService sends settlement notices to the admin's Telegram chat.
// Delivery failures are logged and never fail the settlement. A send still in
// flight when ctx is done is abandoned.
type AdminNotificationService struct {
	telegramClient  domainTelegram.Client
	adminTelegramID int64
	currency        string
	logger          *logrus.Entry
}

func NewAdminNotificationService(tc domainTelegram.Client, adminTelegramID int64, currency string, logger *logrus.Entry) *AdminNotificationService {
	return &AdminNotificationService{
		telegramClient:  tc,
		adminTelegramID: adminTelegramID,
		currency:        currency,
		logger:          logger.WithField("component", "admin_notifier"),
	}
}

func (s *AdminNotificationService) CycleSettled(ctx context.Context, c *cycle.Cycle, trigger Trigger) {
	if s.adminTelegramID == 0 {
		s.logger.Warn("Admin Telegram ID not configured. Cannot send settlement notice.")
		return
	}

	text := SettlementNotice(c, trigger, s.currency)
	done := make(chan error, 1)
	go func() {
		done <- s.telegramClient.SendMessage(s.adminTelegramID, text, &telebot.SendOptions{ParseMode: telebot.ModeDefault})
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		s.logger.WithError(ctx.Err()).WithField("cycle_id", c.ID).Warn("Gave up waiting for settlement notice delivery")
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("cycle_id", c.ID).Error("Failed to send settlement notice to admin")
		return
	}
	s.logger.WithField("cycle_id", c.ID).Info("Settlement notice sent to admin")
}

// SettlementNotice is the text announcing that c has ended.
func SettlementNotice(c *cycle.Cycle, trigger Trigger, currency string) string {
	how := "was ended by the admin"
	if trigger == TriggerExpiry {
		how = "has reached its end date"
	}
	return fmt.Sprintf("Cycle %q (%s to %s) %s.\nTotal savings: %s %s\nBalances are now visible to all members.",
		c.Name, calendar.Format(c.StartDate), calendar.Format(c.EndDate), how,
		currency, c.TotalSavings.StringFixed(2))
}
