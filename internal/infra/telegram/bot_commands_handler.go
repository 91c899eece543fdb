package telegram

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		return Start(c, adminTelegramID, startHelpLogger)
	})
	b.Handle("/help", func(c telebot.Context) error {
		return Help(c, adminTelegramID, startHelpLogger)
	})
}

func Start(c telebot.Context, adminTelegramID int64, logger *logrus.Entry) error {
	senderID := c.Sender().ID
	logCtx := logger.WithField("command", "/start").WithField("sender_id", senderID)
	logCtx.Info("Processing /start command")

	if senderID == adminTelegramID {
		logCtx.Info("User identified as Admin")
		return c.Send("Hello, " + c.Sender().FirstName + "! The chama admin bot is ready. Use /help for the list of commands.")
	}

	logCtx.Info("User is unknown")
	return c.Send("Hello! This bot is for the chama administrator only.")
}

func Help(c telebot.Context, adminTelegramID int64, logger *logrus.Entry) error {
	senderID := c.Sender().ID
	logCtx := logger.WithField("command", "/help").WithField("sender_id", senderID)
	logCtx.Info("Processing /help command")

	if senderID != adminTelegramID {
		logCtx.Info("User is not the admin, sending restricted help.")
		return c.Send("No commands are available to you.")
	}

	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/new_cycle <start> <end> <name>`\n - Start a savings cycle. Dates are YYYY-MM-DD. Resets adjustments and hides balances.\n\n")
	helpText.WriteString("`/end_cycle [cycle-id]`\n - End the active cycle (or the given one) and reveal balances.\n\n")
	helpText.WriteString("`/cycles`\n - List cycles. Expired cycles are settled first.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}
