package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/calendar"
	"chama_admin/internal/domain/cycle"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgUnauthorized = "Error: you are not allowed to run this command."
	endCycleUnique  = "end_cycle"
)

// CycleCommands is the part of the cycle service the bot drives.
type CycleCommands interface {
	CreateCycle(ctx context.Context, actorID, name, startDate, endDate, notes string) (*cycle.Cycle, error)
	EndCycle(ctx context.Context, actorID, cycleID string) (*cycle.Cycle, error)
	RefreshAndDetectExpired(ctx context.Context) (*app.Board, error)
}

// AdminHandlers serves the admin's cycle commands. Only messages from the
// configured admin chat are acted on; they run as the admin member.
type AdminHandlers struct {
	cycles          CycleCommands
	adminTelegramID int64
	adminUserID     string
	currency        string
	logger          *logrus.Entry
}

func NewAdminHandlers(cycles CycleCommands, adminTelegramID int64, adminUserID, currency string, baseLogger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{
		cycles:          cycles,
		adminTelegramID: adminTelegramID,
		adminUserID:     adminUserID,
		currency:        currency,
		logger:          baseLogger.WithField("component", "telegram_admin"),
	}
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, h *AdminHandlers) {
	b.Handle("/new_cycle", func(c telebot.Context) error { return h.NewCycle(ctx, c) })
	b.Handle("/end_cycle", func(c telebot.Context) error { return h.EndCycle(ctx, c) })
	b.Handle("/cycles", func(c telebot.Context) error { return h.Cycles(ctx, c) })

	endBtn := (&telebot.ReplyMarkup{}).Data("End cycle", endCycleUnique)
	b.Handle(&endBtn, func(c telebot.Context) error { return h.EndCycleButton(ctx, c) })
}

func (h *AdminHandlers) authorized(c telebot.Context, handler string) (*logrus.Entry, bool) {
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   handler,
		"sender_id": c.Sender().ID,
	})
	handlerLogger.Info("Command received")

	if c.Sender().ID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return handlerLogger, false
	}
	return handlerLogger, true
}

// NewCycle handles /new_cycle <start> <end> <name...>.
func (h *AdminHandlers) NewCycle(ctx context.Context, c telebot.Context) error {
	handlerLogger, ok := h.authorized(c, "/new_cycle")
	if !ok {
		return c.Send(msgUnauthorized)
	}

	args := c.Args()
	if len(args) < 3 {
		handlerLogger.WithField("args_count", len(args)).Warn("Invalid command format")
		return c.Send("Invalid format. Use: /new_cycle <YYYY-MM-DD start> <YYYY-MM-DD end> <name>")
	}
	name := strings.Join(args[2:], " ")

	created, err := h.cycles.CreateCycle(ctx, h.adminUserID, name, args[0], args[1], "")
	if err != nil {
		h.logFailure(handlerLogger, err, "Failed to create cycle")
		return c.Send("Error: " + app.Message(err))
	}

	handlerLogger.WithField("cycle_id", created.ID).Info("Cycle created")
	return c.Send(fmt.Sprintf("Cycle %q started (%s). Balances are hidden until it ends.", created.Name, created.Range()))
}

// EndCycle handles /end_cycle [cycle-id]; without an ID it ends the active cycle.
func (h *AdminHandlers) EndCycle(ctx context.Context, c telebot.Context) error {
	handlerLogger, ok := h.authorized(c, "/end_cycle")
	if !ok {
		return c.Send(msgUnauthorized)
	}

	var cycleID string
	if args := c.Args(); len(args) > 0 {
		cycleID = args[0]
	} else {
		board, err := h.cycles.RefreshAndDetectExpired(ctx)
		if err != nil {
			h.logFailure(handlerLogger, err, "Failed to load cycles")
			return c.Send("Error: " + app.Message(err))
		}
		if board.Active == nil {
			return c.Send(strings.Join(append(board.Messages, "There is no active cycle."), "\n"))
		}
		cycleID = board.Active.ID
	}

	return c.Send(h.endCycle(ctx, handlerLogger, cycleID))
}

// EndCycleButton handles the inline "End cycle" button under /cycles.
func (h *AdminHandlers) EndCycleButton(ctx context.Context, c telebot.Context) error {
	handlerLogger, ok := h.authorized(c, "end_cycle_button")
	if !ok {
		return c.Respond(&telebot.CallbackResponse{Text: msgUnauthorized})
	}

	text := h.endCycle(ctx, handlerLogger, c.Callback().Data)
	if err := c.Respond(&telebot.CallbackResponse{Text: "Done"}); err != nil {
		handlerLogger.WithError(err).Warn("Failed to acknowledge callback")
	}
	return c.Send(text)
}

func (h *AdminHandlers) endCycle(ctx context.Context, handlerLogger *logrus.Entry, cycleID string) string {
	handlerLogger = handlerLogger.WithField("cycle_id", cycleID)

	ended, err := h.cycles.EndCycle(ctx, h.adminUserID, cycleID)
	switch {
	case errors.Is(err, app.ErrCycleAlreadyEnded) && ended != nil:
		handlerLogger.Info("Cycle already ended")
		return fmt.Sprintf("Cycle %q has already ended. Total savings: %s %s", ended.Name, h.currency, ended.TotalSavings.StringFixed(2))
	case err != nil:
		h.logFailure(handlerLogger, err, "Failed to end cycle")
		return "Error: " + app.Message(err)
	}

	handlerLogger.Info("Cycle ended")
	return fmt.Sprintf("Cycle %q ended. Total savings: %s %s\nBalances are now visible to all members.",
		ended.Name, h.currency, ended.TotalSavings.StringFixed(2))
}

// Cycles handles /cycles: settles anything expired and lists every cycle.
func (h *AdminHandlers) Cycles(ctx context.Context, c telebot.Context) error {
	handlerLogger, ok := h.authorized(c, "/cycles")
	if !ok {
		return c.Send(msgUnauthorized)
	}

	board, err := h.cycles.RefreshAndDetectExpired(ctx)
	if err != nil {
		h.logFailure(handlerLogger, err, "Failed to load cycles")
		return c.Send("Error: " + app.Message(err))
	}
	handlerLogger.WithField("cycles_count", len(board.Cycles)).Info("Successfully retrieved cycle list")

	text := FormatBoard(board, h.currency)
	if board.Active == nil {
		return c.Send(text)
	}

	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data("End "+board.Active.Name, endCycleUnique, board.Active.ID)))
	return c.Send(text, markup)
}

func (h *AdminHandlers) logFailure(l *logrus.Entry, err error, msg string) {
	if errors.Is(err, app.ErrTransient) {
		l.WithError(err).Error(msg)
		return
	}
	l.WithError(err).Warn(msg)
}

// FormatBoard renders the cycle board as a plain-text message.
func FormatBoard(board *app.Board, currency string) string {
	var response strings.Builder
	for _, m := range board.Messages {
		response.WriteString(m)
		response.WriteString("\n")
	}
	if len(board.Messages) > 0 {
		response.WriteString("\n")
	}

	if len(board.Cycles) == 0 {
		response.WriteString("No cycles yet. Start one with /new_cycle.")
		return response.String()
	}

	response.WriteString("--- Savings cycles ---\n")
	for _, c := range board.Cycles {
		if c.IsActive() {
			response.WriteString(fmt.Sprintf("* %s: %s to %s, active", c.Name, calendar.Format(c.StartDate), calendar.Format(c.EndDate)))
			if board.Active != nil && board.Active.ID == c.ID && board.Progress != nil {
				response.WriteString(fmt.Sprintf(" (%.0f%%, %d days left)", board.Progress.PercentComplete, board.Progress.DaysRemaining))
			}
		} else {
			response.WriteString(fmt.Sprintf("* %s: %s to %s, ended, total %s %s",
				c.Name, calendar.Format(c.StartDate), calendar.Format(c.EndDate), currency, c.TotalSavings.StringFixed(2)))
		}
		response.WriteString("\n")
	}
	return response.String()
}
