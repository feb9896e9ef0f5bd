package handlers

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/keyboards"
	"github.com/m3rciful/juliabot/core/logger"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
	"github.com/m3rciful/juliabot/core/telegram/state"
)

// RegisterMessages installs the feedback input step and the unknown text reply.
func (h *Handlers) RegisterMessages(d *coretelegram.Dispatcher) error {
	d.Message.HandleState(StateFeedback, h.onFeedbackText)
	d.Message.Handle(tele.OnText, h.onUnknownText)
	return nil
}

func (h *Handlers) onFeedbackText(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.WithHandler(c, "feedback")
	fsm, ok := state.FromContext(c)
	if ok {
		defer func() {
			if err := fsm.Clear(ctx); err != nil {
				logger.LogEvent(ctx, logger.FSM, slog.LevelWarn, "fsm.clear", slog.String("err", err.Error()))
			}
		}()
	}

	store, ok := h.feedback(c)
	if !ok {
		return c.Send(feedbackDown)
	}
	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	id, err := store.Save(ctx, c.Sender().ID, chatID, c.Text())
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "feedback.save", slog.String("err", err.Error()))
		return c.Send(feedbackDown)
	}
	logger.LogEvent(ctx, logger.App, slog.LevelInfo, "feedback.save", slog.String("feedback_id", id.String()))
	return c.Send(feedbackThanks, keyboards.BackToMenu())
}

func (h *Handlers) onUnknownText(c tele.Context) error {
	return c.Send(unknownText)
}
