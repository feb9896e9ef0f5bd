package handlers

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/keyboards"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
)

// RegisterCallbacks installs the main menu buttons and the callback fallback.
func (h *Handlers) RegisterCallbacks(d *coretelegram.Dispatcher) error {
	d.CallbackQuery.Handle(keyboards.CbMenu, h.onMenu)
	d.CallbackQuery.Handle(keyboards.CbHelp, h.onHelpButton)
	d.CallbackQuery.Handle(keyboards.CbFeedback, h.onFeedbackButton)
	d.CallbackQuery.Handle(keyboards.CbCancel, h.onCancelButton)
	d.CallbackQuery.Handle(tele.OnCallback, h.onUnknownCallback)
	return nil
}

func (h *Handlers) onMenu(c tele.Context) error {
	if err := c.Edit(greeting(c), keyboards.MainMenu(h.menuRows...)); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) onHelpButton(c tele.Context) error {
	if err := c.Edit(h.help(), keyboards.BackToMenu()); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) onFeedbackButton(c tele.Context) error {
	if err := awaitFeedback(c); err != nil {
		return err
	}
	if err := c.Edit(feedbackPrompt, keyboards.CancelInput()); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) onCancelButton(c tele.Context) error {
	if _, err := cancelInput(c); err != nil {
		return err
	}
	if err := c.Edit(cancelledText, keyboards.BackToMenu()); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) onUnknownCallback(c tele.Context) error {
	return c.Respond(&tele.CallbackResponse{Text: unsupportedAction})
}
