// Package keyboards holds the inline keyboards and the command menu of the bot.
package keyboards

import (
	"context"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	"github.com/m3rciful/juliabot/core/telegram/keyboard"
)

// Callback uniques of the base keyboards.
const (
	CbMenu     = "menu"
	CbHelp     = "help"
	CbFeedback = "feedback"
	CbCancel   = "cancel"
)

// MainMenu builds the start keyboard. Extra rows are appended below the base
// buttons, for example by enabled feature apps.
func MainMenu(extra ...[]keyboard.InlineBtn) *tele.ReplyMarkup {
	rows := [][]keyboard.InlineBtn{
		{
			{Text: "ℹ️ Help", Unique: CbHelp},
			{Text: "✉️ Feedback", Unique: CbFeedback},
		},
	}
	rows = append(rows, extra...)
	return keyboard.Rows(rows...)
}

// BackToMenu is a single button returning to the main menu.
func BackToMenu() *tele.ReplyMarkup {
	return keyboard.Column(keyboard.InlineBtn{Text: "⬅️ Menu", Unique: CbMenu})
}

// CancelInput aborts the current conversation step.
func CancelInput() *tele.ReplyMarkup {
	return keyboard.Cancel(CbCancel, "")
}

// SetMainMenu publishes the visible commands of reg as the bot menu.
func SetMainMenu(ctx context.Context, client coretelegram.Client, reg *coretelegram.Registry) error {
	return coretelegram.SetMenu(ctx, client, reg)
}
