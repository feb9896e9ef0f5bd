package handlers

import (
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/keyboards"
	"github.com/m3rciful/juliabot/core/logger"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
	"github.com/m3rciful/juliabot/core/telegram/state"
)

// RegisterCommands installs the public commands and the hidden admin ones.
func (h *Handlers) RegisterCommands(d *coretelegram.Dispatcher) error {
	reg := d.Registry()
	h.help = func() string { return helpText(reg) }

	list := []struct {
		name string
		cmd  coretelegram.Command
	}{
		{"/start", coretelegram.Command{Handler: h.onStart, Description: "Open the main menu", Aliases: []string{"menu"}}},
		{"/help", coretelegram.Command{Handler: h.onHelp, Description: "Show available commands"}},
		{"/cancel", coretelegram.Command{Handler: h.onCancel, Description: "Cancel the current action"}},
		{"/feedback", coretelegram.Command{Handler: h.onFeedback, Description: "Send a message to the owner"}},
		{"/stats", coretelegram.Command{Handler: h.onStats, Description: "Bot statistics", AdminOnly: true, Hidden: true}},
		{"/feedback_recent", coretelegram.Command{Handler: h.onRecentFeedback, Description: "Latest feedback", AdminOnly: true, Hidden: true}},
	}
	for _, it := range list {
		if err := d.Command(it.name, it.cmd); err != nil {
			return err
		}
	}
	return nil
}

func helpText(reg *coretelegram.Registry) string {
	var b strings.Builder
	b.WriteString("<b>Commands</b>\n")
	for _, cmd := range reg.ListCommands(true) {
		fmt.Fprintf(&b, "/%s - %s\n", cmd.Text, html.EscapeString(cmd.Description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handlers) onStart(c tele.Context) error {
	if fsm, ok := state.FromContext(c); ok {
		if err := fsm.Clear(tghelpers.BuildContext(c)); err != nil {
			return err
		}
	}
	return c.Send(greeting(c), keyboards.MainMenu(h.menuRows...))
}

func (h *Handlers) onHelp(c tele.Context) error {
	return c.Send(h.help(), keyboards.BackToMenu())
}

func (h *Handlers) onCancel(c tele.Context) error {
	cancelled, err := cancelInput(c)
	if err != nil {
		return err
	}
	if !cancelled {
		return c.Send(nothingToCancel)
	}
	return c.Send(cancelledText, keyboards.BackToMenu())
}

func (h *Handlers) onFeedback(c tele.Context) error {
	if err := awaitFeedback(c); err != nil {
		return err
	}
	return c.Send(feedbackPrompt, keyboards.CancelInput())
}

func (h *Handlers) onStats(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "stats")
	counter, ok := h.users(c)
	if !ok {
		return c.Send("Database is not available.")
	}
	n, err := counter.Count(ctx)
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "stats.failed", slog.String("err", err.Error()))
		return c.Send("Failed to read statistics.")
	}
	return c.Send(fmt.Sprintf("Users: <b>%d</b>", n))
}

const (
	defaultRecent = 5
	maxRecent     = 20
	previewRunes  = 300
)

// onRecentFeedback lists the latest feedback. An optional argument sets how many.
func (h *Handlers) onRecentFeedback(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "feedback.recent")
	limit := defaultRecent
	if n, err := strconv.Atoi(strings.TrimSpace(c.Message().Payload)); err == nil && n > 0 {
		limit = min(n, maxRecent)
	}

	store, ok := h.feedback(c)
	if !ok {
		return c.Send("Database is not available.")
	}
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "feedback.recent.failed", slog.String("err", err.Error()))
		return c.Send("Failed to read feedback.")
	}
	if len(entries) == 0 {
		return c.Send(noFeedback)
	}

	var b strings.Builder
	b.WriteString("<b>Recent feedback</b>")
	for _, e := range entries {
		body := e.Body
		if r := []rune(body); len(r) > previewRunes {
			body = string(r[:previewRunes]) + "…"
		}
		fmt.Fprintf(&b, "\n\n<i>%s</i> from <code>%d</code>\n%s",
			e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.UserID, html.EscapeString(body))
	}
	return c.Send(b.String())
}

// cancelInput leaves any FSM state and reports whether there was one.
func cancelInput(c tele.Context) (bool, error) {
	fsm, ok := state.FromContext(c)
	if !ok {
		return false, nil
	}
	ctx := tghelpers.BuildContext(c)
	st, err := fsm.State(ctx)
	if err != nil {
		return false, err
	}
	if st == state.StateIdle {
		return false, nil
	}
	return true, fsm.Clear(ctx)
}

func awaitFeedback(c tele.Context) error {
	fsm, ok := state.FromContext(c)
	if !ok {
		return fmt.Errorf("handlers: fsm context missing")
	}
	return fsm.SetState(tghelpers.BuildContext(c), StateFeedback)
}
