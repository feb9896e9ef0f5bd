package trigger

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/deps"
	"github.com/m3rciful/juliabot/core/logger"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
)

const (
	usageSet      = "Usage: /trigger keyword = reply"
	usageDelete   = "Usage: /untrigger keyword"
	unavailable   = "Triggers are unavailable right now."
	noRulesText   = "No triggers in this chat."
	savedText     = "Trigger saved."
	removedText   = "Trigger removed."
	notFoundText  = "No such trigger."
	failedSetText = "Failed to save trigger: %s"
)

// App holds the trigger middleware and management commands.
type App struct {
	resolve func(c tele.Context) (*Store, bool)
}

// New creates the app backed by the shared Redis client of each update.
func New() *App {
	return NewWith(func(c tele.Context) (*Store, bool) {
		rdb, ok := deps.Redis(c)
		if !ok {
			return nil, false
		}
		return NewStore(rdb), true
	})
}

// NewWith uses resolve to find the Store for an update.
func NewWith(resolve func(c tele.Context) (*Store, bool)) *App {
	return &App{resolve: resolve}
}

// Middleware returns the Trigger message middleware of the app.
func (a *App) Middleware(enabled bool) *Trigger {
	return &Trigger{
		enabled: enabled,
		resolve: func(c tele.Context) (Matcher, bool) {
			s, ok := a.resolve(c)
			return s, ok
		},
	}
}

// RegisterCommands installs /trigger, /untrigger and /triggers.
func (a *App) RegisterCommands(d *coretelegram.Dispatcher) error {
	if err := d.Command("/trigger", coretelegram.Command{
		Handler:     a.onSet,
		Description: "Add a keyword reply",
		AdminOnly:   true,
	}); err != nil {
		return err
	}
	if err := d.Command("/untrigger", coretelegram.Command{
		Handler:     a.onDelete,
		Description: "Remove a keyword reply",
		AdminOnly:   true,
	}); err != nil {
		return err
	}
	return d.Command("/triggers", coretelegram.Command{
		Handler:     a.onList,
		Description: "List keyword replies",
	})
}

func (a *App) onSet(c tele.Context) error {
	keyword, reply, ok := strings.Cut(c.Message().Payload, "=")
	if !ok || strings.TrimSpace(keyword) == "" || strings.TrimSpace(reply) == "" {
		return c.Send(usageSet)
	}
	store, ok := a.resolve(c)
	if !ok {
		return c.Send(unavailable)
	}
	ctx := tghelpers.WithHandler(c, "trigger.set")
	if err := store.Set(ctx, c.Chat().ID, keyword, reply); err != nil {
		logger.LogEvent(ctx, logger.Cache, slog.LevelWarn, "trigger.set", slog.String("err", err.Error()))
		return c.Send(fmt.Sprintf(failedSetText, html.EscapeString(err.Error())))
	}
	logger.LogEvent(ctx, logger.App, slog.LevelInfo, "trigger.set", slog.String("keyword", NormalizeKeyword(keyword)))
	return c.Send(savedText)
}

func (a *App) onDelete(c tele.Context) error {
	keyword := strings.TrimSpace(c.Message().Payload)
	if keyword == "" {
		return c.Send(usageDelete)
	}
	store, ok := a.resolve(c)
	if !ok {
		return c.Send(unavailable)
	}
	removed, err := store.Delete(tghelpers.WithHandler(c, "trigger.delete"), c.Chat().ID, keyword)
	if err != nil {
		return err
	}
	if !removed {
		return c.Send(notFoundText)
	}
	return c.Send(removedText)
}

func (a *App) onList(c tele.Context) error {
	store, ok := a.resolve(c)
	if !ok {
		return c.Send(unavailable)
	}
	rules, err := store.List(tghelpers.WithHandler(c, "trigger.list"), c.Chat().ID)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return c.Send(noRulesText)
	}
	var b strings.Builder
	b.WriteString("<b>Triggers</b>")
	for _, r := range rules {
		fmt.Fprintf(&b, "\n<code>%s</code> → %s", html.EscapeString(r.Keyword), html.EscapeString(r.Reply))
	}
	return c.Send(b.String())
}
