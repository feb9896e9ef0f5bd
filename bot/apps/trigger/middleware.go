package trigger

import (
	"context"
	"html"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/core/logger"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
	"github.com/m3rciful/juliabot/core/telegram/state"
)

// Matcher finds the rule for a message.
type Matcher interface {
	Match(ctx context.Context, chatID int64, text string) (Rule, bool, error)
}

// Trigger answers messages containing a known keyword and stops the chain.
// Commands and messages sent during a conversation step are never matched.
// When the app is disabled it passes every update through.
type Trigger struct {
	enabled bool
	resolve func(c tele.Context) (Matcher, bool)
}

// Middleware implements tele.MiddlewareFunc.
func (t *Trigger) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		msg := c.Message()
		if !t.enabled || msg == nil || msg.Chat == nil {
			return next(c)
		}
		text := msg.Text
		if text == "" || strings.HasPrefix(text, "/") {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)
		if fsm, ok := state.FromContext(c); ok {
			st, err := fsm.State(ctx)
			if err != nil {
				return err
			}
			if st != state.StateIdle {
				return next(c)
			}
		}

		matcher, ok := t.resolve(c)
		if !ok {
			return next(c)
		}
		rule, found, err := matcher.Match(ctx, msg.Chat.ID, text)
		if err != nil {
			logger.LogEvent(ctx, logger.Cache, slog.LevelWarn, "trigger.match", slog.String("err", err.Error()))
			return next(c)
		}
		if !found {
			return next(c)
		}
		logger.LogEvent(ctx, logger.App, slog.LevelDebug, "trigger.fired", slog.String("keyword", rule.Keyword))
		return c.Send(html.EscapeString(rule.Reply), &tele.SendOptions{ReplyTo: msg, ParseMode: tele.ModeHTML})
	}
}
