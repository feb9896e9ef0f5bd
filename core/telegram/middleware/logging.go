package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/juliabot/core/logger"
	"github.com/m3rciful/juliabot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware seeds the update context and, when the debug sampler
// allows it, logs an update.received line before dispatch and update.done after.
// It sits in the outer chain, which runs once per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, meta := tghelpers.Seed(c)
		if !logger.ShouldSampleDebug() {
			return next(c)
		}

		log := logger.Component("tg")
		logger.LogEvent(ctx, log, slog.LevelDebug, "update.received", receiptAttrs(c, meta)...)
		err := next(c)
		logger.LogEvent(ctx, log, slog.LevelDebug, "update.done",
			slog.String("status", logger.Status(err)),
			slog.String("kind", UpdateKind(c.Update())),
			slog.Duration("duration", logger.RoundMS(time.Since(meta.Started))),
		)
		return err
	}
}

func receiptAttrs(c tele.Context, meta tghelpers.Update) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("rid", meta.RID),
		slog.Int("update_id", meta.ID),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.Int64("chat_id", chat.ID), slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		attrs = append(attrs, slog.Int64("user_id", user.ID))
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	switch {
	case c.Callback() != nil:
		if key := callbacks.CallbackKey(c); key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload := callbacks.CallbackPayload(c); payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case c.Message() != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
