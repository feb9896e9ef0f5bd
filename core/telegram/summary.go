package telegram

import (
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/juliabot/core/logger"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
	"github.com/m3rciful/juliabot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// withSummary wraps h so that every invocation ends with one handler.handled record.
func withSummary(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		tghelpers.WithHandler(c, name)
		err := h(c)
		logHandlerSummary(c, name, start, err)
		return err
	}
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, err error) {
	ctx := tghelpers.WithHandler(c, handlerName)
	sent := middleware.CountersFrom(c)

	status := "ok"
	if err != nil {
		status = "fail"
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", status),
		slog.Int("messages", sent.Messages),
		slog.Bool("kb", sent.Keyboard),
		slog.Bool("answered", sent.Answered),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "\a")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	if c, ok := err.(coder); ok {
		code := strings.TrimSpace(c.Code())
		if code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}
