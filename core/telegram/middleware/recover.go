package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/juliabot/core/logger"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic wraps a panic recovered from an update handler.
var ErrPanic = errors.New("telegram: handler panic")

// RecoverMiddleware turns a handler panic into an ErrPanic error so the
// update loop keeps running.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("%w: %v", ErrPanic, r)
			logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelError, "tg.panic",
				slog.String("status", "fail"),
				slog.String("kind", UpdateKind(c.Update())),
				slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
				slog.String("stack", string(debug.Stack())),
			)
		}()
		return next(c)
	}
}
