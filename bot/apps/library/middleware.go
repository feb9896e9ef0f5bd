package library

import (
	"errors"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/core/logger"
	"github.com/m3rciful/juliabot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
)

// SectionKey is the context key holding the Section a library button points at.
const SectionKey = "library_section"

// LibraryMenu resolves the section referenced by library buttons before the
// handler runs. When the app is disabled it passes every update through.
type LibraryMenu struct {
	enabled bool
	resolve func(c tele.Context) (Store, bool)
}

// Middleware implements tele.MiddlewareFunc.
func (m *LibraryMenu) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !m.enabled || c.Callback() == nil {
			return next(c)
		}
		if !strings.HasPrefix(callbacks.CallbackKey(c), callbackPrefix) {
			return next(c)
		}
		id, err := callbacks.PayloadInt64(c)
		if err != nil || id <= 0 {
			return next(c)
		}
		store, ok := m.resolve(c)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: unavailableText})
		}

		ctx := tghelpers.BuildContext(c)
		section, err := store.Section(ctx, id)
		if errors.Is(err, ErrNotFound) {
			logger.LogEvent(ctx, logger.App, slog.LevelDebug, "library.section.missing", slog.Int64("section_id", id))
			return c.Respond(&tele.CallbackResponse{Text: notFoundText})
		}
		if err != nil {
			return err
		}
		c.Set(SectionKey, section)
		return next(c)
	}
}

// SectionFrom returns the section resolved by LibraryMenu.
func SectionFrom(c tele.Context) (Section, bool) {
	s, ok := c.Get(SectionKey).(Section)
	return s, ok
}
