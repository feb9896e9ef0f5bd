package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/juliabot/core/config"
	"github.com/m3rciful/juliabot/core/logger"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
)

// RegisterFunc installs handlers on the dispatcher.
type RegisterFunc func(d *coretelegram.Dispatcher) error

// Module is an optional handler set switched on by configuration.
type Module struct {
	Name     string
	Enabled  func(cfg *coreconfig.Config) bool
	Register RegisterFunc
}

// Handlers describes everything the bot contributes to the dispatcher.
type Handlers struct {
	// CallbackMiddlewares and MessageMiddlewares run in slice order.
	CallbackMiddlewares []coretelegram.Middleware
	MessageMiddlewares  []coretelegram.Middleware

	// Base handler sets are always registered, before any module.
	Base    []RegisterFunc
	Modules []Module
}

// Apply registers the middlewares in order, then the base handlers, then
// every module enabled by cfg.
func (h Handlers) Apply(ctx context.Context, cfg *coreconfig.Config, d *coretelegram.Dispatcher) error {
	for _, mw := range h.CallbackMiddlewares {
		d.CallbackQuery.Use(mw.Name, mw.Use)
	}
	for _, mw := range h.MessageMiddlewares {
		d.Message.Use(mw.Name, mw.Use)
	}

	for i, register := range h.Base {
		if register == nil {
			continue
		}
		if err := register(d); err != nil {
			return fmt.Errorf("bootstrap: base handlers #%d: %w", i, err)
		}
	}

	for _, m := range h.Modules {
		if m.Enabled == nil || !m.Enabled(cfg) {
			logger.TWire.LogAttrs(ctx, slog.LevelDebug, "module disabled",
				slog.String("event", "module.skip"),
				slog.String("app", m.Name),
			)
			continue
		}
		if m.Register == nil {
			return fmt.Errorf("bootstrap: module %s has no handlers", m.Name)
		}
		if err := m.Register(d); err != nil {
			return fmt.Errorf("bootstrap: module %s: %w", m.Name, err)
		}
		logger.TWire.LogAttrs(ctx, slog.LevelInfo, m.Name+" enabled",
			slog.String("event", "module.register"),
			slog.String("app", m.Name),
		)
	}
	return nil
}
