// Package middlewares holds the bot-wide update middlewares.
package middlewares

import (
	"context"
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/deps"
	"github.com/m3rciful/juliabot/bot/users"
	"github.com/m3rciful/juliabot/core/logger"
	tghelpers "github.com/m3rciful/juliabot/core/telegram/helpers"
)

// UserKey is the context key holding the users.User of the sender.
const UserKey = "user"

// Registrar persists a user and reports whether it was new.
type Registrar interface {
	Register(ctx context.Context, u users.User) (bool, error)
}

// UserRegisterCheck makes sure every sender has a users row. Each user is
// written once per process; later updates only see the cached profile.
type UserRegisterCheck struct {
	seen    sync.Map
	resolve func(c tele.Context) (Registrar, bool)
}

// NewUserRegisterCheck resolves the users repository from the session factory.
func NewUserRegisterCheck() *UserRegisterCheck {
	return NewUserRegisterCheckWith(func(c tele.Context) (Registrar, bool) {
		db, ok := deps.DB(c)
		if !ok {
			return nil, false
		}
		return users.NewRepository(db), true
	})
}

// NewUserRegisterCheckWith uses resolve to find the registrar for an update.
func NewUserRegisterCheckWith(resolve func(c tele.Context) (Registrar, bool)) *UserRegisterCheck {
	return &UserRegisterCheck{resolve: resolve}
}

// Middleware implements tele.MiddlewareFunc.
func (m *UserRegisterCheck) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || sender.IsBot {
			return next(c)
		}
		u := users.FromTelegram(sender)
		c.Set(UserKey, u)

		if _, ok := m.seen.Load(sender.ID); ok {
			return next(c)
		}
		registrar, ok := m.resolve(c)
		if !ok {
			return next(c)
		}

		ctx := tghelpers.BuildContext(c)
		created, err := registrar.Register(ctx, u)
		if err != nil {
			logger.LogEvent(ctx, logger.DB, slog.LevelWarn, "user.register",
				slog.Int64("user_id", sender.ID),
				slog.String("err", err.Error()),
			)
			return next(c)
		}
		m.seen.Store(sender.ID, struct{}{})
		if created {
			logger.LogEvent(ctx, logger.App, slog.LevelInfo, "user.register",
				slog.String("status", "created"),
				slog.Int64("user_id", sender.ID),
				slog.String("username", logger.SanitizeLimit(sender.Username, 64)),
			)
		}
		return next(c)
	}
}

// UserFrom returns the sender profile stored by UserRegisterCheck.
func UserFrom(c tele.Context) (users.User, bool) {
	u, ok := c.Get(UserKey).(users.User)
	return u, ok
}
