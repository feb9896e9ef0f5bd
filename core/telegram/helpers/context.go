// Package helpers carries per-update logging context through tele.Context.
package helpers

import (
	"context"
	"time"

	"github.com/m3rciful/juliabot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	ctxKey    = "juliabot.ctx"
	updateKey = "juliabot.update"
)

// Update identifies the update being processed.
type Update struct {
	ID      int
	ChatID  int64
	UserID  int64
	RID     string
	Started time.Time
}

// Seed returns the context for the current update, deriving and storing it
// on first use. Later calls within the same update return the stored values.
func Seed(c tele.Context) (context.Context, Update) {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		meta, _ := c.Get(updateKey).(Update)
		return ctx, meta
	}

	meta := Update{ID: c.Update().ID, Started: time.Now()}
	if chat := c.Chat(); chat != nil {
		meta.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		meta.UserID = user.ID
	}
	meta.RID = logger.BuildRID(meta.ID, meta.ChatID, meta.UserID)

	ctx := logger.WithRID(logger.Background(), meta.RID)
	ctx = logger.WithUpdateMeta(ctx, meta.ID, meta.UserID, meta.ChatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	c.Set(ctxKey, ctx)
	c.Set(updateKey, meta)
	return ctx, meta
}

// BuildContext returns the update context for service calls made by handlers.
func BuildContext(c tele.Context) context.Context {
	ctx, _ := Seed(c)
	return ctx
}

// WithHandler tags the update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" || logger.HandlerFrom(ctx) == handler {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	c.Set(ctxKey, ctx)
	return ctx
}
