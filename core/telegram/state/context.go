package state

import (
	"context"
	"log/slog"
	"maps"

	"github.com/m3rciful/juliabot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "fsm_context"

// Context binds a Storage to the key of the update being handled.
type Context struct {
	storage Storage
	key     Key
}

// NewContext returns a handle for key backed by storage.
func NewContext(storage Storage, key Key) *Context {
	return &Context{storage: storage, key: key}
}

// KeyFor derives the storage key for the chat and sender of c.
func KeyFor(botID int64, c tele.Context) Key {
	key := Key{BotID: botID}
	if chat := c.Chat(); chat != nil {
		key.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		key.UserID = user.ID
	}
	if key.ChatID == 0 {
		key.ChatID = key.UserID
	}
	return key
}

// Key returns the storage key of the conversation.
func (f *Context) Key() Key {
	return f.key
}

// State returns the current state.
func (f *Context) State(ctx context.Context) (State, error) {
	return f.storage.GetState(ctx, f.key)
}

// SetState moves the conversation to st.
func (f *Context) SetState(ctx context.Context, st State) error {
	if err := f.storage.SetState(ctx, f.key, st); err != nil {
		return err
	}
	logger.FSM.LogAttrs(ctx, slog.LevelDebug, "fsm.transition",
		slog.String("event", "fsm.transition"),
		slog.Int64("chat_id", f.key.ChatID),
		slog.Int64("user_id", f.key.UserID),
		slog.String("state", stateName(st)),
	)
	return nil
}

// Data returns the conversation data.
func (f *Context) Data(ctx context.Context) (map[string]any, error) {
	return f.storage.GetData(ctx, f.key)
}

// SetData replaces the conversation data.
func (f *Context) SetData(ctx context.Context, data map[string]any) error {
	return f.storage.SetData(ctx, f.key, data)
}

// Update merges kv into the stored data and returns the result.
func (f *Context) Update(ctx context.Context, kv map[string]any) (map[string]any, error) {
	data, err := f.storage.GetData(ctx, f.key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]any, len(kv))
	}
	maps.Copy(data, kv)
	if err := f.storage.SetData(ctx, f.key, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Clear resets both state and data.
func (f *Context) Clear(ctx context.Context) error {
	if err := f.SetState(ctx, StateIdle); err != nil {
		return err
	}
	return f.storage.SetData(ctx, f.key, nil)
}

// Attach stores f in the handler context.
func Attach(c tele.Context, f *Context) {
	c.Set(contextKey, f)
}

// FromContext returns the FSM handle attached to c by the dispatcher.
func FromContext(c tele.Context) (*Context, bool) {
	if c == nil {
		return nil, false
	}
	f, ok := c.Get(contextKey).(*Context)
	return f, ok && f != nil
}

// Middleware attaches a Context for the current chat and sender to every update.
func Middleware(storage Storage, botID func() int64) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var id int64
			if botID != nil {
				id = botID()
			}
			Attach(c, NewContext(storage, KeyFor(id, c)))
			return next(c)
		}
	}
}

func stateName(st State) string {
	if st == StateIdle {
		return "idle"
	}
	return string(st)
}
