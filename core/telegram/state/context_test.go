package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func newOfflineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true, Synchronous: true})
	require.NoError(t, err)
	return b
}

func TestContextUpdateAndClear(t *testing.T) {
	ctx := context.Background()
	fsm := NewContext(NewMemoryStorage(), Key{ChatID: 10, UserID: 20})

	require.NoError(t, fsm.SetState(ctx, "await"))
	data, err := fsm.Update(ctx, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, data)

	data, err = fsm.Update(ctx, map[string]any{"b": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, data)

	require.NoError(t, fsm.Clear(ctx))
	st, err := fsm.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
	data, err = fsm.Data(ctx)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMiddlewareAttachesKey(t *testing.T) {
	b := newOfflineBot(t)
	storage := NewMemoryStorage()

	var got *Context
	h := Middleware(storage, func() int64 { return 99 })(func(c tele.Context) error {
		f, ok := FromContext(c)
		require.True(t, ok)
		got = f
		return nil
	})

	c := b.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: 5},
		Chat:   &tele.Chat{ID: -100},
		Text:   "hi",
	}})
	require.NoError(t, h(c))
	require.NotNil(t, got)
	assert.Equal(t, Key{BotID: 99, ChatID: -100, UserID: 5}, got.Key())
}

func TestFromContextMissing(t *testing.T) {
	b := newOfflineBot(t)
	c := b.NewContext(tele.Update{})
	_, ok := FromContext(c)
	assert.False(t, ok)
}
