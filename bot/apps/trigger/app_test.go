package trigger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	"github.com/m3rciful/juliabot/core/telegram/state"
	"github.com/m3rciful/juliabot/core/telegram/telegramtest"
)

const adminID = 42

const fallbackText = "fallback"

type harness struct {
	srv     *telegramtest.Server
	bot     *tele.Bot
	store   *Store
	redis   *miniredis.Miniredis
	storage *state.MemoryStorage
}

func newHarness(t *testing.T, enabled bool) *harness {
	t.Helper()
	h := &harness{srv: telegramtest.NewServer(t), storage: state.NewMemoryStorage()}
	h.bot = h.srv.Bot(t)
	h.store, h.redis = newStore(t)

	app := NewWith(func(tele.Context) (*Store, bool) { return h.store, true })
	d := coretelegram.NewDispatcher(h.storage, coretelegram.DispatcherOptions{AdminID: adminID})
	d.Message.Use("trigger", app.Middleware(enabled).Middleware)
	d.Message.Handle(tele.OnText, func(c tele.Context) error { return c.Send(fallbackText) })
	require.NoError(t, app.RegisterCommands(d))
	require.NoError(t, d.Bind(h.bot, 1))
	return h
}

func (h *harness) text(userID int64, text string) {
	h.bot.ProcessUpdate(telegramtest.Text(userID, text))
}

func TestTriggerRepliesAndStopsChain(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.store.Set(context.Background(), 5, "hello", "Hi <there>"))

	h.text(5, "well HELLO julia")
	require.Len(t, h.srv.Calls(), 1)
	assert.Equal(t, "Hi &lt;there&gt;", h.srv.Last(t).Text("text"))

	h.text(5, "something else")
	assert.Equal(t, fallbackText, h.srv.Last(t).Text("text"))
}

func TestTriggerSkipsDuringConversation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, 5, "hello", "Hi"))
	require.NoError(t, h.storage.SetState(ctx, state.Key{BotID: 1, ChatID: 5, UserID: 5}, "feedback:await"))

	h.text(5, "hello")
	assert.Equal(t, fallbackText, h.srv.Last(t).Text("text"))
}

func TestTriggerDisabledPassesThrough(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.store.Set(context.Background(), 5, "hello", "Hi"))

	h.text(5, "hello")
	assert.Equal(t, fallbackText, h.srv.Last(t).Text("text"))
}

func TestTriggerCommandsAreAdminOnly(t *testing.T) {
	h := newHarness(t, true)

	h.text(5, "/trigger hello = Hi")
	assert.Empty(t, h.srv.Calls())
	assert.False(t, h.redis.Exists("triggers:5"))

	h.text(adminID, "/trigger Hello = Hi there")
	assert.Equal(t, savedText, h.srv.Last(t).Text("text"))
	assert.Equal(t, "Hi there", h.redis.HGet("triggers:42", "hello"))

	h.text(adminID, "/trigger broken")
	assert.Equal(t, usageSet, h.srv.Last(t).Text("text"))

	h.text(adminID, "/triggers")
	assert.Equal(t, "<b>Triggers</b>\n<code>hello</code> → Hi there", h.srv.Last(t).Text("text"))

	h.text(adminID, "/untrigger hello")
	assert.Equal(t, removedText, h.srv.Last(t).Text("text"))
	h.text(adminID, "/untrigger hello")
	assert.Equal(t, notFoundText, h.srv.Last(t).Text("text"))

	h.text(adminID, "/triggers")
	assert.Equal(t, noRulesText, h.srv.Last(t).Text("text"))
}
