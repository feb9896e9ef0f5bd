package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/juliabot/core/config"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	"github.com/m3rciful/juliabot/core/telegram/state"
	"github.com/m3rciful/juliabot/core/telegram/telegramtest"
)

func newConfig(library, trigger bool) *coreconfig.Config {
	return &coreconfig.Config{Apps: coreconfig.AppsConfig{Library: library, Trigger: trigger}}
}

func apply(t *testing.T, cfg *coreconfig.Config) (*coretelegram.Dispatcher, *telegramtest.Server, *tele.Bot) {
	t.Helper()
	srv := telegramtest.NewServer(t)
	b := srv.Bot(t)
	d := coretelegram.NewDispatcher(state.NewMemoryStorage(), coretelegram.DispatcherOptions{})
	require.NoError(t, Handlers(cfg).Apply(context.Background(), cfg, d))
	require.NoError(t, d.Bind(b, 1))
	return d, srv, b
}

func TestSetupRequiresConfig(t *testing.T) {
	_, err := Setup(nil)
	require.Error(t, err)

	opts, err := Setup(newConfig(false, false))
	require.NoError(t, err)
	assert.NotNil(t, opts.SetMenu)
	assert.NotNil(t, opts.Config)
}

func TestMiddlewareOrder(t *testing.T) {
	d, _, _ := apply(t, newConfig(false, false))
	assert.Equal(t, []string{"library_menu", "user_register_check"}, d.CallbackQuery.Middlewares())
	assert.Equal(t, []string{"user_register_check", "trigger"}, d.Message.Middlewares())
}

func TestDisabledModulesRegisterNothing(t *testing.T) {
	d, srv, b := apply(t, newConfig(false, false))
	for _, name := range []string{"/library", "/trigger", "/untrigger", "/triggers"} {
		_, _, ok := d.Registry().LookupCommand(name)
		assert.False(t, ok, name)
	}

	b.ProcessUpdate(telegramtest.Text(5, "/library"))
	assert.Contains(t, srv.Last(t).Text("text"), "I don't understand")

	b.ProcessUpdate(telegramtest.Text(5, "/start"))
	assert.NotContains(t, srv.Last(t).Text("reply_markup"), "Library")
}

func TestEnabledModulesRegister(t *testing.T) {
	d, srv, b := apply(t, newConfig(true, true))
	for _, name := range []string{"/library", "/trigger", "/untrigger", "/triggers"} {
		_, _, ok := d.Registry().LookupCommand(name)
		assert.True(t, ok, name)
	}
	assert.Equal(t, []string{"callback_query", "message"}, d.UsedUpdateTypes())

	b.ProcessUpdate(telegramtest.Text(5, "/start"))
	assert.Contains(t, srv.Last(t).Text("reply_markup"), "Library")
}

func TestHandlersWithoutDatabaseDegrade(t *testing.T) {
	_, srv, b := apply(t, newConfig(true, true))

	b.ProcessUpdate(telegramtest.Text(5, "/library"))
	assert.Equal(t, "Library is unavailable right now", srv.Last(t).Text("text"))

	b.ProcessUpdate(telegramtest.Text(5, "/triggers"))
	assert.Equal(t, "Triggers are unavailable right now.", srv.Last(t).Text("text"))
}
