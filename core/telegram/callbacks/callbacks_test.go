package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func contextWith(t *testing.T, cb *tele.Callback) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b.NewContext(tele.Update{Callback: cb})
}

func TestParseCallbackData(t *testing.T) {
	unique, payload := ParseCallbackData(&tele.Callback{Data: "\flibrary_section|42"})
	assert.Equal(t, "library_section", unique)
	assert.Equal(t, "42", payload)

	unique, payload = ParseCallbackData(&tele.Callback{Data: "\fmenu"})
	assert.Equal(t, "menu", unique)
	assert.Empty(t, payload)

	unique, payload = ParseCallbackData(&tele.Callback{Unique: "menu", Data: "main"})
	assert.Equal(t, "menu", unique)
	assert.Equal(t, "main", payload)

	unique, payload = ParseCallbackData(&tele.Callback{Data: "legacy"})
	assert.Empty(t, unique)
	assert.Equal(t, "legacy", payload)

	unique, _ = ParseCallbackData(nil)
	assert.Empty(t, unique)
}

func TestPayloadMatchedRoute(t *testing.T) {
	c := contextWith(t, &tele.Callback{Unique: "library_section", Data: "7"})
	assert.Equal(t, "library_section", CallbackKey(c))
	id, err := PayloadInt64(c)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestPayloadRawData(t *testing.T) {
	c := contextWith(t, &tele.Callback{Data: "\flibrary_back|3"})
	assert.Equal(t, "library_back", CallbackKey(c))
	assert.Equal(t, "3", CallbackPayload(c))

	c = contextWith(t, &tele.Callback{Data: "\fmenu|main"})
	_, err := PayloadInt64(c)
	require.Error(t, err)
}
