package keyboards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/core/telegram/keyboard"
	"github.com/m3rciful/juliabot/core/telegram/telegramtest"
)

func TestMainMenuAppendsRows(t *testing.T) {
	markup := MainMenu([]keyboard.InlineBtn{{Text: "Library", Unique: "library_back", Data: "0"}})
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, CbHelp, markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, CbFeedback, markup.InlineKeyboard[0][1].Unique)
	assert.Equal(t, "library_back", markup.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "0", markup.InlineKeyboard[1][0].Data)
}

func TestCancelInput(t *testing.T) {
	markup := CancelInput()
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, CbCancel, markup.InlineKeyboard[0][0].Unique)
	assert.Empty(t, markup.InlineKeyboard[0][0].Data)
}

func TestMainMenuCallbackDataOnTheWire(t *testing.T) {
	srv := telegramtest.NewServer(t)
	b := srv.Bot(t)

	extra := []keyboard.InlineBtn{{Text: "Library", Unique: "library_back", Data: "0"}}
	_, err := b.Send(&tele.Chat{ID: 1}, "menu", MainMenu(extra))
	require.NoError(t, err)

	var sent tele.ReplyMarkup
	require.NoError(t, json.Unmarshal([]byte(srv.Last(t).Text("reply_markup")), &sent))
	require.Len(t, sent.InlineKeyboard, 2)
	assert.Equal(t, "\fhelp", sent.InlineKeyboard[0][0].Data)
	assert.Equal(t, "\ffeedback", sent.InlineKeyboard[0][1].Data)
	assert.Equal(t, "\flibrary_back|0", sent.InlineKeyboard[1][0].Data)
}
