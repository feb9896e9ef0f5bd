package middlewares

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/users"
)

type fakeRegistrar struct {
	calls []int64
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, u users.User) (bool, error) {
	f.calls = append(f.calls, u.ID)
	return f.err == nil, f.err
}

func newContext(t *testing.T, sender *tele.User) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b.NewContext(tele.Update{Message: &tele.Message{Sender: sender, Chat: &tele.Chat{ID: 1}}})
}

func TestUserRegisterCheckRegistersOnce(t *testing.T) {
	reg := &fakeRegistrar{}
	mw := NewUserRegisterCheckWith(func(tele.Context) (Registrar, bool) { return reg, true })

	var seen []users.User
	h := mw.Middleware(func(c tele.Context) error {
		u, ok := UserFrom(c)
		require.True(t, ok)
		seen = append(seen, u)
		return nil
	})

	sender := &tele.User{ID: 5, Username: "julia"}
	require.NoError(t, h(newContext(t, sender)))
	require.NoError(t, h(newContext(t, sender)))
	require.NoError(t, h(newContext(t, &tele.User{ID: 6})))

	assert.Equal(t, []int64{5, 6}, reg.calls)
	require.Len(t, seen, 3)
	assert.Equal(t, "julia", seen[0].Username)
}

func TestUserRegisterCheckRetriesAfterFailure(t *testing.T) {
	reg := &fakeRegistrar{err: errors.New("db down")}
	mw := NewUserRegisterCheckWith(func(tele.Context) (Registrar, bool) { return reg, true })
	passed := 0
	h := mw.Middleware(func(tele.Context) error { passed++; return nil })

	sender := &tele.User{ID: 9}
	require.NoError(t, h(newContext(t, sender)))
	require.NoError(t, h(newContext(t, sender)))
	assert.Equal(t, []int64{9, 9}, reg.calls)
	assert.Equal(t, 2, passed)
}

func TestUserRegisterCheckSkipsWithoutDatabase(t *testing.T) {
	mw := NewUserRegisterCheck()
	passed := 0
	h := mw.Middleware(func(tele.Context) error { passed++; return nil })

	require.NoError(t, h(newContext(t, &tele.User{ID: 1})))
	require.NoError(t, h(newContext(t, &tele.User{ID: 2, IsBot: true})))
	assert.Equal(t, 2, passed)
}
