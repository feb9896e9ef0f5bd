package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/juliabot/core/telegram/telegramtest"
)

func newTestBot(t *testing.T, srv *telegramtest.Server) *Bot {
	t.Helper()
	b, err := NewBot(BotOptions{
		URL:             srv.URL,
		Token:           telegramtest.TestToken,
		LongPollTimeout: time.Second,
		Offline:         true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPollReturnsAtOnceWhenContextDone(t *testing.T) {
	srv := telegramtest.NewServer(t)
	b := newTestBot(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- b.Poll(ctx, []string{"message"}) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not return for a cancelled context")
	}
	assert.Zero(t, srv.Count("getUpdates"))
}

func TestPollStopsOnCancel(t *testing.T) {
	srv := telegramtest.NewServer(t)
	b := newTestBot(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Poll(ctx, []string{"message", "callback_query"}) }()

	require.Eventually(t, func() bool { return srv.Count("getUpdates") > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Poll did not stop after cancel")
	}
	first := srv.Calls()[0]
	assert.Equal(t, "getUpdates", first.Method)
	assert.Contains(t, first.Text("allowed_updates"), "callback_query")
}
