package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T, opts RedisOptions) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStorage(client, opts), srv
}

func storages(t *testing.T) map[string]Storage {
	rs, _ := newRedisStorage(t, RedisOptions{})
	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"redis":  rs,
	}
}

func TestStorageStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := Key{BotID: 1, ChatID: 2, UserID: 3}
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.GetState(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, StateIdle, st)

			require.NoError(t, s.SetState(ctx, key, "feedback:text"))
			st, err = s.GetState(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, State("feedback:text"), st)

			other, err := s.GetState(ctx, Key{BotID: 1, ChatID: 2, UserID: 4})
			require.NoError(t, err)
			assert.Equal(t, StateIdle, other)

			require.NoError(t, s.SetState(ctx, key, StateIdle))
			st, err = s.GetState(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, StateIdle, st)
		})
	}
}

func TestStorageDataRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := Key{BotID: 1, ChatID: 2, UserID: 3}
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			data, err := s.GetData(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, data)

			require.NoError(t, s.SetData(ctx, key, map[string]any{"topic": "books"}))
			data, err = s.GetData(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"topic": "books"}, data)

			data["topic"] = "changed"
			again, err := s.GetData(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, "books", again["topic"])

			require.NoError(t, s.SetData(ctx, key, nil))
			data, err = s.GetData(ctx, key)
			require.NoError(t, err)
			assert.Empty(t, data)
		})
	}
}

func TestRedisStorageKeysAndTTL(t *testing.T) {
	ctx := context.Background()
	s, srv := newRedisStorage(t, RedisOptions{StateTTL: time.Minute, DataTTL: time.Hour})
	key := Key{BotID: 7, ChatID: 8, UserID: 9}

	require.NoError(t, s.SetState(ctx, key, "step"))
	require.NoError(t, s.SetData(ctx, key, map[string]any{"n": 1}))

	got, err := srv.Get("fsm:7:8:9:state")
	require.NoError(t, err)
	assert.Equal(t, "step", got)
	assert.Equal(t, time.Minute, srv.TTL("fsm:7:8:9:state"))
	assert.Equal(t, time.Hour, srv.TTL("fsm:7:8:9:data"))

	data, err := s.GetData(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, float64(1), data["n"])

	require.NoError(t, s.SetState(ctx, key, StateIdle))
	assert.False(t, srv.Exists("fsm:7:8:9:state"))
}

func TestRedisStorageCorruptData(t *testing.T) {
	s, srv := newRedisStorage(t, RedisOptions{Prefix: "bot"})
	require.NoError(t, srv.Set("bot:1:1:1:data", "{not json"))

	_, err := s.GetData(context.Background(), Key{BotID: 1, ChatID: 1, UserID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode data")
}

func TestMemoryStorageClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	key := Key{ChatID: 1, UserID: 1}
	require.NoError(t, s.SetState(ctx, key, "x"))
	require.NoError(t, s.Close())

	st, err := s.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}
