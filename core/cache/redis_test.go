package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectURL(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+srv.Addr()+"/2")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnectHostPort(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Connect(context.Background(), srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRejectsEmptyAndBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ")
	require.Error(t, err)

	_, err = Connect(context.Background(), "redis://host:notaport/x/y")
	require.Error(t, err)
}
