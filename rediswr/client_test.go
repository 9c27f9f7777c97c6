package rediswr_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/rediswr"
)

func TestNew_SingleNode(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rediswr.New(rediswr.Config{Addrs: mr.Addr() + ", 127.0.0.1:1", DB: 2})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, rediswr.Ping(t.Context(), client))
	require.NoError(t, client.Set(t.Context(), "k", "v", 0).Err())

	got, err := mr.DB(2).Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestPing_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := rediswr.New(rediswr.Config{Addrs: addr})
	t.Cleanup(func() { _ = client.Close() })

	assert.Error(t, rediswr.Ping(t.Context(), client))
}
