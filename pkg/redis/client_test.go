package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/users-backend/pkg/config"
)

func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNew_FailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := New(context.Background(), config.RedisConfig{Addr: addr})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestClient_GetSet(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "users:user:1", "payload", time.Minute))
	value, err := client.Get(ctx, "users:user:1")
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
	assert.Equal(t, time.Minute, mr.TTL("users:user:1"))

	_, err = client.Get(ctx, "users:user:2")
	assert.True(t, IsNil(err))
}

func TestClient_SetIfAbsent(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	written, err := client.SetIfAbsent(ctx, "users:user:1", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = client.SetIfAbsent(ctx, "users:user:1", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, written)

	value, err := mr.Get("users:user:1")
	require.NoError(t, err)
	assert.Equal(t, "first", value)
}

func TestClient_DeleteByPrefix(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set("users:user:"+strconv.Itoa(i), "x"))
	}
	require.NoError(t, mr.Set("other:key", "y"))

	deleted, err := client.DeleteByPrefix(ctx, "users:user:")
	require.NoError(t, err)
	assert.Equal(t, 250, deleted)
	assert.True(t, mr.Exists("other:key"))
}

func TestMetricsClient_CountsErrorsButNotMisses(t *testing.T) {
	client, _ := setupTestClient(t)
	instrumented := NewMetricsClient(client)
	ctx := context.Background()

	errorsBefore := testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get"))
	requestsBefore := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get"))

	_, err := instrumented.Get(ctx, "missing")
	assert.True(t, IsNil(err))

	assert.Equal(t, requestsBefore+1, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get")))
	assert.Equal(t, errorsBefore, testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get")))

	setnxBefore := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("setnx"))
	written, err := instrumented.SetIfAbsent(ctx, "k", "v", 0)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, setnxBefore+1, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("setnx")))

	deleted, err := instrumented.DeleteByPrefix(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
