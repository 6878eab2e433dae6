package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/cache"
)

func TestNewFromClient_Prefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "pulse:emoji.list", NewFromClient(client, "").key("emoji.list"))
	assert.Equal(t, "test:emoji.list", NewFromClient(client, "test:").key("emoji.list"))
}

// newLiveStore connects to the server named by PULSE_TEST_REDIS_ADDR.
func newLiveStore(t *testing.T) *CacheStore {
	t.Helper()

	addr := os.Getenv("PULSE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PULSE_TEST_REDIS_ADDR not set")
	}

	store, err := NewCacheStore(context.Background(), Options{Addr: addr, Prefix: "pulse-test:" + t.Name() + ":"})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Clear(context.Background())
		_ = store.Close()
	})
	return store
}

func TestCacheStore_Live(t *testing.T) {
	store := newLiveStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, store.Clear(ctx))

	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func TestCacheStore_LiveExpiry(t *testing.T) {
	store := newLiveStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 50*time.Millisecond))

	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, "short")
		return err == cache.ErrMiss
	}, 2*time.Second, 20*time.Millisecond)
}
