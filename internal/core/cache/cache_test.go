package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		method string
		params []string
		want   string
	}{
		{method: "emoji.list", want: "emoji.list"},
		{method: "conversations.list", params: []string{"popular"}, want: "conversations.list/popular"},
		{method: "conversations.history", params: []string{"C1", "1700000000", ""}, want: "conversations.history/C1/1700000000/"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.method, tt.params...))
		})
	}
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory().WithClock(clock.Now)

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("b"), 0))

	got, err := m.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	clock.now = clock.now.Add(time.Minute)

	_, err = m.Get(ctx, "short")
	require.ErrorIs(t, err, ErrMiss)

	got, err = m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)

	removed, err := m.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, m.Delete(ctx, "a"))
	_, err := m.Get(ctx, "a")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Delete(ctx, "missing"))

	require.NoError(t, m.Clear(ctx))
	assert.Zero(t, m.Len())
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value, 0))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

type page struct {
	Items []string `json:"items"`
}

func TestMemoize(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	calls := 0
	fn := func(context.Context) (page, error) {
		calls++
		return page{Items: []string{"x", "y"}}, nil
	}

	first, err := Memoize(ctx, m, "k", time.Hour, fn)
	require.NoError(t, err)
	second, err := Memoize(ctx, m, "k", time.Hour, fn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestMemoize_ErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	_, err := Memoize(ctx, m, "k", time.Hour, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, m.Len())

	v, err := Memoize(ctx, m, "k", time.Hour, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestMemoize_CorruptEntryIsRefetched(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "k", []byte("{not json"), 0))

	v, err := Memoize(ctx, m, "k", time.Hour, func(context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	data, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))
}

func TestMemoize_Nop(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, _ = Memoize(ctx, Nop{}, "k", time.Hour, fn)
	v, err := Memoize(ctx, Nop{}, "k", time.Hour, fn)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

// brokenStore fails every read and write.
type brokenStore struct {
	Nop
	err error
}

func (s brokenStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }

func (s brokenStore) Set(context.Context, string, []byte, time.Duration) error { return s.err }

func TestMemoize_StoreErrorsFallThrough(t *testing.T) {
	ctx := context.Background()
	store := brokenStore{err: errors.New("connection refused")}

	calls := 0
	for range 2 {
		v, err := Memoize(ctx, store, "k", time.Hour, func(context.Context) (int, error) {
			calls++
			return 5, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, v)
	}
	assert.Equal(t, 2, calls)
}
