// Package cache defines the keyed, TTL-bounded byte store used to memoize
// provider calls, plus the in-memory and no-op backends.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a keyed byte store with per-entry expiry. A ttl of zero or less
// means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Prune removes expired entries and reports how many were removed.
	Prune(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Key derives a cache key from an API method and its parameters. Empty
// parameters are kept so positional meaning is preserved.
//
//	Key("conversations.history", "C1", "1700000000", "") == "conversations.history/C1/1700000000/"
func Key(method string, params ...string) string {
	if len(params) == 0 {
		return method
	}

	var b strings.Builder
	b.WriteString(method)
	for _, p := range params {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}

// Memoize returns the cached value for key, or calls fn and caches its result
// for ttl. Values are stored as JSON. The cache only short-circuits fn: a
// corrupt entry is a miss, and read or write failures are logged and skipped.
func Memoize[T any](ctx context.Context, store Store, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			return v, nil
		}
		log.Debug().Str("key", key).Msg("cache entry is corrupt, refetching")
	case !errors.Is(err, ErrMiss):
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, bypassing cache")
	}

	v, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	data, err = json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}

	return v, nil
}
