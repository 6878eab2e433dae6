package slackapi

import (
	"context"
	"time"

	"github.com/hay-kot/pulse/internal/core/cache"
	"github.com/hay-kot/pulse/internal/core/messaging"
)

// CachedHistory memoizes history pages in a cache.Store.
type CachedHistory struct {
	next  messaging.HistoryFetcher
	store cache.Store
	ttl   time.Duration
}

// NewCachedHistory wraps next with a page cache.
func NewCachedHistory(next messaging.HistoryFetcher, store cache.Store, ttl time.Duration) *CachedHistory {
	return &CachedHistory{next: next, store: store, ttl: ttl}
}

func (c *CachedHistory) FetchHistory(ctx context.Context, req messaging.HistoryRequest) (messaging.HistoryPage, error) {
	return cache.Memoize(ctx, c.store, HistoryKey(req), c.ttl, func(ctx context.Context) (messaging.HistoryPage, error) {
		return c.next.FetchHistory(ctx, req)
	})
}

// HistoryKey is the cache key of a history page request.
func HistoryKey(req messaging.HistoryRequest) string {
	return cache.Key("conversations.history", req.ChannelID, FormatTimestamp(req.Oldest), req.Cursor)
}

var _ messaging.HistoryFetcher = (*CachedHistory)(nil)
