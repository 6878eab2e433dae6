package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

// fakeFetcher serves canned pages keyed by channel and cursor. The cursor of
// page i is "p<i>".
type fakeFetcher struct {
	pages map[string][][]messaging.Message
	fail  map[string]int // channel -> page index that fails
	delay time.Duration

	// hook runs before a page is returned. It may block.
	hook func(ctx context.Context, req messaging.HistoryRequest)

	mu        sync.Mutex
	calls     []messaging.HistoryRequest
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeFetcher) FetchHistory(ctx context.Context, req messaging.HistoryRequest) (messaging.HistoryPage, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxActive.Load()
		if n <= cur || f.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.hook != nil {
		f.hook(ctx, req)
	}

	idx := 0
	if req.Cursor != "" {
		_, _ = fmt.Sscanf(req.Cursor, "p%d", &idx)
	}

	if failAt, ok := f.fail[req.ChannelID]; ok && failAt == idx {
		return messaging.HistoryPage{}, errors.New("provider unavailable")
	}

	pages := f.pages[req.ChannelID]
	if idx >= len(pages) {
		return messaging.HistoryPage{}, nil
	}

	page := messaging.HistoryPage{Messages: pages[idx]}
	if idx+1 < len(pages) {
		page.NextCursor = fmt.Sprintf("p%d", idx+1)
	}
	return page, nil
}

func (f *fakeFetcher) requests() []messaging.HistoryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messaging.HistoryRequest(nil), f.calls...)
}

func msgs(ids ...string) []messaging.Message {
	out := make([]messaging.Message, len(ids))
	for i, id := range ids {
		out[i] = messaging.Message{ID: id, Timestamp: time.Unix(int64(i), 0)}
	}
	return out
}

func collect(t *testing.T, sub *Subscription) []Batch {
	t.Helper()

	var out []Batch
	timeout := time.After(5 * time.Second)
	for {
		select {
		case b, ok := <-sub.Batches():
			if !ok {
				return out
			}
			out = append(out, b)
		case <-timeout:
			t.Fatal("subscription did not finish")
			return nil
		}
	}
}

func TestSubscribe_PagesInOrder(t *testing.T) {
	f := &fakeFetcher{pages: map[string][][]messaging.Message{
		"A": {msgs("a1", "a2"), msgs("a3")},
		"B": {msgs("b1")},
	}}

	oldest := time.Unix(1700000000, 0)
	sub := New(f, WithPageSize(200)).Subscribe(context.Background(), []string{"A", "B"}, oldest)
	batches := collect(t, sub)

	var a [][]string
	for _, b := range batches {
		if b.ChannelID != "A" {
			continue
		}
		var ids []string
		for _, m := range b.Messages {
			ids = append(ids, m.ID)
		}
		a = append(a, ids)
	}

	assert.Equal(t, [][]string{{"a1", "a2"}, {"a3"}}, a)
	assert.Len(t, batches, 3)
	assert.Equal(t, StateDone, sub.State("A"))
	assert.Equal(t, StateDone, sub.State("B"))
	assert.NotEmpty(t, sub.ID())

	for _, req := range f.requests() {
		assert.Equal(t, oldest, req.Oldest)
		assert.Equal(t, 200, req.Limit)
	}

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
}

func TestSubscribe_BoundedConcurrency(t *testing.T) {
	channels := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7"}
	pages := map[string][][]messaging.Message{}
	for _, ch := range channels {
		pages[ch] = [][]messaging.Message{msgs(ch + "-1"), msgs(ch + "-2")}
	}

	f := &fakeFetcher{pages: pages, delay: 10 * time.Millisecond}
	sub := New(f, WithConcurrency(2)).Subscribe(context.Background(), channels, time.Time{})
	batches := collect(t, sub)

	assert.Len(t, batches, 2*len(channels))
	assert.LessOrEqual(t, int(f.maxActive.Load()), 2)
}

func TestSubscribe_QueueIsFIFO(t *testing.T) {
	channels := []string{"C3", "C1", "C2"}
	f := &fakeFetcher{pages: map[string][][]messaging.Message{
		"C1": {msgs("1")},
		"C2": {msgs("2")},
		"C3": {msgs("3"), msgs("4")},
	}}

	sub := New(f, WithConcurrency(1)).Subscribe(context.Background(), channels, time.Time{})
	collect(t, sub)

	var order []string
	for _, req := range f.requests() {
		order = append(order, req.ChannelID+":"+req.Cursor)
	}
	assert.Equal(t, []string{"C3:", "C3:p1", "C1:", "C2:"}, order)
}

func TestSubscribe_FailureIsolatesChannel(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string][][]messaging.Message{
			"A": {msgs("a1"), msgs("a2")},
			"B": {msgs("b1"), msgs("b2"), msgs("b3")},
		},
		fail: map[string]int{"B": 1},
	}

	sub := New(f).Subscribe(context.Background(), []string{"A", "B"}, time.Time{})
	batches := collect(t, sub)

	perChannel := map[string]int{}
	for _, b := range batches {
		perChannel[b.ChannelID]++
	}
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, perChannel)

	assert.Equal(t, StateDone, sub.State("A"))
	assert.NoError(t, sub.Err("A"))

	assert.Equal(t, StateFailed, sub.State("B"))
	err := sub.Err("B")
	require.ErrorIs(t, err, ErrFetch)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "B", ferr.ChannelID)
	assert.Equal(t, "p1", ferr.Cursor)
	assert.Contains(t, err.Error(), "provider unavailable")

	assert.Len(t, sub.Failed(), 1)
}

func TestSubscribe_ExcludesSubtypes(t *testing.T) {
	page := []messaging.Message{
		{ID: "1", Subtype: messaging.SubtypeChannelJoin},
		{ID: "2"},
		{ID: "3", Subtype: messaging.SubtypeBotMessage},
		{ID: "4", Subtype: "thread_broadcast"},
	}
	f := &fakeFetcher{pages: map[string][][]messaging.Message{"A": {page}}}

	batches := collect(t, New(f).Subscribe(context.Background(), []string{"A"}, time.Time{}))
	require.Len(t, batches, 1)

	var ids []string
	for _, m := range batches[0].Messages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"2", "4"}, ids)

	batches = collect(t, New(f, WithExcludedSubtypes(nil)).Subscribe(context.Background(), []string{"A"}, time.Time{}))
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Messages, 4)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	f := &fakeFetcher{pages: map[string][][]messaging.Message{
		"A": {msgs("a1"), msgs("a2"), msgs("a3")},
		"B": {msgs("b1")},
	}}
	inflight := make(chan error, 1)
	f.hook = func(ctx context.Context, req messaging.HistoryRequest) {
		if req.ChannelID == "A" && req.Cursor == "p1" {
			close(started)
			<-release
			inflight <- ctx.Err()
		}
	}

	sub := New(f, WithConcurrency(1)).Subscribe(context.Background(), []string{"A", "B"}, time.Time{})

	first := <-sub.Batches()
	assert.Equal(t, "A", first.ChannelID)

	<-started
	sub.Unsubscribe()
	close(release)

	rest := collect(t, sub)
	assert.Empty(t, rest, "no batches after unsubscribe")
	assert.NoError(t, <-inflight, "in-flight request is not aborted")

	assert.Equal(t, StateCancelled, sub.State("A"))
	assert.Equal(t, StateCancelled, sub.State("B"))
	assert.Len(t, f.requests(), 2, "no page requests after unsubscribe")

	sub.Unsubscribe()
}

func TestSubscribe_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	f := &fakeFetcher{pages: map[string][][]messaging.Message{"A": {msgs("a1"), msgs("a2")}}}
	f.hook = func(_ context.Context, req messaging.HistoryRequest) {
		if req.Cursor == "p1" {
			close(started)
			<-release
		}
	}

	sub := New(f).Subscribe(ctx, []string{"A"}, time.Time{})
	<-sub.Batches()
	<-started
	cancel()
	close(release)

	assert.Empty(t, collect(t, sub), "page completed after cancel is discarded")
	assert.Equal(t, StateCancelled, sub.State("A"))
}

func TestSubscribe_EmptyAndDuplicateChannels(t *testing.T) {
	f := &fakeFetcher{pages: map[string][][]messaging.Message{"A": {msgs("a1")}}}

	assert.Empty(t, collect(t, New(f).Subscribe(context.Background(), nil, time.Time{})))

	sub := New(f).Subscribe(context.Background(), []string{"A", "A", "A"}, time.Time{})
	assert.Len(t, collect(t, sub), 1)
	assert.Equal(t, []string{"A"}, sub.Channels())
}

func TestSubscribe_MergesIntoStore(t *testing.T) {
	// Overlapping pages from the provider collapse in the store.
	f := &fakeFetcher{pages: map[string][][]messaging.Message{
		"A": {msgs("1", "2"), msgs("2", "3")},
	}}

	var store messaging.Store
	for b := range New(f).Subscribe(context.Background(), []string{"A"}, time.Time{}).Batches() {
		store = messaging.Merge(store, b.ChannelID, b.Messages)
	}

	assert.Equal(t, 3, store.Count("A"))
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:      "idle",
		StateFetching:  "fetching",
		StateEmitting:  "emitting",
		StateDone:      "done",
		StateFailed:    "failed",
		StateCancelled: "cancelled",
		State(99):      "unknown",
	}
	for st, want := range tests {
		assert.Equal(t, want, st.String())
	}

	assert.True(t, StateDone.Terminal())
	assert.False(t, StateEmitting.Terminal())
}
