// Package stream fetches paginated channel history for many channels at once
// and pushes each page to a single consumer as it arrives.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

// DefaultConcurrency is the number of channels fetched at the same time.
const DefaultConcurrency = 3

// Batch is one page of messages for a channel, already filtered.
type Batch struct {
	ChannelID string
	Messages  []messaging.Message
}

// Option configures a Controller.
type Option func(*Controller)

// WithConcurrency limits how many channels are fetched concurrently. Values
// below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *Controller) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithExcludedSubtypes replaces the default subtype exclusion set.
func WithExcludedSubtypes(subtypes []string) Option {
	return func(c *Controller) {
		c.filter = messaging.NewSubtypeFilter(subtypes)
	}
}

// WithPageSize sets the page limit passed to the fetcher. Zero leaves the
// choice to the fetcher.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		c.pageSize = n
	}
}

// Controller starts history subscriptions. It holds no per-subscription state
// and may be shared.
type Controller struct {
	fetcher     messaging.HistoryFetcher
	concurrency int
	pageSize    int
	filter      messaging.SubtypeFilter
	logger      zerolog.Logger
}

// New creates a Controller that reads pages from fetcher.
func New(fetcher messaging.HistoryFetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		filter:      messaging.NewSubtypeFilter(messaging.DefaultExcludedSubtypes),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe starts fetching history newer than oldest for every channel in
// channelIDs. Channels are started in the given order with at most the
// configured number in flight; pages within a channel are fetched one after
// another. Duplicate channel IDs are ignored.
//
// The subscription ends when every channel reaches a terminal state, when ctx
// is cancelled, or when Unsubscribe is called.
func (c *Controller) Subscribe(ctx context.Context, channelIDs []string, oldest time.Time) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		id:      uuid.NewString(),
		cancel:  cancel,
		ctx:     ctx,
		batches: make(chan Batch),
		done:    make(chan struct{}),
		states:  make(map[string]State, len(channelIDs)),
		errs:    make(map[string]error),
	}

	for _, id := range channelIDs {
		if _, ok := sub.states[id]; ok {
			continue
		}
		sub.states[id] = StateIdle
		sub.order = append(sub.order, id)
	}

	log := c.logger.With().Str("subscription", sub.id).Logger()
	log.Debug().
		Int("channels", len(sub.order)).
		Time("oldest", oldest).
		Int("concurrency", c.concurrency).
		Msg("subscription started")

	go c.dispatch(ctx, sub, oldest, log)

	return sub
}

func (c *Controller) dispatch(ctx context.Context, sub *Subscription, oldest time.Time, log zerolog.Logger) {
	sem := semaphore.NewWeighted(int64(c.concurrency))

	var wg sync.WaitGroup
	for _, id := range sub.order {
		// Acquire is called from this goroutine only, so channels are started
		// in submission order.
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(channelID string) {
			defer wg.Done()
			defer sem.Release(1)
			c.run(ctx, sub, channelID, oldest, log.With().Str("channel", channelID).Logger())
		}(id)
	}

	wg.Wait()

	sub.finish()
	close(sub.batches)
	close(sub.done)

	log.Debug().Msg("subscription finished")
}

func (c *Controller) run(ctx context.Context, sub *Subscription, channelID string, oldest time.Time, log zerolog.Logger) {
	// Requests run on a detached context: a page already in flight completes
	// and is dropped below instead of being aborted in the transport.
	fetchCtx := context.WithoutCancel(ctx)

	cursor := ""
	pages := 0
	total := 0

	for {
		if ctx.Err() != nil {
			sub.setState(channelID, StateCancelled, nil)
			return
		}

		sub.setState(channelID, StateFetching, nil)

		page, err := c.fetcher.FetchHistory(fetchCtx, messaging.HistoryRequest{
			ChannelID: channelID,
			Oldest:    oldest,
			Cursor:    cursor,
			Limit:     c.pageSize,
		})
		if ctx.Err() != nil {
			log.Debug().Int("page", pages+1).Msg("discarding page after cancellation")
			sub.setState(channelID, StateCancelled, nil)
			return
		}
		if err != nil {
			ferr := &FetchError{ChannelID: channelID, Cursor: cursor, Err: err}
			log.Warn().Err(err).Int("page", pages+1).Msg("history fetch failed")
			sub.setState(channelID, StateFailed, ferr)
			return
		}

		msgs := c.filter.Apply(page.Messages)
		pages++
		total += len(msgs)

		sub.setState(channelID, StateEmitting, nil)
		if !sub.emit(Batch{ChannelID: channelID, Messages: msgs}) {
			log.Debug().Int("page", pages).Msg("discarding page after cancellation")
			sub.setState(channelID, StateCancelled, nil)
			return
		}

		if page.NextCursor == "" {
			log.Debug().Int("pages", pages).Int("messages", total).Msg("channel history complete")
			sub.setState(channelID, StateDone, nil)
			return
		}
		cursor = page.NextCursor
	}
}
