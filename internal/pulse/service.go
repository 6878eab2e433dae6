// Package pulse orchestrates the provider, cache, history stream and the
// derived activity and reaction views of the dashboard.
package pulse

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/cache"
	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
	"github.com/hay-kot/pulse/internal/stream"
)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the clock used to resolve timeframes.
func WithClock(clock timeline.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Service orchestrates pulse operations.
type Service struct {
	lister     messaging.ChannelLister
	cache      cache.Store
	config     *config.Config
	log        zerolog.Logger
	clock      timeline.Clock
	controller *stream.Controller
	normalizer *reactions.Normalizer
}

// New creates a new Service. history should already be wrapped with any page
// cache; store is used for the channel listing.
func New(
	lister messaging.ChannelLister,
	history messaging.HistoryFetcher,
	store cache.Store,
	cfg *config.Config,
	log zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		lister: lister,
		cache:  store,
		config: cfg,
		log:    log,
		clock:  time.Now,
		controller: stream.New(history,
			stream.WithConcurrency(cfg.Stream.Concurrency),
			stream.WithExcludedSubtypes(cfg.Stream.ExcludeSubtypes),
			stream.WithPageSize(cfg.Slack.PageSize),
			stream.WithLogger(log.With().Str("component", "stream").Logger()),
		),
		normalizer: reactions.New(cfg.NormalizerOptions()),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time of the service clock.
func (s *Service) Now() time.Time {
	return s.clock()
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// channelsKey is the cache key of the channel listing.
var channelsKey = cache.Key("conversations.list")

// Channels returns every channel of the workspace, cached for
// cache.channels_ttl. refresh drops the cached listing first.
func (s *Service) Channels(ctx context.Context, refresh bool) ([]messaging.Channel, error) {
	if refresh {
		if err := s.cache.Delete(ctx, channelsKey); err != nil {
			s.log.Warn().Err(err).Msg("failed to drop cached channel list")
		}
	}

	channels, err := cache.Memoize(ctx, s.cache, channelsKey, s.config.Cache.ChannelsTTL, s.lister.Channels)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	s.log.Debug().Int("channels", len(channels)).Bool("refresh", refresh).Msg("loaded channels")
	return channels, nil
}

// Select narrows all to the channels shown for listType (popular or member,
// empty uses the configured list), then applies the include and exclude
// globs. The input is not modified.
func (s *Service) Select(all []messaging.Channel, listType string) ([]messaging.Channel, error) {
	if listType == "" {
		listType = s.config.Channels.List
	}

	var picked []messaging.Channel
	switch listType {
	case config.ListPopular:
		picked = slices.Clone(all)
		slices.SortStableFunc(picked, func(a, b messaging.Channel) int {
			return b.NumMembers - a.NumMembers
		})
		if limit := s.config.Channels.PopularLimit; len(picked) > limit {
			picked = picked[:limit]
		}
	case config.ListMember:
		for _, ch := range all {
			if ch.IsMember {
				picked = append(picked, ch)
			}
		}
	default:
		return nil, fmt.Errorf("unknown channel list %q", listType)
	}

	return filterChannels(picked, s.config.Channels.Include, s.config.Channels.Exclude), nil
}

// filterChannels keeps channels whose name matches any include pattern (all
// when include is empty) and no exclude pattern.
func filterChannels(channels []messaging.Channel, include, exclude []string) []messaging.Channel {
	if len(include) == 0 && len(exclude) == 0 {
		return channels
	}

	matchAny := func(patterns []string, name string) bool {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, name); ok {
				return true
			}
		}
		return false
	}

	out := make([]messaging.Channel, 0, len(channels))
	for _, ch := range channels {
		if len(include) > 0 && !matchAny(include, ch.Name) {
			continue
		}
		if matchAny(exclude, ch.Name) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// Stream subscribes to the history of channels over tf, resolved against the
// service clock.
func (s *Service) Stream(ctx context.Context, tf timeline.Timeframe, channels []messaging.Channel) *stream.Subscription {
	iv := tf.Resolve(s.clock())
	oldest := timeline.FetchOldest(iv)

	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
	}

	sub := s.controller.Subscribe(ctx, ids, oldest)
	s.log.Info().
		Str("subscription", sub.ID()).
		Str("timeframe", tf.Name).
		Time("oldest", oldest).
		Int("channels", len(ids)).
		Msg("streaming history")

	return sub
}

// CollectResult is the outcome of Collect.
type CollectResult struct {
	Store  messaging.Store
	Failed map[string]error
}

// Collect streams the history of channels to completion and merges every
// batch into a store. onBatch, if set, is called after each merge. Channel
// failures are reported in the result, not as an error.
func (s *Service) Collect(ctx context.Context, tf timeline.Timeframe, channels []messaging.Channel, onBatch func(stream.Batch)) (CollectResult, error) {
	sub := s.Stream(ctx, tf, channels)
	defer sub.Unsubscribe()

	store := messaging.Store{}
	for b := range sub.Batches() {
		store = messaging.Merge(store, b.ChannelID, b.Messages)
		if onBatch != nil {
			onBatch(b)
		}
	}

	if err := ctx.Err(); err != nil {
		return CollectResult{}, err
	}

	failed := sub.Failed()
	for id, err := range failed {
		s.log.Warn().Err(err).Str("channel", id).Msg("channel history incomplete")
	}

	return CollectResult{Store: store, Failed: failed}, nil
}
