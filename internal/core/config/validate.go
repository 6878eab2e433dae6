package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/pulse/internal/core/timeline"
)

// maxPageSize is the largest conversations.history limit Slack accepts.
const maxPageSize = 999

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is valid. All problems are reported
// together as criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("cannot be empty"))
	}

	if c.Slack.PageSize < 1 || c.Slack.PageSize > maxPageSize {
		errs = errs.Append("slack.page_size", fmt.Errorf("must be between 1 and %d", maxPageSize))
	}
	if c.Slack.RateLimitRetries < 0 {
		errs = errs.Append("slack.rate_limit_retries", errors.New("cannot be negative"))
	}

	if c.Stream.Concurrency < 1 {
		errs = errs.Append("stream.concurrency", errors.New("must be at least 1"))
	}

	switch c.Cache.Backend {
	case BackendFile, BackendMemory, BackendNone:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			errs = errs.Append("cache.redis.addr", errors.New("required when cache.backend is redis"))
		}
	default:
		errs = errs.Append("cache.backend", fmt.Errorf("unknown backend %q (file, redis, memory, none)", c.Cache.Backend))
	}
	if c.Cache.ChannelsTTL < 0 {
		errs = errs.Append("cache.channels_ttl", errors.New("cannot be negative"))
	}
	if c.Cache.HistoryTTL < 0 {
		errs = errs.Append("cache.history_ttl", errors.New("cannot be negative"))
	}

	if c.Reactions.Threshold < 0 {
		errs = errs.Append("reactions.threshold", errors.New("cannot be negative"))
	}
	if c.Reactions.CollisionRadius <= 0 {
		errs = errs.Append("reactions.collision_radius", errors.New("must be positive"))
	}
	if c.Reactions.PushStrength <= 0 {
		errs = errs.Append("reactions.push_strength", errors.New("must be positive"))
	}

	if c.Channels.List != ListPopular && c.Channels.List != ListMember {
		errs = errs.Append("channels.list", fmt.Errorf("unknown list %q (popular, member)", c.Channels.List))
	}
	if c.Channels.PopularLimit < 1 {
		errs = errs.Append("channels.popular_limit", errors.New("must be at least 1"))
	}
	for i, p := range c.Channels.Include {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("channels.include[%d]", i), fmt.Errorf("invalid glob %q", p))
		}
	}
	for i, p := range c.Channels.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("channels.exclude[%d]", i), fmt.Errorf("invalid glob %q", p))
		}
	}

	names := timeline.TimeframeNames()
	if !slices.Contains(names, c.Timeframe) {
		errs = errs.Append("timeframe", fmt.Errorf("unknown timeframe %q (%s)", c.Timeframe, strings.Join(names, ", ")))
	}

	keys := make([]string, 0, len(c.Timeframes))
	for k := range c.Timeframes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, name := range keys {
		o := c.Timeframes[name]
		field := "timeframes." + name
		if !slices.Contains(names, name) {
			errs = errs.Append(field, fmt.Errorf("unknown timeframe %q", name))
			continue
		}
		if o.DataBuckets < 0 {
			errs = errs.Append(field+".data_buckets", errors.New("cannot be negative"))
		}
		if o.LabelBuckets < 0 {
			errs = errs.Append(field+".label_buckets", errors.New("cannot be negative"))
		}
	}

	return errs.ToError()
}

// ValidateDeep performs Validate plus checks against the file system.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Slack.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Slack",
			Item:     "token",
			Message:  "no token configured; set SLACK_TOKEN or slack.token",
		})
	}

	if c.Cache.Backend == BackendNone {
		warnings = append(warnings, ValidationWarning{
			Category: "Cache",
			Item:     "backend",
			Message:  "caching is disabled; every refresh refetches all history",
		})
	}

	if c.Stream.Concurrency > 10 {
		warnings = append(warnings, ValidationWarning{
			Category: "Stream",
			Item:     "concurrency",
			Message:  fmt.Sprintf("%d concurrent channels will likely hit Slack rate limits", c.Stream.Concurrency),
		})
	}

	if c.Channels.List == ListMember && c.Channels.PopularLimit != DefaultConfig().Channels.PopularLimit {
		warnings = append(warnings, ValidationWarning{
			Category: "Channels",
			Item:     "popular_limit",
			Message:  "ignored when channels.list is member",
		})
	}

	return warnings
}
