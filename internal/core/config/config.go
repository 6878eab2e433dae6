// Package config handles configuration loading and validation for pulse.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Channel list types.
const (
	ListPopular = "popular"
	ListMember  = "member"
)

// Config holds the application configuration.
type Config struct {
	Slack      SlackConfig                `yaml:"slack"`
	Stream     StreamConfig               `yaml:"stream"`
	Cache      CacheConfig                `yaml:"cache"`
	Reactions  ReactionsConfig            `yaml:"reactions"`
	Channels   ChannelsConfig             `yaml:"channels"`
	Timeframe  string                     `yaml:"timeframe"`
	Timeframes map[string]TimeframeConfig `yaml:"timeframes"`
	DataDir    string                     `yaml:"-"` // set by caller, not from config file
}

// SlackConfig holds Web API settings.
type SlackConfig struct {
	// Token is usually supplied through SLACK_TOKEN rather than the file.
	Token            string `yaml:"token"`
	APIURL           string `yaml:"api_url"`
	PageSize         int    `yaml:"page_size"`
	RateLimitRetries int    `yaml:"rate_limit_retries"`
}

// StreamConfig holds history streaming settings.
type StreamConfig struct {
	Concurrency     int      `yaml:"concurrency"`
	ExcludeSubtypes []string `yaml:"exclude_subtypes"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend     string        `yaml:"backend"`
	ChannelsTTL time.Duration `yaml:"channels_ttl"`
	HistoryTTL  time.Duration `yaml:"history_ttl"`
	Redis       RedisConfig   `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ReactionsConfig tunes the reaction overlay.
type ReactionsConfig struct {
	Threshold       int     `yaml:"threshold"`
	CollisionRadius float64 `yaml:"collision_radius"`
	PushStrength    float64 `yaml:"push_strength"`
}

// ChannelsConfig selects which channels are shown.
type ChannelsConfig struct {
	List         string   `yaml:"list"`
	PopularLimit int      `yaml:"popular_limit"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
}

// TimeframeConfig overrides the bucketing of a named timeframe with
// approximate bucket counts.
type TimeframeConfig struct {
	DataBuckets  int `yaml:"data_buckets"`
	LabelBuckets int `yaml:"label_buckets"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Slack: SlackConfig{
			PageSize:         200,
			RateLimitRetries: 3,
		},
		Stream: StreamConfig{
			Concurrency:     3,
			ExcludeSubtypes: append([]string(nil), messaging.DefaultExcludedSubtypes...),
		},
		Cache: CacheConfig{
			Backend:     BackendFile,
			ChannelsTTL: 2 * time.Hour,
			HistoryTTL:  10 * time.Minute,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "pulse:",
			},
		},
		Reactions: ReactionsConfig{
			Threshold:       reactions.DefaultThreshold,
			CollisionRadius: reactions.DefaultCollisionRadius,
			PushStrength:    reactions.DefaultPushStrength,
		},
		Channels: ChannelsConfig{
			List:         ListPopular,
			PopularLimit: 32,
		},
		Timeframe:  timeline.DefaultTimeframe,
		Timeframes: map[string]TimeframeConfig{},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for options where zero is never valid.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Slack.PageSize == 0 {
		c.Slack.PageSize = defaults.Slack.PageSize
	}
	if c.Stream.Concurrency == 0 {
		c.Stream.Concurrency = defaults.Stream.Concurrency
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaults.Cache.Backend
	}
	if c.Cache.ChannelsTTL == 0 {
		c.Cache.ChannelsTTL = defaults.Cache.ChannelsTTL
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = defaults.Cache.HistoryTTL
	}
	if c.Channels.List == "" {
		c.Channels.List = defaults.Channels.List
	}
	if c.Channels.PopularLimit == 0 {
		c.Channels.PopularLimit = defaults.Channels.PopularLimit
	}
	if c.Timeframe == "" {
		c.Timeframe = defaults.Timeframe
	}
	if c.Timeframes == nil {
		c.Timeframes = map[string]TimeframeConfig{}
	}
}

// CacheFile returns the path of the file cache backend.
func (c *Config) CacheFile() string {
	return filepath.Join(c.DataDir, "cache.json")
}

// ResolveTimeframe returns the named timeframe with any configured bucket
// overrides applied. An empty name uses the configured default.
func (c *Config) ResolveTimeframe(name string) (timeline.Timeframe, error) {
	if name == "" {
		name = c.Timeframe
	}

	tf, err := timeline.ParseTimeframe(name)
	if err != nil {
		return timeline.Timeframe{}, err
	}

	if o, ok := c.Timeframes[name]; ok {
		tf.DataBuckets = o.DataBuckets
		tf.LabelBuckets = o.LabelBuckets
	}
	return tf, nil
}

// NormalizerOptions returns the reaction normalizer options.
func (c *Config) NormalizerOptions() reactions.Options {
	return reactions.Options{
		Threshold:       c.Reactions.Threshold,
		CollisionRadius: c.Reactions.CollisionRadius,
		PushStrength:    c.Reactions.PushStrength,
	}
}
