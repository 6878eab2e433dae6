package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/pulse/internal/core/cache"
	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/provider/slackapi"
	"github.com/hay-kot/pulse/internal/pulse"
	"github.com/hay-kot/pulse/internal/store/jsonfile"
	"github.com/hay-kot/pulse/internal/store/redis"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Token      string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Cache is the configured cache backend shared by the channel listing
	// and the history page cache.
	Cache cache.Store

	// Slack is the raw provider client, used for auth checks.
	Slack *slackapi.Client

	// Service is the pulse service for orchestrating operations
	Service *pulse.Service
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "pulse", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pulse")
}

// OpenCache builds the cache backend selected by cfg.Cache.Backend.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		return jsonfile.NewCacheStore(cfg.CacheFile()), nil
	case config.BackendRedis:
		return redis.NewCacheStore(ctx, redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
	case config.BackendMemory:
		return cache.NewMemory(), nil
	case config.BackendNone:
		return cache.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Setup loads the configuration and wires the cache, provider and service
// into flags. An unreachable cache backend degrades to no caching.
func Setup(ctx context.Context, flags *Flags) error {
	cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.Token != "" {
		cfg.Slack.Token = flags.Token
	}
	flags.Config = cfg

	store, err := OpenCache(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("cache unavailable, continuing without cache")
		store = cache.Nop{}
	}
	flags.Cache = store

	flags.Slack = slackapi.New(slackapi.Options{
		Token:            cfg.Slack.Token,
		APIURL:           cfg.Slack.APIURL,
		PageSize:         cfg.Slack.PageSize,
		RateLimitRetries: cfg.Slack.RateLimitRetries,
		Logger:           log.With().Str("component", "slackapi").Logger(),
	})

	history := slackapi.NewCachedHistory(flags.Slack, store, cfg.Cache.HistoryTTL)
	logger := log.With().Str("component", "pulse").Logger()

	flags.Service = pulse.New(flags.Slack, history, store, cfg, logger)
	return nil
}

// Close releases the cache backend when it holds a connection.
func (f *Flags) Close() error {
	if closer, ok := f.Cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
