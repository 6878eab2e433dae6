package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 3, cfg.Stream.Concurrency)
	assert.Equal(t, messaging.DefaultExcludedSubtypes, cfg.Stream.ExcludeSubtypes)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Cache.ChannelsTTL)
	assert.Equal(t, 32, cfg.Channels.PopularLimit)
	assert.Equal(t, "7d", cfg.Timeframe)
	assert.Equal(t, filepath.Join(dataDir, "cache.json"), cfg.CacheFile())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
slack:
  page_size: 100
  rate_limit_retries: 0
stream:
  concurrency: 5
  exclude_subtypes: []
cache:
  backend: redis
  channels_ttl: 30m
  redis:
    addr: redis:6379
    db: 2
reactions:
  threshold: 2
channels:
  list: member
  include: ["eng-*"]
  exclude: ["*-alerts"]
timeframe: 1d
timeframes:
  1d:
    data_buckets: 24
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Slack.PageSize)
	assert.Equal(t, 0, cfg.Slack.RateLimitRetries)
	assert.Equal(t, 5, cfg.Stream.Concurrency)
	assert.Empty(t, cfg.Stream.ExcludeSubtypes)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ChannelsTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.HistoryTTL)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "pulse:", cfg.Cache.Redis.Prefix)
	assert.Equal(t, 2, cfg.Reactions.Threshold)
	assert.Equal(t, 12.0, cfg.Reactions.CollisionRadius)
	assert.Equal(t, ListMember, cfg.Channels.List)
	assert.Equal(t, []string{"eng-*"}, cfg.Channels.Include)

	tf, err := cfg.ResolveTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, "1d", tf.Name)
	assert.Equal(t, 24, tf.DataBuckets)

	tf, err = cfg.ResolveTimeframe("7d")
	require.NoError(t, err)
	assert.Zero(t, tf.DataBuckets)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "stream:\n  concurrency: -4\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "stream.concurrency", fieldErrs[0].Field)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "stream: [unclosed")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestNormalizerOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reactions.PushStrength = 20

	opts := cfg.NormalizerOptions()
	assert.Equal(t, 1, opts.Threshold)
	assert.Equal(t, 20.0, opts.PushStrength)
}
