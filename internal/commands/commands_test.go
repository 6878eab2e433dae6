package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/cache"
	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/internal/pulse"
	"github.com/hay-kot/pulse/internal/store/jsonfile"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func slackTS(t time.Time) string {
	return fmt.Sprintf("%d.000100", t.Unix())
}

// fakeSlack serves a two channel workspace. general has three messages in
// the last hours, random has none.
func fakeSlack(t *testing.T) *httptest.Server {
	t.Helper()

	now := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.list", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"ok": true,
			"channels": []map[string]any{
				{"id": "C1", "name": "general", "num_members": 50, "is_member": true},
				{"id": "C2", "name": "random", "num_members": 10},
			},
		})
	})
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		var msgs []map[string]any
		if r.FormValue("channel") == "C1" {
			msgs = []map[string]any{
				{
					"ts":   slackTS(now.Add(-time.Hour)),
					"user": "U1",
					"reactions": []map[string]any{
						{"name": "tada", "count": 4, "users": []string{"U1", "U2", "U3", "U4"}},
					},
				},
				{"ts": slackTS(now.Add(-2 * time.Hour)), "user": "U2"},
				{"ts": slackTS(now.Add(-3 * time.Hour)), "user": "U3", "subtype": "channel_join"},
				{"ts": slackTS(now.Add(-4 * time.Hour)), "user": "U1"},
			}
		}
		writeJSON(t, w, map[string]any{"ok": true, "messages": msgs})
	})
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"ok": true, "user": "pulse", "team": "Acme", "user_id": "U0", "team_id": "T0"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestApp wires the commands against a fake Slack API the way main does.
func newTestApp(t *testing.T, backend string) (*cli.Command, *bytes.Buffer, *Flags) {
	t.Helper()

	srv := fakeSlack(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("slack:\n  api_url: %s/\ncache:\n  backend: %s\n", srv.URL, backend)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))

	flags := &Flags{
		ConfigPath: configPath,
		DataDir:    filepath.Join(dir, "data"),
		Token:      "xoxb-test",
	}
	require.NoError(t, Setup(context.Background(), flags))

	out := &bytes.Buffer{}
	app := &cli.Command{Name: "pulse", Writer: out, ErrWriter: io.Discard}
	app = NewChannelsCmd(flags).Register(app)
	app = NewActivityCmd(flags).Register(app)
	app = NewCacheCmd(flags).Register(app)
	app = NewDoctorCmd(flags).Register(app)
	app = NewConfigValidateCmd(flags).Register(app)

	return app, out, flags
}

func run(t *testing.T, app *cli.Command, args ...string) error {
	t.Helper()
	ctx := printer.NewContext(context.Background(), printer.New(io.Discard))
	return app.Run(ctx, append([]string{"pulse"}, args...))
}

func TestSetup_TokenFlagOverridesConfig(t *testing.T) {
	_, _, flags := newTestApp(t, config.BackendMemory)

	assert.Equal(t, "xoxb-test", flags.Config.Slack.Token)
	assert.IsType(t, &cache.Memory{}, flags.Cache)
	assert.NotNil(t, flags.Service)
	assert.NoError(t, flags.Close())
}

func TestOpenCache(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	ctx := context.Background()

	tests := []struct {
		backend string
		want    cache.Store
	}{
		{backend: config.BackendFile, want: &jsonfile.CacheStore{}},
		{backend: config.BackendMemory, want: &cache.Memory{}},
		{backend: config.BackendNone, want: cache.Nop{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg.Cache.Backend = tt.backend
			store, err := OpenCache(ctx, &cfg)
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
		})
	}

	cfg.Cache.Backend = "s3"
	_, err := OpenCache(ctx, &cfg)
	require.Error(t, err)
}

func TestChannelsCmd(t *testing.T) {
	app, out, _ := newTestApp(t, config.BackendMemory)

	require.NoError(t, run(t, app, "channels"))
	assert.Contains(t, out.String(), "#general")
	assert.Contains(t, out.String(), "#random")

	out.Reset()
	require.NoError(t, run(t, app, "channels", "--list", "member", "--template", "{{ .ID }}:{{ .Name }}"))
	assert.Equal(t, "C1:general\n", out.String())

	out.Reset()
	require.NoError(t, run(t, app, "channels", "--format", "json"))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestActivityCmd_JSON(t *testing.T) {
	app, out, _ := newTestApp(t, config.BackendMemory)

	require.NoError(t, run(t, app, "activity", "--timeframe", "1d", "--format", "json"))

	var got struct {
		Timeframe string `json:"timeframe"`
		Channels  []struct {
			ID       string             `json:"id"`
			Messages int                `json:"messages"`
			Users    int                `json:"users"`
			Activity []timeline.Point   `json:"activity"`
			Markers  []reactions.Marker `json:"markers"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))

	assert.Equal(t, "1d", got.Timeframe)
	require.Len(t, got.Channels, 2)

	general := got.Channels[0]
	assert.Equal(t, "C1", general.ID)
	assert.Equal(t, 3, general.Messages, "channel_join is excluded")
	assert.Equal(t, 2, general.Users)
	assert.Equal(t, 3, timeline.Total(general.Activity))
	require.Len(t, general.Markers, 1)
	assert.Equal(t, "tada", general.Markers[0].EmojiName)

	assert.Zero(t, got.Channels[1].Messages)
}

func TestActivityCmd_Text(t *testing.T) {
	app, out, _ := newTestApp(t, config.BackendMemory)

	require.NoError(t, run(t, app, "activity", "--timeframe", "1d", "--list", "member"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "one sparkline and the axis")
	assert.Contains(t, lines[0], "#general")
	assert.Contains(t, lines[0], "3 msgs, 2 users")
	assert.Contains(t, lines[0], ":tada: 4")
}

func TestCacheCmd(t *testing.T) {
	app, _, flags := newTestApp(t, config.BackendFile)
	ctx := context.Background()

	require.NoError(t, run(t, app, "channels"))

	store, ok := flags.Cache.(*jsonfile.CacheStore)
	require.True(t, ok)
	live, _, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, live, "channel listing is cached")

	require.NoError(t, run(t, app, "cache", "prune"))
	require.NoError(t, run(t, app, "cache", "clear"))

	live, _, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, live)
}

func TestDoctorCmd_JSON(t *testing.T) {
	app, out, _ := newTestApp(t, config.BackendMemory)

	require.NoError(t, run(t, app, "doctor", "--format", "json"))

	var got struct {
		Healthy bool `json:"healthy"`
		Summary struct {
			Failed int `json:"failed"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Healthy)
	assert.Zero(t, got.Summary.Failed)
}

func TestConfigShow_RedactsToken(t *testing.T) {
	app, out, _ := newTestApp(t, config.BackendMemory)

	require.NoError(t, run(t, app, "config", "show"))
	assert.Contains(t, out.String(), "token: xoxb-***")
	assert.NotContains(t, out.String(), "xoxb-test")
}

func TestConfigInit_NonInteractive(t *testing.T) {
	app, _, flags := newTestApp(t, config.BackendMemory)

	err := run(t, app, "config", "init", "--set", "list=member")
	require.ErrorContains(t, err, "already exists")

	require.NoError(t, run(t, app, "config", "init", "--force", "--set", "list=member", "--set", "include=eng-*"))

	data, err := os.ReadFile(flags.ConfigPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "xoxb-test", "flag token is not persisted")

	cfg, err := config.Load(flags.ConfigPath, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.ListMember, cfg.Channels.List)
	assert.Equal(t, []string{"eng-*"}, cfg.Channels.Include)
	assert.Equal(t, flags.Config.Slack.APIURL, cfg.Slack.APIURL)

	err = run(t, app, "config", "init", "--force", "--set", "colour=blue")
	require.ErrorContains(t, err, "unknown setting")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "xoxp-***", redact("xoxp-1234-abcd"))
	assert.Equal(t, "***", redact("plaintoken"))
}

func TestTopReactions(t *testing.T) {
	markers := []reactions.Marker{
		{EmojiName: "eyes", Count: 2},
		{EmojiName: "fire", Count: 3},
		{EmojiName: "tada", Count: 7},
	}

	assert.Equal(t, ":tada: 7  :fire: 3", topReactions(markers, 2))
	assert.Empty(t, topReactions(markers, 0))
	assert.Empty(t, topReactions(nil, 3))
}

func TestAxisLabels(t *testing.T) {
	start := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)
	var data, labels []time.Time
	for i := range 24 {
		data = append(data, start.Add(time.Duration(i)*time.Hour))
	}
	for i := range 4 {
		labels = append(labels, start.Add(time.Duration(i*6)*time.Hour))
	}

	tf, err := timeline.ParseTimeframe("1d")
	require.NoError(t, err)

	got := axisLabels(pulse.ChannelView{Timeframe: tf, DataTicks: data, LabelTicks: labels})
	assert.Equal(t, "00:00 06:00 12:00 18:00", got)
}
