package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/core/timeline"
)

// Field names accepted by Apply and --set.
const (
	FieldToken           = "token"
	FieldList            = "list"
	FieldTimeframe       = "timeframe"
	FieldBackend         = "backend"
	FieldInclude         = "include"
	FieldExclude         = "exclude"
	FieldExcludeSubtypes = "exclude_subtypes"
)

// knownSubtypes are offered by the exclude_subtypes question.
var knownSubtypes = []string{
	messaging.SubtypeChannelJoin,
	messaging.SubtypeChannelLeave,
	messaging.SubtypeBotMessage,
	"channel_topic",
	"channel_purpose",
	"thread_broadcast",
}

// Questions returns the setup form fields with defaults taken from cfg.
func Questions(cfg config.Config) []Field {
	timeframes := make([]Option, 0)
	for _, name := range timeline.TimeframeNames() {
		timeframes = append(timeframes, Option{Value: name})
	}

	subtypes := slices.Clone(knownSubtypes)
	for _, s := range cfg.Stream.ExcludeSubtypes {
		if !slices.Contains(subtypes, s) {
			subtypes = append(subtypes, s)
		}
	}
	subtypeOpts := make([]Option, len(subtypes))
	for i, s := range subtypes {
		subtypeOpts[i] = Option{Value: s}
	}

	return []Field{
		{
			Name:        FieldToken,
			Label:       "Slack token",
			Description: "Leave empty to read SLACK_TOKEN at runtime.",
			Type:        FieldTypeString,
			Placeholder: "xoxb-...",
			Default:     cfg.Slack.Token,
		},
		{
			Name:  FieldList,
			Label: "Channels",
			Type:  FieldTypeSelect,
			Options: []Option{
				{Value: config.ListPopular, Label: "Most popular channels"},
				{Value: config.ListMember, Label: "Channels I am a member of"},
			},
			Default: cfg.Channels.List,
		},
		{
			Name:    FieldTimeframe,
			Label:   "Default timeframe",
			Type:    FieldTypeSelect,
			Options: timeframes,
			Default: cfg.Timeframe,
		},
		{
			Name:  FieldBackend,
			Label: "Cache",
			Type:  FieldTypeSelect,
			Options: []Option{
				{Value: config.BackendFile, Label: "File in the data directory"},
				{Value: config.BackendRedis, Label: "Redis"},
				{Value: config.BackendMemory, Label: "Memory (per run)"},
				{Value: config.BackendNone, Label: "Disabled"},
			},
			Default: cfg.Cache.Backend,
		},
		{
			Name:        FieldInclude,
			Label:       "Include channels",
			Description: "Comma separated glob patterns, e.g. eng-*. Empty includes all.",
			Type:        FieldTypeString,
			Default:     strings.Join(cfg.Channels.Include, ", "),
		},
		{
			Name:        FieldExclude,
			Label:       "Exclude channels",
			Description: "Comma separated glob patterns.",
			Type:        FieldTypeString,
			Default:     strings.Join(cfg.Channels.Exclude, ", "),
		},
		{
			Name:     FieldExcludeSubtypes,
			Label:    "Ignored message types",
			Type:     FieldTypeMultiSelect,
			Options:  subtypeOpts,
			Defaults: slices.Clone(cfg.Stream.ExcludeSubtypes),
		},
	}
}

// Apply writes form values onto cfg. Unknown names are rejected so --set
// typos are not silently ignored.
func Apply(cfg *config.Config, values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		v := values[name]
		switch name {
		case FieldToken:
			cfg.Slack.Token = strings.TrimSpace(asString(v))
		case FieldList:
			cfg.Channels.List = asString(v)
		case FieldTimeframe:
			cfg.Timeframe = asString(v)
		case FieldBackend:
			cfg.Cache.Backend = asString(v)
		case FieldInclude:
			cfg.Channels.Include = asList(v)
		case FieldExclude:
			cfg.Channels.Exclude = asList(v)
		case FieldExcludeSubtypes:
			cfg.Stream.ExcludeSubtypes = asList(v)
		default:
			return fmt.Errorf("unknown setting %q", name)
		}
	}

	return nil
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	default:
		return ""
	}
}

func asList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case string:
		return splitList(val)
	default:
		return nil
	}
}

// Write saves cfg as YAML at path, creating parent directories. The file may
// hold a token, so it is only readable by the owner.
func Write(path string, cfg config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
