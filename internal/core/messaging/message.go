// Package messaging defines the workspace domain types (channels, messages,
// reactions) and the incremental per-channel message store.
package messaging

import (
	"context"
	"time"
)

// Well known message subtypes that are excluded by default.
const (
	SubtypeChannelJoin  = "channel_join"
	SubtypeChannelLeave = "channel_leave"
	SubtypeBotMessage   = "bot_message"
)

// DefaultExcludedSubtypes are dropped before messages reach the store.
var DefaultExcludedSubtypes = []string{
	SubtypeChannelJoin,
	SubtypeChannelLeave,
	SubtypeBotMessage,
}

// Channel represents a conversation in the workspace.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsMember   bool   `json:"is_member"`
	NumMembers int    `json:"num_members"`
}

// Reaction is an emoji annotation attached to a message.
type Reaction struct {
	EmojiName string   `json:"name"`
	Count     int      `json:"count"`
	UserIDs   []string `json:"users,omitempty"`
}

// Message is a single channel message. ID is the provider timestamp string
// and is unique within a channel.
type Message struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	UserID    string     `json:"user_id,omitempty"`
	Reactions []Reaction `json:"reactions,omitempty"`
	Subtype   string     `json:"subtype,omitempty"`
}

// HasReactions reports whether the message carries at least one reaction.
func (m Message) HasReactions() bool {
	return len(m.Reactions) > 0
}

// HistoryRequest describes a single page request of channel history.
type HistoryRequest struct {
	ChannelID string
	Oldest    time.Time
	Cursor    string
	Limit     int
}

// HistoryPage is one page of channel history. An empty NextCursor means the
// provider has no further pages.
type HistoryPage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// HistoryFetcher fetches a single page of channel history.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, req HistoryRequest) (HistoryPage, error)
}

// ChannelLister lists the channels of the workspace.
type ChannelLister interface {
	Channels(ctx context.Context) ([]Channel, error)
}

// SubtypeFilter reports whether a message should be dropped based on its
// subtype.
type SubtypeFilter map[string]struct{}

// NewSubtypeFilter builds a filter from a list of subtypes.
func NewSubtypeFilter(subtypes []string) SubtypeFilter {
	f := make(SubtypeFilter, len(subtypes))
	for _, s := range subtypes {
		f[s] = struct{}{}
	}
	return f
}

// Excludes returns true if msg has a subtype in the filter.
func (f SubtypeFilter) Excludes(msg Message) bool {
	if msg.Subtype == "" {
		return false
	}
	_, ok := f[msg.Subtype]
	return ok
}

// Apply returns the messages that are not excluded. The input is not modified.
func (f SubtypeFilter) Apply(msgs []Message) []Message {
	if len(f) == 0 {
		return msgs
	}

	kept := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if !f.Excludes(m) {
			kept = append(kept, m)
		}
	}
	return kept
}
