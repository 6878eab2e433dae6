package messaging

import "time"

// Store maps a channel ID to its de-duplicated messages in arrival order.
//
// A Store is treated as an immutable value: Merge returns a new Store and
// never modifies the one it was given, so a single writer can publish
// snapshots to readers without locking.
type Store map[string][]Message

// Merge returns a copy of store with batch merged into the messages of
// channelID. Messages already present (by ID) are ignored, as are duplicates
// inside batch, so merging the same batch twice is a no-op.
func Merge(store Store, channelID string, batch []Message) Store {
	existing := store[channelID]

	seen := make(map[string]struct{}, len(existing)+len(batch))
	for _, m := range existing {
		seen[m.ID] = struct{}{}
	}

	var added []Message
	for _, m := range batch {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		added = append(added, m)
	}

	next := make(Store, len(store)+1)
	for id, msgs := range store {
		next[id] = msgs
	}

	if len(added) == 0 {
		if _, ok := next[channelID]; !ok {
			next[channelID] = []Message{}
		}
		return next
	}

	merged := make([]Message, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)
	next[channelID] = merged

	return next
}

// Within returns the messages of channelID whose timestamp falls in
// [start, end). The store is not modified.
func (s Store) Within(channelID string, start, end time.Time) []Message {
	msgs := s[channelID]
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if WithinInterval(m, start, end) {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of stored messages for channelID.
func (s Store) Count(channelID string) int {
	return len(s[channelID])
}

// WithinInterval reports whether msg falls in the half-open interval
// [start, end).
func WithinInterval(msg Message, start, end time.Time) bool {
	return !msg.Timestamp.Before(start) && msg.Timestamp.Before(end)
}

// ActiveUsers returns the number of distinct non-empty user IDs in msgs.
func ActiveUsers(msgs []Message) int {
	users := make(map[string]struct{})
	for _, m := range msgs {
		if m.UserID != "" {
			users[m.UserID] = struct{}{}
		}
	}
	return len(users)
}
