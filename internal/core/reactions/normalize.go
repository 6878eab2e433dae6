// Package reactions turns per-message reaction lists into positioned overlay
// markers, one per message at most.
package reactions

import (
	"math"
	"regexp"
	"slices"
	"time"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

// Default normalizer options.
const (
	DefaultThreshold       = 1
	DefaultCollisionRadius = 12.0
	DefaultPushStrength    = 16.0
)

// Marker is the overlay representation of the most popular reaction on a
// message.
type Marker struct {
	EmojiName       string  `json:"emoji"`
	Count           int     `json:"count"`
	SourceMessageID string  `json:"message_id"`
	Position        float64 `json:"position"`

	// Promoted is set by Spread on the marker closest to the pointer.
	Promoted bool `json:"promoted,omitempty"`
}

// Positioner maps a message timestamp to a horizontal coordinate.
type Positioner func(time.Time) float64

// Options configures a Normalizer.
type Options struct {
	// Threshold drops reactions whose count is less than or equal to it.
	Threshold int
	// CollisionRadius is the distance from the pointer within which markers
	// are pushed aside.
	CollisionRadius float64
	// PushStrength scales PushOffset.
	PushStrength float64
}

// DefaultOptions returns the options used by Normalize.
func DefaultOptions() Options {
	return Options{
		Threshold:       DefaultThreshold,
		CollisionRadius: DefaultCollisionRadius,
		PushStrength:    DefaultPushStrength,
	}
}

// Normalizer builds reaction markers.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer. Zero radius or strength fall back to defaults; a
// negative threshold is treated as zero.
func New(opts Options) *Normalizer {
	if opts.Threshold < 0 {
		opts.Threshold = 0
	}
	if opts.CollisionRadius <= 0 {
		opts.CollisionRadius = DefaultCollisionRadius
	}
	if opts.PushStrength <= 0 {
		opts.PushStrength = DefaultPushStrength
	}
	return &Normalizer{opts: opts}
}

// Options returns the effective options.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize builds markers with DefaultOptions.
func Normalize(msgs []messaging.Message, positioner Positioner) []Marker {
	return New(DefaultOptions()).Normalize(msgs, positioner)
}

type candidate struct {
	msg   *messaging.Message
	emoji string
	count int
}

// Normalize returns at most one marker per message: the reaction with the
// highest count above the threshold, first in provider order on ties. The
// result is sorted by ascending count so higher counts render on top.
func (n *Normalizer) Normalize(msgs []messaging.Message, positioner Positioner) []Marker {
	best := make(map[string]int)
	var picked []candidate

	for i := range msgs {
		m := &msgs[i]
		if !m.HasReactions() {
			continue
		}

		for _, r := range m.Reactions {
			if r.EmojiName == "" || r.Count <= n.opts.Threshold {
				continue
			}

			c := candidate{msg: m, emoji: CleanEmojiName(r.EmojiName), count: r.Count}
			idx, seen := best[m.ID]
			switch {
			case !seen:
				best[m.ID] = len(picked)
				picked = append(picked, c)
			case c.count > picked[idx].count:
				picked[idx] = c
			}
		}
	}

	markers := make([]Marker, 0, len(picked))
	for _, c := range picked {
		markers = append(markers, Marker{
			EmojiName:       c.emoji,
			Count:           c.count,
			SourceMessageID: c.msg.ID,
			Position:        positioner(c.msg.Timestamp),
		})
	}

	slices.SortStableFunc(markers, func(a, b Marker) int {
		return a.Count - b.Count
	})

	return markers
}

// Spread returns a copy of markers where every marker within the collision
// radius of pointer is pushed away from it by PushOffset, and the marker
// nearest to pointer is promoted. Markers outside the radius are unchanged.
func (n *Normalizer) Spread(markers []Marker, pointer float64) []Marker {
	out := make([]Marker, len(markers))
	copy(out, markers)

	nearest := -1
	nearestDist := math.Inf(1)

	for i := range out {
		d := out[i].Position - pointer
		if math.Abs(d) > n.opts.CollisionRadius {
			continue
		}
		if math.Abs(d) < nearestDist {
			nearest, nearestDist = i, math.Abs(d)
		}
		out[i].Position += pushOffset(d, n.opts.PushStrength)
	}

	if nearest >= 0 {
		out[nearest].Promoted = true
	}

	return out
}

// PushOffset returns the lateral offset for a marker at distance d from the
// reference point: DefaultPushStrength / sqrt(|d|) in the direction of d.
// |d| is clamped to at least 1 so the offset stays finite, and PushOffset(0)
// is 0. PushOffset(-d) == -PushOffset(d) everywhere.
//
// The magnitude is strictly decreasing in |d| only for |d| >= 1. On
// 0 < |d| < 1 it is flat at DefaultPushStrength, and it drops to 0 at d == 0
// because a marker exactly on the reference point has no side to move to.
func PushOffset(d float64) float64 {
	return pushOffset(d, DefaultPushStrength)
}

func pushOffset(d, strength float64) float64 {
	if d == 0 || math.IsNaN(d) {
		return 0
	}
	offset := strength / math.Sqrt(math.Max(math.Abs(d), 1))
	if d < 0 {
		return -offset
	}
	return offset
}

var skinTone = regexp.MustCompile(`::skin-tone-\d+`)

// CleanEmojiName strips skin tone modifiers from an emoji shortcode.
func CleanEmojiName(name string) string {
	return skinTone.ReplaceAllString(name, "")
}
