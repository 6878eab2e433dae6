package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownTimeframe is returned by ParseTimeframe for unsupported names.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// Clock returns the current instant. It is injected so timeframe resolution
// can be tested deterministically.
type Clock func() time.Time

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t is in [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Timeframe is a named window relative to "now", together with the steps used
// to bucket data and to place axis labels inside it.
type Timeframe struct {
	Name      string
	Length    Step
	DataStep  Step
	LabelStep Step

	// DataBuckets and LabelBuckets, when set, replace the explicit steps with
	// MakeTicks(count).
	DataBuckets  int
	LabelBuckets int
}

var timeframes = []Timeframe{
	{Name: "1h", Length: Every(Hour, 1), DataStep: Every(Minute, 5), LabelStep: Every(Minute, 15)},
	{Name: "1d", Length: Every(Day, 1), DataStep: Every(Minute, 30), LabelStep: Every(Hour, 6)},
	{Name: "7d", Length: Every(Day, 7), DataStep: Every(Hour, 2), LabelStep: Every(Day, 1)},
	{Name: "4w", Length: Every(Week, 4), DataStep: Every(Day, 1), LabelStep: Every(Week, 1)},
	{Name: "1m", Length: Every(Month, 1), DataStep: Every(Day, 1), LabelStep: Every(Week, 1)},
	{Name: "3m", Length: Every(Month, 3), DataStep: Every(Day, 1), LabelStep: Every(Month, 1)},
	{Name: "6m", Length: Every(Month, 6), DataStep: Every(Week, 1), LabelStep: Every(Month, 1)},
}

// DefaultTimeframe is used when nothing else is configured.
const DefaultTimeframe = "7d"

// Timeframes returns the supported timeframes from shortest to longest.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframes))
	copy(out, timeframes)
	return out
}

// TimeframeNames returns the names of the supported timeframes.
func TimeframeNames() []string {
	names := make([]string, len(timeframes))
	for i, tf := range timeframes {
		names[i] = tf.Name
	}
	return names
}

// ParseTimeframe looks up a timeframe by name.
func ParseTimeframe(name string) (Timeframe, error) {
	for _, tf := range timeframes {
		if tf.Name == name {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("%w %q (expected one of %s)", ErrUnknownTimeframe, name, strings.Join(TimeframeNames(), ", "))
}

// Resolve returns the absolute interval ending at now.
func (tf Timeframe) Resolve(now time.Time) Interval {
	return Interval{
		Start: tf.Length.Offset(now, -1),
		End:   now,
	}
}

// DataTicks returns the bucket boundaries used for activity counting.
func (tf Timeframe) DataTicks(iv Interval) ([]time.Time, error) {
	if tf.DataBuckets > 0 {
		return MakeTicks(iv.Start, iv.End, tf.DataBuckets)
	}
	return Ticks(iv.Start, iv.End, tf.DataStep)
}

// LabelTicks returns the instants used for axis labels.
func (tf Timeframe) LabelTicks(iv Interval) ([]time.Time, error) {
	if tf.LabelBuckets > 0 {
		return MakeTicks(iv.Start, iv.End, tf.LabelBuckets)
	}
	return Ticks(iv.Start, iv.End, tf.LabelStep)
}

// LabelFormat returns a Go time layout suited to the timeframe's labels.
func (tf Timeframe) LabelFormat() string {
	switch tf.Name {
	case "1h", "1d":
		return "15:04"
	case "7d":
		return "Mon"
	default:
		return "Jan 2"
	}
}

// FetchOldest returns the interval start floored to five minutes. Using it as
// the history lower bound keeps cache keys stable between refreshes.
func FetchOldest(iv Interval) time.Time {
	return Every(Minute, 5).Floor(iv.Start)
}
