package timeline

import (
	"sort"
	"time"

	"github.com/hay-kot/pulse/internal/core/messaging"
)

// Point is the number of events in the bucket starting at BucketStart.
type Point struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
}

// ToActivityData counts events per bucket. Bucket i covers
// [ticks[i], ticks[i+1]) and the last bucket is open ended. Events before the
// first tick are not counted, so the counts sum to at most len(events).
//
// ticks must be strictly increasing. The result has one point per tick.
func ToActivityData(ticks []time.Time, events []time.Time) []Point {
	points := make([]Point, len(ticks))
	for i, t := range ticks {
		points[i].BucketStart = t
	}

	if len(ticks) == 0 {
		return points
	}

	for _, e := range events {
		// index of the first tick after e, minus one, is e's bucket
		idx := sort.Search(len(ticks), func(i int) bool {
			return ticks[i].After(e)
		}) - 1
		if idx >= 0 {
			points[idx].Count++
		}
	}

	return points
}

// Timestamps returns the timestamps of msgs in order.
func Timestamps(msgs []messaging.Message) []time.Time {
	out := make([]time.Time, len(msgs))
	for i, m := range msgs {
		out[i] = m.Timestamp
	}
	return out
}

// MaxCount returns the largest count in points, or 1 when every bucket is
// empty so it can be used directly as a y-axis maximum.
func MaxCount(points []Point) int {
	maxCount := 0
	for _, p := range points {
		if p.Count > maxCount {
			maxCount = p.Count
		}
	}
	if maxCount == 0 {
		return 1
	}
	return maxCount
}

// Total returns the sum of all counts.
func Total(points []Point) int {
	total := 0
	for _, p := range points {
		total += p.Count
	}
	return total
}
