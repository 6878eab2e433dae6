package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
	"github.com/hay-kot/pulse/internal/pulse"
)

var t0 = time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC)

func hourly(n int) []time.Time {
	ticks := make([]time.Time, n)
	for i := range ticks {
		ticks[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	return ticks
}

func TestResample(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		cols   int
		want   []int
	}{
		{name: "halves", counts: []int{1, 2, 3, 4}, cols: 2, want: []int{3, 7}},
		{name: "uneven", counts: []int{1, 1, 1, 1, 1}, cols: 2, want: []int{2, 3}},
		{name: "same width", counts: []int{1, 2, 3}, cols: 3, want: []int{1, 2, 3}},
		{name: "stretched", counts: []int{1, 2, 3}, cols: 5, want: []int{1, 1, 2, 2, 3}},
		{name: "single bucket", counts: []int{4}, cols: 3, want: []int{4, 4, 4}},
		{name: "single column", counts: []int{1, 2}, cols: 1, want: []int{3}},
		{name: "zero cols", counts: []int{1, 2}, cols: 0, want: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resample(tt.counts, tt.cols))
		})
	}
}

func TestResample_MatchesMarkerColumns(t *testing.T) {
	ticks := hourly(12)
	cs := make([]int, len(ticks))
	cs[len(cs)-1] = 9

	for _, cols := range []int{6, 12, 60} {
		pos := pulse.Positioner(ticks, float64(cols-1))
		last := reactions.Marker{EmojiName: "tada", Count: 9, Position: pos(ticks[len(ticks)-1])}

		spark := resample(cs, cols)
		row, _ := markerRow([]reactions.Marker{last}, cols)

		require.Len(t, spark, cols)
		assert.Equal(t, lipgloss.Width(row), len(spark))

		col := columnOf(last.Position, cols)
		assert.Equal(t, 9, spark[col], "marker sits over its bucket at %d cols", cols)

		p, ok := bucketAt(timelinePoints(ticks, cs), timeAt(ticks, col, cols))
		require.True(t, ok)
		assert.Equal(t, 9, p.Count)
	}
}

func timelinePoints(ticks []time.Time, cs []int) []timeline.Point {
	out := make([]timeline.Point, len(ticks))
	for i := range ticks {
		out[i] = timeline.Point{BucketStart: ticks[i], Count: cs[i]}
	}
	return out
}

func TestColumnOf(t *testing.T) {
	assert.Equal(t, 3, columnOf(2.6, 10))
	assert.Equal(t, 0, columnOf(-4, 10))
	assert.Equal(t, 9, columnOf(50, 10))
	assert.Equal(t, 0, columnOf(5, 0))
}

func TestMarkerRow(t *testing.T) {
	markers := []reactions.Marker{
		{EmojiName: "eyes", Count: 2, Position: 1},
		{EmojiName: "tada", Count: 5, Position: 6, Promoted: true},
	}

	row, promoted := markerRow(markers, 10)

	assert.Equal(t, 10, lipgloss.Width(row))
	assert.Equal(t, 2, strings.Count(row, iconMarker))
	require.NotNil(t, promoted)
	assert.Equal(t, "tada", promoted.EmojiName)
	assert.Equal(t, ":tada: 5", describeMarker(*promoted))

	row, promoted = markerRow(nil, 4)
	assert.Equal(t, "    ", row)
	assert.Nil(t, promoted)
}

func TestAxisRow(t *testing.T) {
	data := hourly(25)
	labels := []time.Time{t0, t0.Add(6 * time.Hour), t0.Add(12 * time.Hour), t0.Add(18 * time.Hour), t0.Add(24 * time.Hour)}

	row := axisRow(labels, pulse.Positioner(data, 24), "15:04", 25)

	assert.Equal(t, 25, len([]rune(row)))
	assert.Equal(t, "00:00 06:00 12:00 18:00", strings.TrimRight(row, " "), "label past the edge is skipped")
}

func TestPointerRow(t *testing.T) {
	assert.Equal(t, 4, lipgloss.Width(pointerRow(3, 10)))
	assert.Empty(t, pointerRow(-1, 10))
	assert.Empty(t, pointerRow(10, 10))
}

func TestTimeAt(t *testing.T) {
	ticks := hourly(11)

	assert.Equal(t, t0, timeAt(ticks, 0, 11))
	assert.Equal(t, t0.Add(5*time.Hour), timeAt(ticks, 5, 11))
	assert.Equal(t, t0.Add(10*time.Hour), timeAt(ticks, 99, 11))
	assert.True(t, timeAt(nil, 3, 11).IsZero())
}

func TestBucketAt(t *testing.T) {
	points := []timeline.Point{
		{BucketStart: t0, Count: 1},
		{BucketStart: t0.Add(time.Hour), Count: 4},
		{BucketStart: t0.Add(2 * time.Hour), Count: 2},
	}

	got, ok := bucketAt(points, t0.Add(90*time.Minute))
	require.True(t, ok)
	assert.Equal(t, 4, got.Count)

	got, ok = bucketAt(points, t0.Add(5*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 2, got.Count)

	_, ok = bucketAt(points, t0.Add(-time.Minute))
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "#general", truncate("#general", 8))
	assert.Equal(t, "#gen…", truncate("#general", 5))
	assert.Equal(t, "#", truncate("#general", 1))
	assert.Empty(t, truncate("#general", 0))
}

func TestPeak(t *testing.T) {
	assert.Equal(t, 1, peak(nil))
	assert.Equal(t, 1, peak([]int{0, 0}))
	assert.Equal(t, 7, peak([]int{3, 7, 2}))
}
