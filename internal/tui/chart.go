package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
)

// resample maps counts onto exactly cols columns using the same linear
// placement as the marker positioner: bucket i sits at column
// i*(cols-1)/(len-1). Narrow charts sum the buckets that round to a column;
// wide charts repeat each bucket until the next one starts.
func resample(counts []int, cols int) []int {
	n := len(counts)
	if cols <= 0 || n == 0 || cols == n {
		return counts
	}

	out := make([]int, cols)
	if n == 1 || cols == 1 {
		total := 0
		for _, c := range counts {
			total += c
		}
		if cols == 1 {
			out[0] = total
			return out
		}
		for j := range out {
			out[j] = total
		}
		return out
	}

	if cols < n {
		for i, c := range counts {
			col := int(math.Round(float64(i*(cols-1)) / float64(n-1)))
			out[col] += c
		}
		return out
	}

	for j := range out {
		out[j] = counts[j*(n-1)/(cols-1)]
	}
	return out
}

// columnOf rounds a marker position to a column in [0, cols).
func columnOf(pos float64, cols int) int {
	if cols <= 0 || math.IsNaN(pos) {
		return 0
	}
	col := int(math.Round(pos))
	return min(max(col, 0), cols-1)
}

// markerRow places one glyph per marker. Markers are sorted by ascending
// count, so the most reacted marker wins a shared column. The promoted
// marker is returned separately.
func markerRow(markers []reactions.Marker, cols int) (string, *reactions.Marker) {
	if cols <= 0 {
		return "", nil
	}

	row := make([]string, cols)
	for i := range row {
		row[i] = " "
	}

	var promoted *reactions.Marker
	for i, m := range markers {
		col := columnOf(m.Position, cols)
		if m.Promoted {
			promoted = &markers[i]
			row[col] = promotedStyle.Render(iconMarker)
			continue
		}
		if promoted != nil && columnOf(promoted.Position, cols) == col {
			continue
		}
		row[col] = markerStyle.Render(iconMarker)
	}

	return strings.Join(row, ""), promoted
}

// axisRow places the label tick texts at their columns. Labels that would
// overlap the previous one or run past the edge are skipped.
func axisRow(labelTicks []time.Time, pos reactions.Positioner, layout string, cols int) string {
	row := []rune(strings.Repeat(" ", max(cols, 0)))
	next := 0

	for _, t := range labelTicks {
		col := columnOf(pos(t), cols)
		if col < next {
			continue
		}
		text := []rune(t.Format(layout))
		if col+len(text) > cols {
			continue
		}
		copy(row[col:], text)
		next = col + len(text) + 1
	}

	return string(row)
}

// pointerRow draws the pointer glyph under col.
func pointerRow(col, cols int) string {
	if col < 0 || col >= cols {
		return ""
	}
	return strings.Repeat(" ", col) + pointerStyle.Render(iconPointer)
}

// timeAt maps a column back to an instant on the data ticks' span.
func timeAt(ticks []time.Time, col, cols int) time.Time {
	if len(ticks) == 0 {
		return time.Time{}
	}
	if len(ticks) < 2 || cols < 2 {
		return ticks[0]
	}

	span := ticks[len(ticks)-1].Sub(ticks[0])
	frac := float64(min(max(col, 0), cols-1)) / float64(cols-1)
	return ticks[0].Add(time.Duration(frac * float64(span)))
}

// bucketAt returns the activity point whose bucket contains t.
func bucketAt(points []timeline.Point, t time.Time) (timeline.Point, bool) {
	idx := -1
	for i, p := range points {
		if p.BucketStart.After(t) {
			break
		}
		idx = i
	}
	if idx < 0 {
		return timeline.Point{}, false
	}
	return points[idx], true
}

// counts returns the counts of points.
func counts(points []timeline.Point) []int {
	out := make([]int, len(points))
	for i, p := range points {
		out[i] = p.Count
	}
	return out
}

// peak returns the largest count, at least 1.
func peak(cs []int) int {
	m := 1
	for _, c := range cs {
		m = max(m, c)
	}
	return m
}

// describeMarker formats a marker as ":emoji: count".
func describeMarker(m reactions.Marker) string {
	return fmt.Sprintf(":%s: %d", m.EmojiName, m.Count)
}

// truncate shortens s to width runes, ending with an ellipsis when cut.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:max(width, 0)])
	}
	return string(r[:width-1]) + "…"
}
