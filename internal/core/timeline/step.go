// Package timeline turns time ranges into calendar-aligned buckets and
// counts events per bucket.
package timeline

import (
	"fmt"
	"time"
)

// Unit is a calendar unit used to align ticks.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
	Day
	Week
	Month
	Year
)

var unitSuffix = map[Unit]string{
	Second: "s",
	Minute: "m",
	Hour:   "h",
	Day:    "d",
	Week:   "w",
	Month:  "mo",
	Year:   "y",
}

// Step is a calendar interval such as "every 5 minutes" or "every week".
// Ticks produced by a Step are aligned the same way d3-time aligns
// interval.every(n): minutes divisible by n, days of month where
// (day-1) is divisible by n, months divisible by n, and so on.
type Step struct {
	Unit  Unit
	Count int
}

// Every returns a Step of n units. n below 1 is treated as 1.
func Every(unit Unit, n int) Step {
	if n < 1 {
		n = 1
	}
	return Step{Unit: unit, Count: n}
}

func (s Step) String() string {
	return fmt.Sprintf("%d%s", s.count(), unitSuffix[s.Unit])
}

func (s Step) count() int {
	if s.Count < 1 {
		return 1
	}
	return s.Count
}

// Approx returns the nominal length of the step. Months count as 30 days
// and years as 365 days.
func (s Step) Approx() time.Duration {
	n := time.Duration(s.count())
	switch s.Unit {
	case Second:
		return n * time.Second
	case Minute:
		return n * time.Minute
	case Hour:
		return n * time.Hour
	case Day:
		return n * 24 * time.Hour
	case Week:
		return n * 7 * 24 * time.Hour
	case Month:
		return n * 30 * 24 * time.Hour
	default:
		return n * 365 * 24 * time.Hour
	}
}

// weekEpoch is the first Sunday after the Unix epoch; week steps count
// whole weeks from here.
var weekEpoch = time.Date(1970, time.January, 4, 0, 0, 0, 0, time.UTC)

// Floor returns the latest aligned instant at or before t, in t's location.
func (s Step) Floor(t time.Time) time.Time {
	n := s.count()
	loc := t.Location()
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()

	switch s.Unit {
	case Second:
		return time.Date(y, mo, d, h, mi, sec-sec%n, 0, loc)
	case Minute:
		return time.Date(y, mo, d, h, mi-mi%n, 0, 0, loc)
	case Hour:
		return time.Date(y, mo, d, h-h%n, 0, 0, 0, loc)
	case Day:
		return time.Date(y, mo, d-(d-1)%n, 0, 0, 0, 0, loc)
	case Week:
		sunday := time.Date(y, mo, d-int(t.Weekday()), 0, 0, 0, 0, loc)
		if n == 1 {
			return sunday
		}
		ref := time.Date(weekEpoch.Year(), weekEpoch.Month(), weekEpoch.Day(), 0, 0, 0, 0, loc)
		weeks := int(sunday.Sub(ref).Round(24*time.Hour).Hours()/24) / 7
		return sunday.AddDate(0, 0, -7*mod(weeks, n))
	case Month:
		m := int(mo) - 1
		return time.Date(y, time.Month(m-m%n+1), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y-mod(y, n), time.January, 1, 0, 0, 0, 0, loc)
	}
}

// Offset moves t by k steps without aligning the result.
func (s Step) Offset(t time.Time, k int) time.Time {
	n := s.count() * k
	switch s.Unit {
	case Second:
		return t.Add(time.Duration(n) * time.Second)
	case Minute:
		return t.Add(time.Duration(n) * time.Minute)
	case Hour:
		return t.Add(time.Duration(n) * time.Hour)
	case Day:
		return t.AddDate(0, 0, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return addMonths(t, n)
	default:
		return addMonths(t, 12*n)
	}
}

// addMonths moves t by n calendar months, clamping the day to the end of the
// target month: Mar 31 minus one month is Feb 29, not Mar 2.
func addMonths(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()

	first := time.Date(y, mo+time.Month(n), 1, h, mi, sec, t.Nanosecond(), t.Location())
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()

	return time.Date(first.Year(), first.Month(), min(d, last), h, mi, sec, t.Nanosecond(), t.Location())
}

// next returns the first aligned instant strictly after the aligned instant t.
func (s Step) next(t time.Time) time.Time {
	n := s.Floor(s.Offset(t, 1))
	if !n.After(t) {
		// ambiguous wall clock around a DST transition
		return s.Offset(t, 1)
	}
	return n
}

// Range returns every aligned instant in [start, end], in order.
// It returns nil when start is after end.
func (s Step) Range(start, end time.Time) []time.Time {
	if start.After(end) {
		return nil
	}

	t := s.Floor(start)
	if t.Before(start) {
		t = s.next(t)
	}

	var ticks []time.Time
	for !t.After(end) {
		ticks = append(ticks, t)
		t = s.next(t)
	}
	return ticks
}

func mod(a, b int) int {
	return ((a % b) + b) % b
}
