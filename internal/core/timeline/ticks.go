package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidRange is matched by every InvalidRangeError.
var ErrInvalidRange = errors.New("invalid range")

// InvalidRangeError is returned when a tick range is empty or reversed, or
// when the requested bucket count is below one. Retrying with the same
// arguments always fails.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
	Count int
}

func (e *InvalidRangeError) Error() string {
	if e.Count < 1 && e.Start.Before(e.End) {
		return fmt.Sprintf("invalid range: bucket count %d must be at least 1", e.Count)
	}
	return fmt.Sprintf("invalid range: start %s must be before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// ladder mirrors d3's scaleTime tick intervals.
var ladder = []Step{
	{Second, 1},
	{Second, 5},
	{Second, 15},
	{Second, 30},
	{Minute, 1},
	{Minute, 5},
	{Minute, 15},
	{Minute, 30},
	{Hour, 1},
	{Hour, 3},
	{Hour, 6},
	{Hour, 12},
	{Day, 1},
	{Day, 2},
	{Week, 1},
	{Month, 1},
	{Month, 3},
	{Year, 1},
}

// MakeTicks returns calendar-aligned ticks spanning [start, end]. The step is
// picked from a fixed ladder of "nice" intervals so that the number of ticks
// is close to approxBucketCount; the same inputs always yield the same ticks.
func MakeTicks(start, end time.Time, approxBucketCount int) ([]time.Time, error) {
	step, err := ChooseStep(start, end, approxBucketCount)
	if err != nil {
		return nil, err
	}
	return step.Range(start, end), nil
}

// ChooseStep returns the step MakeTicks would use for the given range.
func ChooseStep(start, end time.Time, approxBucketCount int) (Step, error) {
	if !start.Before(end) || approxBucketCount < 1 {
		return Step{}, &InvalidRangeError{Start: start, End: end, Count: approxBucketCount}
	}

	target := end.Sub(start) / time.Duration(approxBucketCount)

	i := sort.Search(len(ladder), func(i int) bool {
		return ladder[i].Approx() > target
	})

	switch {
	case i == len(ladder):
		years := float64(Every(Year, 1).Approx())
		k := tickStep(float64(start.UnixNano())/years, float64(end.UnixNano())/years, approxBucketCount)
		return Every(Year, k), nil
	case i == 0:
		return Every(Second, 1), nil
	}

	lo, hi := ladder[i-1], ladder[i]
	if float64(target)/float64(lo.Approx()) < float64(hi.Approx())/float64(target) {
		return lo, nil
	}
	return hi, nil
}

// Ticks is MakeTicks with an explicit step.
func Ticks(start, end time.Time, step Step) ([]time.Time, error) {
	if !start.Before(end) {
		return nil, &InvalidRangeError{Start: start, End: end, Count: 1}
	}
	return step.Range(start, end), nil
}

// tickStep returns a 1, 2 or 5 times power of ten step for count ticks
// between start and stop, never less than one.
func tickStep(start, stop float64, count int) int {
	step0 := math.Abs(stop-start) / float64(count)
	step1 := math.Pow(10, math.Floor(math.Log10(step0)))

	switch e := step0 / step1; {
	case e >= math.Sqrt(50):
		step1 *= 10
	case e >= math.Sqrt(10):
		step1 *= 5
	case e >= math.Sqrt(2):
		step1 *= 2
	}

	if step1 < 1 {
		return 1
	}
	return int(step1)
}
