package pulse

import (
	"time"

	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
)

// NoPointer disables marker spreading in View.
const NoPointer = -1.0

// ChannelView is everything needed to draw one channel row.
type ChannelView struct {
	Channel    messaging.Channel
	Timeframe  timeline.Timeframe
	Interval   timeline.Interval
	DataTicks  []time.Time
	LabelTicks []time.Time
	Activity   []timeline.Point
	Markers    []reactions.Marker
	Messages   int
	Users      int
}

// MaxCount is the y-domain maximum of the activity points.
func (v ChannelView) MaxCount() int {
	return timeline.MaxCount(v.Activity)
}

// View derives the activity and reaction overlay of ch from store over tf.
// Positions are mapped linearly from [first tick, last tick] onto
// [0, width]. A pointer of NoPointer (or any negative value) leaves markers
// where they are; otherwise nearby markers are spread around it.
func (s *Service) View(store messaging.Store, ch messaging.Channel, tf timeline.Timeframe, width, pointer float64) (ChannelView, error) {
	iv := tf.Resolve(s.clock())

	dataTicks, err := tf.DataTicks(iv)
	if err != nil {
		return ChannelView{}, err
	}
	labelTicks, err := tf.LabelTicks(iv)
	if err != nil {
		return ChannelView{}, err
	}

	// Counts, markers and the chart all cover [first data tick, end).
	start := iv.Start
	if len(dataTicks) > 0 && dataTicks[0].After(start) {
		start = dataTicks[0]
	}
	msgs := store.Within(ch.ID, start, iv.End)

	markers := s.normalizer.Normalize(msgs, Positioner(dataTicks, width))
	if pointer >= 0 {
		markers = s.normalizer.Spread(markers, pointer)
	}

	return ChannelView{
		Channel:    ch,
		Timeframe:  tf,
		Interval:   iv,
		DataTicks:  dataTicks,
		LabelTicks: labelTicks,
		Activity:   timeline.ToActivityData(dataTicks, timeline.Timestamps(msgs)),
		Markers:    markers,
		Messages:   len(msgs),
		Users:      messaging.ActiveUsers(msgs),
	}, nil
}

// Positioner maps instants linearly from the first to the last tick onto
// [0, width]. With fewer than two ticks everything maps to 0.
func Positioner(ticks []time.Time, width float64) reactions.Positioner {
	if len(ticks) < 2 {
		return func(time.Time) float64 { return 0 }
	}

	first := ticks[0]
	span := float64(ticks[len(ticks)-1].Sub(first))

	return func(t time.Time) float64 {
		return float64(t.Sub(first)) / span * width
	}
}
