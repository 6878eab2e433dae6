package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/pulse"
	"github.com/hay-kot/pulse/internal/stream"
)

// Every message produced by an asynchronous command carries the generation
// it was started under. Update drops messages from older generations, so a
// batch from a replaced subscription never reaches the store.

// channelsLoadedMsg is sent when the channel listing is loaded.
type channelsLoadedMsg struct {
	gen      int
	channels []messaging.Channel
	err      error
}

// batchMsg is sent for every page delivered by the subscription.
type batchMsg struct {
	gen   int
	batch stream.Batch
}

// streamDoneMsg is sent when the subscription closes its batch channel.
type streamDoneMsg struct {
	gen int
}

// clockTickMsg is sent to redraw the chart as time passes.
type clockTickMsg struct{}

const clockTickInterval = time.Minute

// loadChannels returns a command that loads and selects the channels of
// listType.
func loadChannels(ctx context.Context, svc *pulse.Service, listType string, refresh bool, gen int) tea.Cmd {
	return func() tea.Msg {
		all, err := svc.Channels(ctx, refresh)
		if err != nil {
			return channelsLoadedMsg{gen: gen, err: err}
		}

		selected, err := svc.Select(all, listType)
		return channelsLoadedMsg{gen: gen, channels: selected, err: err}
	}
}

// waitForBatch returns a command that waits for the next batch of sub.
func waitForBatch(sub *stream.Subscription, gen int) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-sub.Batches()
		if !ok {
			return streamDoneMsg{gen: gen}
		}
		return batchMsg{gen: gen, batch: b}
	}
}

// scheduleClockTick returns a command that schedules the next redraw.
func scheduleClockTick() tea.Cmd {
	return tea.Tick(clockTickInterval, func(time.Time) tea.Msg {
		return clockTickMsg{}
	})
}
