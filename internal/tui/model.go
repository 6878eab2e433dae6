package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/core/timeline"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/internal/pulse"
	"github.com/hay-kot/pulse/internal/stream"
)

// Layout constants.
const (
	maxNameWidth = 24
	countsWidth  = 16
	// banner (4 lines) + header (1) + axis (1) + pointer (1) + status (1) + help (1)
	chromeHeight = 9
	// sparkline + marker row
	rowHeight = 2
)

// Options configures the TUI behavior.
type Options struct {
	Timeframe string // initial timeframe; empty uses the config
	ListType  string // initial channel list; empty uses the config
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	ctx     context.Context
	cfg     *config.Config
	service *pulse.Service
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	timeframe timeline.Timeframe
	listType  string

	channels []messaging.Channel
	store    messaging.Store
	sub      *stream.Subscription

	// gen identifies the current channel load or subscription.
	gen       int
	loading   bool
	streaming bool
	pages     int
	err       error

	selected int
	offset   int
	pointer  int // column of the pointer, -1 when hidden

	width    int
	height   int
	quitting bool
}

// New creates a new TUI model.
func New(ctx context.Context, service *pulse.Service, cfg *config.Config, opts Options) (Model, error) {
	tf, err := cfg.ResolveTimeframe(opts.Timeframe)
	if err != nil {
		return Model{}, err
	}

	listType := opts.ListType
	if listType == "" {
		listType = cfg.Channels.List
	}

	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(spinnerStyle),
	)

	h := help.New()
	h.Styles.ShortKey = helpStyle
	h.Styles.ShortDesc = helpStyle
	h.Styles.ShortSeparator = helpStyle
	h.Styles.FullKey = helpStyle
	h.Styles.FullDesc = helpStyle
	h.Styles.FullSeparator = helpStyle
	h.ShortSeparator = " " + iconDot + " "

	return Model{
		ctx:       ctx,
		cfg:       cfg,
		service:   service,
		keys:      defaultKeyMap(),
		help:      h,
		spinner:   s,
		timeframe: tf,
		listType:  listType,
		store:     messaging.Store{},
		pointer:   -1,
		loading:   true,
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadChannels(m.ctx, m.service, m.listType, false, m.gen),
		m.spinner.Tick,
		scheduleClockTick(),
	)
}

// reload drops the current subscription and loads the channel listing again.
func (m Model) reload(refresh bool) (Model, tea.Cmd) {
	spin := m.spin()
	m.stop()
	m.gen++
	m.loading = true
	m.err = nil
	return m, tea.Batch(loadChannels(m.ctx, m.service, m.listType, refresh, m.gen), spin)
}

// restart replaces the subscription for the current channels and timeframe.
// The store is kept, so data already loaded stays on screen.
func (m Model) restart() (Model, tea.Cmd) {
	spin := m.spin()
	m.stop()
	m.gen++
	m.pages = 0

	if len(m.channels) == 0 {
		return m, nil
	}

	m.sub = m.service.Stream(m.ctx, m.timeframe, m.channels)
	m.streaming = true
	return m, tea.Batch(waitForBatch(m.sub, m.gen), spin)
}

// spin restarts the spinner ticks when nothing is in flight. A running tick
// loop keeps going on its own.
func (m Model) spin() tea.Cmd {
	if m.loading || m.streaming {
		return nil
	}
	return m.spinner.Tick
}

// stop cancels the current subscription.
func (m *Model) stop() {
	if m.sub != nil {
		m.sub.Unsubscribe()
	}
	m.streaming = false
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.pointer = min(m.pointer, m.chartWidth()-1)
		return m, nil

	case channelsLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.channels = msg.channels
		m.selected = min(m.selected, max(len(m.channels)-1, 0))
		m.clampOffset()
		return m.restart()

	case batchMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.store = messaging.Merge(m.store, msg.batch.ChannelID, msg.batch.Messages)
		m.pages++
		return m, waitForBatch(m.sub, m.gen)

	case streamDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.streaming = false
		for id, err := range m.sub.Failed() {
			log.Warn().Err(err).Str("channel", id).Msg("channel history incomplete")
		}
		return m, nil

	case clockTickMsg:
		// Redraw only; the next View resolves the timeframe against the clock.
		return m, scheduleClockTick()

	case spinner.TickMsg:
		if !m.loading && !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stop()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.channels)-1 {
			m.selected++
			m.clampOffset()
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		if m.pointer < 0 {
			m.pointer = m.chartWidth() - 1
		} else if m.pointer > 0 {
			m.pointer--
		}
		return m, nil

	case key.Matches(msg, m.keys.Right):
		if m.pointer < 0 {
			m.pointer = 0
		} else if m.pointer < m.chartWidth()-1 {
			m.pointer++
		}
		return m, nil

	case key.Matches(msg, m.keys.ClearPointer):
		m.pointer = -1
		return m, nil

	case key.Matches(msg, m.keys.NextTimeframe), key.Matches(msg, m.keys.PrevTimeframe):
		dir := 1
		if key.Matches(msg, m.keys.PrevTimeframe) {
			dir = -1
		}
		tf, err := m.cfg.ResolveTimeframe(cycle(timeline.TimeframeNames(), m.timeframe.Name, dir))
		if err != nil {
			m.err = err
			return m, nil
		}
		m.timeframe = tf
		return m.restart()

	case key.Matches(msg, m.keys.ToggleList):
		if m.listType == config.ListPopular {
			m.listType = config.ListMember
		} else {
			m.listType = config.ListPopular
		}
		m.selected, m.offset = 0, 0
		return m.reload(false)

	case key.Matches(msg, m.keys.Refresh):
		return m.reload(true)
	}

	return m, nil
}

// nameWidth is the width of the channel name column.
func (m Model) nameWidth() int {
	w := 8
	for _, ch := range m.channels {
		w = max(w, len([]rune(ch.Name))+2)
	}
	return min(w, maxNameWidth)
}

// chartWidth is the number of sparkline columns.
func (m Model) chartWidth() int {
	width := m.width
	if width == 0 {
		width = 80
	}
	return max(width-m.nameWidth()-countsWidth-3, 10)
}

// visibleRows is the number of channels that fit on screen.
func (m Model) visibleRows() int {
	height := m.height
	if height == 0 {
		height = 24
	}
	return max((height-chromeHeight)/rowHeight, 1)
}

// clampOffset keeps the selected channel on screen.
func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.selected < m.offset {
		m.offset = m.selected
	} else if m.selected >= m.offset+visible {
		m.offset = m.selected - visible + 1
	}
	m.offset = min(max(m.offset, 0), max(len(m.channels)-visible, 0))
}

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{bannerStyle.Render(banner), m.headerView()}

	switch {
	case m.err != nil:
		sections = append(sections, errorStyle.Render("Error: "+m.err.Error()))
	case m.loading:
		sections = append(sections, " "+m.spinner.View()+" Loading channels...")
	case len(m.channels) == 0:
		sections = append(sections, headerStyle.PaddingLeft(1).Render("No channels selected"))
	default:
		sections = append(sections, m.chartView())
	}

	sections = append(sections, " "+m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// headerView renders the timeframe, channel list and stream progress.
func (m Model) headerView() string {
	parts := []string{
		"timeframe " + m.timeframe.Name,
		m.listType + " channels",
		fmt.Sprintf("%d channels", len(m.channels)),
	}

	if m.streaming {
		parts = append(parts, m.spinner.View()+fmt.Sprintf(" %d pages", m.pages))
	}

	return titleStyle.Render("pulse") + " " + headerStyle.Render(strings.Join(parts, " "+iconDot+" "))
}

// chartView renders the visible channel rows, the time axis and the pointer
// status line.
func (m Model) chartView() string {
	var (
		cols      = m.chartWidth()
		nameWidth = m.nameWidth()
		width     = float64(cols - 1)
		lines     []string
		selected  pulse.ChannelView
		indent    = strings.Repeat(" ", nameWidth+2)
	)

	end := min(m.offset+m.visibleRows(), len(m.channels))
	for i := m.offset; i < end; i++ {
		ch := m.channels[i]

		pointer := pulse.NoPointer
		if i == m.selected && m.pointer >= 0 {
			pointer = float64(m.pointer)
		}

		view, err := m.service.View(m.store, ch, m.timeframe, width, pointer)
		if err != nil {
			return errorStyle.Render("Error: " + err.Error())
		}
		if i == m.selected {
			selected = view
		}

		lines = append(lines, m.rowView(i, view, cols, nameWidth)...)
	}

	if selected.Channel.ID == "" {
		return strings.Join(lines, "\n")
	}

	pos := pulse.Positioner(selected.DataTicks, width)
	lines = append(lines,
		indent+axisStyle.Render(axisRow(selected.LabelTicks, pos, selected.Timeframe.LabelFormat(), cols)),
		indent+pointerRow(m.pointer, cols),
		m.statusView(selected, cols),
	)

	return strings.Join(lines, "\n")
}

// rowView renders the sparkline and marker lines of one channel.
func (m Model) rowView(i int, view pulse.ChannelView, cols, nameWidth int) []string {
	nameStyle := channelStyle
	prefix := "  "
	if i == m.selected {
		nameStyle = selectedChannelStyle
		prefix = selectedChannelStyle.Render("▌") + " "
	}

	state := stream.StateIdle
	if m.sub != nil {
		state = m.sub.State(view.Channel.ID)
	}

	suffix := fmt.Sprintf("%d msgs %d users", view.Messages, view.Users)
	switch state {
	case stream.StateFailed:
		nameStyle = failedChannelStyle
		suffix = iconDisabled + " " + suffix
	case stream.StateDone, stream.StateCancelled:
	default:
		if m.streaming {
			suffix = iconPending + " " + suffix
		}
	}

	name := fmt.Sprintf("%-*s", nameWidth, truncate("#"+view.Channel.Name, nameWidth))

	cs := resample(counts(view.Activity), cols)
	spark := printer.Sparkline(cs, peak(cs))

	row := prefix + nameStyle.Render(name) + sparkStyle.Render(spark) + " " + countStyle.Render(suffix)

	markers, promoted := markerRow(view.Markers, cols)
	marks := strings.Repeat(" ", nameWidth+2) + markers
	if promoted != nil {
		marks += " " + promotedStyle.Render(describeMarker(*promoted))
	}

	return []string{row, marks}
}

// statusView describes the bucket under the pointer for the selected
// channel, or the channel totals when the pointer is hidden.
func (m Model) statusView(view pulse.ChannelView, cols int) string {
	if m.pointer < 0 {
		text := fmt.Sprintf("#%s %s %d messages from %d users since %s",
			view.Channel.Name, iconDot, view.Messages, view.Users,
			view.Interval.Start.Local().Format("Jan 2 15:04"))
		if m.sub != nil {
			if err := m.sub.Err(view.Channel.ID); err != nil {
				text += " " + iconDot + " incomplete: " + err.Error()
			}
		}
		return headerStyle.PaddingLeft(1).Render(text)
	}

	at := timeAt(view.DataTicks, m.pointer, cols)
	point, ok := bucketAt(view.Activity, at)
	if !ok {
		return ""
	}

	return headerStyle.PaddingLeft(1).Render(fmt.Sprintf("#%s %s %s %s %d messages",
		view.Channel.Name, iconDot, point.BucketStart.Local().Format("Mon Jan 2 15:04"), iconDot, point.Count))
}
