package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/reactions"
	"github.com/hay-kot/pulse/internal/core/timeline"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/internal/pulse"
	"github.com/hay-kot/pulse/internal/stream"
)

type ActivityCmd struct {
	flags     *Flags
	timeframe string
	list      string
	top       int
	format    string
	tmpl      string
}

// NewActivityCmd creates a new activity command
func NewActivityCmd(flags *Flags) *ActivityCmd {
	return &ActivityCmd{flags: flags}
}

// Register adds the activity command to the application
func (cmd *ActivityCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "activity",
		Usage:     "Print channel activity as sparklines",
		UsageText: "pulse activity [--timeframe 7d] [--list popular|member]",
		Description: `Streams the history of the selected channels over the timeframe and prints
one sparkline per channel with message and user counts and the most popular
reactions.

Timeframes: ` + strings.Join(timeline.TimeframeNames(), ", ") + `.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "timeframe",
				Aliases:     []string{"t"},
				Usage:       "timeframe to show; defaults to the configured timeframe",
				Destination: &cmd.timeframe,
			},
			&cli.StringFlag{
				Name:        "list",
				Aliases:     []string{"l"},
				Usage:       "channel list type (popular, member); defaults to channels.list",
				Destination: &cmd.list,
			},
			&cli.IntFlag{
				Name:        "top",
				Usage:       "number of reactions to show per channel",
				Value:       3,
				Destination: &cmd.top,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "template",
				Usage:       "Go template rendered once per channel, e.g. '{{ .Name }} {{ .Messages }} {{ .Spark }}'",
				Destination: &cmd.tmpl,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ActivityCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	svc := cmd.flags.Service

	tf, err := cmd.flags.Config.ResolveTimeframe(cmd.timeframe)
	if err != nil {
		return err
	}

	all, err := svc.Channels(ctx, false)
	if err != nil {
		return err
	}
	channels, err := svc.Select(all, cmd.list)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		p.Infof("No channels selected")
		return nil
	}

	quiet := cmd.format == "json" || cmd.tmpl != ""
	if !quiet {
		p.Infof("Fetching %d channel(s) over %s", len(channels), tf.Name)
	}

	pages := 0
	res, err := svc.Collect(ctx, tf, channels, func(stream.Batch) { pages++ })
	if err != nil {
		return fmt.Errorf("collect activity: %w", err)
	}

	// One position unit per data bucket.
	ticks, err := tf.DataTicks(tf.Resolve(svc.Now()))
	if err != nil {
		return err
	}
	width := float64(max(len(ticks)-1, 0))

	views := make([]pulse.ChannelView, 0, len(channels))
	for _, ch := range channels {
		view, err := svc.View(res.Store, ch, tf, width, pulse.NoPointer)
		if err != nil {
			return err
		}
		views = append(views, view)
	}

	if cmd.tmpl != "" {
		rows := make([]channelActivity, len(views))
		for i, v := range views {
			rows[i] = activityRow(v, res.Failed)
		}
		return renderTemplate(c.Root().Writer, cmd.tmpl, rows)
	}

	if cmd.format == "json" {
		return cmd.outputJSON(c, views, res.Failed)
	}

	return cmd.outputText(c, p, views, res.Failed, pages)
}

type channelActivity struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Messages int                `json:"messages"`
	Users    int                `json:"users"`
	Activity []timeline.Point   `json:"activity"`
	Markers  []reactions.Marker `json:"markers"`
	Spark    string             `json:"-"`
	Error    string             `json:"error,omitempty"`
}

func activityRow(v pulse.ChannelView, failed map[string]error) channelActivity {
	item := channelActivity{
		ID:       v.Channel.ID,
		Name:     v.Channel.Name,
		Messages: v.Messages,
		Users:    v.Users,
		Activity: v.Activity,
		Markers:  v.Markers,
		Spark:    printer.Sparkline(activityCounts(v.Activity), v.MaxCount()),
	}
	if item.Markers == nil {
		item.Markers = []reactions.Marker{}
	}
	if err := failed[v.Channel.ID]; err != nil {
		item.Error = err.Error()
	}
	return item
}

func (cmd *ActivityCmd) outputJSON(c *cli.Command, views []pulse.ChannelView, failed map[string]error) error {
	out := struct {
		Timeframe string            `json:"timeframe"`
		Interval  timeline.Interval `json:"interval"`
		Channels  []channelActivity `json:"channels"`
	}{
		Channels: make([]channelActivity, 0, len(views)),
	}

	for _, v := range views {
		out.Timeframe = v.Timeframe.Name
		out.Interval = v.Interval
		out.Channels = append(out.Channels, activityRow(v, failed))
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (cmd *ActivityCmd) outputText(c *cli.Command, p *printer.Printer, views []pulse.ChannelView, failed map[string]error, pages int) error {
	out := printer.New(c.Root().Writer)

	width := 0
	for _, v := range views {
		width = max(width, len(v.Channel.Name)+1)
	}

	for _, v := range views {
		label := fmt.Sprintf("%-*s", width, "#"+v.Channel.Name)
		detail := fmt.Sprintf("%d msgs, %d users", v.Messages, v.Users)
		if top := topReactions(v.Markers, cmd.top); top != "" {
			detail += "  " + top
		}
		if failed[v.Channel.ID] != nil {
			detail += "  (incomplete)"
		}

		out.Spark(label, activityCounts(v.Activity), v.MaxCount(), detail)
	}

	if len(views) > 0 {
		out.Printf("%s %s", strings.Repeat(" ", width), axisLabels(views[0]))
	}

	p.Printf("")
	for id, err := range failed {
		p.Warnf("%s: %v", id, err)
	}
	p.Successf("Loaded %d page(s) across %d channel(s)", pages, len(views))

	return nil
}

func activityCounts(points []timeline.Point) []int {
	counts := make([]int, len(points))
	for i, pt := range points {
		counts[i] = pt.Count
	}
	return counts
}

// topReactions formats the n most reacted markers, most popular first.
func topReactions(markers []reactions.Marker, n int) string {
	if n <= 0 {
		return ""
	}

	parts := make([]string, 0, n)
	for i := len(markers) - 1; i >= 0 && len(parts) < n; i-- {
		m := markers[i]
		parts = append(parts, fmt.Sprintf(":%s: %d", m.EmojiName, m.Count))
	}
	return strings.Join(parts, "  ")
}

// axisLabels places the label tick texts under the sparkline columns of v.
func axisLabels(v pulse.ChannelView) string {
	cols := len(v.DataTicks)
	if cols == 0 {
		return ""
	}

	row := []rune(strings.Repeat(" ", cols))
	layout := v.Timeframe.LabelFormat()
	next := 0

	for _, t := range v.LabelTicks {
		col := bucketIndex(v.DataTicks, t)
		if col < next {
			continue
		}
		text := []rune(t.Format(layout))
		if col+len(text) > cols {
			break
		}
		copy(row[col:], text)
		next = col + len(text) + 1
	}

	return strings.TrimRight(string(row), " ")
}

// bucketIndex returns the index of the data bucket containing t.
func bucketIndex(ticks []time.Time, t time.Time) int {
	idx := 0
	for i, tick := range ticks {
		if tick.After(t) {
			break
		}
		idx = i
	}
	return idx
}
