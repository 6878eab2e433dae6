package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/messaging"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/pkg/tmpl"
)

type ChannelsCmd struct {
	flags   *Flags
	list    string
	all     bool
	refresh bool
	format  string
	tmpl    string
}

// NewChannelsCmd creates a new channels command
func NewChannelsCmd(flags *Flags) *ChannelsCmd {
	return &ChannelsCmd{flags: flags}
}

// Register adds the channels command to the application
func (cmd *ChannelsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "channels",
		Usage:     "List the channels shown on the dashboard",
		UsageText: "pulse channels [--list popular|member] [--all] [--refresh]",
		Description: `Lists the channels selected by the channel list type and the include and
exclude patterns from the config file.

The channel listing is cached for cache.channels_ttl. Use --refresh to fetch
it again from Slack.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "list",
				Aliases:     []string{"l"},
				Usage:       "channel list type (popular, member); defaults to channels.list",
				Destination: &cmd.list,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "show every channel, ignoring the list type and patterns",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "refresh",
				Aliases:     []string{"r"},
				Usage:       "ignore the cached channel listing",
				Destination: &cmd.refresh,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "template",
				Usage:       "Go template rendered once per channel, e.g. '{{ .ID }} {{ .Name }}'",
				Destination: &cmd.tmpl,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ChannelsCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	all, err := cmd.flags.Service.Channels(ctx, cmd.refresh)
	if err != nil {
		return err
	}

	channels := all
	if !cmd.all {
		channels, err = cmd.flags.Service.Select(all, cmd.list)
		if err != nil {
			return err
		}
	}

	if cmd.tmpl != "" {
		return renderTemplate(c.Root().Writer, cmd.tmpl, channels)
	}

	if cmd.format == "json" {
		if channels == nil {
			channels = []messaging.Channel{}
		}
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(channels)
	}

	if len(channels) == 0 {
		p.Infof("No channels found")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tMEMBERS\tJOINED\tID")

	for _, ch := range channels {
		joined := ""
		if ch.IsMember {
			joined = printer.Check
		}
		_, _ = fmt.Fprintf(w, "#%s\t%d\t%s\t%s\n", ch.Name, ch.NumMembers, joined, ch.ID)
	}

	return w.Flush()
}

// renderTemplate renders text once per item, one line each.
func renderTemplate[T any](w io.Writer, text string, items []T) error {
	t, err := tmpl.Parse(text)
	if err != nil {
		return err
	}

	for _, item := range items {
		line, err := t.Execute(item)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
