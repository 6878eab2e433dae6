package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/tui"
)

type TuiCmd struct {
	flags     *Flags
	timeframe string
	list      string
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{
		flags: flags,
	}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "timeframe",
			Aliases:     []string{"t"},
			Usage:       "initial timeframe; defaults to the configured timeframe",
			Sources:     cli.EnvVars("PULSE_TIMEFRAME"),
			Destination: &cmd.timeframe,
		},
		&cli.StringFlag{
			Name:        "list",
			Aliases:     []string{"l"},
			Usage:       "initial channel list (popular, member)",
			Destination: &cmd.list,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	opts := tui.Options{
		Timeframe: cmd.timeframe,
		ListType:  cmd.list,
	}

	m, err := tui.New(ctx, cmd.flags.Service, cmd.flags.Config, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
