package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/internal/setup"
)

type ConfigInitCmd struct {
	flags *Flags
	sets  []string
	force bool

	// interactive reports whether the setup form can be shown.
	interactive func() bool
}

// NewConfigInitCmd creates a new config init command.
func NewConfigInitCmd(flags *Flags) *ConfigInitCmd {
	return &ConfigInitCmd{
		flags: flags,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// Command returns the config init subcommand.
func (cmd *ConfigInitCmd) Command() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Create a config file",
		UsageText: "pulse config init [--set name=value]... [--force]",
		Description: `Asks for the Slack token, channel list, default timeframe, cache backend and
channel patterns, then writes the config file.

Answers can be given up front with --set (token, list, timeframe, backend,
include, exclude, exclude_subtypes). Lists are comma separated. The form is
skipped when every answer is set or when not running in a terminal.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "set",
				Usage:       "answer a question (name=value)",
				Destination: &cmd.sets,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite an existing config file",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	}
}

func (cmd *ConfigInitCmd) run(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)
	path := cmd.flags.ConfigPath

	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	if _, err := os.Stat(path); err == nil && !cmd.force {
		return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
	}

	cfg := *cmd.flags.Config
	// Tokens from --token or the environment are not written to disk.
	if cmd.flags.Token != "" {
		cfg.Slack.Token = ""
	}
	fields := setup.Questions(cfg)

	prefilled, err := setup.ParseSetValues(cmd.sets)
	if err != nil {
		return err
	}

	values := setup.WithDefaults(fields, prefilled)
	if !setup.AllFieldsPrefilled(fields, prefilled) && cmd.interactive() {
		result, err := setup.RunForm(fields, prefilled)
		if err != nil {
			return fmt.Errorf("setup form: %w", err)
		}
		values = result.Values
	}

	// --set may name settings the form does not ask for.
	for name, v := range prefilled {
		if _, ok := values[name]; !ok {
			values[name] = v
		}
	}

	if err := setup.ValidateRequiredFields(fields, values); err != nil {
		return err
	}
	if err := setup.Apply(&cfg, values); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := setup.Write(path, cfg); err != nil {
		return err
	}

	p.Successf("Wrote %s", path)
	if cfg.Slack.Token == "" {
		p.Infof("No token saved; pulse reads SLACK_TOKEN at runtime")
	}
	return nil
}
