package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/printer"
)

type CacheCmd struct {
	flags *Flags
}

// NewCacheCmd creates a new cache command
func NewCacheCmd(flags *Flags) *CacheCmd {
	return &CacheCmd{flags: flags}
}

// Register adds the cache command to the application
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Cache maintenance commands",
		Commands: []*cli.Command{
			{
				Name:      "prune",
				Usage:     "Remove expired cache entries",
				UsageText: "pulse cache prune",
				Description: `Removes expired channel listings and history pages from the cache.

The redis backend expires keys on its own, so prune has nothing to do there.`,
				Action: cmd.prune,
			},
			{
				Name:        "clear",
				Usage:       "Remove every cache entry",
				UsageText:   "pulse cache clear",
				Description: "Removes every cached channel listing and history page.",
				Action:      cmd.clear,
			},
		},
	})

	return app
}

func (cmd *CacheCmd) prune(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)

	count, err := cmd.flags.Cache.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}

	if count == 0 {
		p.Infof("No expired cache entries")
		return nil
	}

	p.Successf("Pruned %d expired cache entries", count)
	return nil
}

func (cmd *CacheCmd) clear(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)

	if err := cmd.flags.Cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	p.Successf("Cleared %s cache", cmd.flags.Config.Cache.Backend)
	return nil
}
