package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/five82/tracetail/internal/app"
	"github.com/five82/tracetail/internal/config"
	"github.com/five82/tracetail/internal/logging"
	"github.com/five82/tracetail/internal/vtselect"
)

// setup loads the configuration and builds a client for one-shot commands.
// Unlike the TUI these log to stderr.
func setup(cmd *cli.Command) (config.Config, *vtselect.Client, error) {
	cfg, err := app.LoadConfig(options(cmd))
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	if _, err := logging.Init(logging.Config{Level: level, Format: cfg.Log.Format, Output: os.Stderr}); err != nil {
		return config.Config{}, nil, fmt.Errorf("init logging: %w", err)
	}
	client, err := app.NewClient(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, client, nil
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log requests to stderr",
	}
}

// queryArg returns the positional query, falling back to the configured one.
func queryArg(cmd *cli.Command, cfg config.Config) string {
	if q := cmd.Args().First(); q != "" {
		return q
	}
	return cfg.Query
}

func durationOr(cmd *cli.Command, name string, fallback time.Duration) time.Duration {
	if cmd.IsSet(name) {
		return cmd.Duration(name)
	}
	return fallback
}

func intOr(cmd *cli.Command, name string, fallback int) int {
	if cmd.IsSet(name) {
		return cmd.Int(name)
	}
	return fallback
}

func stringOr(cmd *cli.Command, name, fallback string) string {
	if cmd.IsSet(name) {
		return cmd.String(name)
	}
	return fallback
}

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Print one page of grouped query results",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "maximum records to fetch"},
			&cli.DurationFlag{Name: "range", Usage: "look back this far from now"},
			&cli.StringFlag{Name: "group-by", Usage: "field to group by (Ungrouped for one group)"},
			&cli.IntFlag{Name: "page", Usage: "page to print", Value: 1},
			&cli.IntFlag{Name: "rows", Usage: "rows per page, 0 for all"},
			&cli.BoolFlag{Name: "json", Usage: "print records as JSON"},
			verboseFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, client, err := setup(cmd)
			if err != nil {
				return err
			}
			return app.PrintQuery(ctx, os.Stdout, client, app.QueryOptions{
				Query:   queryArg(cmd, cfg),
				Limit:   intOr(cmd, "limit", cfg.Explore.Limit),
				Range:   durationOr(cmd, "range", cfg.Explore.Range),
				GroupBy: stringOr(cmd, "group-by", cfg.Explore.GroupBy),
				Page:    cmd.Int("page"),
				Rows:    intOr(cmd, "rows", cfg.Explore.RowsPerPage),
				JSON:    cmd.Bool("json"),
			}, time.Now())
		},
	}
}

func hitsCommand() *cli.Command {
	return &cli.Command{
		Name:      "hits",
		Usage:     "Print hit counts per series",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "range", Usage: "look back this far from now"},
			&cli.IntFlag{Name: "bars", Usage: "number of histogram buckets"},
			&cli.StringFlag{Name: "field", Usage: "field to split series by"},
			&cli.IntFlag{Name: "fields-limit", Usage: "series kept before the rest fold into other"},
			verboseFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, client, err := setup(cmd)
			if err != nil {
				return err
			}
			return app.PrintHits(ctx, os.Stdout, client, app.HitsOptions{
				Query:       queryArg(cmd, cfg),
				Range:       durationOr(cmd, "range", cfg.Explore.Range),
				Bars:        intOr(cmd, "bars", cfg.Explore.HitsBars),
				Field:       stringOr(cmd, "field", cfg.Explore.GroupBy),
				FieldsLimit: intOr(cmd, "fields-limit", cfg.Explore.HitsFieldsLimit),
			}, time.Now())
		},
	}
}

func valuesCommand() *cli.Command {
	return &cli.Command{
		Name:      "values",
		Usage:     "Print the values of a field with their hit counts",
		ArgsUsage: "<field> [query]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "maximum values to return", Value: 20},
			verboseFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			field := cmd.Args().First()
			if field == "" {
				return fmt.Errorf("field is required")
			}
			cfg, client, err := setup(cmd)
			if err != nil {
				return err
			}
			query := cmd.Args().Get(1)
			if query == "" {
				query = cfg.Query
			}
			return app.PrintValues(ctx, os.Stdout, client, query, field, cmd.Int("limit"))
		},
	}
}
