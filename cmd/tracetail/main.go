package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/five82/tracetail/internal/app"
)

const version = "0.1.0-dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "tracetail: %v\n", err)
		return 1
	}
	return 0
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "tracetail",
		Usage:   "Live-tail and explore traces from a VictoriaTraces server",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file path (default ~/.config/tracetail/config.toml)",
			},
			&cli.StringFlag{
				Name:  "prefs",
				Usage: "UI preferences file path (default ~/.config/tracetail/prefs.toml)",
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "select API base URL",
				Sources: cli.EnvVars("TRACETAIL_SERVER"),
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "initial query",
			},
			&cli.DurationFlag{
				Name:  "refresh",
				Usage: "explore refresh interval, 0 refreshes once",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			queryCommand(),
			hitsCommand(),
			valuesCommand(),
		},
	}
}

// options collects the root flags shared by every command.
func options(cmd *cli.Command) app.Options {
	opts := app.Options{
		ConfigPath: cmd.String("config"),
		PrefsPath:  cmd.String("prefs"),
		ServerURL:  cmd.String("server"),
		Query:      cmd.String("query"),
	}
	if cmd.IsSet("refresh") {
		refresh := cmd.Duration("refresh")
		opts.Refresh = &refresh
	}
	return opts
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	return app.Run(ctx, options(cmd))
}
