package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/pthm-cable/serpent/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "serpent",
		Usage: "evolve neural networks that play snake",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to config.yaml (empty = use defaults)"},
			&cli.Int64Flag{Name: "seed", Usage: "RNG seed (0 = time-based)"},
			&cli.StringFlag{Name: "log-format", Value: "json", Usage: "log output format: json or text"},
		},
		Before: setup,
		Commands: []*cli.Command{
			trainCommand(),
			evalCommand(),
			watchCommand(),
			playCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("serpent failed", "error", err)
		os.Exit(1)
	}
}

// setup installs the logger and loads configuration before any command runs.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var handler slog.Handler
	switch format := cmd.String("log-format"); format {
	case "json", "":
		handler = slog.NewJSONHandler(os.Stdout, nil)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, nil)
	default:
		return ctx, fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler))

	if err := config.Init(cmd.String("config")); err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}
	return ctx, nil
}

// seedFrom returns the --seed flag, or a time-based seed when it is 0.
func seedFrom(cmd *cli.Command) int64 {
	if seed := cmd.Int64("seed"); seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}
