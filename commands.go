package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/config"
	"github.com/pthm-cable/serpent/evolve"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/storage"
	"github.com/pthm-cable/serpent/telemetry"
	"github.com/pthm-cable/serpent/ui"
)

// networkFlags select a trained network: a weight file, a hall of fame
// entry or a stored run's champion.
func networkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "weights", Usage: "weight file written by train"},
		&cli.StringFlag{Name: "hall", Usage: "hall_of_fame.json written by train"},
		&cli.IntFlag{Name: "rank", Usage: "hall of fame entry (0 = strongest)"},
		&cli.StringFlag{Name: "run", Usage: "run ID whose champion to load from the store"},
		&cli.StringFlag{Name: "store", Usage: "history backend: memory or sqlite (default from config)"},
		&cli.StringFlag{Name: "db", Usage: "sqlite database path (default from config)"},
	}
}

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "run the genetic algorithm",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Usage: "directory for best.bin, per-generation files and CSV (default from config)"},
			&cli.StringFlag{Name: "load", Usage: "seed every population member from this weight file"},
			&cli.IntFlag{Name: "generations", Usage: "stop after N generations (0 = until interrupted; default from config)"},
			&cli.IntFlag{Name: "workers", Usage: "evaluation workers (0 = GOMAXPROCS; default from config)"},
			&cli.StringFlag{Name: "store", Usage: "history backend: memory or sqlite (default from config)"},
			&cli.StringFlag{Name: "db", Usage: "sqlite database path (default from config)"},
		},
		Action: runTrain,
	}
}

func runTrain(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Cfg()
	seed := seedFrom(cmd)

	params := evolve.ParamsFromConfig(cfg)
	if cmd.IsSet("workers") {
		params.Workers = cmd.Int("workers")
	}
	maxGens := cfg.Evolution.MaxGenerations
	if cmd.IsSet("generations") {
		maxGens = cmd.Int("generations")
	}

	var seedNet *neural.Network
	if path := cmd.String("load"); path != "" {
		nn, err := neural.Load(path, params.Shape)
		if err != nil {
			return fmt.Errorf("loading seed network: %w", err)
		}
		seedNet = nn
		slog.Info("seeding population", "path", path)
	}

	outputDir := cfg.Telemetry.OutputDir
	if cmd.IsSet("output") {
		outputDir = cmd.String("output")
	}
	out, err := telemetry.NewOutputManager(outputDir, cfg.Telemetry.SaveEveryGeneration, cfg.Telemetry.HallOfFameSize)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Error("closing output", "error", err)
		}
	}()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	store, err := openStore(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := storage.NewRecorder(ctx, store, seed, params.Shape, params.GridSize)
	if err != nil {
		return err
	}

	opts := []evolve.Option{evolve.WithRecorder(rec), evolve.WithCheckpointer(rec)}
	if out != nil {
		opts = append(opts, evolve.WithRecorder(out), evolve.WithCheckpointer(out))
	}

	trainer, err := evolve.NewTrainer(params, rand.New(rand.NewSource(seed)), seedNet, opts...)
	if err != nil {
		return err
	}
	defer trainer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("training started",
		"run_id", rec.RunID(),
		"seed", seed,
		"population", params.PopulationSize,
		"shape", params.Shape,
		"grid", params.GridSize,
		"max_generations", maxGens,
		"output", out.Dir(),
	)

	err = trainer.Run(ctx, evolve.MaxGenerations(maxGens))
	if errors.Is(err, context.Canceled) {
		slog.Info("training interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	summaryCtx := context.WithoutCancel(ctx)
	if gens, gerr := store.Generations(summaryCtx, rec.RunID()); gerr == nil && len(gens) > 0 {
		slog.Info("last generation", "stats", gens[len(gens)-1])
	}
	slog.Info("training finished",
		"run_id", rec.RunID(),
		"generations", trainer.GenerationNumber(),
		"best_fitness", trainer.BestFitness(),
		"best_path", out.BestPath(),
	)
	return nil
}

func evalCommand() *cli.Command {
	return &cli.Command{
		Name:  "eval",
		Usage: "play a trained network headless and report its scores",
		Flags: append(networkFlags(),
			&cli.IntFlag{Name: "runs", Value: 10, Usage: "number of games"},
		),
		Action: runEval,
	}
}

func runEval(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Cfg()
	nn, err := loadNetwork(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	runs := cmd.Int("runs")
	if runs < 1 {
		return fmt.Errorf("--runs must be positive, got %d", runs)
	}
	seed := seedFrom(cmd)
	rng := rand.New(rand.NewSource(seed))
	limits := agent.Limits{MaxTurns: cfg.Evolution.MaxTurns, StagnationLimit: cfg.Evolution.StagnationLimit}

	scores := make([]float64, runs)
	fitnesses := make([]float64, runs)
	for i := 0; i < runs; i++ {
		out, fitness, err := agent.Evaluate(nn, cfg.World.Size, limits, cfg.Fitness.DegenerateTurns, rng)
		if err != nil {
			return err
		}
		scores[i] = float64(out.Score)
		fitnesses[i] = fitness
		slog.Info("game", "run", i, "score", out.Score, "turns", out.Turns, "reason", out.Reason.String(), "fitness", fitness)
	}

	meanScore, stdScore, medScore, _ := telemetry.FitnessSummary(scores)
	meanFit, _, _, p90Fit := telemetry.FitnessSummary(fitnesses)
	slog.Info("evaluation",
		"runs", runs,
		"seed", seed,
		"mean_score", meanScore,
		"std_score", stdScore,
		"median_score", medScore,
		"mean_fitness", meanFit,
		"p90_fitness", p90Fit,
	)
	return nil
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "watch a trained network play",
		Flags:  networkFlags(),
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Cfg()
	nn, err := loadNetwork(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	opts := sessionOptions(cfg, seedFrom(cmd))
	opts.Title = "Serpent - watching"
	opts.Network = nn
	s, err := ui.NewSession(opts)
	if err != nil {
		return err
	}
	return s.Run()
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play snake with the keyboard",
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := ui.NewSession(sessionOptions(config.Cfg(), seedFrom(cmd)))
			if err != nil {
				return err
			}
			return s.Run()
		},
	}
}

func sessionOptions(cfg *config.Config, seed int64) ui.Options {
	return ui.Options{
		Title:        "Serpent",
		ScreenWidth:  cfg.Screen.Width,
		ScreenHeight: cfg.Screen.Height,
		TargetFPS:    cfg.Screen.TargetFPS,
		GridSize:     cfg.World.Size,
		MoveInterval: cfg.Screen.MoveInterval,
		Seed:         seed,
		Limits: agent.Limits{
			MaxTurns:        cfg.Evolution.MaxTurns,
			StagnationLimit: cfg.Evolution.StagnationLimit,
		},
		DegenerateTurns: cfg.Fitness.DegenerateTurns,
	}
}

func openStore(ctx context.Context, cmd *cli.Command, cfg *config.Config) (storage.Store, error) {
	kind, path := cfg.Storage.Kind, cfg.Storage.Path
	if cmd.IsSet("store") {
		kind = cmd.String("store")
	}
	if cmd.IsSet("db") {
		path = cmd.String("db")
	}
	store, err := storage.NewStore(kind, path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening %s store: %w", kind, err)
	}
	return store, nil
}

// loadNetwork resolves the network chosen by networkFlags.
func loadNetwork(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*neural.Network, error) {
	shape := cfg.Derived.Shape
	switch {
	case cmd.String("weights") != "":
		return neural.Load(cmd.String("weights"), shape)

	case cmd.String("hall") != "":
		hof, err := telemetry.LoadHallOfFameFromFile(cmd.String("hall"), shape)
		if err != nil {
			return nil, err
		}
		entry, ok := hof.Entry(cmd.Int("rank"))
		if !ok {
			return nil, fmt.Errorf("hall of fame has %d entries, no rank %d", hof.Size(), cmd.Int("rank"))
		}
		slog.Info("loaded hall of fame entry", "generation", entry.Generation, "fitness", entry.Fitness)
		return entry.Network, nil

	case cmd.String("run") != "":
		store, err := openStore(ctx, cmd, cfg)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		c, err := store.Champion(ctx, cmd.String("run"))
		if err != nil {
			return nil, err
		}
		slog.Info("loaded stored champion", "run_id", c.RunID, "generation", c.Generation, "fitness", c.Fitness)
		return c.Network, nil
	}
	return nil, errors.New("one of --weights, --hall or --run is required")
}
