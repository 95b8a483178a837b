// Package main tunes genetic algorithm settings with CMA-ES, searching for
// the combination that trains the strongest snake in a fixed budget.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/serpent/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalRow is one line of optimize_log.csv.
type evalRow struct {
	Eval                int     `csv:"eval"`
	Objective           float64 `csv:"objective"`
	MeanBestFitness     float64 `csv:"mean_best_fitness"`
	MutationPercent     float64 `csv:"mutation_percent"`
	RandomPerGeneration float64 `csv:"random_per_generation"`
	Population          float64 `csv:"population"`
	HiddenWidth         float64 `csv:"hidden_width"`
}

func main() {
	cmd := &cli.Command{
		Name:  "optimize",
		Usage: "tune training parameters with CMA-ES",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "base config YAML file (empty = use defaults)"},
			&cli.IntFlag{Name: "generations", Value: 30, Usage: "generations trained per evaluation"},
			&cli.IntFlag{Name: "seeds", Value: 3, Usage: "training seeds per evaluation"},
			&cli.IntFlag{Name: "max-evals", Value: 100, Usage: "maximum number of evaluations"},
			&cli.IntFlag{Name: "population", Usage: "CMA-ES population size (0 = auto)"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "output directory for results"},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	outputDir := cmd.String("output")
	configPath := cmd.String("config")
	maxEvals := cmd.Int("max-evals")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	// Fail early on a bad base config.
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := NewParamVector()

	seeds := make([]int64, cmd.Int("seeds"))
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, configPath, cmd.Int("generations"), seeds, config.Cfg().Telemetry.HallOfFameSize)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(config.Cfg()))

	logFile, err := os.Create(filepath.Join(outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestObjective := math.Inf(1)
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			objective := evaluator.Evaluate(ctx, raw)
			evalCount++

			// Log the clamped values, since those are what actually ran.
			clamped := params.Clamp(raw)
			if objective < bestObjective {
				bestObjective = objective
				bestParams = clamped
			}

			row := []evalRow{{
				Eval:                evalCount,
				Objective:           objective,
				MeanBestFitness:     evaluator.LastMean(),
				MutationPercent:     clamped[0],
				RandomPerGeneration: clamped[1],
				Population:          clamped[2],
				HiddenWidth:         clamped[3],
			}}
			if evalCount == 1 {
				err = gocsv.Marshal(row, logFile)
			} else {
				err = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if err != nil {
				slog.Error("writing optimize log", "error", err)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(maxEvals-evalCount) * (elapsed / time.Duration(evalCount))
			slog.Info("eval",
				"n", evalCount,
				"max", maxEvals,
				"mean_best_fitness", evaluator.LastMean(),
				"objective", objective,
				"best_objective", bestObjective,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return objective
		},
	}

	popSize := cmd.Int("population")
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Concurrent:      0,
	}

	slog.Info("starting CMA-ES", "params", dim, "population", popSize, "max_evals", maxEvals,
		"seeds", len(seeds), "generations", cmd.Int("generations"))

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		return fmt.Errorf("no evaluations completed")
	}

	slog.Info("optimization complete", "evals", evalCount, "duration", formatDuration(time.Since(startTime)),
		"best_objective", bestObjective)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", bestParams[i])
	}

	bestCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	params.ApplyToConfig(bestCfg, bestParams)
	configOut := filepath.Join(outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOut); err != nil {
		return err
	}
	slog.Info("best config saved", "path", configOut)

	if hof := evaluator.BestHallOfFame(); hof != nil {
		data, err := hof.MarshalJSON()
		if err != nil {
			return fmt.Errorf("marshaling hall of fame: %w", err)
		}
		hofPath := filepath.Join(outputDir, "hall_of_fame.json")
		if err := os.WriteFile(hofPath, data, 0644); err != nil {
			return fmt.Errorf("writing hall of fame: %w", err)
		}
		slog.Info("hall of fame saved", "path", hofPath)
	}
	return nil
}
