package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/pthm-cable/serpent/config"
	"github.com/pthm-cable/serpent/evolve"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/telemetry"
)

// FitnessEvaluator trains short headless runs and scores a parameter vector.
type FitnessEvaluator struct {
	params      *ParamVector
	configPath  string
	generations int
	seeds       []int64
	hallSize    int

	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastMean       float64 // mean best fitness from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. Every evaluation reloads the
// config at configPath so runs never share state.
func NewFitnessEvaluator(params *ParamVector, configPath string, generations int, seeds []int64, hallSize int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		configPath:  configPath,
		generations: generations,
		seeds:       seeds,
		hallSize:    hallSize,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame of the best-scoring seed so far.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastMean returns the mean best training fitness from the most recent evaluation.
func (fe *FitnessEvaluator) LastMean() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMean
}

// seedResult holds the outcome of training with one seed.
type seedResult struct {
	best float64
	hof  *telemetry.HallOfFame
	err  error
}

// hallRecorder feeds every generation champion to a hall of fame.
type hallRecorder struct {
	hof *telemetry.HallOfFame
}

func (h hallRecorder) RecordGeneration(_ context.Context, s telemetry.GenerationStats, champion *neural.Network) error {
	h.hof.Consider(s.Generation, s.SmoothedFitness, s.ChampionScore, s.ChampionTurns, champion)
	return nil
}

// Evaluate returns the objective for a raw parameter vector (lower is
// better): the negated log of the best training fitness averaged over seeds.
// Fitness grows exponentially with score, so the log keeps the landscape
// smooth enough for CMA-ES.
func (fe *FitnessEvaluator) Evaluate(ctx context.Context, x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.train(ctx, x, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	bestSeed := math.Inf(-1)
	var bestHof *telemetry.HallOfFame
	for _, r := range results {
		if r.err != nil {
			slog.Warn("evaluation failed", "error", r.err)
			return math.Inf(1)
		}
		total += r.best
		if r.best > bestSeed {
			bestSeed = r.best
			bestHof = r.hof
		}
	}

	mean := total / float64(len(results))
	objective := -math.Log1p(mean)

	fe.mu.Lock()
	if objective < fe.bestFitness {
		fe.bestFitness = objective
		fe.bestHallOfFame = bestHof
	}
	fe.lastMean = mean
	fe.mu.Unlock()

	return objective
}

// train runs one seeded training session for fe.generations generations.
func (fe *FitnessEvaluator) train(ctx context.Context, x []float64, seed int64) seedResult {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return seedResult{err: err}
	}
	fe.params.ApplyToConfig(cfg, x)

	params := evolve.ParamsFromConfig(cfg)
	// Seeds already run concurrently.
	params.Workers = 1

	hof := telemetry.NewHallOfFame(fe.hallSize)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr, err := evolve.NewTrainer(params, rand.New(rand.NewSource(seed)), nil,
		evolve.WithRecorder(hallRecorder{hof: hof}),
		evolve.WithLogger(quiet),
	)
	if err != nil {
		return seedResult{err: err}
	}
	defer tr.Close()

	if err := tr.Run(ctx, evolve.MaxGenerations(fe.generations)); err != nil {
		return seedResult{err: err}
	}
	return seedResult{best: tr.BestFitness(), hof: hof}
}
