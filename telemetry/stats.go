// Package telemetry collects per-generation training statistics and writes
// them out as CSV rows, structured logs and weight checkpoints.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes one generation of training.
type GenerationStats struct {
	Generation int `csv:"generation"`

	// Rank-1 agent of the generation (single run)
	ChampionFitness float64 `csv:"champion_fitness"`
	ChampionScore   int     `csv:"champion_score"`
	ChampionTurns   int     `csv:"champion_turns"`
	ChampionReason  string  `csv:"champion_reason"`

	// Champion fitness averaged over the smoothing trials
	SmoothedFitness float64 `csv:"smoothed_fitness"`
	BestFitness     float64 `csv:"best_fitness"`
	Improved        bool    `csv:"improved"`

	// Fitness distribution across the population
	MeanFitness float64 `csv:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness"`
	P50Fitness  float64 `csv:"p50_fitness"`
	P90Fitness  float64 `csv:"p90_fitness"`

	MeanScore float64 `csv:"mean_score"`
	MaxScore  int     `csv:"max_score"`

	// How runs ended
	Died       int `csv:"died"`
	Stagnated  int `csv:"stagnated"`
	TurnCapped int `csv:"turn_capped"`

	DurationMs int64 `csv:"duration_ms"`
}

// FitnessSummary computes mean, standard deviation and the 50th/90th
// percentiles of values. Empty input yields zeros; std is 0 for fewer than
// two values.
func FitnessSummary(values []float64) (mean, std, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n < 2 {
		mean = sorted[0]
	} else {
		mean, std = stat.MeanStdDev(sorted, nil)
	}
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Float64("champion_fitness", s.ChampionFitness),
		slog.Int("champion_score", s.ChampionScore),
		slog.Int("champion_turns", s.ChampionTurns),
		slog.String("champion_reason", s.ChampionReason),
		slog.Float64("smoothed_fitness", s.SmoothedFitness),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Bool("improved", s.Improved),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("p50_fitness", s.P50Fitness),
		slog.Float64("p90_fitness", s.P90Fitness),
		slog.Float64("mean_score", s.MeanScore),
		slog.Int("max_score", s.MaxScore),
		slog.Int("died", s.Died),
		slog.Int("stagnated", s.Stagnated),
		slog.Int("turn_capped", s.TurnCapped),
		slog.Int64("duration_ms", s.DurationMs),
	)
}

// LogStats logs the headline numbers of the generation to l.
func (s GenerationStats) LogStats(l *slog.Logger) {
	l.Info("generation",
		"gen", s.Generation,
		"fitness", s.ChampionFitness,
		"score", s.ChampionScore,
		"turns", s.ChampionTurns,
		"average", s.SmoothedFitness,
		"best", s.BestFitness,
		"improved", s.Improved,
		"mean_fitness", s.MeanFitness,
		"max_score", s.MaxScore,
		"duration_ms", s.DurationMs,
	)
}
