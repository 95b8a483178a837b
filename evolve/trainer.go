// Package evolve trains snake-playing networks with a generational genetic
// algorithm: evaluate, rank, checkpoint the best, reproduce.
package evolve

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/telemetry"
)

// Checkpointer persists the best-ever network whenever it improves.
type Checkpointer interface {
	SaveBest(ctx context.Context, gen int, fitness float64, net *neural.Network) error
}

// Recorder receives every generation's statistics and champion. The
// champion must not be retained without cloning it.
type Recorder interface {
	RecordGeneration(ctx context.Context, stats telemetry.GenerationStats, champion *neural.Network) error
}

// StopFunc is consulted after every generation; returning true ends Run.
type StopFunc func(stats telemetry.GenerationStats) bool

// MaxGenerations stops after n generations. n <= 0 never stops.
func MaxGenerations(n int) StopFunc {
	return func(stats telemetry.GenerationStats) bool {
		return n > 0 && stats.Generation+1 >= n
	}
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithCheckpointer adds a sink for best-ever improvements.
func WithCheckpointer(c Checkpointer) Option {
	return func(t *Trainer) { t.checkpointers = append(t.checkpointers, c) }
}

// WithRecorder adds a sink for per-generation results.
func WithRecorder(r Recorder) Option {
	return func(t *Trainer) { t.recorders = append(t.recorders, r) }
}

// WithLogger sets the logger used for generation lines.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trainer) { t.log = l }
}

type evalJob struct {
	net  *neural.Network
	seed int64
}

type evalResult struct {
	outcome agent.Outcome
	fitness float64
	err     error
}

// plateauGenerations without a new best are reported as a plateau.
const plateauGenerations = 50

// Trainer owns the population and the best-ever network.
type Trainer struct {
	params Params
	rng    *rand.Rand

	population  []*neural.Network
	best        *neural.Network
	bestFitness float64
	gen         int

	pool          *pool
	perf          *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	checkpointers []Checkpointer
	recorders     []Recorder
	log           *slog.Logger

	// scratch
	jobs  []evalJob
	order []int
}

// NewTrainer builds the initial population. With a nil seed every member is
// drawn at random; otherwise every member starts as a copy of seed. The
// best-ever network starts as a copy of the first member with fitness 0.
func NewTrainer(params Params, rng *rand.Rand, seed *neural.Network, opts ...Option) (*Trainer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil rng", ErrInvalidParams)
	}

	t := &Trainer{
		params:     params,
		rng:        rng,
		population: make([]*neural.Network, params.PopulationSize),
		perf:       telemetry.NewPerfCollector(10),
		bookmarks:  telemetry.NewBookmarkDetector(10, plateauGenerations),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if seed != nil {
		if !sameShape(seed.Shape(), params.Shape) {
			return nil, fmt.Errorf("seeding population: %w: network %v, want %v", neural.ErrShapeMismatch, seed.Shape(), params.Shape)
		}
		for i := range t.population {
			t.population[i] = seed.Clone()
		}
	} else {
		for i := range t.population {
			nn, err := neural.New(params.Shape, rng)
			if err != nil {
				return nil, err
			}
			t.population[i] = nn
		}
	}
	t.best = t.population[0].Clone()

	t.pool = newPool(params.Workers, t.evaluate)
	return t, nil
}

// evaluate plays one game. Each job carries its own seed so results do not
// depend on which worker runs it.
func (t *Trainer) evaluate(ctx context.Context, job evalJob) evalResult {
	if err := ctx.Err(); err != nil {
		return evalResult{err: err}
	}
	out, fitness, err := agent.Evaluate(job.net, t.params.GridSize, t.params.Limits, t.params.DegenerateTurns, rand.New(rand.NewSource(job.seed)))
	return evalResult{outcome: out, fitness: fitness, err: err}
}

// runJobs evaluates nets, drawing one seed per job from the master rng in order.
func (t *Trainer) runJobs(ctx context.Context, nets []*neural.Network) ([]evalResult, error) {
	t.jobs = t.jobs[:0]
	for _, nn := range nets {
		t.jobs = append(t.jobs, evalJob{net: nn, seed: t.rng.Int63()})
	}
	results := t.pool.run(ctx, t.jobs)
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}
	return results, nil
}

// Generation evaluates, ranks and reproduces the population once.
func (t *Trainer) Generation(ctx context.Context) (telemetry.GenerationStats, error) {
	if err := ctx.Err(); err != nil {
		return telemetry.GenerationStats{}, err
	}
	t.perf.StartGeneration()

	t.perf.StartPhase(telemetry.PhaseEvaluate)
	results, err := t.runJobs(ctx, t.population)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("evaluating generation %d: %w", t.gen, err)
	}

	t.perf.StartPhase(telemetry.PhaseRank)
	stats := t.rank(results)

	t.perf.StartPhase(telemetry.PhaseSmooth)
	champion := t.population[0]
	trials := make([]*neural.Network, t.params.Trials)
	for i := range trials {
		trials[i] = champion
	}
	trialResults, err := t.runJobs(ctx, trials)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("scoring generation %d champion: %w", t.gen, err)
	}
	var sum float64
	for _, r := range trialResults {
		sum += r.fitness
	}
	stats.SmoothedFitness = sum / float64(len(trialResults))

	t.perf.StartPhase(telemetry.PhaseCheckpoint)
	if stats.SmoothedFitness > t.bestFitness {
		t.bestFitness = stats.SmoothedFitness
		t.best = champion.Clone()
		stats.Improved = true
		for _, c := range t.checkpointers {
			if err := c.SaveBest(ctx, t.gen, t.bestFitness, t.best); err != nil {
				return stats, fmt.Errorf("checkpointing generation %d: %w", t.gen, err)
			}
		}
	}
	stats.BestFitness = t.bestFitness

	t.perf.StartPhase(telemetry.PhaseReproduce)
	if err := t.reproduce(); err != nil {
		return stats, err
	}

	sample := t.perf.EndGeneration()
	stats.DurationMs = sample.Total.Milliseconds()

	for _, r := range t.recorders {
		if err := r.RecordGeneration(ctx, stats, champion); err != nil {
			return stats, fmt.Errorf("recording generation %d: %w", t.gen, err)
		}
	}

	stats.LogStats(t.log)
	for _, b := range t.bookmarks.Check(stats) {
		b.Log(t.log)
	}

	t.gen++
	return stats, nil
}

// rank sorts the population by descending fitness (stable, so ties keep
// their order) and summarizes the results.
func (t *Trainer) rank(results []evalResult) telemetry.GenerationStats {
	n := len(t.population)
	if cap(t.order) < n {
		t.order = make([]int, n)
	}
	t.order = t.order[:n]
	for i := range t.order {
		t.order[i] = i
	}
	sort.SliceStable(t.order, func(a, b int) bool {
		return results[t.order[a]].fitness > results[t.order[b]].fitness
	})

	ranked := make([]*neural.Network, n)
	fitnesses := make([]float64, n)
	stats := telemetry.GenerationStats{Generation: t.gen}
	var scoreSum int
	for rank, idx := range t.order {
		r := results[idx]
		ranked[rank] = t.population[idx]
		fitnesses[rank] = r.fitness

		scoreSum += r.outcome.Score
		stats.MaxScore = max(stats.MaxScore, r.outcome.Score)
		switch r.outcome.Reason {
		case agent.ReasonDied:
			stats.Died++
		case agent.ReasonStagnated:
			stats.Stagnated++
		case agent.ReasonTurnCap:
			stats.TurnCapped++
		}
	}
	t.population = ranked

	top := results[t.order[0]]
	stats.ChampionFitness = top.fitness
	stats.ChampionScore = top.outcome.Score
	stats.ChampionTurns = top.outcome.Turns
	stats.ChampionReason = top.outcome.Reason.String()
	stats.MeanScore = float64(scoreSum) / float64(n)
	stats.MeanFitness, stats.StdFitness, stats.P50Fitness, stats.P90Fitness = telemetry.FitnessSummary(fitnesses)
	return stats
}

// reproduce builds the next generation from the ranked population:
// the champion unchanged, a copy of the best-ever network, fresh random
// networks, then mutated copies of the champion.
func (t *Trainer) reproduce() error {
	n := t.params.PopulationSize
	champion := t.population[0]

	next := make([]*neural.Network, 0, n)
	next = append(next, champion, t.best.Clone())
	for i := 0; i < t.params.randomSlots(); i++ {
		nn, err := neural.New(t.params.Shape, t.rng)
		if err != nil {
			return err
		}
		next = append(next, nn)
	}
	for len(next) < n {
		child := champion.Clone()
		child.Mutate(t.rng, t.params.MutationPercent)
		next = append(next, child)
	}
	t.population = next
	return nil
}

// Run calls Generation until stop returns true, ctx is cancelled or a
// generation fails. Cancellation returns ctx.Err().
func (t *Trainer) Run(ctx context.Context, stop StopFunc) error {
	for {
		stats, err := t.Generation(ctx)
		if err != nil {
			return err
		}
		if t.gen%10 == 0 {
			t.perf.Stats().LogStats(t.log)
		}
		if stop != nil && stop(stats) {
			return nil
		}
	}
}

// Population returns the current population, ranked after each generation.
func (t *Trainer) Population() []*neural.Network { return t.population }

// Best returns a copy of the best-ever network.
func (t *Trainer) Best() *neural.Network { return t.best.Clone() }

// BestFitness returns the smoothed fitness of the best-ever network.
func (t *Trainer) BestFitness() float64 { return t.bestFitness }

// GenerationNumber returns the number of completed generations.
func (t *Trainer) GenerationNumber() int { return t.gen }

// Close stops the evaluation workers.
func (t *Trainer) Close() {
	t.pool.stop()
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
