package evolve

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/systems"
	"github.com/pthm-cable/serpent/telemetry"
)

func testParams() Params {
	return Params{
		PopulationSize:      8,
		RandomPerGeneration: 2,
		MutationPercent:     20,
		Trials:              3,
		GridSize:            10,
		Shape:               []int{systems.NumInputs, 6, agent.NumActions},
		Limits:              agent.Limits{MaxTurns: 200, StagnationLimit: 50},
		DegenerateTurns:     150,
		Workers:             2,
	}
}

func newTrainer(t *testing.T, p Params, seed int64, opts ...Option) *Trainer {
	t.Helper()
	tr, err := NewTrainer(p, rand.New(rand.NewSource(seed)), nil, opts...)
	if err != nil {
		t.Fatalf("NewTrainer: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
}

type captureRecorder struct {
	stats     []telemetry.GenerationStats
	champions []*neural.Network
}

func (c *captureRecorder) RecordGeneration(_ context.Context, s telemetry.GenerationStats, champion *neural.Network) error {
	c.stats = append(c.stats, s)
	c.champions = append(c.champions, champion.Clone())
	return nil
}

type captureCheckpointer struct {
	fitness []float64
	err     error
}

func (c *captureCheckpointer) SaveBest(_ context.Context, _ int, fitness float64, _ *neural.Network) error {
	c.fitness = append(c.fitness, fitness)
	return c.err
}

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("DefaultParams invalid: %v", err)
	}
}

func TestNewTrainerRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		want   error
	}{
		{"population too small", func(p *Params) { p.PopulationSize = 1 }, ErrInvalidParams},
		{"no trials", func(p *Params) { p.Trials = 0 }, ErrInvalidParams},
		{"negative mutation", func(p *Params) { p.MutationPercent = -1 }, ErrInvalidParams},
		{"zero turn cap", func(p *Params) { p.Limits.MaxTurns = 0 }, ErrInvalidParams},
		{"bad shape", func(p *Params) { p.Shape = []int{24} }, neural.ErrInvalidShape},
		{"wrong input width", func(p *Params) { p.Shape = []int{10, 4} }, agent.ErrIncompatibleNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			_, err := NewTrainer(p, rand.New(rand.NewSource(1)), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewTrainerInitialState(t *testing.T) {
	tr := newTrainer(t, testParams(), 42)

	if got := len(tr.Population()); got != 8 {
		t.Fatalf("population = %d, want 8", got)
	}
	if tr.BestFitness() != 0 || tr.GenerationNumber() != 0 {
		t.Errorf("best fitness %v gen %d, want 0 and 0", tr.BestFitness(), tr.GenerationNumber())
	}
	if !tr.Best().Equal(tr.Population()[0]) {
		t.Error("initial best is not a copy of the first member")
	}
	if tr.Population()[0].Equal(tr.Population()[1]) {
		t.Error("random members are identical")
	}
}

func TestNewTrainerFromSeed(t *testing.T) {
	p := testParams()
	seed, err := neural.New(p.Shape, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := NewTrainer(p, rand.New(rand.NewSource(1)), seed)
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	for i, nn := range tr.Population() {
		if !nn.Equal(seed) {
			t.Fatalf("member %d differs from the seed network", i)
		}
		if nn == seed {
			t.Fatalf("member %d aliases the seed network", i)
		}
	}

	wrong, _ := neural.New([]int{systems.NumInputs, 7, agent.NumActions}, rand.New(rand.NewSource(2)))
	if _, err := NewTrainer(p, rand.New(rand.NewSource(1)), wrong); !errors.Is(err, neural.ErrShapeMismatch) {
		t.Errorf("wrong seed shape: err = %v, want ErrShapeMismatch", err)
	}
}

func TestGenerationKeepsChampionAndBest(t *testing.T) {
	rec := &captureRecorder{}
	tr := newTrainer(t, testParams(), 42, WithRecorder(rec))

	for gen := 0; gen < 3; gen++ {
		if _, err := tr.Generation(context.Background()); err != nil {
			t.Fatalf("generation %d: %v", gen, err)
		}
		pop := tr.Population()
		if !pop[0].Equal(rec.champions[gen]) {
			t.Fatalf("gen %d: slot 0 is not the rank-1 network", gen)
		}
		if !pop[1].Equal(tr.Best()) {
			t.Fatalf("gen %d: slot 1 is not the best-ever network", gen)
		}
	}
}

func TestGenerationReproductionLayout(t *testing.T) {
	p := testParams()
	tr := newTrainer(t, p, 7)
	if _, err := tr.Generation(context.Background()); err != nil {
		t.Fatal(err)
	}

	pop := tr.Population()
	if len(pop) != p.PopulationSize {
		t.Fatalf("population = %d, want %d", len(pop), p.PopulationSize)
	}
	champ := pop[0].Params()
	for i := 2 + p.RandomPerGeneration; i < len(pop); i++ {
		for j, v := range pop[i].Params() {
			if champ[j] == 0 {
				if v != 0 {
					t.Fatalf("member %d param %d moved from zero", i, j)
				}
				continue
			}
			ratio := v / champ[j]
			if ratio < 0.8-1e-12 || ratio > 1.2+1e-12 {
				t.Fatalf("member %d param %d scaled by %v", i, j, ratio)
			}
		}
	}
	// Random members are not derived from the champion.
	for i := 2; i < 2+p.RandomPerGeneration; i++ {
		if pop[i].Equal(pop[0]) {
			t.Errorf("random member %d equals the champion", i)
		}
	}
}

func TestGenerationStats(t *testing.T) {
	p := testParams()
	tr := newTrainer(t, p, 3)
	stats, err := tr.Generation(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if stats.Generation != 0 || tr.GenerationNumber() != 1 {
		t.Errorf("generation = %d, counter = %d", stats.Generation, tr.GenerationNumber())
	}
	if got := stats.Died + stats.Stagnated + stats.TurnCapped; got != p.PopulationSize {
		t.Errorf("terminations sum to %d, want %d", got, p.PopulationSize)
	}
	if stats.P90Fitness > stats.ChampionFitness || stats.MeanFitness > stats.ChampionFitness {
		t.Errorf("champion fitness %v below population stats %+v", stats.ChampionFitness, stats)
	}
	if stats.ChampionScore > stats.MaxScore {
		t.Errorf("champion score %d above max %d", stats.ChampionScore, stats.MaxScore)
	}
	if stats.BestFitness != tr.BestFitness() {
		t.Errorf("stats best %v, trainer best %v", stats.BestFitness, tr.BestFitness())
	}
}

func TestGenerationDeterministicAcrossWorkers(t *testing.T) {
	serial := testParams()
	serial.Workers = 1
	parallel := testParams()
	parallel.Workers = 4

	a := newTrainer(t, serial, 11)
	b := newTrainer(t, parallel, 11)

	for gen := 0; gen < 3; gen++ {
		sa, err := a.Generation(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		sb, err := b.Generation(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		sa.DurationMs, sb.DurationMs = 0, 0
		if sa != sb {
			t.Fatalf("gen %d stats differ:\n%+v\n%+v", gen, sa, sb)
		}
	}
	for i := range a.Population() {
		if !a.Population()[i].Equal(b.Population()[i]) {
			t.Fatalf("member %d differs between serial and parallel runs", i)
		}
	}
}

func TestBestFitnessNeverDecreases(t *testing.T) {
	cp := &captureCheckpointer{}
	tr := newTrainer(t, testParams(), 5, WithCheckpointer(cp))

	prev := tr.BestFitness()
	improvements := 0
	for gen := 0; gen < 5; gen++ {
		stats, err := tr.Generation(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if tr.BestFitness() < prev {
			t.Fatalf("best fitness fell from %v to %v", prev, tr.BestFitness())
		}
		if stats.Improved {
			improvements++
			if stats.SmoothedFitness <= prev {
				t.Errorf("gen %d marked improved without a strict gain", gen)
			}
		}
		prev = tr.BestFitness()
	}
	if len(cp.fitness) != improvements {
		t.Errorf("checkpointer called %d times, want %d", len(cp.fitness), improvements)
	}
	for i := 1; i < len(cp.fitness); i++ {
		if cp.fitness[i] <= cp.fitness[i-1] {
			t.Errorf("checkpoint %d fitness %v not above %v", i, cp.fitness[i], cp.fitness[i-1])
		}
	}
}

func TestCheckpointErrorIsReturned(t *testing.T) {
	boom := errors.New("disk full")
	tr := newTrainer(t, testParams(), 5, WithCheckpointer(&captureCheckpointer{err: boom}))
	tr.bestFitness = -1 // any result is an improvement

	if _, err := tr.Generation(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestRunStopsAfterMaxGenerations(t *testing.T) {
	rec := &captureRecorder{}
	tr := newTrainer(t, testParams(), 1, WithRecorder(rec))

	if err := tr.Run(context.Background(), MaxGenerations(3)); err != nil {
		t.Fatal(err)
	}
	if tr.GenerationNumber() != 3 || len(rec.stats) != 3 {
		t.Errorf("ran %d generations, recorded %d, want 3", tr.GenerationNumber(), len(rec.stats))
	}
}

func TestRunCancelled(t *testing.T) {
	tr := newTrainer(t, testParams(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tr.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if tr.GenerationNumber() != 0 {
		t.Errorf("generations = %d after cancellation, want 0", tr.GenerationNumber())
	}
}

func TestMaxGenerations(t *testing.T) {
	stop := MaxGenerations(2)
	if stop(telemetry.GenerationStats{Generation: 0}) {
		t.Error("stopped after the first generation")
	}
	if !stop(telemetry.GenerationStats{Generation: 1}) {
		t.Error("did not stop after the second generation")
	}
	if MaxGenerations(0)(telemetry.GenerationStats{Generation: 1000}) {
		t.Error("unbounded run stopped")
	}
}

func TestSmallPopulationClampsRandomSlots(t *testing.T) {
	p := testParams()
	p.PopulationSize = 3
	p.RandomPerGeneration = 5
	tr := newTrainer(t, p, 2)
	if _, err := tr.Generation(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tr.Population()) != 3 {
		t.Errorf("population = %d, want 3", len(tr.Population()))
	}
}

func BenchmarkGeneration(b *testing.B) {
	p := testParams()
	tr, err := NewTrainer(p, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer tr.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tr.Generation(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRunLogsOnlyToTrainerLogger(t *testing.T) {
	var global, own bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&global, nil)))
	defer slog.SetDefault(prev)

	tr := newTrainer(t, testParams(), 1, WithLogger(slog.New(slog.NewTextHandler(&own, nil))))
	if err := tr.Run(context.Background(), MaxGenerations(10)); err != nil {
		t.Fatal(err)
	}

	if global.Len() != 0 {
		t.Errorf("default logger received output:\n%s", global.String())
	}
	if !strings.Contains(own.String(), "msg=perf") {
		t.Error("perf summary missing from the trainer logger")
	}
}
