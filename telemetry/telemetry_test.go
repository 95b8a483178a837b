package telemetry

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/serpent/neural"
)

var testShape = []int{24, 8, 4}

func newNet(t *testing.T, seed int64) *neural.Network {
	t.Helper()
	nn, err := neural.New(testShape, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return nn
}

func TestFitnessSummary(t *testing.T) {
	values := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}
	mean, std, p50, p90 := FitnessSummary(values)

	if mean != 5.5 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if math.Abs(std-3.02765) > 1e-4 {
		t.Errorf("std = %v, want ~3.02765", std)
	}
	if p50 != 5 {
		t.Errorf("p50 = %v, want 5", p50)
	}
	if p90 != 9 {
		t.Errorf("p90 = %v, want 9", p90)
	}
	if values[0] != 10 {
		t.Error("FitnessSummary reordered its input")
	}
}

func TestFitnessSummarySmall(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		mean, sd float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{4}, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std, _, _ := FitnessSummary(tt.values)
			if mean != tt.mean || std != tt.sd {
				t.Errorf("mean/std = %v/%v, want %v/%v", mean, std, tt.mean, tt.sd)
			}
		})
	}
}

func TestHallOfFameOrderAndCapacity(t *testing.T) {
	hof := NewHallOfFame(3)
	net := newNet(t, 1)

	for gen, f := range []float64{5, 1, 9, 3, 7} {
		hof.Consider(gen, f, 1, 10, net)
	}
	if hof.Size() != 3 {
		t.Fatalf("size = %d, want 3", hof.Size())
	}
	want := []float64{9, 7, 5}
	for i, w := range want {
		e, _ := hof.Entry(i)
		if e.Fitness != w {
			t.Errorf("entry %d fitness = %v, want %v", i, e.Fitness, w)
		}
	}
	if hof.TopFitness() != 9 {
		t.Errorf("TopFitness = %v, want 9", hof.TopFitness())
	}
	if hof.Consider(9, 0.5, 1, 10, net) {
		t.Error("weaker champion entered a full hall")
	}
	if hof.Consider(10, 0, 0, 10, net) {
		t.Error("zero fitness entered the hall")
	}
}

func TestHallOfFameClonesNetwork(t *testing.T) {
	hof := NewHallOfFame(2)
	net := newNet(t, 1)
	orig := net.Clone()

	hof.Consider(0, 1, 1, 10, net)
	net.Mutate(rand.New(rand.NewSource(2)), 50)

	e, _ := hof.Entry(0)
	if !e.Network.Equal(orig) {
		t.Error("hall entry changed with the caller's network")
	}
}

func TestHallOfFameJSONRoundTrip(t *testing.T) {
	hof := NewHallOfFame(4)
	hof.Consider(3, 12.5, 2, 80, newNet(t, 1))
	hof.Consider(7, 40, 3, 120, newNet(t, 2))

	data, err := hof.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "hall_of_fame.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadHallOfFameFromFile(path, testShape)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("size = %d, want 2", loaded.Size())
	}
	for i := 0; i < 2; i++ {
		a, _ := hof.Entry(i)
		b, _ := loaded.Entry(i)
		if a.Generation != b.Generation || a.Fitness != b.Fitness || !a.Network.Equal(b.Network) {
			t.Errorf("entry %d differs after round trip", i)
		}
	}

	if _, err := LoadHallOfFameFromFile(path, []int{24, 9, 4}); !errors.Is(err, neural.ErrShapeMismatch) {
		t.Errorf("wrong shape: err = %v, want ErrShapeMismatch", err)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", true, 5)
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	ctx := context.Background()
	if err := om.RecordGeneration(ctx, GenerationStats{}, nil); err != nil {
		t.Error(err)
	}
	if err := om.SaveBest(ctx, 0, 1, nil); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir, true, 5)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	net := newNet(t, 3)

	for gen := 0; gen < 3; gen++ {
		stats := GenerationStats{Generation: gen, SmoothedFitness: float64(gen + 1), ChampionScore: 1}
		if err := om.RecordGeneration(ctx, stats, net); err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
	}
	if err := om.SaveBest(ctx, 2, 3, net); err != nil {
		t.Fatalf("SaveBest: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("generations.csv has %d rows, want header + 3", len(rows))
	}
	if rows[0][0] != "generation" {
		t.Errorf("first header = %q, want generation", rows[0][0])
	}

	for _, name := range []string{BestFile, GenerationFile(0), GenerationFile(2), "hall_of_fame.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	best, err := neural.Load(om.BestPath(), testShape)
	if err != nil {
		t.Fatal(err)
	}
	if !best.Equal(net) {
		t.Error("best.bin differs from the saved network")
	}
}

func TestOutputManagerSkipsGenerationFiles(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, false, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	if err := om.RecordGeneration(context.Background(), GenerationStats{Generation: 4, SmoothedFitness: 1}, newNet(t, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, GenerationFile(4))); !os.IsNotExist(err) {
		t.Errorf("per-generation file written with saving disabled: %v", err)
	}
}
