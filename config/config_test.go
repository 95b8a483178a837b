package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.World.Size != 25 {
		t.Errorf("world.size = %d, want 25", cfg.World.Size)
	}
	if cfg.Evolution.Population != 70 || cfg.Evolution.RandomPerGeneration != 8 {
		t.Errorf("population/random = %d/%d, want 70/8", cfg.Evolution.Population, cfg.Evolution.RandomPerGeneration)
	}
	if cfg.Evolution.MutationPercent != 20 || cfg.Evolution.Trials != 10 {
		t.Errorf("mutation/trials = %v/%d, want 20/10", cfg.Evolution.MutationPercent, cfg.Evolution.Trials)
	}
	if cfg.Evolution.MaxTurns != 2500 || cfg.Evolution.StagnationLimit != 150 {
		t.Errorf("limits = %d/%d, want 2500/150", cfg.Evolution.MaxTurns, cfg.Evolution.StagnationLimit)
	}
	if cfg.Screen.MoveInterval != 0.2 {
		t.Errorf("move_interval = %v, want 0.2", cfg.Screen.MoveInterval)
	}

	want := []int{24, 40, 40, 4}
	if len(cfg.Derived.Shape) != len(want) {
		t.Fatalf("shape = %v, want %v", cfg.Derived.Shape, want)
	}
	for i := range want {
		if cfg.Derived.Shape[i] != want[i] {
			t.Errorf("shape = %v, want %v", cfg.Derived.Shape, want)
			break
		}
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := []byte("world:\n  size: 12\nneural:\n  hidden: [16]\nfitness:\n  degenerate_turns: 22\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.Size != 12 {
		t.Errorf("world.size = %d, want 12", cfg.World.Size)
	}
	if cfg.Fitness.DegenerateTurns != 22 {
		t.Errorf("degenerate_turns = %d, want 22", cfg.Fitness.DegenerateTurns)
	}
	// Untouched sections keep their defaults.
	if cfg.Evolution.Population != 70 {
		t.Errorf("population = %d, want default 70", cfg.Evolution.Population)
	}
	if got := cfg.Derived.Shape; len(got) != 3 || got[1] != 16 {
		t.Errorf("shape = %v, want [24 16 4]", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("world: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml")},
		{"invalid yaml", bad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Evolution.Population = 33

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.Evolution.Population != 33 {
		t.Errorf("population = %d, want 33", again.Evolution.Population)
	}
}

func TestInitAndCfg(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatal(err)
	}
	if Cfg().World.Size != 25 {
		t.Errorf("Cfg().World.Size = %d", Cfg().World.Size)
	}
}
