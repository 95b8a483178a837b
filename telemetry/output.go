package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/serpent/config"
	"github.com/pthm-cable/serpent/neural"
)

// BestFile is the name of the best-ever weight file inside the output directory.
const BestFile = "best.bin"

// GenerationFile returns the name of the per-generation champion weight file.
func GenerationFile(gen int) string {
	return fmt.Sprintf("best_of_gen_%d.bin", gen)
}

// OutputManager writes training output: generations.csv, weight
// checkpoints and the hall of fame. A nil manager discards everything.
type OutputManager struct {
	dir            string
	generationFile *os.File
	headerWritten  bool

	saveEveryGen bool
	hof          *HallOfFame
}

// NewOutputManager creates the output directory and opens generations.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, saveEveryGen bool, hallSize int) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}

	return &OutputManager{
		dir:            dir,
		generationFile: f,
		saveEveryGen:   saveEveryGen,
		hof:            NewHallOfFame(hallSize),
	}, nil
}

// WriteConfig saves the configuration used for the run as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// RecordGeneration appends a row to generations.csv, archives the champion
// in the hall of fame and, when enabled, writes best_of_gen_<N>.bin.
func (om *OutputManager) RecordGeneration(_ context.Context, stats GenerationStats, champion *neural.Network) error {
	if om == nil {
		return nil
	}

	records := []GenerationStats{stats}
	if !om.headerWritten {
		if err := gocsv.Marshal(records, om.generationFile); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
		om.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.generationFile); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
	}

	if champion == nil {
		return nil
	}
	om.hof.Consider(stats.Generation, stats.SmoothedFitness, stats.ChampionScore, stats.ChampionTurns, champion)

	if om.saveEveryGen {
		path := filepath.Join(om.dir, GenerationFile(stats.Generation))
		if err := champion.Save(path); err != nil {
			return fmt.Errorf("saving generation %d champion: %w", stats.Generation, err)
		}
	}
	return nil
}

// SaveBest overwrites best.bin with net.
func (om *OutputManager) SaveBest(_ context.Context, gen int, fitness float64, net *neural.Network) error {
	if om == nil {
		return nil
	}
	path := om.BestPath()
	if err := net.Save(path); err != nil {
		return fmt.Errorf("saving best network: %w", err)
	}
	slog.Info("checkpoint", "gen", gen, "fitness", fitness, "path", path)
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame() error {
	if om == nil || om.hof == nil {
		return nil
	}

	data, err := om.hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, "hall_of_fame.json"), data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}
	return nil
}

// HallOfFame returns the champion archive.
func (om *OutputManager) HallOfFame() *HallOfFame {
	if om == nil {
		return nil
	}
	return om.hof
}

// BestPath returns the path of best.bin.
func (om *OutputManager) BestPath() string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, BestFile)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close writes the hall of fame and closes generations.csv.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	firstErr := om.WriteHallOfFame()
	if om.generationFile != nil {
		if err := om.generationFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
