package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/telemetry"
)

// Recorder writes one training run into a Store. It satisfies the
// trainer's Recorder and Checkpointer interfaces.
type Recorder struct {
	store Store
	runID string
}

// NewRecorder registers a new run under a fresh ID.
func NewRecorder(ctx context.Context, store Store, seed int64, shape []int, gridSize int) (*Recorder, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Seed:      seed,
		Shape:     append([]int(nil), shape...),
		GridSize:  gridSize,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}
	return &Recorder{store: store, runID: run.ID}, nil
}

// RunID returns the ID of the recorded run.
func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) RecordGeneration(ctx context.Context, stats telemetry.GenerationStats, _ *neural.Network) error {
	return r.store.SaveGeneration(ctx, r.runID, stats)
}

func (r *Recorder) SaveBest(ctx context.Context, gen int, fitness float64, net *neural.Network) error {
	return r.store.SaveChampion(ctx, Champion{
		RunID:      r.runID,
		Generation: gen,
		Fitness:    fitness,
		Network:    net,
	})
}
