// Package storage keeps training history: runs, per-generation statistics
// and best-ever champions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/telemetry"
)

// ErrNotFound is returned when a run or champion does not exist.
var ErrNotFound = errors.New("storage: not found")

// Run describes one training run.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Seed      int64     `json:"seed"`
	Shape     []int     `json:"shape"`
	GridSize  int       `json:"grid_size"`
}

// Champion is the best-ever network of a run at the time it was saved.
type Champion struct {
	RunID      string
	Generation int
	Fitness    float64
	Network    *neural.Network
}

// Store persists training history.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	SaveGeneration(ctx context.Context, runID string, stats telemetry.GenerationStats) error
	Generations(ctx context.Context, runID string) ([]telemetry.GenerationStats, error)
	SaveChampion(ctx context.Context, c Champion) error
	Champion(ctx context.Context, runID string) (Champion, error)
	Close() error
}
