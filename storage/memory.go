package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pthm-cable/serpent/telemetry"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]Run
	generations map[string][]telemetry.GenerationStats
	champions   map[string]Champion
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]Run)
	s.generations = make(map[string][]telemetry.GenerationStats)
	s.champions = make(map[string]Champion)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	run.Shape = append([]int(nil), run.Shape...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	run.Shape = append([]int(nil), run.Shape...)
	return run, nil
}

func (s *MemoryStore) SaveGeneration(_ context.Context, runID string, stats telemetry.GenerationStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	// Re-saving a generation replaces it.
	gens := s.generations[runID]
	for i := range gens {
		if gens[i].Generation == stats.Generation {
			gens[i] = stats
			return nil
		}
	}
	s.generations[runID] = append(gens, stats)
	return nil
}

func (s *MemoryStore) Generations(_ context.Context, runID string) ([]telemetry.GenerationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]telemetry.GenerationStats(nil), s.generations[runID]...), nil
}

func (s *MemoryStore) SaveChampion(_ context.Context, c Champion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	c.Network = c.Network.Clone()
	s.champions[c.RunID] = c
	return nil
}

func (s *MemoryStore) Champion(_ context.Context, runID string) (Champion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.champions[runID]
	if !ok {
		return Champion{}, fmt.Errorf("champion of run %s: %w", runID, ErrNotFound)
	}
	c.Network = c.Network.Clone()
	return c, nil
}

func (s *MemoryStore) Close() error { return nil }

var errNotInitialized = errors.New("store is not initialized")
