package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/serpent/neural"
)

// HallEntry is one archived generation champion.
type HallEntry struct {
	Generation int
	Fitness    float64 // smoothed over the evaluation trials
	Score      int
	Turns      int
	Network    *neural.Network
}

// HallOfFame keeps the strongest generation champions seen during a run,
// sorted by descending fitness.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall holding at most maxSize entries.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers a champion to the hall. The network is cloned on entry.
// Returns true if it was added.
func (hof *HallOfFame) Consider(gen int, fitness float64, score, turns int, net *neural.Network) bool {
	if net == nil || fitness <= 0 {
		return false
	}

	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Fitness < fitness
	})
	if len(hof.entries) >= hof.maxSize && idx >= hof.maxSize {
		return false
	}

	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = HallEntry{
		Generation: gen,
		Fitness:    fitness,
		Score:      score,
		Turns:      turns,
		Network:    net.Clone(),
	}
	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Size returns the number of archived champions.
func (hof *HallOfFame) Size() int { return len(hof.entries) }

// Entry returns the champion at rank i (0 is the strongest).
func (hof *HallOfFame) Entry(i int) (HallEntry, bool) {
	if i < 0 || i >= len(hof.entries) {
		return HallEntry{}, false
	}
	return hof.entries[i], true
}

// TopFitness returns the highest archived fitness, or 0 when empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

type hallEntryJSON struct {
	Generation int       `json:"generation"`
	Fitness    float64   `json:"fitness"`
	Score      int       `json:"score"`
	Turns      int       `json:"turns"`
	Shape      []int     `json:"shape"`
	Params     []float64 `json:"params"`
}

// MarshalJSON serializes the hall, strongest first.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make([]hallEntryJSON, len(hof.entries))
	for i, e := range hof.entries {
		export[i] = hallEntryJSON{
			Generation: e.Generation,
			Fitness:    e.Fitness,
			Score:      e.Score,
			Turns:      e.Turns,
			Shape:      e.Network.Shape(),
			Params:     e.Network.Params(),
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// LoadHallOfFameFromFile reads a hall written by MarshalJSON. Every entry
// must match shape.
func LoadHallOfFameFromFile(path string, shape []int) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw []hallEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(len(raw))
	for i, ej := range raw {
		if !sameShape(ej.Shape, shape) {
			return nil, fmt.Errorf("hall entry %d: %w: shape %v, want %v", i, neural.ErrShapeMismatch, ej.Shape, shape)
		}
		nn, err := neural.FromParams(shape, ej.Params)
		if err != nil {
			return nil, fmt.Errorf("hall entry %d: %w", i, err)
		}
		hof.Consider(ej.Generation, ej.Fitness, ej.Score, ej.Turns, nn)
	}
	return hof, nil
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
