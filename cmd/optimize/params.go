package main

import (
	"math"

	"github.com/pthm-cable/serpent/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string
	Path    string // config path, for logging
	Min     float64
	Max     float64
	Default float64
	Integer bool // rounded before use
}

// ParamVector holds the set of tunable training parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "mutation_percent", Path: "evolution.mutation_percent", Min: 2, Max: 60, Default: 20},
			{Name: "random_per_generation", Path: "evolution.random_per_generation", Min: 0, Max: 20, Default: 8, Integer: true},
			{Name: "population", Path: "evolution.population", Min: 20, Max: 150, Default: 70, Integer: true},
			// Both hidden layers share one width
			{Name: "hidden_width", Path: "neural.hidden", Min: 8, Max: 64, Default: 40, Integer: true},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize maps raw values onto [0,1].
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return out
}

// Denormalize maps [0,1] values back to raw values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return out
}

// Clamp bounds every value and rounds integer parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Max(spec.Min, math.Min(spec.Max, v[i]))
		if spec.Integer {
			val = math.Round(val)
		}
		out[i] = val
	}
	return out
}

// ApplyToConfig writes values into cfg and refreshes its derived shape.
// Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	v := pv.Clamp(values)

	cfg.Evolution.MutationPercent = v[0]
	cfg.Evolution.RandomPerGeneration = int(v[1])
	cfg.Evolution.Population = int(v[2])
	width := int(v[3])
	cfg.Neural.Hidden = []int{width, width}

	cfg.ComputeDerived()
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	width := 0.0
	if len(cfg.Neural.Hidden) > 0 {
		width = float64(cfg.Neural.Hidden[0])
	}
	return []float64{
		cfg.Evolution.MutationPercent,
		float64(cfg.Evolution.RandomPerGeneration),
		float64(cfg.Evolution.Population),
		width,
	}
}
