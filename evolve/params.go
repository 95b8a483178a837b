package evolve

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/config"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/systems"
)

// ErrInvalidParams is returned by NewTrainer for unusable parameters.
var ErrInvalidParams = errors.New("evolve: invalid parameters")

// Params configures a training run.
type Params struct {
	PopulationSize      int
	RandomPerGeneration int     // fresh random networks injected each generation
	MutationPercent     float64 // each parameter is scaled by a factor in [1-p/100, 1+p/100]
	Trials              int     // runs averaged to score the generation champion
	GridSize            int
	Shape               []int
	Limits              agent.Limits
	DegenerateTurns     int // runs lasting exactly this long score 0
	Workers             int // 0 = GOMAXPROCS
}

// DefaultParams returns the standard training setup.
func DefaultParams() Params {
	return Params{
		PopulationSize:      70,
		RandomPerGeneration: 8,
		MutationPercent:     20,
		Trials:              10,
		GridSize:            25,
		Shape:               []int{systems.NumInputs, 40, 40, agent.NumActions},
		Limits:              agent.Limits{MaxTurns: 2500, StagnationLimit: 150},
		DegenerateTurns:     150,
	}
}

// Validate reports the first problem with p.
func (p Params) Validate() error {
	switch {
	case p.PopulationSize < 2:
		return fmt.Errorf("%w: population %d, need at least 2", ErrInvalidParams, p.PopulationSize)
	case p.RandomPerGeneration < 0:
		return fmt.Errorf("%w: negative random count %d", ErrInvalidParams, p.RandomPerGeneration)
	case p.MutationPercent < 0:
		return fmt.Errorf("%w: negative mutation percent %v", ErrInvalidParams, p.MutationPercent)
	case p.Trials < 1:
		return fmt.Errorf("%w: trials %d, need at least 1", ErrInvalidParams, p.Trials)
	case p.Limits.MaxTurns < 1 || p.Limits.StagnationLimit < 1:
		return fmt.Errorf("%w: limits %+v", ErrInvalidParams, p.Limits)
	case p.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidParams, p.Workers)
	}
	if err := neural.ValidateShape(p.Shape); err != nil {
		return err
	}
	if p.Shape[0] != systems.NumInputs || p.Shape[len(p.Shape)-1] != agent.NumActions {
		return fmt.Errorf("%w: shape %v", agent.ErrIncompatibleNetwork, p.Shape)
	}
	return nil
}

// randomSlots returns how many random networks fit in the next generation
// after the champion and best-ever slots.
func (p Params) randomSlots() int {
	return min(p.RandomPerGeneration, p.PopulationSize-2)
}

// ParamsFromConfig builds trainer parameters from loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		PopulationSize:      cfg.Evolution.Population,
		RandomPerGeneration: cfg.Evolution.RandomPerGeneration,
		MutationPercent:     cfg.Evolution.MutationPercent,
		Trials:              cfg.Evolution.Trials,
		GridSize:            cfg.World.Size,
		Shape:               append([]int(nil), cfg.Derived.Shape...),
		Limits: agent.Limits{
			MaxTurns:        cfg.Evolution.MaxTurns,
			StagnationLimit: cfg.Evolution.StagnationLimit,
		},
		DegenerateTurns: cfg.Fitness.DegenerateTurns,
		Workers:         cfg.Evolution.Workers,
	}
}
