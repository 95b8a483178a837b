// Package agent couples one snake game with one network and scores the run.
package agent

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/serpent/game"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/systems"
)

// ErrIncompatibleNetwork is returned when a network's input or output width
// does not match the sensory vector or the action space.
var ErrIncompatibleNetwork = errors.New("agent: network incompatible with sensors or actions")

// Actions maps network output indices to directions. Order matters: ties
// in the output go to the earliest index.
var Actions = [...]game.Direction{game.Up, game.Right, game.Down, game.Left}

// NumActions is the width of the network output layer.
const NumActions = len(Actions)

// Reason tells why a run ended.
type Reason uint8

const (
	ReasonRunning Reason = iota
	ReasonDied
	ReasonTurnCap
	ReasonStagnated
)

// String implements fmt.Stringer.
func (r Reason) String() string {
	switch r {
	case ReasonDied:
		return "died"
	case ReasonTurnCap:
		return "turn_cap"
	case ReasonStagnated:
		return "stagnated"
	default:
		return "running"
	}
}

// Limits bounds a single play-through.
type Limits struct {
	MaxTurns        int // stop once the turn counter reaches this
	StagnationLimit int // stop after this many consecutive turns without scoring
}

// Outcome summarizes a finished run.
type Outcome struct {
	Score  int
	Turns  int
	Alive  bool
	Reason Reason
}

// Agent owns one simulation and reads one network.
type Agent struct {
	sim    *game.State
	net    *neural.Network
	grid   game.Grid
	inputs []float64
}

// New couples net with sim. The agent owns sim and steps it; it only reads
// net, so one network may back several agents running concurrently.
func New(net *neural.Network, sim *game.State) (*Agent, error) {
	if err := Compatible(net); err != nil {
		return nil, err
	}
	return &Agent{
		sim:    sim,
		net:    net,
		inputs: make([]float64, systems.NumInputs),
	}, nil
}

// Compatible checks that net reads the sensory vector and drives the action space.
func Compatible(net *neural.Network) error {
	if net == nil {
		return fmt.Errorf("%w: nil network", ErrIncompatibleNetwork)
	}
	if in := net.NumInputs(); in != systems.NumInputs {
		return fmt.Errorf("%w: %d inputs, want %d", ErrIncompatibleNetwork, in, systems.NumInputs)
	}
	if out := net.NumOutputs(); out != NumActions {
		return fmt.Errorf("%w: %d outputs, want %d", ErrIncompatibleNetwork, out, NumActions)
	}
	return nil
}

// Network returns the agent's network.
func (a *Agent) Network() *neural.Network { return a.net }

// Sim returns the agent's simulation. Callers should only read from it.
func (a *Agent) Sim() *game.State { return a.sim }

// Decide encodes the current state and returns the chosen action index.
func (a *Agent) Decide() int {
	a.grid = a.sim.OccupancyInto(a.grid)
	in := systems.EncodeInto(a.inputs, a.grid, a.sim.Head())
	return Argmax(a.net.Forward(in))
}

// DecideAndStep queries the network, applies its direction and advances the
// simulation by one step.
func (a *Agent) DecideAndStep() game.StepResult {
	if !a.sim.Alive() {
		return game.StepResult{}
	}
	a.sim.SetPendingDirection(Actions[a.Decide()])
	return a.sim.Step()
}

// RunToTermination steps until the snake dies, the turn cap is reached or
// the score has not changed for StagnationLimit consecutive turns.
func (a *Agent) RunToTermination(l Limits) Outcome {
	lastScore := a.sim.Score()
	sinceScore := 0
	reason := ReasonRunning

	for {
		if !a.sim.Alive() {
			reason = ReasonDied
			break
		}
		if a.sim.Turns() >= l.MaxTurns {
			reason = ReasonTurnCap
			break
		}
		if sinceScore >= l.StagnationLimit {
			reason = ReasonStagnated
			break
		}

		a.DecideAndStep()

		if score := a.sim.Score(); score != lastScore {
			lastScore = score
			sinceScore = 0
		} else {
			sinceScore++
		}
	}

	return Outcome{
		Score:  a.sim.Score(),
		Turns:  a.sim.Turns(),
		Alive:  a.sim.Alive(),
		Reason: reason,
	}
}

// Fitness scores the current run with the package-level Fitness.
func (a *Agent) Fitness(degenerateTurns int) float64 {
	return Fitness(a.sim.Score(), a.sim.Turns(), degenerateTurns)
}

// Evaluate plays net once on a fresh size×size game and returns the outcome
// and its fitness.
func Evaluate(net *neural.Network, size int, l Limits, degenerateTurns int, rng *rand.Rand) (Outcome, float64, error) {
	a, err := New(net, game.New(size, rng))
	if err != nil {
		return Outcome{}, 0, err
	}
	out := a.RunToTermination(l)
	return out, a.Fitness(degenerateTurns), nil
}

// Argmax returns the index of the strictly greatest value; ties keep the
// earliest index. It returns 0 for an empty slice.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// ScoreThreshold is where fitness switches from exponential to linear growth in score.
const ScoreThreshold = 10

// Fitness computes run fitness from score and turn count. Runs that scored
// nothing or lasted exactly degenerateTurns are worth 0. Up to
// ScoreThreshold fitness is 4^score·turns/100; above it the growth in score
// is linear so the value stays finite, and both branches agree at the threshold.
func Fitness(score, turns, degenerateTurns int) float64 {
	if score <= 0 || turns == degenerateTurns {
		return 0
	}
	if score <= ScoreThreshold {
		return math.Ldexp(1, 2*score) * float64(turns) / 100
	}
	return math.Ldexp(1, 2*ScoreThreshold) * float64(score-ScoreThreshold+1) * float64(turns) / 100
}
