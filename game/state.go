package game

import "math/rand"

// MinSize is the smallest supported grid side.
const MinSize = 4

// InitialLength is the body length at the start of every game.
const InitialLength = 2

// DefaultTargetOffset is how far ahead of the head the first target sits.
const DefaultTargetOffset = 5

// DeathCause tells why a snake died.
type DeathCause uint8

const (
	CauseNone DeathCause = iota
	CauseWall
	CauseSelf
)

// String implements fmt.Stringer.
func (c DeathCause) String() string {
	switch c {
	case CauseWall:
		return "wall"
	case CauseSelf:
		return "self"
	default:
		return "none"
	}
}

// StepResult describes what one call to Step did.
type StepResult struct {
	Moved bool // false when the snake was already dead
	Ate   bool
	Died  bool
	Cause DeathCause
}

// Layout fixes the starting position of a game.
// The tail starts one cell behind Head, opposite to Direction.
type Layout struct {
	Head      Point
	Direction Direction
	Target    Point
}

// DefaultLayout returns the standard start: centred head moving right with
// the first target DefaultTargetOffset cells ahead (clamped to the last column).
func DefaultLayout(size int) Layout {
	size = max(size, MinSize)
	head := Point{X: size / 2, Y: size / 2}
	return Layout{
		Head:      head,
		Direction: Right,
		Target:    Point{X: min(head.X+DefaultTargetOffset, size-1), Y: head.Y},
	}
}

// Snapshot is the read-only view handed to the presentation layer each tick.
type Snapshot struct {
	Grid  Grid
	Head  Point
	Alive bool
	Score int
	Turns int
}

// State is one snake game. All mutation goes through SetPendingDirection and
// Step; every query is side-effect free. State never panics or returns errors:
// illegal requests are ignored.
type State struct {
	size      int
	body      []Point
	direction Direction
	pending   Direction
	target    Point
	hasTarget bool
	turns     int
	dead      bool
	cause     DeathCause
	rng       *rand.Rand
}

// New starts a game on a size×size grid using DefaultLayout.
// Sizes below MinSize are raised to MinSize. rng drives target placement.
func New(size int, rng *rand.Rand) *State {
	return NewWithLayout(size, DefaultLayout(size), rng)
}

// NewWithLayout starts a game from an explicit layout. Invalid layouts are
// normalized: a non-unit direction becomes Right, an off-grid body falls back
// to DefaultLayout and a target that is off-grid or on the body is relocated.
func NewWithLayout(size int, l Layout, rng *rand.Rand) *State {
	size = max(size, MinSize)
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if !l.Direction.IsUnit() {
		l.Direction = Right
	}
	tail := Point{X: l.Head.X - l.Direction.X, Y: l.Head.Y - l.Direction.Y}
	if !l.Head.In(size) || !tail.In(size) {
		def := DefaultLayout(size)
		l.Head, l.Direction = def.Head, def.Direction
		tail = Point{X: l.Head.X - l.Direction.X, Y: l.Head.Y - l.Direction.Y}
	}

	s := &State{
		size:      size,
		body:      []Point{l.Head, tail},
		direction: l.Direction,
		pending:   l.Direction,
		target:    l.Target,
		hasTarget: true,
		rng:       rng,
	}
	if !l.Target.In(size) || s.onBody(l.Target) {
		s.relocateTarget()
	}
	return s
}

// SetPendingDirection queues d for the next step. The exact reverse of the
// current direction, and anything that is not a unit direction, is ignored.
func (s *State) SetPendingDirection(d Direction) {
	if !d.IsUnit() || d == s.direction.Reverse() {
		return
	}
	s.pending = d
}

// Step advances the game by one turn.
func (s *State) Step() StepResult {
	if s.dead {
		return StepResult{}
	}
	s.turns++

	if s.pending != s.direction.Reverse() {
		s.direction = s.pending
	}

	next := s.body[0].Add(s.direction)
	res := StepResult{Moved: true}

	if s.hasTarget && next == s.target {
		s.advance(next, true)
		s.relocateTarget()
		res.Ate = true
	} else {
		s.advance(next, false)
	}

	if cause := s.collision(); cause != CauseNone {
		s.dead = true
		s.cause = cause
		res.Died = true
		res.Cause = cause
	}
	return res
}

// advance moves every segment one place forward and puts the head at next.
// When grow is set the old tail is kept, lengthening the body by one.
func (s *State) advance(next Point, grow bool) {
	if grow {
		s.body = append(s.body, s.body[len(s.body)-1])
	}
	for i := len(s.body) - 1; i > 0; i-- {
		s.body[i] = s.body[i-1]
	}
	s.body[0] = next
}

func (s *State) collision() DeathCause {
	head := s.body[0]
	if !head.In(s.size) {
		return CauseWall
	}
	for _, p := range s.body[1:] {
		if p == head {
			return CauseSelf
		}
	}
	return CauseNone
}

// relocateTarget picks a uniformly random cell off the body by rejection
// sampling. A body covering the whole grid leaves no target.
func (s *State) relocateTarget() {
	if s.freeCells() == 0 {
		s.hasTarget = false
		s.target = Point{X: -1, Y: -1}
		return
	}
	for {
		p := Point{X: s.rng.Intn(s.size), Y: s.rng.Intn(s.size)}
		if !s.onBody(p) {
			s.target = p
			s.hasTarget = true
			return
		}
	}
}

func (s *State) freeCells() int {
	occupied := make(map[Point]struct{}, len(s.body))
	for _, p := range s.body {
		if p.In(s.size) {
			occupied[p] = struct{}{}
		}
	}
	return s.size*s.size - len(occupied)
}

func (s *State) onBody(p Point) bool {
	for _, b := range s.body {
		if b == p {
			return true
		}
	}
	return false
}

// Size returns the grid side.
func (s *State) Size() int { return s.size }

// Alive reports whether the snake is still alive.
func (s *State) Alive() bool { return !s.dead }

// Cause returns why the snake died, or CauseNone while alive.
func (s *State) Cause() DeathCause { return s.cause }

// Score is the number of targets eaten.
func (s *State) Score() int { return len(s.body) - InitialLength }

// Turns is the number of steps taken.
func (s *State) Turns() int { return s.turns }

// Head returns the head position. It may be off-grid after a wall death.
func (s *State) Head() Point { return s.body[0] }

// Direction returns the direction applied on the last step.
func (s *State) Direction() Direction { return s.direction }

// PendingDirection returns the direction the next step will try to apply.
func (s *State) PendingDirection() Direction { return s.pending }

// Target returns the target position and whether one exists.
func (s *State) Target() (Point, bool) { return s.target, s.hasTarget }

// HasTarget is false only once the body fills the board.
func (s *State) HasTarget() bool { return s.hasTarget }

// Body returns a copy of the body, head first.
func (s *State) Body() []Point {
	out := make([]Point, len(s.body))
	copy(out, s.body)
	return out
}

// Occupancy derives the current grid. Off-grid segments are skipped.
func (s *State) Occupancy() Grid {
	g := NewGrid(s.size)
	for _, p := range s.body {
		g.Set(p, Body)
	}
	if s.hasTarget {
		g.Set(s.target, Target)
	}
	return g
}

// OccupancyInto is Occupancy writing into g, reallocating only when the
// size differs. It returns the filled grid.
func (s *State) OccupancyInto(g Grid) Grid {
	if g.Size != s.size || len(g.Cells) != s.size*s.size {
		return s.Occupancy()
	}
	clear(g.Cells)
	for _, p := range s.body {
		g.Set(p, Body)
	}
	if s.hasTarget {
		g.Set(s.target, Target)
	}
	return g
}

// Snapshot bundles the presentation view of the current tick.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Grid:  s.Occupancy(),
		Head:  s.Head(),
		Alive: s.Alive(),
		Score: s.Score(),
		Turns: s.turns,
	}
}

// Clone returns a deep copy that places targets with rng. The original's
// random source is never touched, so the two games evolve independently.
func (s *State) Clone(rng *rand.Rand) *State {
	c := *s
	c.rng = rng
	c.body = make([]Point, len(s.body))
	copy(c.body, s.body)
	return &c
}
