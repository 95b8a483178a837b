// Package game implements the deterministic snake simulation used as the
// fitness environment and as the engine behind interactive play.
package game

// Point is an integer grid coordinate. (0,0) is the top-left cell.
type Point struct {
	X, Y int
}

// Add returns p translated by d.
func (p Point) Add(d Direction) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// In reports whether p lies inside a size×size grid.
func (p Point) In(size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

// Direction is a unit step on the grid.
type Direction struct {
	X, Y int
}

// The four movement directions. Y grows downwards.
var (
	Up    = Direction{X: 0, Y: -1}
	Down  = Direction{X: 0, Y: 1}
	Left  = Direction{X: -1, Y: 0}
	Right = Direction{X: 1, Y: 0}
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	return Direction{X: -d.X, Y: -d.Y}
}

// IsUnit reports whether d is one of the four movement directions.
func (d Direction) IsUnit() bool {
	return d == Up || d == Down || d == Left || d == Right
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Cell is the content of one grid square.
type Cell uint8

const (
	Empty Cell = iota
	Body
	Target
)

// String implements fmt.Stringer.
func (c Cell) String() string {
	switch c {
	case Body:
		return "body"
	case Target:
		return "target"
	default:
		return "empty"
	}
}

// Grid is a read-only occupancy snapshot, row-major.
type Grid struct {
	Size  int
	Cells []Cell
}

// NewGrid returns an empty size×size grid.
func NewGrid(size int) Grid {
	return Grid{Size: size, Cells: make([]Cell, size*size)}
}

// At returns the cell at p, or Empty when p is outside the grid.
func (g Grid) At(p Point) Cell {
	if !p.In(g.Size) {
		return Empty
	}
	return g.Cells[p.Y*g.Size+p.X]
}

// Set writes c at p. Out-of-range points are ignored.
func (g Grid) Set(p Point, c Cell) {
	if !p.In(g.Size) {
		return
	}
	g.Cells[p.Y*g.Size+p.X] = c
}

// String renders the grid one row per line ('.', 'S', 'A').
func (g Grid) String() string {
	buf := make([]byte, 0, g.Size*(g.Size+1))
	for y := 0; y < g.Size; y++ {
		for x := 0; x < g.Size; x++ {
			switch g.Cells[y*g.Size+x] {
			case Body:
				buf = append(buf, 'S')
			case Target:
				buf = append(buf, 'A')
			default:
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
