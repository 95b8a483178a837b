// Package systems turns simulation state into network inputs.
package systems

import "github.com/pthm-cable/serpent/game"

// NumRays is the number of scan directions (the eight compass points).
const NumRays = 8

// ValuesPerRay is body flag, target flag and wall proximity.
const ValuesPerRay = 3

// NumInputs is the length of an encoded sensory vector.
const NumInputs = NumRays * ValuesPerRay

// Rays lists the scan directions in encoding order, starting south and
// turning counter-clockwise on screen (y grows downwards).
var Rays = [NumRays]game.Direction{
	{X: 0, Y: 1},
	{X: 1, Y: 1},
	{X: 1, Y: 0},
	{X: 1, Y: -1},
	{X: 0, Y: -1},
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
}

// RayScan is what a single ray saw.
type RayScan struct {
	Body   bool
	Target bool
	Steps  int // moves until the first cell outside the grid
}

// Scan walks from head along d until it leaves the grid.
// The head cell itself is not inspected.
func Scan(g game.Grid, head game.Point, d game.Direction) RayScan {
	var r RayScan
	p := head
	for {
		p = p.Add(d)
		r.Steps++
		if !p.In(g.Size) {
			return r
		}
		switch g.At(p) {
		case game.Body:
			r.Body = true
		case game.Target:
			r.Target = true
		}
	}
}

// Encode returns the ray-major sensory vector for head on g:
// [body, target, 1/steps] for each of Rays.
func Encode(g game.Grid, head game.Point) []float64 {
	return EncodeInto(make([]float64, NumInputs), g, head)
}

// EncodeInto fills dst (len >= NumInputs) and returns dst[:NumInputs].
func EncodeInto(dst []float64, g game.Grid, head game.Point) []float64 {
	dst = dst[:NumInputs]
	for i, d := range Rays {
		r := Scan(g, head, d)
		dst[i*ValuesPerRay] = flag(r.Body)
		dst[i*ValuesPerRay+1] = flag(r.Target)
		dst[i*ValuesPerRay+2] = 1 / float64(r.Steps)
	}
	return dst
}

// EncodeState is Encode on the current occupancy of s.
func EncodeState(s *game.State) []float64 {
	return Encode(s.Occupancy(), s.Head())
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
