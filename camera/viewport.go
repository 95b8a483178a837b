// Package camera maps board cells to screen pixels.
package camera

import "github.com/pthm-cable/serpent/game"

// Viewport fits a square board into a screen region, centered, with whole
// pixel cells.
type Viewport struct {
	// Screen region available to the board
	ViewportW, ViewportH float32

	// Board side length in cells
	GridSize int

	// Derived layout
	CellSize         float32
	OriginX, OriginY float32
}

// New creates a viewport for a gridSize×gridSize board.
func New(viewportW, viewportH float32, gridSize int) *Viewport {
	v := &Viewport{GridSize: gridSize}
	v.Resize(viewportW, viewportH)
	return v
}

// Resize recomputes the layout for a new screen region.
func (v *Viewport) Resize(viewportW, viewportH float32) {
	v.ViewportW = viewportW
	v.ViewportH = viewportH
	if v.GridSize <= 0 {
		v.CellSize = 0
		return
	}

	side := min(viewportW, viewportH)
	v.CellSize = float32(int(side / float32(v.GridSize)))
	if v.CellSize < 1 {
		v.CellSize = 1
	}
	boardPx := v.CellSize * float32(v.GridSize)
	v.OriginX = float32(int((viewportW - boardPx) / 2))
	v.OriginY = float32(int((viewportH - boardPx) / 2))
}

// CellToScreen returns the top-left pixel of cell p.
func (v *Viewport) CellToScreen(p game.Point) (sx, sy float32) {
	return v.OriginX + float32(p.X)*v.CellSize, v.OriginY + float32(p.Y)*v.CellSize
}

// ScreenToCell returns the cell under a screen position and whether it lies
// on the board.
func (v *Viewport) ScreenToCell(sx, sy float32) (game.Point, bool) {
	if v.CellSize <= 0 {
		return game.Point{}, false
	}
	dx := sx - v.OriginX
	dy := sy - v.OriginY
	if dx < 0 || dy < 0 {
		return game.Point{}, false
	}
	p := game.Point{X: int(dx / v.CellSize), Y: int(dy / v.CellSize)}
	return p, p.In(v.GridSize)
}

// BoardBounds returns the board rectangle in screen pixels.
func (v *Viewport) BoardBounds() (x, y, w, h float32) {
	side := v.CellSize * float32(v.GridSize)
	return v.OriginX, v.OriginY, side, side
}
