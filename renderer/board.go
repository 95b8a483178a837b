// Package renderer draws the snake board with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/serpent/camera"
	"github.com/pthm-cable/serpent/game"
)

// Palette holds board colors.
type Palette struct {
	Background rl.Color
	Board      rl.Color
	GridLine   rl.Color
	Body       rl.Color
	Head       rl.Color
	DeadHead   rl.Color
	Target     rl.Color
}

// DefaultPalette returns the default board colors.
func DefaultPalette() Palette {
	return Palette{
		Background: rl.Color{R: 12, G: 14, B: 18, A: 255},
		Board:      rl.Color{R: 24, G: 28, B: 34, A: 255},
		GridLine:   rl.Color{R: 34, G: 39, B: 46, A: 255},
		Body:       rl.Color{R: 90, G: 170, B: 90, A: 255},
		Head:       rl.Color{R: 150, G: 230, B: 120, A: 255},
		DeadHead:   rl.Color{R: 210, G: 80, B: 70, A: 255},
		Target:     rl.Color{R: 230, G: 70, B: 90, A: 255},
	}
}

// BoardRenderer draws game snapshots into a viewport.
type BoardRenderer struct {
	view    *camera.Viewport
	palette Palette
	lines   bool
}

// NewBoardRenderer creates a renderer drawing into view.
func NewBoardRenderer(view *camera.Viewport) *BoardRenderer {
	return &BoardRenderer{view: view, palette: DefaultPalette(), lines: true}
}

// SetGridLines toggles the cell grid.
func (b *BoardRenderer) SetGridLines(on bool) { b.lines = on }

// Draw renders one snapshot. The caller owns BeginDrawing/EndDrawing.
func (b *BoardRenderer) Draw(s game.Snapshot) {
	v := b.view
	p := b.palette

	rl.ClearBackground(p.Background)
	x, y, w, h := v.BoardBounds()
	rl.DrawRectangleRec(rl.Rectangle{X: x, Y: y, Width: w, Height: h}, p.Board)

	if b.lines && v.CellSize >= 6 {
		for i := 0; i <= v.GridSize; i++ {
			off := float32(i) * v.CellSize
			rl.DrawLineV(rl.Vector2{X: x + off, Y: y}, rl.Vector2{X: x + off, Y: y + h}, p.GridLine)
			rl.DrawLineV(rl.Vector2{X: x, Y: y + off}, rl.Vector2{X: x + w, Y: y + off}, p.GridLine)
		}
	}

	inset := float32(0)
	if v.CellSize >= 8 {
		inset = 1
	}
	for cy := 0; cy < s.Grid.Size; cy++ {
		for cx := 0; cx < s.Grid.Size; cx++ {
			pt := game.Point{X: cx, Y: cy}
			var c rl.Color
			switch s.Grid.At(pt) {
			case game.Body:
				c = p.Body
			case game.Target:
				c = p.Target
			default:
				continue
			}
			b.fillCell(pt, inset, c)
		}
	}

	head := p.Head
	if !s.Alive {
		head = p.DeadHead
	}
	if s.Head.In(s.Grid.Size) {
		b.fillCell(s.Head, inset, head)
	}
}

func (b *BoardRenderer) fillCell(pt game.Point, inset float32, c rl.Color) {
	sx, sy := b.view.CellToScreen(pt)
	size := b.view.CellSize - 2*inset
	rl.DrawRectangleRec(rl.Rectangle{X: sx + inset, Y: sy + inset, Width: size, Height: size}, c)
}
