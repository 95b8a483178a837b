package camera

import (
	"testing"

	"github.com/pthm-cable/serpent/game"
)

func TestNewCentersBoard(t *testing.T) {
	v := New(800, 600, 25)

	if v.CellSize != 24 {
		t.Fatalf("cell size = %v, want 24", v.CellSize)
	}
	// 25*24 = 600 px board, centered horizontally in 800.
	if v.OriginX != 100 || v.OriginY != 0 {
		t.Errorf("origin = (%v, %v), want (100, 0)", v.OriginX, v.OriginY)
	}
	x, y, w, h := v.BoardBounds()
	if x != 100 || y != 0 || w != 600 || h != 600 {
		t.Errorf("bounds = %v %v %v %v", x, y, w, h)
	}
}

func TestCellToScreen(t *testing.T) {
	v := New(750, 750, 25)
	tests := []struct {
		p      game.Point
		sx, sy float32
	}{
		{game.Point{X: 0, Y: 0}, 0, 0},
		{game.Point{X: 1, Y: 0}, 30, 0},
		{game.Point{X: 24, Y: 24}, 720, 720},
	}
	for _, tt := range tests {
		sx, sy := v.CellToScreen(tt.p)
		if sx != tt.sx || sy != tt.sy {
			t.Errorf("CellToScreen(%v) = (%v, %v), want (%v, %v)", tt.p, sx, sy, tt.sx, tt.sy)
		}
	}
}

func TestScreenToCellRoundTrip(t *testing.T) {
	v := New(1280, 720, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			p := game.Point{X: x, Y: y}
			sx, sy := v.CellToScreen(p)
			got, ok := v.ScreenToCell(sx+v.CellSize/2, sy+v.CellSize/2)
			if !ok || got != p {
				t.Fatalf("ScreenToCell(CellToScreen(%v)) = %v, %v", p, got, ok)
			}
		}
	}
}

func TestScreenToCellOffBoard(t *testing.T) {
	v := New(800, 600, 25)
	tests := []struct {
		name   string
		sx, sy float32
	}{
		{"left margin", 50, 300},
		{"right margin", 750, 300},
		{"negative", -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := v.ScreenToCell(tt.sx, tt.sy); ok {
				t.Error("expected off-board")
			}
		})
	}
}

func TestResizeTinyWindow(t *testing.T) {
	v := New(10, 10, 25)
	if v.CellSize != 1 {
		t.Errorf("cell size = %v, want minimum 1", v.CellSize)
	}
	v.Resize(500, 500)
	if v.CellSize != 20 {
		t.Errorf("cell size after resize = %v, want 20", v.CellSize)
	}
}
