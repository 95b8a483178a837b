package systems

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/serpent/game"
)

func TestEncodeLength(t *testing.T) {
	s := game.New(25, rand.New(rand.NewSource(42)))
	in := EncodeState(s)
	if len(in) != NumInputs || NumInputs != 24 {
		t.Fatalf("len = %d, want 24", len(in))
	}
}

func TestEncodeWallDistances(t *testing.T) {
	g := game.NewGrid(10)
	head := game.Point{X: 2, Y: 6}
	in := Encode(g, head)

	// Steps to the first off-grid cell along each ray.
	want := [NumRays]int{
		4, // S: y 7,8,9,10
		4, // SE: limited by y
		8, // E: x 3..10
		7, // NE: limited by y 5..-1
		7, // N
		3, // NW: limited by x 1,0,-1
		3, // W
		3, // SW: limited by x
	}
	for i, steps := range want {
		got := in[i*ValuesPerRay+2]
		if got != 1/float64(steps) {
			t.Errorf("ray %d wall = %v, want 1/%d", i, got, steps)
		}
	}
}

func TestEncodeAdjacentWall(t *testing.T) {
	g := game.NewGrid(10)
	in := Encode(g, game.Point{X: 9, Y: 0})
	east := 2 * ValuesPerRay
	north := 4 * ValuesPerRay
	if in[east+2] != 1 || in[north+2] != 1 {
		t.Errorf("adjacent walls: east=%v north=%v, want 1", in[east+2], in[north+2])
	}
}

func TestEncodeFlags(t *testing.T) {
	g := game.NewGrid(10)
	head := game.Point{X: 5, Y: 5}
	g.Set(head, game.Body)
	g.Set(game.Point{X: 8, Y: 5}, game.Target)  // east
	g.Set(game.Point{X: 5, Y: 8}, game.Body)    // south, far
	g.Set(game.Point{X: 5, Y: 6}, game.Body)    // south, near
	g.Set(game.Point{X: 2, Y: 2}, game.Target)  // north-west
	g.Set(game.Point{X: 5, Y: 0}, game.Body)    // north

	in := Encode(g, head)
	tests := []struct {
		name   string
		ray    int
		body   float64
		target float64
	}{
		{"south", 0, 1, 0},
		{"south-east", 1, 0, 0},
		{"east", 2, 0, 1},
		{"north-east", 3, 0, 0},
		{"north", 4, 1, 0},
		{"north-west", 5, 0, 1},
		{"west", 6, 0, 0},
		{"south-west", 7, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := tt.ray * ValuesPerRay
			if in[base] != tt.body {
				t.Errorf("body flag = %v, want %v", in[base], tt.body)
			}
			if in[base+1] != tt.target {
				t.Errorf("target flag = %v, want %v", in[base+1], tt.target)
			}
		})
	}
}

func TestEncodeIgnoresHeadCell(t *testing.T) {
	g := game.NewGrid(6)
	head := game.Point{X: 3, Y: 3}
	g.Set(head, game.Body)
	in := Encode(g, head)
	for i := 0; i < NumRays; i++ {
		if in[i*ValuesPerRay] != 0 {
			t.Errorf("ray %d saw the head as body", i)
		}
	}
}

func TestEncodeIntoReusesBuffer(t *testing.T) {
	g := game.NewGrid(10)
	buf := make([]float64, NumInputs+4)
	out := EncodeInto(buf, g, game.Point{X: 1, Y: 1})
	if len(out) != NumInputs {
		t.Fatalf("len = %d, want %d", len(out), NumInputs)
	}
	if &out[0] != &buf[0] {
		t.Error("EncodeInto did not write into dst")
	}
}

func BenchmarkEncode(b *testing.B) {
	s := game.New(25, rand.New(rand.NewSource(42)))
	g := s.Occupancy()
	buf := make([]float64, NumInputs)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeInto(buf, g, s.Head())
	}
}
