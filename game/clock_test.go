package game

import "testing"

func TestMoveClockAdvance(t *testing.T) {
	tests := []struct {
		name   string
		speed  float64
		frames []float64
		want   int
	}{
		{"below interval", 1, []float64{0.1, 0.05}, 0},
		{"one move", 1, []float64{0.1, 0.125}, 1},
		{"several per frame", 1, []float64{0.65}, 3},
		{"double speed", 2, []float64{0.25}, 2},
		{"paused", 0, []float64{5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMoveClock(0.2)
			c.Speed = tt.speed
			got := 0
			for _, dt := range tt.frames {
				got += c.Advance(dt)
			}
			if got != tt.want {
				t.Errorf("moves = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMoveClockCarriesRemainder(t *testing.T) {
	c := NewMoveClock(0.2)
	moves := 0
	for i := 0; i < 60; i++ {
		moves += c.Advance(1.0 / 60)
	}
	// One second at 0.2 s per move; allow for float rounding of the last step.
	if moves < 4 || moves > 5 {
		t.Errorf("moves in one second = %d, want 5", moves)
	}
}

func TestMoveClockDefaults(t *testing.T) {
	c := NewMoveClock(0)
	if c.Interval != DefaultMoveInterval || c.Speed != 1 {
		t.Errorf("clock = %+v", c)
	}
	c.Advance(0.15)
	c.Reset()
	if c.Advance(0.1) != 0 {
		t.Error("Reset kept accumulated time")
	}
}
