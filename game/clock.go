package game

// DefaultMoveInterval is the time between moves, in seconds, when a human
// plays or watches.
const DefaultMoveInterval = 0.2

// MoveClock turns frame times into discrete moves at a fixed interval.
type MoveClock struct {
	Interval float64 // seconds per move
	Speed    float64 // multiplier; values <= 0 pause the clock

	acc float64
}

// NewMoveClock returns a clock at normal speed. A non-positive interval
// uses DefaultMoveInterval.
func NewMoveClock(interval float64) *MoveClock {
	if interval <= 0 {
		interval = DefaultMoveInterval
	}
	return &MoveClock{Interval: interval, Speed: 1}
}

// Advance adds dt seconds and returns how many moves are now due.
func (c *MoveClock) Advance(dt float64) int {
	if c.Speed <= 0 || dt <= 0 {
		return 0
	}
	c.acc += dt * c.Speed
	n := int(c.acc / c.Interval)
	c.acc -= float64(n) * c.Interval
	return n
}

// Reset drops any accumulated time.
func (c *MoveClock) Reset() { c.acc = 0 }
