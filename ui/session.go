package ui

import (
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/serpent/agent"
	"github.com/pthm-cable/serpent/camera"
	"github.com/pthm-cable/serpent/game"
	"github.com/pthm-cable/serpent/neural"
	"github.com/pthm-cable/serpent/renderer"
)

const sidebarWidth = 220

// Options configures an interactive session.
type Options struct {
	Title        string
	ScreenWidth  int
	ScreenHeight int
	TargetFPS    int
	GridSize     int
	MoveInterval float64 // seconds per move
	Seed         int64

	// Network plays the game when set; otherwise the keyboard does.
	Network *neural.Network
	// Limits ends a watched game that stops making progress.
	Limits          agent.Limits
	DegenerateTurns int
}

// Session owns the window loop state.
type Session struct {
	opts Options
	rng  *rand.Rand

	sim    *game.State
	player *agent.Agent
	clock  *game.MoveClock
	paused bool

	sinceScore int
	best       int
	games      int

	view     *camera.Viewport
	board    *renderer.BoardRenderer
	hud      *HUD
	controls *ControlsPanel
}

// NewSession prepares a session. Call Run to open the window.
func NewSession(opts Options) (*Session, error) {
	if opts.Network != nil {
		if err := agent.Compatible(opts.Network); err != nil {
			return nil, err
		}
	}
	if opts.Title == "" {
		opts.Title = "Serpent"
	}
	s := &Session{
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		clock: game.NewMoveClock(opts.MoveInterval),
	}
	if err := s.restart(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) watching() bool { return s.opts.Network != nil }

func (s *Session) restart() error {
	if s.sim != nil {
		s.games++
	}
	s.sim = game.New(s.opts.GridSize, s.rng)
	s.sinceScore = 0
	s.clock.Reset()
	if s.watching() {
		a, err := agent.New(s.opts.Network, s.sim)
		if err != nil {
			return err
		}
		s.player = a
	}
	return nil
}

// Run opens the window and loops until it is closed.
func (s *Session) Run() error {
	rl.InitWindow(int32(s.opts.ScreenWidth), int32(s.opts.ScreenHeight), s.opts.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(s.opts.TargetFPS))

	boardW := float32(s.opts.ScreenWidth - sidebarWidth)
	s.view = camera.New(boardW, float32(s.opts.ScreenHeight), s.opts.GridSize)
	s.board = renderer.NewBoardRenderer(s.view)
	s.hud = NewHUD(int32(boardW)+10, 10, sidebarWidth-20)
	s.controls = NewControlsPanel(int32(boardW)+10, 0, sidebarWidth-20)

	slog.Info("session started", "watch", s.watching(), "grid", s.opts.GridSize, "seed", s.opts.Seed)

	for !rl.WindowShouldClose() {
		if err := s.handleInput(); err != nil {
			return err
		}
		if err := s.update(float64(rl.GetFrameTime())); err != nil {
			return err
		}
		if err := s.draw(); err != nil {
			return err
		}
	}

	slog.Info("session ended", "games", s.games, "best", s.best)
	return nil
}

func (s *Session) handleInput() error {
	if rl.IsKeyPressed(rl.KeySpace) {
		s.paused = !s.paused
	}
	if rl.IsKeyPressed(rl.KeyR) {
		return s.restart()
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		s.clock.Speed = min(s.clock.Speed*2, MaxSpeed)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		s.clock.Speed = max(s.clock.Speed/2, MinSpeed)
	}

	if s.watching() {
		return nil
	}
	for _, k := range directionKeys {
		if rl.IsKeyPressed(k.key) {
			s.sim.SetPendingDirection(k.dir)
		}
	}
	// Any direction key restarts a finished keyboard game.
	if !s.sim.Alive() && s.anyDirectionPressed() {
		return s.restart()
	}
	return nil
}

func (s *Session) anyDirectionPressed() bool {
	for _, k := range directionKeys {
		if rl.IsKeyPressed(k.key) {
			return true
		}
	}
	return false
}

// update advances the game by the moves the clock says are due.
func (s *Session) update(dt float64) error {
	if s.paused {
		return nil
	}
	moves := s.clock.Advance(dt)
	for i := 0; i < moves; i++ {
		if !s.sim.Alive() {
			break
		}
		before := s.sim.Score()
		if s.watching() {
			s.player.DecideAndStep()
		} else {
			s.sim.Step()
		}
		if s.sim.Score() != before {
			s.sinceScore = 0
		} else {
			s.sinceScore++
		}
		s.best = max(s.best, s.sim.Score())
	}

	if s.watching() && s.finished() {
		slog.Info("game finished",
			"score", s.sim.Score(),
			"turns", s.sim.Turns(),
			"fitness", s.player.Fitness(s.opts.DegenerateTurns),
		)
		return s.restart()
	}
	return nil
}

// finished reports whether a watched game should be replaced.
func (s *Session) finished() bool {
	if !s.sim.Alive() {
		return true
	}
	l := s.opts.Limits
	if l.MaxTurns > 0 && s.sim.Turns() >= l.MaxTurns {
		return true
	}
	return l.StagnationLimit > 0 && s.sinceScore >= l.StagnationLimit
}

func (s *Session) draw() error {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	s.board.Draw(s.sim.Snapshot())

	data := HUDData{
		Title:  s.opts.Title,
		Score:  s.sim.Score(),
		Turns:  s.sim.Turns(),
		Best:   s.best,
		Games:  s.games,
		FPS:    rl.GetFPS(),
		Paused: s.paused,
		Alive:  s.sim.Alive(),
		Watch:  s.watching(),
	}
	if s.watching() {
		data.Fitness = s.player.Fitness(s.opts.DegenerateTurns)
	}
	bottom := s.hud.Draw(data)

	s.controls.SetPosition(s.hud.x, bottom+10)
	res := s.controls.Draw(s.clock.Speed, s.paused)
	s.clock.Speed = res.Speed
	s.paused = res.Paused

	legend := "[Space] pause  [R] restart  [+/-] speed"
	if !s.watching() {
		legend = "[Arrows/WASD] steer  " + legend
	}
	s.hud.DrawControls(int32(s.opts.ScreenHeight), legend)

	if res.Restart {
		return s.restart()
	}
	return nil
}

type directionKey struct {
	key int32
	dir game.Direction
}

var directionKeys = []directionKey{
	{rl.KeyUp, game.Up}, {rl.KeyW, game.Up},
	{rl.KeyDown, game.Down}, {rl.KeyS, game.Down},
	{rl.KeyLeft, game.Left}, {rl.KeyA, game.Left},
	{rl.KeyRight, game.Right}, {rl.KeyD, game.Right},
}
