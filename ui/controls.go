package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Speed limits for the slider.
const (
	MinSpeed = 0.25
	MaxSpeed = 8
)

// ControlsPanel holds the speed slider and the pause and restart buttons.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// ControlsResult reports what the user changed this frame.
type ControlsResult struct {
	Speed   float64
	Paused  bool
	Restart bool
}

// NewControlsPanel creates a controls panel at the given position.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition moves the panel.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Draw renders the panel and returns the updated control state.
func (c *ControlsPanel) Draw(speed float64, paused bool) ControlsResult {
	r := c.renderer
	pad := r.Theme.Padding
	r.DrawPanel(c.x, c.y, c.width, 110)

	x := float32(c.x + pad)
	y := float32(c.y + pad)
	inner := float32(c.width - pad*2)

	rl.DrawText(fmt.Sprintf("Speed %.2fx", speed), int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += float32(r.Theme.LineHeight)
	newSpeed := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: inner, Height: 16},
		"", "",
		float32(speed), MinSpeed, MaxSpeed,
	)
	y += 28

	res := ControlsResult{Speed: float64(newSpeed), Paused: paused}
	half := (inner - 8) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 26}, toggleText(paused, "Resume", "Pause")) {
		res.Paused = !paused
	}
	if gui.Button(rl.Rectangle{X: x + half + 8, Y: y, Width: half, Height: 26}, "Restart") {
		res.Restart = true
	}
	return res
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
