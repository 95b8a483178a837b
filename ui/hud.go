package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Title   string
	Score   int
	Turns   int
	Best    int
	Games   int
	FPS     int32
	Paused  bool
	Alive   bool
	Fitness float64 // shown when a network is playing
	Watch   bool
}

// HUD renders the heads-up display panel.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHUD creates a HUD panel at the given position.
func NewHUD(x, y, width int32) *HUD {
	return &HUD{renderer: NewRenderer(), x: x, y: y, width: width}
}

// Height returns the panel height for the given data.
func (h *HUD) Height(data HUDData) int32 {
	lines := int32(6)
	if data.Watch {
		lines++
	}
	t := h.renderer.Theme
	return lines*t.LineHeight + t.Padding*2 + t.LineHeight
}

// Draw renders the panel and returns the Y position below it.
func (h *HUD) Draw(data HUDData) int32 {
	r := h.renderer
	pad := r.Theme.Padding
	height := h.Height(data)
	r.DrawPanel(h.x, h.y, h.width, height)

	x := h.x + pad
	y := r.DrawSectionHeader(x, h.y+pad, data.Title)
	y = r.DrawLabelValue(x, y, "Score", data.Score)
	y = r.DrawLabelValue(x, y, "Turns", data.Turns)
	y = r.DrawLabelValue(x, y, "Best", data.Best)
	y = r.DrawLabelValue(x, y, "Games", data.Games)
	if data.Watch {
		y = r.DrawLabelValue(x, y, "Fitness", fmt.Sprintf("%.1f", data.Fitness))
	}
	y = r.DrawLabelValue(x, y, "FPS", data.FPS)

	status, color := "Running", rl.Green
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case !data.Alive:
		status, color = "Game over", rl.Red
	}
	rl.DrawText(status, x, y, r.Theme.FontSize, color)

	return h.y + height
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-22, 14, rl.Gray)
}
