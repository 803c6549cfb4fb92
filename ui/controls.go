package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flex/scene"
)

// Settings are the solver values the controls panel edits.
type Settings = scene.Tuning

// Actions reports what the user did on the panel this frame.
type Actions struct {
	Changed     bool // Settings were edited
	TogglePause bool
	Reset       bool
	Step        bool // single step while paused
}

// ControlsPanel renders the right-side solver controls and the overlay
// toggles.
type ControlsPanel struct {
	paint   *Painter
	x, y    int32
	width   int32
	visible bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		paint:   NewPainter(),
		x:       x,
		y:       y,
		width:   width,
		visible: true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel, applies slider edits to s and returns the
// actions taken.
func (c *ControlsPanel) Draw(s *Settings, paused bool, overlays *OverlayRegistry) Actions {
	var act Actions
	if !c.visible {
		return act
	}
	r := c.paint
	padding := r.Style.Padding
	lh := r.Style.LineHeight
	categories := overlays.Categories()
	overlayLines := int32(len(categories))
	for _, cat := range categories {
		overlayLines += int32(len(overlays.ByCategory(cat)))
	}
	height := 8*(lh+22) + 40 + (overlayLines+1)*lh + padding*4
	r.Panel(c.x, c.y, c.width, height)

	x := float32(c.x + padding)
	y := c.y + padding
	w := float32(c.width - padding*2 - 50)

	rl.DrawText("Solver", c.x+padding, y, 16, rl.White)
	y += lh + 4

	slider := func(label string, value, lo, hi float32, format string) float32 {
		rl.DrawText(label, int32(x), y, r.Style.FontSize, r.Style.Label)
		y += lh
		nv := gui.SliderBar(rl.Rectangle{X: x, Y: float32(y), Width: w, Height: 16}, "", "", value, lo, hi)
		rl.DrawText(fmt.Sprintf(format, nv), int32(x+w+6), y+2, r.Style.FontSize, r.Style.Value)
		y += 22
		if nv != value {
			act.Changed = true
		}
		return nv
	}

	s.GravityY = slider("Gravity Y", s.GravityY, -20, 5, "%.1f")
	s.Damping = slider("Damping", s.Damping, 0, 5, "%.2f")
	s.WindX = slider("Wind X", s.WindX, -10, 10, "%.1f")
	s.WindZ = slider("Wind Z", s.WindZ, -10, 10, "%.1f")
	s.Turbulence = slider("Turbulence", s.Turbulence, 0, 5, "%.2f")
	s.DistanceIterations = int(slider("Distance iterations", float32(s.DistanceIterations), 1, 16, "%.0f"))
	s.DensityIterations = int(slider("Density iterations", float32(s.DensityIterations), 1, 8, "%.0f"))
	s.TimeScale = slider("Time scale", s.TimeScale, 0.1, 2, "%.2f")

	label := "Pause"
	if paused {
		label = "Resume"
	}
	bw := (float32(c.width) - float32(padding)*4) / 3
	if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: bw, Height: 26}, label) {
		act.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: x + bw + float32(padding), Y: float32(y), Width: bw, Height: 26}, "Step") {
		act.Step = true
	}
	if gui.Button(rl.Rectangle{X: x + 2*(bw+float32(padding)), Y: float32(y), Width: bw, Height: 26}, "Reset") {
		act.Reset = true
	}
	y += 40

	rl.DrawText("Overlays", c.x+padding, y, 14, rl.White)
	y += lh
	for _, cat := range categories {
		rl.DrawText(cat, c.x+padding, y, r.Style.HeaderSize, r.Style.Header)
		y += lh
		for _, desc := range overlays.ByCategory(cat) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lh
		}
	}
	return act
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.paint

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Style.Label
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Style.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Style.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Style.FontSize, r.Style.Muted)
	}
}
