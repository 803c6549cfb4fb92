package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flex/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Scene     string
	Stats     telemetry.StepStats
	TimeScale float64
	Paused    bool
	FPS       int32
	Skipped   int64
}

// HUD renders the main heads-up display.
type HUD struct {
	paint *Painter
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{paint: NewPainter()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)
	s := data.Stats
	rl.DrawText(
		fmt.Sprintf("Scene: %s | Actors: %d | Particles: %d | Fluid: %d", data.Scene, s.Actors, s.ActiveParticles, s.FluidParticles),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Step: %d | t=%.2fs | Speed: %.2fx | FPS: %d", s.Step, s.SimTime, data.TimeScale, data.FPS),
		10, 55, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Constraints: %d in %d batches | Contacts: %d + %d", s.Constraints, s.Batches, s.Contacts, s.ParticleContacts),
		10, 75, 16, rl.LightGray,
	)

	status := "Running"
	if data.Paused {
		status = "PAUSED"
	}
	if data.Skipped > 0 {
		status += fmt.Sprintf(" (%d steps skipped)", data.Skipped)
	}
	rl.DrawText(status, 10, 95, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the solver phase timings.
type PerfPanel struct {
	paint *Painter
	x, y  int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{paint: NewPainter(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y

	rl.DrawText("Solver Performance", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Step: %s (%.0f/s)", stats.AvgStepDuration.Round(time.Microsecond), stats.StepsPerSecond), x, y, 14, rl.Yellow)
	y += 16

	for ph := telemetry.Phase(0); ph < telemetry.PhaseCount; ph++ {
		pct := stats.PhasePct[ph]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", ph, stats.PhaseAvg[ph].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
