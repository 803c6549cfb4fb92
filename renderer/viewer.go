// Package renderer draws solver frames and collider snapshots with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/camera"
	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
	"github.com/pthm-cable/flex/solver"
	"github.com/pthm-cable/flex/telemetry"
	"github.com/pthm-cable/flex/ui"
)

const controlsLegend = "[RMB] Orbit  [MMB] Pan  [Wheel] Zoom  [LMB] Pick  [Space] Pause  [N] Step  [R] Reset  [Tab] Panel  [F] Frame  [F3] Perf"

// Options configure the window.
type Options struct {
	Width, Height int32
	Title         string
	TargetFPS     int32
	Mode          flexmath.Mode
}

// View is everything drawn in one frame.
type View struct {
	Frame     *solver.Frame
	Colliders *colliders.Snapshot
	Contacts  []constraints.Contact
	Particles *particles.Set
	Stats     telemetry.StepStats
	Perf      telemetry.PerfStats
	Scene     string
	TimeScale float64
	Paused    bool
	Skipped   int64
	// ActorName names the actor owning a solver index.
	ActorName func(i int32) string
}

// Input is the user intent gathered by HandleInput.
type Input struct {
	TogglePause bool
	Reset       bool
	Step        bool
	// Pick is set when the user clicked into the scene.
	Pick    bool
	PickRay rl.Ray
}

// Viewer owns the window, camera and panels.
type Viewer struct {
	opts       Options
	cam        *camera.Camera
	background *Background
	overlays   *ui.OverlayRegistry
	hud        *ui.HUD
	perf       *ui.PerfPanel
	controls   *ui.ControlsPanel
	inspector  *ui.ParticleInspector

	showPerf bool
	selected int32
	width    int32
	height   int32
}

// NewViewer creates a viewer. Open must be called before drawing.
func NewViewer(opts Options) *Viewer {
	if opts.Width <= 0 {
		opts.Width = 1280
	}
	if opts.Height <= 0 {
		opts.Height = 800
	}
	if opts.TargetFPS <= 0 {
		opts.TargetFPS = 60
	}
	cam := camera.New(mgl32.Vec3{0, 1, 0}, 8)
	if opts.Mode == flexmath.Mode2D {
		cam = camera.New2D(mgl32.Vec3{0, 1, 0}, 8)
	}
	return &Viewer{
		opts:       opts,
		cam:        cam,
		background: NewBackground(rl.Color{R: 38, G: 44, B: 56, A: 255}, rl.Color{R: 12, G: 14, B: 18, A: 255}),
		overlays:   ui.NewOverlayRegistry(),
		hud:        ui.NewHUD(),
		perf:       ui.NewPerfPanel(10, 130),
		controls:   ui.NewControlsPanel(opts.Width-270, 10, 260),
		inspector:  ui.NewParticleInspector(10, opts.Height-200, 240),
		selected:   -1,
		width:      opts.Width,
		height:     opts.Height,
	}
}

// Open creates the window.
func (v *Viewer) Open() {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(v.opts.Width, v.opts.Height, v.opts.Title)
	rl.SetTargetFPS(v.opts.TargetFPS)
}

// Close destroys the window.
func (v *Viewer) Close() { rl.CloseWindow() }

// ShouldClose reports whether the user closed the window.
func (v *Viewer) ShouldClose() bool { return rl.WindowShouldClose() }

// FrameTime returns the wall time of the last frame in seconds.
func (v *Viewer) FrameTime() float64 { return float64(rl.GetFrameTime()) }

// Camera returns the orbit camera.
func (v *Viewer) Camera() *camera.Camera { return v.cam }

// Overlays returns the overlay registry.
func (v *Viewer) Overlays() *ui.OverlayRegistry { return v.overlays }

// Selected returns the picked solver index, or -1.
func (v *Viewer) Selected() int32 { return v.selected }

// Select sets the picked solver index; -1 clears it.
func (v *Viewer) Select(i int32) { v.selected = i }

// HandleInput processes keyboard and mouse input for this frame.
func (v *Viewer) HandleInput(frame *solver.Frame) Input {
	v.handleResize()

	var in Input
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		in.TogglePause = true
	}
	if rl.IsKeyPressed(rl.KeyN) {
		in.Step = true
	}
	if rl.IsKeyPressed(rl.KeyR) {
		in.Reset = true
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF3) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyF) && frame != nil {
		v.frameAll(frame)
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		v.selected = -1
	}
	v.overlays.HandleKeys()

	delta := rl.GetMouseDelta()
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		v.cam.Orbit(-delta.X*0.005, delta.Y*0.005)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		scale := v.cam.Distance * 0.0015
		v.cam.Pan(-delta.X*scale, delta.Y*scale)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.cam.ZoomBy(1 + wheel*0.1)
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !v.overPanel(rl.GetMousePosition()) {
		in.Pick = true
		in.PickRay = rl.GetScreenToWorldRay(rl.GetMousePosition(), camera3D(v.cam))
	}
	return in
}

// PickRay converts a raylib ray into origin and unit direction.
func PickRay(r rl.Ray) (origin, dir mgl32.Vec3) {
	return fromVec3(r.Position), fromVec3(r.Direction).Normalize()
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	v.width = int32(rl.GetScreenWidth())
	v.height = int32(rl.GetScreenHeight())
	v.controls.SetPosition(v.width-270, 10)
	v.inspector.SetPosition(10, v.height-200)
}

func (v *Viewer) overPanel(p rl.Vector2) bool {
	return p.X > float32(v.width-270)
}

// frameAll fits the camera to the frame's particles.
func (v *Viewer) frameAll(frame *solver.Frame) {
	if len(frame.Pos) == 0 {
		return
	}
	b := flexmath.AABBFromPoints(frame.Pos...)
	v.cam.Frame(b.Min, b.Max)
}

// Draw renders one frame and returns the control panel actions.
func (v *Viewer) Draw(view View, settings *ui.Settings) ui.Actions {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	v.background.Draw(v.width, v.height)

	rl.BeginMode3D(camera3D(v.cam))
	if v.overlays.IsEnabled(ui.OverlayGrid) {
		rl.DrawGrid(20, 1)
	}
	if v.overlays.IsEnabled(ui.OverlayColliders) {
		drawColliders(view.Colliders)
	}
	if view.Frame != nil {
		v.drawFrame(view)
	}
	if v.overlays.IsEnabled(ui.OverlayContacts) {
		drawContacts(view.Contacts)
	}
	rl.EndMode3D()

	v.hud.Draw(ui.HUDData{
		Title:     v.opts.Title,
		Scene:     view.Scene,
		Stats:     view.Stats,
		TimeScale: view.TimeScale,
		Paused:    view.Paused,
		FPS:       rl.GetFPS(),
		Skipped:   view.Skipped,
	})
	if v.showPerf {
		v.perf.Draw(view.Perf)
	}
	if v.selected >= 0 && view.Particles != nil && int(v.selected) < view.Particles.Capacity() {
		name := ""
		if view.ActorName != nil {
			name = view.ActorName(v.selected)
		}
		v.inspector.Draw(view.Particles, v.selected, name)
	}
	v.hud.DrawControls(v.height, controlsLegend)

	var actions ui.Actions
	if settings != nil {
		actions = v.controls.Draw(settings, view.Paused, v.overlays)
	}
	rl.EndDrawing()
	return actions
}
