package scene

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/solver"
	"github.com/pthm-cable/flex/stream"
	"github.com/pthm-cable/flex/telemetry"
	"github.com/pthm-cable/flex/updater"
)

// pausePoll is how often a paused headless run checks for commands.
const pausePoll = 10 * time.Millisecond

// Options configure a Runner.
type Options struct {
	Logger *slog.Logger
	// OutputDir enables CSV telemetry output when set.
	OutputDir string
	// LogStats logs every telemetry window.
	LogStats bool
	// Hub receives frames and supplies remote commands. Optional.
	Hub *stream.Hub
	// FrameInterval publishes every Nth frame to the hub.
	FrameInterval int
}

// Runner steps a scene with a fixed step updater and forwards the results
// to telemetry and the stream hub.
type Runner struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	scene     *Scene
	fixed     *updater.Fixed
	window    *telemetry.Window
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager

	tuning   Tuning
	paused   bool
	stepOnce bool
	frame    solver.Frame
	frames   int64
}

// stepRecorder forwards the entry sequence and records telemetry after
// every completed step.
type stepRecorder struct {
	*solver.Solver
	before func()
	after  func()
}

func (r stepRecorder) BeginStep(stepTime float32) error {
	r.before()
	return r.Solver.BeginStep(stepTime)
}

func (r stepRecorder) EndStep(substepTime float32) error {
	if err := r.Solver.EndStep(substepTime); err != nil {
		return err
	}
	r.after()
	return nil
}

// NewRunner builds the configured scene and its updater.
func NewRunner(cfg *config.Config, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FrameInterval < 1 {
		opts.FrameInterval = max(cfg.Stream.FrameInterval, 1)
	}
	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, err
	}

	r := &Runner{
		cfg:       cfg,
		opts:      opts,
		logger:    opts.Logger,
		window:    telemetry.NewWindow(cfg.Telemetry.StatsWindow),
		bookmarks: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize),
		output:    output,
	}
	if err := r.build(); err != nil {
		output.Close()
		return nil, err
	}
	r.tuning = ReadTuning(r.scene.Solver, 1)
	return r, nil
}

func (r *Runner) build() error {
	sc, err := New(r.cfg, r.logger)
	if err != nil {
		return err
	}
	fixed, err := updater.NewFixed(
		float32(r.cfg.Solver.StepTime),
		r.cfg.Solver.Substeps,
		r.cfg.Solver.MaxStepsPerFrame,
		r.logger,
		stepRecorder{Solver: sc.Solver, before: sc.clearContacts, after: r.recordStep},
	)
	if err != nil {
		sc.Close()
		return err
	}
	r.scene = sc
	r.fixed = fixed
	r.frame = sc.Solver.Frame()
	return nil
}

// Scene returns the running scene.
func (r *Runner) Scene() *Scene { return r.scene }

// Tuning returns the editable solver values. Call ApplyTuning after
// changing them.
func (r *Runner) Tuning() *Tuning { return &r.tuning }

// ApplyTuning pushes the tuning values into the solver.
func (r *Runner) ApplyTuning() error {
	r.tuning.TimeScale = max(r.tuning.TimeScale, 0)
	return r.tuning.Apply(r.scene.Solver)
}

// Paused reports whether stepping is suspended.
func (r *Runner) Paused() bool { return r.paused }

// SetPaused suspends or resumes stepping.
func (r *Runner) SetPaused(p bool) { r.paused = p }

// StepOnce advances exactly one step on the next Update while paused.
func (r *Runner) StepOnce() { r.stepOnce = true }

// Frame returns the frame captured after the last Update.
func (r *Runner) Frame() *solver.Frame { return &r.frame }

// Skipped returns the number of steps a solver refused.
func (r *Runner) Skipped() int64 { return r.fixed.Skipped() }

// Reset rebuilds the scene from configuration, keeping the tuning.
func (r *Runner) Reset() error {
	old := r.scene
	if err := r.build(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	old.Close()
	r.window.Flush()
	r.bookmarks = telemetry.NewBookmarkDetector(r.cfg.Telemetry.BookmarkHistorySize)
	r.logger.Info("scene reset", "scene", r.scene.Name)
	return r.ApplyTuning()
}

// Update advances the simulation by frameTime seconds of wall time scaled by
// the tuning time scale and returns the number of steps taken.
func (r *Runner) Update(frameTime float64) int {
	r.drainCommands()
	r.scene.Perf.RecordFrame()

	switch {
	case r.paused && r.stepOnce:
		r.stepOnce = false
		return r.advance(r.fixed.StepTime())
	case r.paused:
		return 0
	}
	return r.advance(float32(frameTime * float64(r.tuning.TimeScale)))
}

// advance runs the updater and publishes the resulting frame.
func (r *Runner) advance(dt float32) int {
	n := r.fixed.Update(dt)
	r.frame = r.scene.Solver.Frame()
	r.frames++
	if r.opts.Hub != nil && r.frames%int64(r.opts.FrameInterval) == 0 {
		if err := r.opts.Hub.Publish(r.frame); err != nil {
			r.logger.Error("failed to publish frame", "error", err)
		}
	}
	return n
}

// recordStep feeds one completed step into the telemetry window.
func (r *Runner) recordStep() {
	stats := r.scene.Solver.Stats()
	if err := r.output.WriteStep(stats); err != nil {
		r.logger.Error("failed to write step", "error", err)
	}
	if !r.window.Add(stats) {
		return
	}
	ws := r.flushWindow()
	perf := r.scene.Perf.Stats()
	if r.opts.LogStats {
		r.logger.Info("window", "stats", ws)
		r.logger.Info("perf", "stats", perf)
	}
	if err := r.output.WriteWindow(ws); err != nil {
		r.logger.Error("failed to write telemetry", "error", err)
	}
	if err := r.output.WritePerf(perf, ws.WindowEnd); err != nil {
		r.logger.Error("failed to write perf", "error", err)
	}
}

// flushWindow closes the telemetry window, adds the event counts and
// records any bookmarks it triggers.
func (r *Runner) flushWindow() telemetry.WindowStats {
	ws := r.window.Flush()
	r.scene.Events.Flush(&ws)
	for _, b := range r.bookmarks.Check(ws) {
		b.LogBookmark(r.logger)
		if err := r.output.WriteBookmark(b); err != nil {
			r.logger.Error("failed to write bookmark", "error", err)
		}
	}
	return ws
}

// drainCommands applies every queued remote command.
func (r *Runner) drainCommands() {
	if r.opts.Hub == nil {
		return
	}
	for {
		select {
		case cmd := <-r.opts.Hub.Commands():
			r.apply(cmd)
		default:
			return
		}
	}
}

func (r *Runner) apply(cmd stream.Command) {
	if cmd.Paused != nil {
		r.paused = *cmd.Paused
	}
	if cmd.TimeScale != nil && *cmd.TimeScale >= 0 {
		r.tuning.TimeScale = float32(*cmd.TimeScale)
	}
	if len(cmd.Gravity) == 3 {
		g := mgl32.Vec3{float32(cmd.Gravity[0]), float32(cmd.Gravity[1]), float32(cmd.Gravity[2])}
		r.scene.Solver.SetGravity(g)
		r.tuning.GravityY = r.scene.Solver.Gravity()[1]
	}
	if cmd.Reset {
		if err := r.Reset(); err != nil {
			r.logger.Error("remote reset failed", "error", err)
		}
	}
}

// RunHeadless runs one step per iteration, ignoring the time scale, until
// maxSteps steps have run (0 runs until ctx is done). While paused it polls
// for remote commands.
func (r *Runner) RunHeadless(ctx context.Context, maxSteps int64) error {
	for maxSteps <= 0 || r.scene.Solver.StepCount() < maxSteps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.drainCommands()
		if r.paused && !r.stepOnce {
			time.Sleep(pausePoll)
			continue
		}
		r.stepOnce = false
		r.advance(r.fixed.StepTime())
	}
	return nil
}

// Close flushes telemetry and releases the scene.
func (r *Runner) Close() error {
	if r.window.Len() > 0 || r.scene.Events.Pending() > 0 {
		ws := r.flushWindow()
		if err := r.output.WriteWindow(ws); err != nil {
			r.logger.Error("failed to write telemetry", "error", err)
		}
	}
	r.scene.Close()
	return r.output.Close()
}
