// Package updater maps frame ticks onto the solver entry sequence:
// BeginStep, Substep for each substep, EndStep, then Interpolate.
package updater

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrInvalidSettings is returned when an updater is built with a
// non-positive step time or substep count.
var ErrInvalidSettings = errors.New("updater: invalid settings")

// Stepper is the entry sequence an updater drives. *solver.Solver
// implements it.
type Stepper interface {
	BeginStep(stepTime float32) error
	Substep(stepTime, substepTime float32, index int) error
	EndStep(substepTime float32) error
	Interpolate(stepTime, accumulatedTime float32) error
	// AbortStep returns a stepper to idle after a failed substep.
	AbortStep()
}

// step runs one full step on every solver. A solver whose step fails is
// logged and left for the next frame; the others still advance.
func step(logger *slog.Logger, solvers []Stepper, stepTime float32, substeps int) int {
	dt := stepTime / float32(substeps)
	failed := 0
	for _, s := range solvers {
		if err := runStep(s, stepTime, dt, substeps); err != nil {
			logger.Debug("step skipped", "error", err, "step_time", stepTime)
			failed++
		}
	}
	return failed
}

func runStep(s Stepper, stepTime, dt float32, substeps int) error {
	if err := s.BeginStep(stepTime); err != nil {
		return err
	}
	for k := 0; k < substeps; k++ {
		if err := s.Substep(stepTime, dt, k); err != nil {
			s.AbortStep()
			return err
		}
	}
	return s.EndStep(dt)
}

func interpolate(logger *slog.Logger, solvers []Stepper, stepTime, accumulated float32) {
	for _, s := range solvers {
		if err := s.Interpolate(stepTime, accumulated); err != nil {
			logger.Debug("interpolate skipped", "error", err)
		}
	}
}

func validTime(t float32) bool {
	return t > 0 && !math.IsInf(float64(t), 0) && !math.IsNaN(float64(t))
}

// Fixed advances its solvers in fixed steps. Frame time accumulates and
// is consumed a step at a time, at most MaxSteps per frame; the leftover
// blends the renderable state between the last two steps.
type Fixed struct {
	stepTime float32
	substeps int
	maxSteps int
	logger   *slog.Logger
	solvers  []Stepper

	accumulated float32
	steps       int64
	skipped     int64
	dropped     float64
}

// NewFixed creates a fixed step updater. maxSteps of zero or less does not
// limit the steps per frame.
func NewFixed(stepTime float32, substeps, maxSteps int, logger *slog.Logger, solvers ...Stepper) (*Fixed, error) {
	if !validTime(stepTime) || substeps < 1 {
		return nil, fmt.Errorf("fixed updater: step time %v, %d substeps: %w", stepTime, substeps, ErrInvalidSettings)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fixed{
		stepTime: stepTime,
		substeps: substeps,
		maxSteps: maxSteps,
		logger:   logger,
		solvers:  solvers,
	}, nil
}

// Add registers another solver.
func (f *Fixed) Add(s Stepper) { f.solvers = append(f.solvers, s) }

// Update consumes frameTime and returns the number of steps taken. A
// non-positive or non-finite frame time takes no steps but still
// interpolates.
func (f *Fixed) Update(frameTime float32) int {
	if validTime(frameTime) {
		f.accumulated += frameTime
	}
	n := 0
	for f.accumulated >= f.stepTime {
		if f.maxSteps > 0 && n >= f.maxSteps {
			// Too far behind; drop the backlog instead of spiralling.
			excess := f.accumulated - f.stepTime
			f.dropped += float64(excess)
			f.accumulated = f.stepTime
			f.logger.Debug("dropped frame time", "seconds", excess, "steps", n)
			break
		}
		f.skipped += int64(step(f.logger, f.solvers, f.stepTime, f.substeps))
		f.accumulated -= f.stepTime
		f.steps++
		n++
	}
	interpolate(f.logger, f.solvers, f.stepTime, f.accumulated)
	return n
}

// Alpha returns the interpolation factor of the leftover frame time.
func (f *Fixed) Alpha() float32 { return f.accumulated / f.stepTime }

// StepTime returns the fixed step length.
func (f *Fixed) StepTime() float32 { return f.stepTime }

// Steps returns the number of steps taken so far.
func (f *Fixed) Steps() int64 { return f.steps }

// Skipped returns how many solver steps failed and were skipped.
func (f *Fixed) Skipped() int64 { return f.skipped }

// Dropped returns the total frame time discarded by the per frame limit.
func (f *Fixed) Dropped() float64 { return f.dropped }

// Late advances its solvers once per frame by a smoothed frame time. It
// suits solvers that must follow a variable render rate; there is nothing
// to interpolate, so the renderable state is the end state.
type Late struct {
	substeps    int
	smoothing   float32
	maxStepTime float32
	logger      *slog.Logger
	solvers     []Stepper

	smoothed float32
	steps    int64
	skipped  int64
}

// NewLate creates a late updater. smoothing in [0, 1) weighs the previous
// step time against the new frame time; maxStepTime caps a single step and
// zero leaves it uncapped.
func NewLate(substeps int, smoothing, maxStepTime float32, logger *slog.Logger, solvers ...Stepper) (*Late, error) {
	if substeps < 1 || smoothing < 0 || smoothing >= 1 || maxStepTime < 0 {
		return nil, fmt.Errorf("late updater: %d substeps, smoothing %v: %w", substeps, smoothing, ErrInvalidSettings)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Late{
		substeps:    substeps,
		smoothing:   smoothing,
		maxStepTime: maxStepTime,
		logger:      logger,
		solvers:     solvers,
	}, nil
}

// Add registers another solver.
func (l *Late) Add(s Stepper) { l.solvers = append(l.solvers, s) }

// Update takes one step of the smoothed frame time. It returns false when
// frameTime is unusable and no step was taken.
func (l *Late) Update(frameTime float32) bool {
	if !validTime(frameTime) {
		return false
	}
	if l.smoothed == 0 {
		l.smoothed = frameTime
	} else {
		l.smoothed = l.smoothing*l.smoothed + (1-l.smoothing)*frameTime
	}
	dt := l.smoothed
	if l.maxStepTime > 0 {
		dt = min(dt, l.maxStepTime)
	}
	l.skipped += int64(step(l.logger, l.solvers, dt, l.substeps))
	l.steps++
	interpolate(l.logger, l.solvers, dt, dt)
	return true
}

// StepTime returns the smoothed step time of the last update.
func (l *Late) StepTime() float32 { return l.smoothed }

// Steps returns the number of steps taken so far.
func (l *Late) Steps() int64 { return l.steps }

// Skipped returns how many solver steps failed and were skipped.
func (l *Late) Skipped() int64 { return l.skipped }
