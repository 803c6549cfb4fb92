package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies a timed part of a solver step.
type Phase uint8

// Phases of a solver step.
const (
	PhaseBeginStep Phase = iota
	PhaseBroadPhase
	PhasePredict
	PhaseConstraints
	PhaseFluid
	PhaseVelocity
	PhaseEndStep

	PhaseCount
)

var phaseNames = [PhaseCount]string{
	"begin_step", "broad_phase", "predict", "constraints", "fluid", "velocity", "end_step",
}

func (p Phase) String() string {
	if p < PhaseCount {
		return phaseNames[p]
	}
	return "unknown"
}

// PerfSample holds timing data for a single step.
type PerfSample struct {
	StepDuration time.Duration
	Phases       [PhaseCount]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
// All methods are no-ops on a nil collector.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    PerfSample
	stepStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration

	clock func() time.Time
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of steps to average over (e.g., 60 for 1 second at 60Hz).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		clock:      time.Now,
	}
}

// SetClock replaces the time source.
func (p *PerfCollector) SetClock(clock func() time.Time) {
	if p == nil || clock == nil {
		return
	}
	p.clock = clock
}

// StartStep begins timing a new solver step.
func (p *PerfCollector) StartStep() {
	if p == nil {
		return
	}
	p.stepStart = p.clock()
	p.current = PerfSample{}
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase Phase) {
	if p == nil {
		return
	}
	now := p.clock()
	if p.inPhase {
		p.current.Phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.phase = phase
	p.inPhase = true
}

// EndPhase stops timing the running phase.
func (p *PerfCollector) EndPhase() {
	if p == nil || !p.inPhase {
		return
	}
	p.current.Phases[p.phase] += p.clock().Sub(p.phaseStart)
	p.inPhase = false
}

// EndStep finishes timing the current step and records the sample.
func (p *PerfCollector) EndStep() {
	if p == nil {
		return
	}
	p.EndPhase()
	p.current.StepDuration = p.clock().Sub(p.stepStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	if p == nil {
		return
	}
	now := p.clock()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Phase breakdown (average durations and share of the step)
	PhaseAvg [PhaseCount]time.Duration
	PhasePct [PhaseCount]float64

	StepsPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p == nil {
		return PerfStats{}
	}
	var out PerfStats
	out.FrameDuration = p.frameDuration
	if p.frameDuration > 0 {
		out.FPS = float64(time.Second) / float64(p.frameDuration)
	}
	if p.sampleCount == 0 {
		return out
	}

	var total time.Duration
	var phaseSum [PhaseCount]time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.StepDuration
		if i == 0 || s.StepDuration < out.MinStepDuration {
			out.MinStepDuration = s.StepDuration
		}
		out.MaxStepDuration = max(out.MaxStepDuration, s.StepDuration)
		for ph, d := range s.Phases {
			phaseSum[ph] += d
		}
	}

	n := time.Duration(p.sampleCount)
	out.AvgStepDuration = total / n
	for ph := range phaseSum {
		out.PhaseAvg[ph] = phaseSum[ph] / n
		if out.AvgStepDuration > 0 {
			out.PhasePct[ph] = float64(out.PhaseAvg[ph]) / float64(out.AvgStepDuration) * 100
		}
	}
	if out.AvgStepDuration > 0 {
		out.StepsPerSecond = float64(time.Second) / float64(out.AvgStepDuration)
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinStepDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxStepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for ph, pct := range s.PhasePct {
		if pct > 0.1 {
			attrs = append(attrs, slog.Float64(Phase(ph).String()+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Step           int64   `csv:"step"`
	AvgStepUS      int64   `csv:"avg_step_us"`
	MinStepUS      int64   `csv:"min_step_us"`
	MaxStepUS      int64   `csv:"max_step_us"`
	StepsPerSec    float64 `csv:"steps_per_sec"`
	FPS            float64 `csv:"fps"`
	BeginStepPct   float64 `csv:"begin_step_pct"`
	BroadPhasePct  float64 `csv:"broad_phase_pct"`
	PredictPct     float64 `csv:"predict_pct"`
	ConstraintsPct float64 `csv:"constraints_pct"`
	FluidPct       float64 `csv:"fluid_pct"`
	VelocityPct    float64 `csv:"velocity_pct"`
	EndStepPct     float64 `csv:"end_step_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(step int64) PerfStatsCSV {
	return PerfStatsCSV{
		Step:           step,
		AvgStepUS:      s.AvgStepDuration.Microseconds(),
		MinStepUS:      s.MinStepDuration.Microseconds(),
		MaxStepUS:      s.MaxStepDuration.Microseconds(),
		StepsPerSec:    s.StepsPerSecond,
		FPS:            s.FPS,
		BeginStepPct:   s.PhasePct[PhaseBeginStep],
		BroadPhasePct:  s.PhasePct[PhaseBroadPhase],
		PredictPct:     s.PhasePct[PhasePredict],
		ConstraintsPct: s.PhasePct[PhaseConstraints],
		FluidPct:       s.PhasePct[PhaseFluid],
		VelocityPct:    s.PhasePct[PhaseVelocity],
		EndStepPct:     s.PhasePct[PhaseEndStep],
	}
}
