package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StepStats describes the solver state after one step.
type StepStats struct {
	Step    int64   `csv:"step"`
	SimTime float64 `csv:"sim_time"`

	Actors           int `csv:"actors"`
	ActiveParticles  int `csv:"active_particles"`
	FluidParticles   int `csv:"fluid_particles"`
	FluidNeighbors   int `csv:"fluid_neighbors"`
	Contacts         int `csv:"contacts"`
	ParticleContacts int `csv:"particle_contacts"`
	Constraints      int `csv:"constraints"`
	Batches          int `csv:"batches"`
	PinBreaks        int `csv:"pin_breaks"`

	KineticEnergy float64 `csv:"kinetic_energy"`
	MaxSpeed      float64 `csv:"max_speed"`
	MeanSpeed     float64 `csv:"mean_speed"`
	P90Speed      float64 `csv:"p90_speed"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// MotionStats fills the kinetic energy and speed fields from per-particle
// speeds and masses. speeds is sorted in place.
func (s *StepStats) MotionStats(speeds, masses []float64) {
	s.KineticEnergy, s.MaxSpeed, s.MeanSpeed, s.P90Speed = 0, 0, 0, 0
	if len(speeds) == 0 {
		return
	}
	for i, v := range speeds {
		if i < len(masses) {
			s.KineticEnergy += 0.5 * masses[i] * v * v
		}
	}
	s.MaxSpeed = floats.Max(speeds)
	s.MeanSpeed = stat.Mean(speeds, nil)
	sort.Float64s(speeds)
	s.P90Speed = Percentile(speeds, 0.9)
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("step", s.Step),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("actors", s.Actors),
		slog.Int("active_particles", s.ActiveParticles),
		slog.Int("fluid_particles", s.FluidParticles),
		slog.Int("fluid_neighbors", s.FluidNeighbors),
		slog.Int("contacts", s.Contacts),
		slog.Int("particle_contacts", s.ParticleContacts),
		slog.Int("constraints", s.Constraints),
		slog.Int("batches", s.Batches),
		slog.Int("pin_breaks", s.PinBreaks),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("max_speed", s.MaxSpeed),
		slog.Float64("mean_speed", s.MeanSpeed),
	)
}

// WindowStats aggregates step stats over a time window.
type WindowStats struct {
	WindowStart int64   `csv:"-"`
	WindowEnd   int64   `csv:"window_end"`
	SimTime     float64 `csv:"sim_time"`
	Steps       int     `csv:"steps"`

	// Counts at window end
	Actors          int `csv:"actors"`
	ActiveParticles int `csv:"active_particles"`
	Constraints     int `csv:"constraints"`
	Batches         int `csv:"batches"`

	MeanContacts         float64 `csv:"mean_contacts"`
	MeanParticleContacts float64 `csv:"mean_particle_contacts"`
	MeanFluidNeighbors   float64 `csv:"mean_fluid_neighbors"`
	PinBreaks            int     `csv:"pin_breaks"`
	MaxPinForce          float64 `csv:"max_pin_force"`

	// Event counts from the Collector
	Emitted      int `csv:"emitted"`
	Expired      int `csv:"expired"`
	Killed       int `csv:"killed"`
	AbortedSteps int `csv:"aborted_steps"`

	MeanKineticEnergy float64 `csv:"kinetic_energy_mean"`
	StdKineticEnergy  float64 `csv:"kinetic_energy_std"`
	MaxSpeed          float64 `csv:"max_speed"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", s.WindowEnd),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("steps", s.Steps),
		slog.Int("actors", s.Actors),
		slog.Int("active_particles", s.ActiveParticles),
		slog.Int("constraints", s.Constraints),
		slog.Float64("mean_contacts", s.MeanContacts),
		slog.Float64("mean_fluid_neighbors", s.MeanFluidNeighbors),
		slog.Int("pin_breaks", s.PinBreaks),
		slog.Int("emitted", s.Emitted),
		slog.Int("expired", s.Expired),
		slog.Int("aborted_steps", s.AbortedSteps),
		slog.Float64("kinetic_energy_mean", s.MeanKineticEnergy),
		slog.Float64("max_speed", s.MaxSpeed),
	)
}
