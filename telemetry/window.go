package telemetry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Window accumulates step stats and flushes them once per window of
// simulated time.
type Window struct {
	duration float64
	start    float64
	first    int64

	steps     []StepStats
	energy    []float64
	contacts  []float64
	pcontacts []float64
	neighbors []float64
}

// NewWindow creates a window of the given simulated duration in seconds.
func NewWindow(durationSec float64) *Window {
	if durationSec <= 0 {
		durationSec = 1
	}
	return &Window{duration: durationSec, first: -1}
}

// Add records a step and reports whether the window is complete.
func (w *Window) Add(s StepStats) bool {
	if w.first < 0 {
		w.first = s.Step
		w.start = s.SimTime
	}
	w.steps = append(w.steps, s)
	w.energy = append(w.energy, s.KineticEnergy)
	w.contacts = append(w.contacts, float64(s.Contacts))
	w.pcontacts = append(w.pcontacts, float64(s.ParticleContacts))
	w.neighbors = append(w.neighbors, float64(s.FluidNeighbors))
	return s.SimTime-w.start >= w.duration
}

// Len returns the number of recorded steps.
func (w *Window) Len() int { return len(w.steps) }

// Flush aggregates the recorded steps and starts a new window.
func (w *Window) Flush() WindowStats {
	if len(w.steps) == 0 {
		return WindowStats{}
	}
	last := w.steps[len(w.steps)-1]
	out := WindowStats{
		WindowStart:     w.first,
		WindowEnd:       last.Step,
		SimTime:         last.SimTime,
		Steps:           len(w.steps),
		Actors:          last.Actors,
		ActiveParticles: last.ActiveParticles,
		Constraints:     last.Constraints,
		Batches:         last.Batches,

		MeanContacts:         stat.Mean(w.contacts, nil),
		MeanParticleContacts: stat.Mean(w.pcontacts, nil),
		MeanFluidNeighbors:   stat.Mean(w.neighbors, nil),
	}
	out.MeanKineticEnergy, out.StdKineticEnergy = stat.PopMeanStdDev(w.energy, nil)
	speeds := make([]float64, len(w.steps))
	for i, s := range w.steps {
		out.PinBreaks += s.PinBreaks
		speeds[i] = s.MaxSpeed
	}
	out.MaxSpeed = floats.Max(speeds)

	w.steps = w.steps[:0]
	w.energy = w.energy[:0]
	w.contacts = w.contacts[:0]
	w.pcontacts = w.pcontacts[:0]
	w.neighbors = w.neighbors[:0]
	w.first = -1
	return out
}
