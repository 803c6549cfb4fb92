package solver

import (
	"github.com/pthm-cable/flex/constraints"
)

// collectStats fills the step statistics after EndStep.
func (s *Solver) collectStats() {
	set := s.particles
	st := &s.stats
	st.Step = s.step
	st.SimTime = s.simTime
	st.Actors = len(s.actors)
	st.ActiveParticles = len(s.active)
	st.FluidParticles = s.density.Len()
	st.FluidNeighbors = s.density.NeighborCount()
	st.Contacts = len(s.broad.contacts)
	st.ParticleContacts = len(s.broad.particleContacts)
	st.PinBreaks = len(s.breaks)

	st.Constraints, st.Batches = 0, 0
	for t := range constraints.TypeCount {
		st.Constraints += s.containers[t].Len()
		st.Batches += len(s.containers[t].Batches())
	}

	s.speeds = s.speeds[:0]
	s.masses = s.masses[:0]
	for _, i := range s.active {
		w := set.InvMasses[i]
		if w <= 0 {
			continue
		}
		s.speeds = append(s.speeds, float64(set.Velocities[i].Vec3().Len()))
		s.masses = append(s.masses, float64(1/w))
	}
	st.MotionStats(s.speeds, s.masses)
}
