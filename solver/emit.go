package solver

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/telemetry"
)

func (s *Solver) event(e telemetry.Event) {
	if s.onEvent != nil {
		s.onEvent(e)
	}
}

// EmitParticle activates the next pooled particle of an actor at position
// with velocity. A lifetime of zero lives until killed. It returns false
// when the actor is unknown or its pool is exhausted.
func (s *Solver) EmitParticle(id ActorID, position, velocity mgl32.Vec3, lifetime float32) (ParticleHandle, bool) {
	st, err := s.actor(id)
	if err != nil || st.active >= len(st.order) {
		return ParticleHandle{}, false
	}
	local := st.order[st.active]
	slot := st.indices[local]
	st.active++

	pos, vel := flexmath.Vec4(position), flexmath.Vec4(velocity)
	if s.mode == flexmath.Mode2D {
		pos[2], vel[2] = 0, 0
	}
	set := s.particles
	set.Teleport(slot, pos)
	set.Velocities[slot] = vel
	set.Orientations[slot] = st.blueprint.Particles[local].Orientation
	set.StartOrientations[slot] = set.Orientations[slot]
	set.EndOrientations[slot] = set.Orientations[slot]
	set.RenderableOrientations[slot] = set.Orientations[slot]
	set.AngularVelocities[slot] = mgl32.Vec4{}
	set.InvMasses[slot] = st.blueprint.Particles[local].InvMass
	set.Life[slot] = max(lifetime, 0)

	s.generations[slot]++
	s.activeDirty = true
	s.event(telemetry.NewEmitEvent(s.step, slot, set.Life[slot]))
	return ParticleHandle{Index: slot, Generation: s.generations[slot]}, true
}

// KillParticle returns a simulated particle to its actor's pool. Particles
// referenced by constraints cannot be killed, and nothing can be killed
// while a step is running.
func (s *Solver) KillParticle(h ParticleHandle) error {
	if s.state == stateStepping {
		return fmt.Errorf("kill particle %d: %w", h.Index, ErrInvalidState)
	}
	if !s.Valid(h) {
		return fmt.Errorf("kill particle %d: %w", h.Index, ErrStaleHandle)
	}
	entity := s.slotActor[h.Index]
	st := s.actorMap.Get(entity)
	local := s.slotLocal[h.Index]
	if s.constrained(st, ActorID{entity: entity}, local) {
		return fmt.Errorf("kill particle %d: %w", h.Index, ErrParticleConstrained)
	}
	s.deactivate(st, local)
	s.event(telemetry.NewKillEvent(s.step, h.Index))
	return nil
}

// constrained reports whether local particle of an actor may be referenced
// by a constraint or stitch.
func (s *Solver) constrained(st *actorState, id ActorID, local int32) bool {
	if int(local) < st.blueprint.Active() && len(st.blueprint.Constraints) > 0 {
		return true
	}
	for _, sc := range s.stitches {
		if (sc.a == id.entity && sc.ia == local) || (sc.b == id.entity && sc.ib == local) {
			return true
		}
	}
	return false
}

// deactivate swaps a local particle behind the actor's active range.
func (s *Solver) deactivate(st *actorState, local int32) {
	pos := st.position[local]
	last := int32(st.active - 1)
	other := st.order[last]
	st.order[pos], st.order[last] = other, local
	st.position[other], st.position[local] = pos, last
	st.active--

	slot := st.indices[local]
	set := s.particles
	set.Velocities[slot] = mgl32.Vec4{}
	set.AngularVelocities[slot] = mgl32.Vec4{}
	set.Life[slot] = 0
	s.generations[slot]++
	s.activeDirty = true
}

// emit spawns particles from every emitter actor for this step.
func (s *Solver) emit(stepTime float32) {
	for _, e := range s.actors {
		st := s.actorMap.Get(e)
		settings := st.blueprint.Emitter
		if settings == nil || settings.Rate <= 0 {
			continue
		}
		st.emitAccum += settings.Rate * stepTime
		count := int(st.emitAccum)
		st.emitAccum -= float32(count)
		if count == 0 {
			continue
		}
		t := st.transform.Transform()
		id := ActorID{entity: e}
		for range count {
			pos, vel := settings.Sample(s.rng, t)
			if _, ok := s.EmitParticle(id, pos, vel, settings.Lifetime); !ok {
				st.emitAccum = 0
				break
			}
		}
	}
}

// expire ages particles with a lifetime and kills the ones that ran out.
func (s *Solver) expire(stepTime float32) {
	set := s.particles
	var dead []int32
	for _, i := range s.active {
		if set.Life[i] <= 0 {
			continue
		}
		set.Life[i] -= stepTime
		if set.Life[i] <= 0 {
			dead = append(dead, i)
		}
	}
	for _, i := range dead {
		st := s.actorMap.Get(s.slotActor[i])
		s.deactivate(st, s.slotLocal[i])
		s.event(telemetry.NewExpireEvent(s.step, i))
	}
	if len(dead) > 0 {
		s.refreshActive()
	}
}
