package solver

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/telemetry"
)

func validTime(t float32) bool {
	f := float64(t)
	return t > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Step runs BeginStep, the configured number of substeps and EndStep.
// Arguments are validated before anything changes.
func (s *Solver) Step(stepTime float32) error {
	if !validTime(stepTime) {
		return fmt.Errorf("step %v: %w", stepTime, ErrInvalidTimestep)
	}
	substeps := s.cfg.Substeps
	if substeps < 1 {
		return fmt.Errorf("step: %d substeps: %w", substeps, ErrInvalidSubsteps)
	}
	if s.state == stateStepping {
		return fmt.Errorf("step: %w", ErrInvalidState)
	}
	if err := s.BeginStep(stepTime); err != nil {
		return err
	}
	dt := stepTime / float32(substeps)
	for k := 0; k < substeps; k++ {
		if err := s.Substep(stepTime, dt, k); err != nil {
			s.AbortStep()
			return err
		}
	}
	return s.EndStep(dt)
}

// AbortStep abandons a step after BeginStep: active particles return to
// their state at the start of the step and the solver goes back to idle.
// It does nothing when no step is running.
func (s *Solver) AbortStep() {
	if s.state != stateStepping {
		return
	}
	set := s.particles
	for _, sv := range s.stepStart {
		i := sv.index
		set.Positions[i] = set.StartPositions[i]
		set.PrevPositions[i] = set.StartPositions[i]
		set.Orientations[i] = set.StartOrientations[i]
		set.PrevOrientations[i] = set.StartOrientations[i]
		set.Velocities[i] = sv.velocity
		set.Deltas[i] = mgl32.Vec4{}
		set.Counts[i] = 0
		set.OrientationDeltas[i] = mgl32.Quat{}
		set.OrientationCounts[i] = 0
	}
	s.perf.EndPhase()
	s.state = stateIdle
	s.logger.Debug("step aborted", "step_time", s.stepTime)
	s.event(telemetry.NewStepAbortedEvent(s.step))
}

// BeginStep prepares a step: pending actor changes are merged, emitters
// spawn, skins and wind are sampled, the collider snapshot is published
// and the broad phase runs once for the whole step.
func (s *Solver) BeginStep(stepTime float32) error {
	if !validTime(stepTime) {
		return fmt.Errorf("begin step %v: %w", stepTime, ErrInvalidTimestep)
	}
	if s.state == stateStepping {
		return fmt.Errorf("begin step: %w", ErrInvalidState)
	}

	s.perf.StartStep()
	s.perf.StartPhase(telemetry.PhaseBeginStep)

	s.state = stateStepping
	s.stepTime = stepTime
	s.rebuild()
	s.emit(stepTime)
	s.refreshActive()

	for t := range constraints.TypeCount {
		s.containers[t].ResetLambdas()
	}
	set := s.particles
	s.stepStart = s.stepStart[:0]
	for _, i := range s.active {
		set.StartPositions[i] = set.Positions[i]
		set.StartOrientations[i] = set.Orientations[i]
		s.stepStart = append(s.stepStart, startVelocity{index: i, velocity: set.Velocities[i]})
	}
	s.updateSkins()
	s.updateClothNormals()
	s.updateWind()

	s.perf.StartPhase(telemetry.PhaseBroadPhase)
	snap := &colliders.Snapshot{}
	if s.colliders != nil {
		snap = s.colliders.UpdateWorld(stepTime)
	}
	s.ctx.Particles = s.particles
	s.ctx.Colliders = snap
	s.ctx.Pool = s.pool
	s.ctx.Mode = s.mode
	s.ctx.StepTime = stepTime
	s.ctx.Gravity = s.gravity
	s.detectContacts(snap)
	s.perf.EndPhase()
	return nil
}

// Substep advances the simulated particles by substepTime: predict, project
// every container in type order, then derive velocities.
func (s *Solver) Substep(stepTime, substepTime float32, index int) error {
	if s.state != stateStepping {
		return fmt.Errorf("substep %d in state %s: %w", index, s.state, ErrInvalidState)
	}
	if !validTime(substepTime) || !validTime(stepTime) {
		return fmt.Errorf("substep %v: %w", substepTime, ErrInvalidTimestep)
	}
	s.refreshActive()
	s.ctx.SubstepTime = substepTime
	s.ctx.Substep = index

	s.perf.StartPhase(telemetry.PhasePredict)
	s.predict(substepTime)
	for k := range s.ctx.Contacts {
		s.ctx.Contacts[k].NormalLambda = 0
	}
	for k := range s.ctx.ParticleContacts {
		s.ctx.ParticleContacts[k].NormalLambda = 0
	}

	for t := range constraints.TypeCount {
		if t == constraints.Density {
			s.perf.StartPhase(telemetry.PhaseFluid)
			s.solveDensity()
			continue
		}
		s.perf.StartPhase(telemetry.PhaseConstraints)
		s.containers[t].Solve(&s.ctx)
	}

	s.perf.StartPhase(telemetry.PhaseVelocity)
	s.updateVelocities(substepTime)
	s.density.ApplyVelocityCorrections(s.particles, s.pool, s.gravity, substepTime)
	s.perf.EndPhase()
	return nil
}

// predict integrates external forces and gravity into velocities and moves
// particles to their predicted positions.
func (s *Solver) predict(dt float32) {
	set := s.particles
	gravity := flexmath.Vec4(s.gravity)
	is2D := s.mode == flexmath.Mode2D
	s.pool.For(len(s.active), func(start, end, _ int) {
		for _, i := range s.active[start:end] {
			set.PrevPositions[i] = set.Positions[i]
			set.PrevOrientations[i] = set.Orientations[i]

			if w := set.InvMasses[i]; w > 0 {
				v := set.Velocities[i].Add(gravity.Add(set.ExternalForces[i].Mul(w)).Mul(dt))
				if is2D {
					v[2] = 0
				}
				set.Velocities[i] = v
				set.Positions[i] = set.Positions[i].Add(v.Mul(dt))
			}
			if wr := set.InvRotationalMasses[i]; wr > 0 {
				av := set.AngularVelocities[i].Add(set.ExternalTorques[i].Mul(wr * dt))
				set.AngularVelocities[i] = av
				set.Orientations[i] = flexmath.IntegrateOrientation(set.Orientations[i], av.Vec3(), dt)
			}
		}
	})
}

// solveDensity runs the fluid density constraint for the configured number
// of iterations.
func (s *Solver) solveDensity() {
	p := s.params[constraints.Density]
	if !p.Enabled || s.density.Len() == 0 {
		return
	}
	s.density.UpdateInteractions(s.particles, s.pool)
	for it := 0; it < max(p.Iterations, 1); it++ {
		s.density.CalculateLambdas(s.particles, s.pool)
		s.density.ApplyPositionCorrections(s.particles, s.pool, p.SORFactor)
	}
}

// updateVelocities derives velocities from the substep displacement and
// applies damping, clamping and sleeping.
func (s *Solver) updateVelocities(dt float32) {
	set := s.particles
	damping := max(1-float32(s.cfg.Damping)*dt, 0)
	maxV := float32(s.cfg.MaxVelocity)
	maxW := float32(s.cfg.MaxAngularVelocity)
	sleep := float32(s.cfg.SleepThreshold)
	is2D := s.mode == flexmath.Mode2D
	inv := 1 / dt
	s.pool.For(len(s.active), func(start, end, _ int) {
		for _, i := range s.active[start:end] {
			if is2D {
				set.Positions[i][2] = 0
			}
			if set.InvMasses[i] > 0 {
				v := set.Positions[i].Sub(set.PrevPositions[i]).Mul(inv)
				v = flexmath.ClampLength(v.Mul(damping), maxV)
				if sleep > 0 && v.LenSqr() < sleep*sleep {
					set.Positions[i] = set.PrevPositions[i]
					v = mgl32.Vec4{}
				}
				set.Velocities[i] = v
			} else {
				set.Velocities[i] = mgl32.Vec4{}
			}
			if set.InvRotationalMasses[i] > 0 {
				w := flexmath.AngularVelocity(set.Orientations[i], set.PrevOrientations[i], dt)
				set.AngularVelocities[i] = flexmath.ClampLength(flexmath.Vec4(w).Mul(damping), maxW)
			}
		}
	})
}

// EndStep finishes a step: final positions are recorded, callbacks fire,
// lifetimes expire and the fluid render data is refreshed.
func (s *Solver) EndStep(substepTime float32) error {
	if s.state != stateStepping {
		return fmt.Errorf("end step in state %s: %w", s.state, ErrInvalidState)
	}
	if !validTime(substepTime) {
		return fmt.Errorf("end step %v: %w", substepTime, ErrInvalidTimestep)
	}
	s.perf.StartPhase(telemetry.PhaseEndStep)
	set := s.particles
	for _, i := range s.active {
		set.EndPositions[i] = set.Positions[i]
		set.EndOrientations[i] = set.Orientations[i]
		set.ExternalForces[i] = mgl32.Vec4{}
		set.ExternalTorques[i] = mgl32.Vec4{}
		if !s.cfg.Interpolation {
			set.RenderablePositions[i] = set.Positions[i]
			set.RenderableOrientations[i] = set.Orientations[i]
		}
	}

	s.breaks = append(s.breaks[:0], s.ctx.TakeBreaks()...)
	if s.onCollision != nil && (len(s.broad.contacts) > 0 || len(s.broad.triggers) > 0) {
		s.onCollision(s.broad.contacts, s.broad.triggers)
	}
	if s.onParticleCollision != nil && len(s.broad.particleContacts) > 0 {
		s.onParticleCollision(s.broad.particleContacts)
	}
	if len(s.breaks) > 0 {
		s.logger.Debug("pins broke", "count", len(s.breaks), "step", s.step)
		for _, b := range s.breaks {
			s.event(telemetry.NewPinBreakEvent(s.step, b.Particle, b.Collider, b.Force))
		}
		if s.onPinBreak != nil {
			s.onPinBreak(s.breaks)
		}
	}

	if s.density.Len() > 0 {
		s.density.UpdateInteractions(s.particles, s.pool)
		s.density.UpdateNormals(s.particles, s.pool)
		s.density.UpdateAnisotropy(s.particles, s.pool, float32(s.cfg.MaxAnisotropy))
	}

	s.expire(s.stepTime)
	s.step++
	s.simTime += float64(s.stepTime)
	s.collectStats()
	s.state = stateStepped
	s.perf.EndStep()
	return nil
}

// Interpolate writes the renderable state. With interpolation enabled it
// blends the last step's start and end states by accumulatedTime/stepTime;
// otherwise it copies the end state.
func (s *Solver) Interpolate(stepTime, accumulatedTime float32) error {
	if s.state == stateStepping {
		return fmt.Errorf("interpolate: %w", ErrInvalidState)
	}
	if !validTime(stepTime) {
		return fmt.Errorf("interpolate %v: %w", stepTime, ErrInvalidTimestep)
	}
	s.refreshActive()
	set := s.particles
	alpha := flexmath.Clamp(accumulatedTime/stepTime, 0, 1)
	interp := s.cfg.Interpolation
	s.pool.For(len(s.active), func(start, end, _ int) {
		for _, i := range s.active[start:end] {
			if !interp {
				set.RenderablePositions[i] = set.Positions[i]
				set.RenderableOrientations[i] = set.Orientations[i]
				continue
			}
			set.RenderablePositions[i] = flexmath.Lerp4(set.StartPositions[i], set.EndPositions[i], alpha)
			set.RenderableOrientations[i] = nlerp(set.StartOrientations[i], set.EndOrientations[i], alpha)
		}
	})
	s.state = stateIdle
	return nil
}

// nlerp blends two orientations along the shorter arc.
func nlerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatNlerp(a, b, t)
}
