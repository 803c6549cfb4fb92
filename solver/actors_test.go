package solver

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/actor"
	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/telemetry"
)

func pool(t *testing.T, s *Solver, capacity int) ActorID {
	t.Helper()
	bp, err := actor.Emitter(actor.EmitterSettings{Capacity: capacity, Radius: 0.05, Mass: 1})
	require.NoError(t, err)
	id, err := s.AddActor(bp)
	require.NoError(t, err)
	return id
}

func TestEmitAndKill(t *testing.T) {
	s := newTestSolver(t, nil)
	id := pool(t, s, 3)
	n, err := s.ActiveCount(id)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.ActiveParticles())

	var handles []ParticleHandle
	for k := range 3 {
		h, ok := s.EmitParticle(id, mgl32.Vec3{float32(k), 0, 0}, mgl32.Vec3{}, 0)
		require.True(t, ok)
		assert.True(t, s.Valid(h))
		handles = append(handles, h)
	}
	_, ok := s.EmitParticle(id, mgl32.Vec3{}, mgl32.Vec3{}, 0)
	assert.False(t, ok, "pool exhausted")
	assert.Len(t, s.ActiveParticles(), 3)

	require.NoError(t, s.KillParticle(handles[1]))
	assert.False(t, s.Valid(handles[1]))
	assert.ErrorIs(t, s.KillParticle(handles[1]), ErrStaleHandle)
	assert.Len(t, s.ActiveParticles(), 2)

	h, ok := s.EmitParticle(id, mgl32.Vec3{5, 0, 0}, mgl32.Vec3{}, 0)
	require.True(t, ok)
	assert.Equal(t, handles[1].Index, h.Index)
	assert.NotEqual(t, handles[1].Generation, h.Generation)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, position(s, h.Index))

	_, ok = s.EmitParticle(ActorID{}, mgl32.Vec3{}, mgl32.Vec3{}, 0)
	assert.False(t, ok, "unknown actor")
}

func TestKillConstrainedParticle(t *testing.T) {
	s := newTestSolver(t, nil)
	id, err := s.AddActor(chain(3, mgl32.Vec3{1, 0, 0}))
	require.NoError(t, err)
	h, err := s.Handle(id, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.KillParticle(h), ErrParticleConstrained)
	assert.True(t, s.Valid(h))

	_, err = s.Handle(id, 7)
	assert.ErrorIs(t, err, actor.ErrIndexOutOfRange)
}

func TestLifetimeExpires(t *testing.T) {
	s := newTestSolver(t, nil)
	id := pool(t, s, 2)
	h, ok := s.EmitParticle(id, mgl32.Vec3{}, mgl32.Vec3{}, 0.05)
	require.True(t, ok)
	forever, ok := s.EmitParticle(id, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 0)
	require.True(t, ok)

	for range 2 {
		require.NoError(t, s.Step(dt))
	}
	assert.True(t, s.Valid(h))
	for range 2 {
		require.NoError(t, s.Step(dt))
	}
	assert.False(t, s.Valid(h))
	assert.True(t, s.Valid(forever))
	n, _ := s.ActiveCount(id)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int32{forever.Index}, s.ActiveParticles())
}

func TestEmitterRate(t *testing.T) {
	s := newTestSolver(t, nil)
	settings := actor.DefaultEmitterSettings()
	settings.Capacity = 20
	settings.Rate = 120
	settings.Lifetime = 0
	settings.Material.RestDensity = 0
	bp, err := actor.Emitter(settings)
	require.NoError(t, err)
	id, err := s.AddActor(bp)
	require.NoError(t, err)
	require.NoError(t, s.SetTransformProvider(id, actor.StaticTransform(flexmath.Transform{
		Position: mgl32.Vec3{0, 2, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	})))

	require.NoError(t, s.Step(dt))
	n, _ := s.ActiveCount(id)
	assert.Equal(t, 2, n)

	for range 20 {
		require.NoError(t, s.Step(dt))
	}
	n, _ = s.ActiveCount(id)
	assert.Equal(t, 20, n, "pool saturates at capacity")
}

func TestCapacityGrowsKeepingIndices(t *testing.T) {
	s := newTestSolver(t, func(c *config.SolverConfig) { c.Capacity = 64 })
	require.Equal(t, 64, s.Capacity())

	a, err := s.AddActor(chain(40, mgl32.Vec3{0, -0.1, 0}))
	require.NoError(t, err)
	before, _ := s.ActorIndices(a)
	before = append([]int32(nil), before...)
	positions := make([]mgl32.Vec3, len(before))
	for k, i := range before {
		positions[k] = position(s, i)
	}

	b, err := s.AddActor(chain(40, mgl32.Vec3{0.1, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, 128, s.Capacity())

	after, _ := s.ActorIndices(a)
	assert.Equal(t, before, after)
	for k, i := range after {
		assert.Equal(t, positions[k], position(s, i))
	}
	ib, _ := s.ActorIndices(b)
	assert.Equal(t, int32(40), ib[0])
	assert.Len(t, s.ActiveParticles(), 80)
}

func TestRemoveActorRecyclesSlots(t *testing.T) {
	s := newTestSolver(t, func(c *config.SolverConfig) { c.ParticleCollisions = false })
	a, err := s.AddActor(chain(3, mgl32.Vec3{1, 0, 0}))
	require.NoError(t, err)
	b, err := s.AddActor(chain(2, mgl32.Vec3{0, 0, 1}))
	require.NoError(t, err)
	h, err := s.Handle(a, 0)
	require.NoError(t, err)

	require.NoError(t, s.RemoveActor(a))
	assert.False(t, s.Valid(h))
	assert.ErrorIs(t, s.RemoveActor(a), ErrActorNotFound)
	_, err = s.ActorIndices(a)
	assert.ErrorIs(t, err, ErrActorNotFound)
	assert.Equal(t, []ActorID{b}, s.Actors())

	c, err := s.AddActor(chain(2, mgl32.Vec3{0, 1, 0}))
	require.NoError(t, err)
	ic, _ := s.ActorIndices(c)
	assert.Equal(t, []int32{0, 1}, ic)
	assert.Len(t, s.ActiveParticles(), 4)

	// The new actor's particles do not inherit stale state.
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, position(s, ic[1]))
	require.NoError(t, s.Step(dt))
	assert.Equal(t, 2, s.Stats().Actors)
	assert.Equal(t, 2, s.Stats().Constraints)
}

func TestInvalidBlueprintLeavesSolverUnchanged(t *testing.T) {
	s := newTestSolver(t, nil)
	bp := chain(2, mgl32.Vec3{1, 0, 0})
	bp.Particles = bp.Particles[:1]
	_, err := s.AddActor(bp)
	require.Error(t, err)
	assert.Empty(t, s.Actors())
	assert.Empty(t, s.ActiveParticles())
}

func TestSpatialQuery(t *testing.T) {
	s := newTestSolver(t, nil)
	a, err := s.AddActor(singleParticle(mgl32.Vec3{0, 0, 0}, 1, 0.1))
	require.NoError(t, err)
	b, err := s.AddActor(singleParticle(mgl32.Vec3{2, 0, 0}, 1, 0.1))
	require.NoError(t, err)

	results := s.SpatialQuery([]Query{
		{Shape: QuerySphere, Radius: 0.5},
		{Shape: QueryRay, Center: mgl32.Vec3{-5, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}},
		{Shape: QueryBox, Center: mgl32.Vec3{2, 0.25, 0}, HalfExtents: mgl32.Vec3{0.2, 0.2, 0.2}},
	}, nil)
	require.Len(t, results, 4)

	assert.Equal(t, 0, results[0].Query)
	assert.Equal(t, a, results[0].Actor)
	assert.Equal(t, SimplexPoint, results[0].Kind)
	assert.InDelta(t, -0.6, results[0].Distance, 1e-5)

	assert.Equal(t, 1, results[1].Query)
	assert.Equal(t, a, results[1].Actor)
	assert.InDelta(t, 4.9, results[1].Distance, 1e-4)
	assert.Equal(t, 1, results[2].Query)
	assert.Equal(t, b, results[2].Actor)
	assert.InDelta(t, 6.9, results[2].Distance, 1e-4)

	assert.Equal(t, 2, results[3].Query)
	assert.Equal(t, b, results[3].Actor)

	// Queries run in the frame of their transform.
	moved := s.SpatialQuery([]Query{{Shape: QuerySphere, Radius: 0.5}}, []flexmath.Transform{{
		Position: mgl32.Vec3{2, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}})
	require.Len(t, moved, 1)
	assert.Equal(t, b, moved[0].Actor)

	assert.Nil(t, s.SpatialQuery(nil, nil))
}

func TestFrame(t *testing.T) {
	s := newTestSolver(t, nil)
	_, err := s.AddActor(chain(3, mgl32.Vec3{1, 0, 0}))
	require.NoError(t, err)
	require.NoError(t, s.Step(dt))
	require.NoError(t, s.Interpolate(dt, dt))

	f := s.Frame()
	assert.Equal(t, int64(1), f.Step)
	assert.Equal(t, "3d", f.Mode)
	require.Len(t, f.Pos, 3)
	assert.Len(t, f.Radii, 3)
	assert.Nil(t, f.Anisotropy)
	for k, i := range f.Indices {
		assert.Equal(t, s.Particles().EndPositions[i].Vec3(), f.Pos[k])
	}
}

func TestKillRejectedWhileStepping(t *testing.T) {
	s := newTestSolver(t, nil)
	id := pool(t, s, 2)
	h, ok := s.EmitParticle(id, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, 0)
	require.True(t, ok)

	require.NoError(t, s.BeginStep(dt))
	assert.ErrorIs(t, s.KillParticle(h), ErrInvalidState)
	assert.True(t, s.Valid(h))
	require.NoError(t, s.Substep(dt, dt, 0))
	require.NoError(t, s.EndStep(dt))

	require.NoError(t, s.KillParticle(h))
	assert.False(t, s.Valid(h))
}

func TestAbortStepRestoresStartState(t *testing.T) {
	s := newTestSolver(t, nil)
	id := pool(t, s, 1)
	h, ok := s.EmitParticle(id, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, 0)
	require.True(t, ok)

	require.NoError(t, s.BeginStep(dt))
	require.NoError(t, s.Substep(dt, dt/2, 0))
	require.NotEqual(t, mgl32.Vec3{0, 1, 0}, position(s, h.Index))
	require.Error(t, s.Substep(dt, 0, 1))

	s.AbortStep()
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, position(s, h.Index))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, s.Particles().Velocities[h.Index])

	// Idle again: a full step runs and aborting is a no-op.
	s.AbortStep()
	require.NoError(t, s.Step(dt))
	assert.Greater(t, position(s, h.Index)[0], float32(0))
}

func TestLifecycleEvents(t *testing.T) {
	var events []telemetry.Event
	s := newTestSolver(t, nil, OnEvent(func(e telemetry.Event) { events = append(events, e) }))
	id := pool(t, s, 3)

	a, ok := s.EmitParticle(id, mgl32.Vec3{}, mgl32.Vec3{}, 0)
	require.True(t, ok)
	_, ok = s.EmitParticle(id, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, 2*dt)
	require.True(t, ok)
	require.NoError(t, s.KillParticle(a))
	for range 3 {
		require.NoError(t, s.Step(dt))
	}
	require.NoError(t, s.BeginStep(dt))
	s.AbortStep()

	var types []telemetry.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []telemetry.EventType{
		telemetry.EventEmit, telemetry.EventEmit, telemetry.EventKill,
		telemetry.EventExpire, telemetry.EventStepAborted,
	}, types)
	assert.InDelta(t, 2*dt, events[1].Amount, 1e-7)
	assert.Equal(t, a.Index, events[2].Particle)
}
