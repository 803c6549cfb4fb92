// Package solver runs the XPBD substep loop over the particles of every
// actor added to it: prediction, collision detection, batched constraint
// projection and velocity update.
package solver

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/fluid"
	"github.com/pthm-cable/flex/parallel"
	"github.com/pthm-cable/flex/particles"
	"github.com/pthm-cable/flex/telemetry"
)

type startVelocity struct {
	index    int32
	velocity mgl32.Vec4
}

// stepState tracks where the solver is in the step sequence.
type stepState uint8

const (
	stateIdle stepState = iota
	stateStepping
	stateStepped
)

func (s stepState) String() string {
	switch s {
	case stateStepping:
		return "stepping"
	case stateStepped:
		return "stepped"
	}
	return "idle"
}

// minCapacity is the particle capacity of a solver configured with zero.
const minCapacity = 64

// Solver owns the particle arrays and constraint containers of a set of
// actors. It is not safe for concurrent use; parallelism is internal.
type Solver struct {
	cfg     config.SolverConfig
	mode    flexmath.Mode
	gravity mgl32.Vec3
	logger  *slog.Logger

	pool      *parallel.Pool
	ownPool   bool
	colliders *colliders.World
	perf      *telemetry.PerfCollector

	particles *particles.Set

	// Actor registry. actors keeps insertion order for deterministic merging.
	world     *ecs.World
	actorMap  *ecs.Map1[actorState]
	actors    []ecs.Entity
	nextGroup uint32

	// Slot tables, one entry per particle slot.
	slotActor   []ecs.Entity
	slotLocal   []int32
	generations []uint32
	free        []int32
	used        int32

	active      []int32
	activeDirty bool
	// stepStart holds the particles active at BeginStep with their
	// velocities, so an aborted step can be undone.
	stepStart  []startVelocity
	constDirty bool

	params     [constraints.TypeCount]constraints.Parameters
	containers [constraints.TypeCount]*constraints.Container
	stitches   []stitch
	stitchGrp  *constraints.Group[constraints.StitchParams, *constraints.StitchParams]
	density    *fluid.Density

	broad broadPhase
	query queryIndex
	ctx   constraints.Context
	wind  *windField
	rng   *rand.Rand

	state    stepState
	stepTime float32
	step     int64
	simTime  float64
	breaks   []constraints.PinBreak
	stats    telemetry.StepStats
	speeds   []float64
	masses   []float64

	onCollision         func([]constraints.Contact, []constraints.Contact)
	onParticleCollision func([]constraints.ParticleContact)
	onPinBreak          func([]constraints.PinBreak)
	onEvent             func(telemetry.Event)
}

// New creates a solver. The configuration is validated before anything is
// allocated.
func New(cfg config.SolverConfig, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = minCapacity
	}

	world := ecs.NewWorld()
	s := &Solver{
		cfg:      cfg,
		mode:     cfg.ModeValue(),
		gravity:  cfg.GravityVec(),
		logger:   slog.Default(),
		pool:     parallel.NewPool(cfg.Workers),
		ownPool:  true,
		world:    world,
		actorMap: ecs.NewMap1[actorState](world),
		rng:      rand.New(rand.NewSource(cfg.Wind.Seed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ownPool && cfg.ParallelThreshold > 0 {
		s.pool.SetThreshold(cfg.ParallelThreshold)
	}
	if s.mode == flexmath.Mode2D {
		s.gravity[2] = 0
	}

	s.particles = particles.NewSet(capacity)
	s.growSlots(capacity)
	for t := range constraints.TypeCount {
		s.containers[t] = constraints.NewContainer(t)
		s.params[t] = cfg.Parameters(t)
		s.containers[t].Params = s.params[t]
	}
	s.stitchGrp = constraints.NewStitchGroup()
	s.density = fluid.NewDensity(s.mode, fluid.Settings{
		Relaxation:    float32(cfg.Fluid.Relaxation),
		TensileK:      float32(cfg.Fluid.TensileK),
		TensileN:      float32(cfg.Fluid.TensileN),
		TensileDeltaQ: float32(cfg.Fluid.TensileDeltaQ),
	})
	if s.density.Settings.Relaxation <= 0 {
		s.density.Settings = fluid.DefaultSettings()
	}
	s.broad = newBroadPhase(s.mode, s.pool.Workers())
	s.wind = newWindField(cfg.Wind, s.mode)

	s.logger.Debug("solver created",
		"mode", s.mode.String(),
		"capacity", capacity,
		"substeps", cfg.Substeps,
		"workers", s.pool.Workers(),
	)
	return s, nil
}

// Close stops the worker pool if the solver owns it.
func (s *Solver) Close() {
	if s.ownPool {
		s.pool.Close()
	}
}

// Mode returns the dimensionality of the simulation.
func (s *Solver) Mode() flexmath.Mode { return s.mode }

// Config returns the solver configuration.
func (s *Solver) Config() config.SolverConfig { return s.cfg }

// Particles returns the particle arrays. Indices are stable for the
// lifetime of the particle's actor.
func (s *Solver) Particles() *particles.Set { return s.particles }

// Capacity returns the number of particle slots.
func (s *Solver) Capacity() int { return s.particles.Capacity() }

// ActiveParticles returns the solver indices of simulated particles,
// ascending. The slice is owned by the solver.
func (s *Solver) ActiveParticles() []int32 {
	s.refreshActive()
	return s.active
}

// Gravity returns the gravity applied in prediction.
func (s *Solver) Gravity() mgl32.Vec3 { return s.gravity }

// SetGravity changes the gravity.
func (s *Solver) SetGravity(g mgl32.Vec3) {
	if s.mode == flexmath.Mode2D {
		g[2] = 0
	}
	s.gravity = g
}

// Damping returns the fraction of velocity removed per second.
func (s *Solver) Damping() float32 { return float32(s.cfg.Damping) }

// SetDamping changes the velocity damping. Negative values are clamped to 0.
func (s *Solver) SetDamping(d float32) {
	s.cfg.Damping = float64(max(d, 0))
}

// Parameters returns the solver parameters of constraint type t.
func (s *Solver) Parameters(t constraints.Type) constraints.Parameters {
	return s.params[t]
}

// SetParameters changes the solver parameters of constraint type t. It takes
// effect from the next substep.
func (s *Solver) SetParameters(t constraints.Type, p constraints.Parameters) error {
	if t >= constraints.TypeCount {
		return fmt.Errorf("set parameters: unknown constraint type %d", t)
	}
	if p.Iterations < 1 {
		p.Iterations = 1
	}
	if p.SORFactor <= 0 {
		p.SORFactor = 1
	}
	s.params[t] = p
	s.containers[t].Params = p
	s.cfg.SetParameters(t, p)
	return nil
}

// Container returns the container of constraint type t.
func (s *Solver) Container(t constraints.Type) *constraints.Container {
	s.rebuild()
	return s.containers[t]
}

// Density returns the fluid density constraint.
func (s *Solver) Density() *fluid.Density { return s.density }

// StepCount returns the number of completed steps.
func (s *Solver) StepCount() int64 { return s.step }

// SimTime returns the simulated time in seconds.
func (s *Solver) SimTime() float64 { return s.simTime }

// Stats returns the statistics of the last completed step.
func (s *Solver) Stats() telemetry.StepStats { return s.stats }
