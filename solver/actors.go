package solver

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flex/actor"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

// ActorID identifies an actor added to a solver. IDs of removed actors are
// rejected with ErrActorNotFound.
type ActorID struct {
	entity ecs.Entity
}

// ParticleHandle identifies one particle. The generation changes whenever
// the slot is killed, re-emitted or released with its actor.
type ParticleHandle struct {
	Index      int32
	Generation uint32
}

// actorState is the ECS component holding an actor's solver-side data.
type actorState struct {
	blueprint *actor.Blueprint
	group     uint32

	// indices maps blueprint-local particles to solver slots. order lists
	// local particles with the simulated ones first; position inverts it.
	indices  []int32
	order    []int32
	position []int32
	active   int

	// Simplices in solver indices.
	points    []int32
	edges     [][2]int32
	triangles [][3]int32

	transform   actor.TransformProvider
	skin        actor.SkinProvider
	skinPoints  []mgl32.Vec3
	skinNormals []mgl32.Vec3

	emitAccum float32
}

// stitch joins particles of two actors, in actor-local indices.
type stitch struct {
	a, b   ecs.Entity
	ia, ib int32
	params constraints.StitchParams
}

// AddActor validates and colours a blueprint, allocates its particles and
// merges its constraints. Nothing is modified when validation fails.
func (s *Solver) AddActor(bp *actor.Blueprint) (ActorID, error) {
	if s.state == stateStepping {
		return ActorID{}, fmt.Errorf("add actor %q: %w", bp.Name, ErrInvalidState)
	}
	if err := bp.Validate(); err != nil {
		return ActorID{}, fmt.Errorf("add actor %q: %w", bp.Name, err)
	}
	bp.Generate()

	n := bp.Len()
	st := actorState{
		blueprint: bp,
		group:     s.nextGroup + 1,
		indices:   make([]int32, n),
		order:     make([]int32, n),
		position:  make([]int32, n),
		active:    bp.Active(),
		transform: actor.StaticTransform(flexmath.Identity()),
	}
	s.nextGroup++
	s.reserve(n)

	for local := range n {
		slot := s.allocSlot()
		st.indices[local] = slot
		st.order[local] = int32(local)
		st.position[local] = int32(local)
		s.writeParticle(slot, st.group, &bp.Particles[local])
	}
	st.points = remap1(bp.Points, st.indices)
	st.edges = make([][2]int32, len(bp.Edges))
	for k, e := range bp.Edges {
		st.edges[k] = [2]int32{st.indices[e[0]], st.indices[e[1]]}
	}
	st.triangles = make([][3]int32, len(bp.Triangles))
	for k, t := range bp.Triangles {
		st.triangles[k] = [3]int32{st.indices[t[0]], st.indices[t[1]], st.indices[t[2]]}
	}

	entity := s.actorMap.NewEntity(&st)
	for local, slot := range st.indices {
		s.slotActor[slot] = entity
		s.slotLocal[slot] = int32(local)
	}

	s.actors = append(s.actors, entity)
	s.activeDirty = true
	s.constDirty = true

	s.logger.Debug("actor added",
		"name", bp.Name,
		"kind", bp.Kind.String(),
		"particles", n,
		"active", st.active,
		"constraints", len(bp.Constraints),
	)
	return ActorID{entity: entity}, nil
}

func remap1(local, indices []int32) []int32 {
	out := make([]int32, len(local))
	for k, i := range local {
		out[k] = indices[i]
	}
	return out
}

// writeParticle copies the authored state of a particle into slot i.
func (s *Solver) writeParticle(i int32, group uint32, p *actor.Particle) {
	set := s.particles
	pos := flexmath.Vec4(p.Position)
	vel := flexmath.Vec4(p.Velocity)
	if s.mode == flexmath.Mode2D {
		pos[2], vel[2] = 0, 0
	}
	set.Teleport(i, pos)
	set.Velocities[i] = vel
	set.RestPositions[i] = pos
	q := p.Orientation
	if flexmath.QuatIsZero(q) {
		q = mgl32.QuatIdent()
	}
	set.Orientations[i] = q
	set.PrevOrientations[i] = q
	set.StartOrientations[i] = q
	set.EndOrientations[i] = q
	set.RenderableOrientations[i] = q
	set.RestOrientations[i] = q
	set.AngularVelocities[i] = mgl32.Vec4{}
	set.InvMasses[i] = p.InvMass
	set.InvRotationalMasses[i] = p.InvRotationalMass
	set.PrincipalRadii[i] = flexmath.Vec4(p.Radius)
	set.Phases[i] = particles.MakePhase(group, p.Phase)
	set.Filters[i] = p.Filter
	set.Colors[i] = p.Color
	set.FluidMaterials[i] = p.Fluid
	set.FluidData[i] = particles.FluidState{}
	set.Life[i] = 0
}

// RemoveActor releases the actor's particles and constraints. Handles to
// its particles become stale; stitches to it are dropped.
func (s *Solver) RemoveActor(id ActorID) error {
	if s.state == stateStepping {
		return fmt.Errorf("remove actor: %w", ErrInvalidState)
	}
	if !s.alive(id) {
		return ErrActorNotFound
	}
	st := s.actorMap.Get(id.entity)
	for _, slot := range st.indices {
		s.particles.Reset(slot)
		s.slotLocal[slot] = -1
		s.slotActor[slot] = ecs.Entity{}
		s.generations[slot]++
		s.free = append(s.free, slot)
	}
	slices.Sort(s.free)
	s.stitches = slices.DeleteFunc(s.stitches, func(st stitch) bool {
		return st.a == id.entity || st.b == id.entity
	})
	s.actors = slices.DeleteFunc(s.actors, func(e ecs.Entity) bool { return e == id.entity })
	s.world.RemoveEntity(id.entity)
	s.activeDirty = true
	s.constDirty = true
	return nil
}

func (s *Solver) alive(id ActorID) bool {
	return s.world.Alive(id.entity) && s.actorMap.Get(id.entity) != nil
}

func (s *Solver) actor(id ActorID) (*actorState, error) {
	if !s.alive(id) {
		return nil, ErrActorNotFound
	}
	return s.actorMap.Get(id.entity), nil
}

// Actors returns the IDs of all actors in insertion order.
func (s *Solver) Actors() []ActorID {
	out := make([]ActorID, len(s.actors))
	for k, e := range s.actors {
		out[k] = ActorID{entity: e}
	}
	return out
}

// ActorIndices returns the solver index of every blueprint particle of an
// actor, in blueprint order.
func (s *Solver) ActorIndices(id ActorID) ([]int32, error) {
	st, err := s.actor(id)
	if err != nil {
		return nil, err
	}
	return st.indices, nil
}

// ActiveCount returns how many of an actor's particles are simulated.
func (s *Solver) ActiveCount(id ActorID) (int, error) {
	st, err := s.actor(id)
	if err != nil {
		return 0, err
	}
	return st.active, nil
}

// Blueprint returns the blueprint an actor was created from.
func (s *Solver) Blueprint(id ActorID) (*actor.Blueprint, error) {
	st, err := s.actor(id)
	if err != nil {
		return nil, err
	}
	return st.blueprint, nil
}

// SetTransformProvider sets the frame emitters spawn in.
func (s *Solver) SetTransformProvider(id ActorID, p actor.TransformProvider) error {
	st, err := s.actor(id)
	if err != nil {
		return err
	}
	st.transform = p
	return nil
}

// SetSkinProvider sets the animated skin read by skin constraints.
func (s *Solver) SetSkinProvider(id ActorID, p actor.SkinProvider) error {
	st, err := s.actor(id)
	if err != nil {
		return err
	}
	st.skin = p
	if p != nil && len(st.skinPoints) != len(st.indices) {
		st.skinPoints = make([]mgl32.Vec3, len(st.indices))
		st.skinNormals = make([]mgl32.Vec3, len(st.indices))
	}
	return nil
}

// Handle returns the handle of blueprint particle local of an actor.
func (s *Solver) Handle(id ActorID, local int32) (ParticleHandle, error) {
	st, err := s.actor(id)
	if err != nil {
		return ParticleHandle{}, err
	}
	if local < 0 || int(local) >= len(st.indices) {
		return ParticleHandle{}, fmt.Errorf("handle: local index %d of %d: %w", local, len(st.indices), actor.ErrIndexOutOfRange)
	}
	slot := st.indices[local]
	return ParticleHandle{Index: slot, Generation: s.generations[slot]}, nil
}

// Valid reports whether h still refers to a simulated particle.
func (s *Solver) Valid(h ParticleHandle) bool {
	if h.Index < 0 || h.Index >= s.used || s.generations[h.Index] != h.Generation {
		return false
	}
	local := s.slotLocal[h.Index]
	if local < 0 {
		return false
	}
	st := s.actorMap.Get(s.slotActor[h.Index])
	return int(st.position[local]) < st.active
}

// Stitch joins particle ia of actor a and particle ib of actor b.
func (s *Solver) Stitch(a ActorID, ia int32, b ActorID, ib int32, p constraints.StitchParams) error {
	sa, err := s.actor(a)
	if err != nil {
		return err
	}
	sb, err := s.actor(b)
	if err != nil {
		return err
	}
	if ia < 0 || int(ia) >= len(sa.indices) || ib < 0 || int(ib) >= len(sb.indices) {
		return fmt.Errorf("stitch %d-%d: %w", ia, ib, actor.ErrIndexOutOfRange)
	}
	if sa.position[ia] >= int32(sa.active) || sb.position[ib] >= int32(sb.active) {
		return fmt.Errorf("stitch %d-%d: %w", ia, ib, actor.ErrInactiveTouched)
	}
	s.stitches = append(s.stitches, stitch{a: a.entity, b: b.entity, ia: ia, ib: ib, params: p})
	s.constDirty = true
	return nil
}

// reserve grows the particle arrays so n more particles fit, doubling the
// capacity. Existing indices are unchanged.
func (s *Solver) reserve(n int) {
	need := int(s.used) + max(n-len(s.free), 0)
	capacity := s.particles.Capacity()
	if need <= capacity {
		return
	}
	for capacity < need {
		capacity *= 2
	}
	s.particles.Grow(capacity)
	s.growSlots(capacity)
	s.logger.Debug("particle capacity grown", "capacity", capacity)
}

func (s *Solver) growSlots(n int) {
	for len(s.slotLocal) < n {
		s.slotLocal = append(s.slotLocal, -1)
		s.slotActor = append(s.slotActor, ecs.Entity{})
		s.generations = append(s.generations, 0)
	}
}

// allocSlot returns the lowest free slot, or a new one past the high water
// mark. reserve must have been called first.
func (s *Solver) allocSlot() int32 {
	if len(s.free) > 0 {
		slot := s.free[0]
		s.free = s.free[1:]
		return slot
	}
	slot := s.used
	s.used++
	return slot
}

// refreshActive rebuilds the active list and the fluid particle set.
func (s *Solver) refreshActive() {
	if !s.activeDirty {
		return
	}
	s.active = s.active[:0]
	for _, e := range s.actors {
		st := s.actorMap.Get(e)
		for _, local := range st.order[:st.active] {
			s.active = append(s.active, st.indices[local])
		}
	}
	slices.Sort(s.active)

	var fluidIdx []int32
	for _, i := range s.active {
		if particles.IsFluid(s.particles.Phases[i]) && s.particles.FluidMaterials[i].RestDensity > 0 {
			fluidIdx = append(fluidIdx, i)
		}
	}
	s.density.SetParticles(fluidIdx)
	s.activeDirty = false
}

// rebuild re-merges every authored constraint into the containers. Contact
// containers are rebuilt by the broad phase instead.
func (s *Solver) rebuild() {
	if !s.constDirty {
		return
	}
	for t := range constraints.TypeCount {
		if isContactType(t) {
			continue
		}
		s.containers[t].WriteBack()
		s.containers[t].Reset()
	}
	for _, e := range s.actors {
		st := s.actorMap.Get(e)
		for _, src := range st.blueprint.Constraints {
			src.MergeInto(s.containers[src.Type()], st.indices)
		}
	}

	s.stitchGrp.Reset()
	for _, st := range s.stitches {
		a, b := s.actorMap.Get(st.a), s.actorMap.Get(st.b)
		s.stitchGrp.Add(st.params, a.indices[st.ia], b.indices[st.ib])
	}
	if s.stitchGrp.Len() > 0 {
		s.stitchGrp.Colorize()
		s.stitchGrp.MergeInto(s.containers[constraints.Stitch], nil)
	}

	for t := range constraints.TypeCount {
		if !isContactType(t) {
			s.containers[t].Finalize()
		}
	}
	s.constDirty = false
}

func isContactType(t constraints.Type) bool {
	switch t {
	case constraints.Collision, constraints.Friction,
		constraints.ParticleCollision, constraints.ParticleFriction:
		return true
	}
	return false
}
