package solver

import (
	"cmp"
	"slices"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
	"github.com/pthm-cable/flex/spatial"
)

// broadPhase finds the contacts of one step and turns them into the
// collision and friction containers.
type broadPhase struct {
	colliderGrid *spatial.MultilevelGrid
	particleGrid *spatial.MultilevelGrid
	particleBase float32
	boxes        []flexmath.AABB

	contacts         []constraints.Contact
	triggers         []constraints.Contact
	particleContacts []constraints.ParticleContact

	// Per worker buffers, merged and sorted after the parallel pass.
	workerContacts [][]constraints.Contact
	workerTriggers [][]constraints.Contact
	workerPairs    [][]constraints.ParticleContact
	scratch        [][]int32

	collision         *constraints.Group[constraints.CollisionParams, *constraints.CollisionParams]
	friction          *constraints.Group[constraints.FrictionParams, *constraints.FrictionParams]
	particleCollision *constraints.Group[constraints.ParticleCollisionParams, *constraints.ParticleCollisionParams]
	particleFriction  *constraints.Group[constraints.ParticleFrictionParams, *constraints.ParticleFrictionParams]
}

func newBroadPhase(mode flexmath.Mode, workers int) broadPhase {
	workers = max(workers, 1)
	return broadPhase{
		colliderGrid:      spatial.NewMultilevelGrid(0.5, mode),
		particleGrid:      spatial.NewMultilevelGrid(0.1, mode),
		particleBase:      0.1,
		workerContacts:    make([][]constraints.Contact, workers),
		workerTriggers:    make([][]constraints.Contact, workers),
		workerPairs:       make([][]constraints.ParticleContact, workers),
		scratch:           make([][]int32, workers),
		collision:         constraints.NewCollisionGroup(),
		friction:          constraints.NewFrictionGroup(),
		particleCollision: constraints.NewParticleCollisionGroup(),
		particleFriction:  constraints.NewParticleFrictionGroup(),
	}
}

func shapeFilter(sh colliders.Shape) uint32 {
	if sh.Filter == 0 {
		return particles.DefaultFilter
	}
	return sh.Filter
}

// detectContacts runs the broad phase for the step about to be simulated.
// Particle bounds are swept along the current velocity over the whole step
// so fast particles find the surfaces they will reach.
func (s *Solver) detectContacts(snap *colliders.Snapshot) {
	b := &s.broad
	set := s.particles
	margin := float32(s.cfg.CollisionMargin)
	dt := s.stepTime
	n := len(s.active)

	if cap(b.boxes) < n {
		b.boxes = make([]flexmath.AABB, n)
	}
	b.boxes = b.boxes[:n]
	var maxExtent float32
	for k, i := range s.active {
		p := set.Positions[i].Vec3()
		q := p.Add(set.Velocities[i].Vec3().Mul(dt))
		b.boxes[k] = flexmath.AABBFromPoints(p, q).Expand(set.Radius(i) + margin)
		maxExtent = max(maxExtent, 2*(set.Radius(i)+margin))
	}

	colliding := snap.Len() > 0
	if colliding {
		b.colliderGrid.Clear()
		for c := range snap.Colliders {
			b.colliderGrid.Insert(int32(c), snap.Colliders[c].Bounds)
		}
	}
	pairs := s.cfg.ParticleCollisions && n > 1
	if pairs {
		if maxExtent > 0 && (maxExtent > 2*b.particleBase || maxExtent < b.particleBase/2) {
			b.particleBase = maxExtent
			b.particleGrid = spatial.NewMultilevelGrid(maxExtent, s.mode)
		} else {
			b.particleGrid.Clear()
		}
		for k := range b.boxes {
			b.particleGrid.Insert(int32(k), b.boxes[k])
		}
	}

	for w := range b.workerContacts {
		b.workerContacts[w] = b.workerContacts[w][:0]
		b.workerTriggers[w] = b.workerTriggers[w][:0]
		b.workerPairs[w] = b.workerPairs[w][:0]
	}

	s.pool.For(n, func(start, end, w int) {
		buf := b.scratch[w]
		for k := start; k < end; k++ {
			i := s.active[k]
			box := b.boxes[k]
			p := set.Positions[i].Vec3()
			r := set.Radius(i)
			if colliding && set.InvMasses[i] > 0 {
				sweep := set.Velocities[i].Vec3().Len()*dt + margin
				buf = b.colliderGrid.OverlapsInto(buf[:0], box)
				for _, c := range buf {
					sh := snap.Colliders[c].Shape
					if !particles.FiltersCollide(set.Filters[i], shapeFilter(sh)) {
						continue
					}
					surf := snap.Closest(int(c), p)
					d := surf.Distance - r
					if d > sweep+sh.ContactOffset {
						continue
					}
					contact := constraints.Contact{
						Particle: i,
						Collider: c,
						Point:    surf.Point,
						Normal:   surf.Normal,
						Distance: d,
					}
					if sh.Trigger {
						b.workerTriggers[w] = append(b.workerTriggers[w], contact)
						continue
					}
					b.workerContacts[w] = append(b.workerContacts[w], contact)
				}
			}
			if pairs {
				buf = b.particleGrid.OverlapsInto(buf[:0], box)
				for _, m := range buf {
					if m <= int32(k) {
						continue
					}
					j := s.active[m]
					if !s.pairCollides(i, j) {
						continue
					}
					nrm, l := flexmath.Normalize(p.Sub(set.Positions[j].Vec3()))
					b.workerPairs[w] = append(b.workerPairs[w], constraints.ParticleContact{
						A:        i,
						B:        j,
						Normal:   nrm,
						Distance: l - r - set.Radius(j),
					})
				}
			}
		}
		b.scratch[w] = buf
	})

	b.contacts = mergeSorted(b.contacts[:0], b.workerContacts, compareContacts)
	b.triggers = mergeSorted(b.triggers[:0], b.workerTriggers, compareContacts)
	b.particleContacts = mergeSorted(b.particleContacts[:0], b.workerPairs, func(x, y constraints.ParticleContact) int {
		return cmp.Or(cmp.Compare(x.A, y.A), cmp.Compare(x.B, y.B))
	})

	s.buildContactContainers(snap)
}

func (s *Solver) pairCollides(i, j int32) bool {
	set := s.particles
	if set.InvMasses[i] == 0 && set.InvMasses[j] == 0 {
		return false
	}
	pi, pj := set.Phases[i], set.Phases[j]
	// Fluid neighbours are handled by the density constraint.
	if particles.IsFluid(pi) && particles.IsFluid(pj) {
		return false
	}
	return particles.PhasesCollide(pi, pj, set.Filters[i], set.Filters[j])
}

func compareContacts(x, y constraints.Contact) int {
	return cmp.Or(cmp.Compare(x.Particle, y.Particle), cmp.Compare(x.Collider, y.Collider))
}

func mergeSorted[T any](dst []T, parts [][]T, compare func(a, b T) int) []T {
	for _, p := range parts {
		dst = append(dst, p...)
	}
	slices.SortFunc(dst, compare)
	return dst
}

// buildContactContainers turns the step's contacts into coloured batches.
func (s *Solver) buildContactContainers(snap *colliders.Snapshot) {
	b := &s.broad
	b.collision.Reset()
	b.friction.Reset()
	for k, c := range b.contacts {
		mat := snap.Material(int(c.Collider))
		b.collision.Add(constraints.CollisionParams{Contact: int32(k)}, c.Particle)
		b.friction.Add(constraints.FrictionParams{
			Contact:         int32(k),
			StaticFriction:  mat.StaticFriction,
			DynamicFriction: mat.DynamicFriction,
		}, c.Particle)
	}

	b.particleCollision.Reset()
	b.particleFriction.Reset()
	mat := colliders.DefaultMaterial
	for k, c := range b.particleContacts {
		b.particleCollision.Add(constraints.ParticleCollisionParams{Contact: int32(k)}, c.A, c.B)
		b.particleFriction.Add(constraints.ParticleFrictionParams{
			Contact:         int32(k),
			StaticFriction:  mat.StaticFriction,
			DynamicFriction: mat.DynamicFriction,
		}, c.A, c.B)
	}

	groups := []constraints.Source{b.collision, b.friction, b.particleCollision, b.particleFriction}
	for _, g := range groups {
		c := s.containers[g.Type()]
		c.Reset()
		if g.Len() > 0 {
			g.Colorize()
			g.MergeInto(c, nil)
		}
		c.Finalize()
	}
	s.ctx.Contacts = b.contacts
	s.ctx.ParticleContacts = b.particleContacts
}
