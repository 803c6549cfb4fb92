// Package actor builds the authored particle and constraint data of the
// things a solver simulates: ropes, rods, cloth, softbodies, fluids and
// emitters.
package actor

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

// Blueprint validation errors.
var (
	ErrEmptyBlueprint  = errors.New("blueprint has no particles")
	ErrLengthMismatch  = errors.New("blueprint arrays differ in length")
	ErrIndexOutOfRange = errors.New("blueprint index out of range")
	ErrDuplicateGroup  = errors.New("blueprint has two groups of one constraint type")
	ErrInactiveTouched = errors.New("constraint references a pooled particle")
)

// Particle is the authored state of one particle.
type Particle struct {
	Position          mgl32.Vec3
	Velocity          mgl32.Vec3
	Orientation       mgl32.Quat
	InvMass           float32
	InvRotationalMass float32
	Radius            mgl32.Vec3 // principal radii
	Phase             uint32
	Filter            uint32
	Color             mgl32.Vec4
	Fluid             particles.FluidMaterial
}

// Kind tells the solver how to treat an actor beyond its constraints.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindRope
	KindRod
	KindCloth
	KindSoftbody
	KindFluid
	KindEmitter
)

var kindNames = [...]string{"generic", "rope", "rod", "cloth", "softbody", "fluid", "emitter"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Blueprint is the authored data of one actor in actor-local indices.
// Particles [0, ActiveCount) start simulated; the rest are pooled.
type Blueprint struct {
	Name      string
	Kind      Kind
	Particles []Particle

	// Simplices used for spatial queries and cloth normals.
	Points    []int32
	Edges     [][2]int32
	Triangles [][3]int32

	Constraints []constraints.Source

	// ActiveCount of -1 activates every particle.
	ActiveCount int

	// Emitter is set on emitter blueprints.
	Emitter *EmitterSettings
}

// NewBlueprint creates an empty blueprint.
func NewBlueprint(name string, kind Kind) *Blueprint {
	return &Blueprint{Name: name, Kind: kind, ActiveCount: -1}
}

// Len returns the particle count.
func (b *Blueprint) Len() int { return len(b.Particles) }

// Active returns the number of initially active particles.
func (b *Blueprint) Active() int {
	if b.ActiveCount < 0 || b.ActiveCount > len(b.Particles) {
		return len(b.Particles)
	}
	return b.ActiveCount
}

// AddParticle appends a particle and returns its local index.
func (b *Blueprint) AddParticle(p Particle) int32 {
	if flexmath.QuatIsZero(p.Orientation) {
		p.Orientation = mgl32.QuatIdent()
	}
	if p.Filter == 0 {
		p.Filter = particles.DefaultFilter
	}
	b.Particles = append(b.Particles, p)
	return int32(len(b.Particles) - 1)
}

// Add appends a constraint group.
func (b *Blueprint) Add(src constraints.Source) {
	b.Constraints = append(b.Constraints, src)
}

// Group returns the group of type t, or nil.
func (b *Blueprint) Group(t constraints.Type) constraints.Source {
	for _, g := range b.Constraints {
		if g.Type() == t {
			return g
		}
	}
	return nil
}

// Generate colours every constraint group. It is called by the solver
// when the actor is added, and is cheap to repeat.
func (b *Blueprint) Generate() {
	for _, g := range b.Constraints {
		g.Colorize()
	}
}

// tupled is implemented by every constraints.Group.
type tupled interface {
	Len() int
	Tuple(c int) []int32
}

// Validate checks indices and group uniqueness.
func (b *Blueprint) Validate() error {
	n := int32(len(b.Particles))
	if n == 0 {
		return ErrEmptyBlueprint
	}
	check := func(what string, idx ...int32) error {
		for _, i := range idx {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: %s index %d of %d", ErrIndexOutOfRange, what, i, n)
			}
		}
		return nil
	}
	for _, p := range b.Points {
		if err := check("point", p); err != nil {
			return err
		}
	}
	for _, e := range b.Edges {
		if err := check("edge", e[:]...); err != nil {
			return err
		}
	}
	for _, t := range b.Triangles {
		if err := check("triangle", t[:]...); err != nil {
			return err
		}
	}

	active := int32(b.Active())
	var seen [constraints.TypeCount]bool
	for _, g := range b.Constraints {
		if seen[g.Type()] {
			return fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Type())
		}
		seen[g.Type()] = true
		tg, ok := g.(tupled)
		if !ok {
			continue
		}
		for c := 0; c < tg.Len(); c++ {
			tuple := tg.Tuple(c)
			if err := check(g.Type().String(), tuple...); err != nil {
				return err
			}
			for _, i := range tuple {
				if i >= active {
					return fmt.Errorf("%w: %s constraint %d", ErrInactiveTouched, g.Type(), c)
				}
			}
		}
	}
	return nil
}

// Bounds returns the bounding box of the particles including their radii.
func (b *Blueprint) Bounds() flexmath.AABB {
	if len(b.Particles) == 0 {
		return flexmath.AABB{}
	}
	box := flexmath.AABBFromPoint(b.Particles[0].Position, maxComponent(b.Particles[0].Radius))
	for _, p := range b.Particles[1:] {
		box = box.Encapsulate(flexmath.AABBFromPoint(p.Position, maxComponent(p.Radius)))
	}
	return box
}

func maxComponent(v mgl32.Vec3) float32 {
	return max(v[0], v[1], v[2])
}
