package constraints

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/parallel"
	"github.com/pthm-cable/flex/particles"
)

// Contact is a particle-collider contact found by the broad phase. Its
// surface data is refreshed every substep.
type Contact struct {
	Particle int32
	Collider int32

	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32

	NormalLambda float32
}

// ParticleContact is a particle-particle contact found by the broad phase.
type ParticleContact struct {
	A, B int32

	Normal   mgl32.Vec3
	Distance float32

	NormalLambda float32
}

// PinBreak records a pin that exceeded its break threshold.
type PinBreak struct {
	Particle int32
	Collider int32
	Force    float32
}

// Context carries the state shared by all batches during one substep.
type Context struct {
	Particles *particles.Set
	Colliders *colliders.Snapshot
	Pool      *parallel.Pool
	Mode      flexmath.Mode

	StepTime    float32
	SubstepTime float32
	Substep     int
	Gravity     mgl32.Vec3

	Contacts         []Contact
	ParticleContacts []ParticleContact

	mu     sync.Mutex
	breaks []PinBreak
}

// Alpha returns the time-scaled compliance of the current substep.
func (c *Context) Alpha(compliance float32) float32 {
	if compliance <= 0 || c.SubstepTime <= 0 {
		return 0
	}
	return compliance / (c.SubstepTime * c.SubstepTime)
}

// Position returns the current position of particle i.
func (c *Context) Position(i int32) mgl32.Vec3 {
	return c.Particles.Positions[i].Vec3()
}

// InvMass returns the inverse mass of particle i.
func (c *Context) InvMass(i int32) float32 {
	return c.Particles.InvMasses[i]
}

// AddDelta accumulates a position correction, flattened in 2D mode.
func (c *Context) AddDelta(i int32, d mgl32.Vec3) {
	if c.Mode == flexmath.Mode2D {
		d[2] = 0
	}
	c.Particles.AddDelta(i, flexmath.Vec4(d))
}

// AddOrientationDelta accumulates an orientation correction.
func (c *Context) AddOrientationDelta(i int32, q mgl32.Quat) {
	c.Particles.AddOrientationDelta(i, q)
}

// ReportBreak records a broken pin. Safe for concurrent use.
func (c *Context) ReportBreak(b PinBreak) {
	c.mu.Lock()
	c.breaks = append(c.breaks, b)
	c.mu.Unlock()
}

// TakeBreaks returns and clears the recorded pin breaks.
func (c *Context) TakeBreaks() []PinBreak {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.breaks
	c.breaks = nil
	return b
}
