package actor

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/fluid"
	"github.com/pthm-cable/flex/particles"
)

// EmitterShape is the area new particles spawn from.
type EmitterShape uint8

const (
	EmitPoint EmitterShape = iota
	EmitDisk
	EmitSquare
)

// EmitterSettings describes a particle emitter. Particles spawn in the
// emitter's local XZ plane and leave along local +Y.
type EmitterSettings struct {
	Mode     flexmath.Mode
	Capacity int
	Rate     float32 // particles per second
	Speed    float32
	// Spread is the random velocity jitter as a fraction of Speed.
	Spread   float32
	Lifetime float32 // seconds, 0 lives forever
	Shape    EmitterShape
	Size     float32 // disk radius or square half extent
	Radius   float32
	Mass     float32
	// Material with a positive rest density makes the emitter spawn fluid.
	Material particles.FluidMaterial
	Color    mgl32.Vec4
}

// DefaultEmitterSettings returns a small fountain of water.
func DefaultEmitterSettings() EmitterSettings {
	return EmitterSettings{
		Capacity: 512,
		Rate:     60,
		Speed:    3,
		Spread:   0.1,
		Lifetime: 4,
		Shape:    EmitDisk,
		Size:     0.1,
		Radius:   0.05,
		Material: particles.FluidMaterial{
			SmoothingRadius: 0.2,
			RestDensity:     1000,
			Viscosity:       0.05,
		},
		Color: mgl32.Vec4{0.3, 0.7, 1, 1},
	}
}

// Emitter builds a blueprint of pooled particles, none initially active.
func Emitter(s EmitterSettings) (*Blueprint, error) {
	if s.Capacity <= 0 {
		return nil, fmt.Errorf("emitter: capacity %d", s.Capacity)
	}
	mass := s.Mass
	var phase uint32
	if s.Material.RestDensity > 0 {
		phase = particles.Fluid
		if mass <= 0 {
			mass = fluid.ParticleMass(s.Mode, s.Material.SmoothingRadius, s.Radius*2, s.Material.RestDensity)
		}
	}
	if mass <= 0 {
		mass = 1
	}
	b := NewBlueprint("emitter", KindEmitter)
	for range s.Capacity {
		b.AddParticle(Particle{
			InvMass: 1 / mass,
			Radius:  mgl32.Vec3{s.Radius, s.Radius, s.Radius},
			Phase:   phase,
			Color:   s.Color,
			Fluid:   s.Material,
		})
	}
	b.ActiveCount = 0
	settings := s
	b.Emitter = &settings
	return b, nil
}

// Sample returns a spawn position and velocity in world space.
func (s *EmitterSettings) Sample(rng *rand.Rand, t flexmath.Transform) (mgl32.Vec3, mgl32.Vec3) {
	var local mgl32.Vec3
	switch s.Shape {
	case EmitDisk:
		r := s.Size * float32(math.Sqrt(rng.Float64()))
		a := rng.Float64() * 2 * math.Pi
		local = mgl32.Vec3{r * float32(math.Cos(a)), 0, r * float32(math.Sin(a))}
	case EmitSquare:
		local = mgl32.Vec3{(rng.Float32()*2 - 1) * s.Size, 0, (rng.Float32()*2 - 1) * s.Size}
	}
	dir := mgl32.Vec3{0, 1, 0}
	if s.Spread > 0 {
		jitter := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		dir = dir.Add(jitter.Mul(s.Spread))
	}
	if s.Mode == flexmath.Mode2D {
		local[2], dir[2] = 0, 0
	}
	pos := t.TransformPoint(local)
	vel := t.TransformDirection(dir).Mul(s.Speed)
	return pos, vel
}
