package constraints

import (
	"math"

	"github.com/pthm-cable/flex/flexmath"
)

// AerodynamicsParams applies drag and lift to a particle moving relative to
// the wind. Particles with a normal (cloth) get lift; others only drag.
type AerodynamicsParams struct {
	Drag       float32
	Lift       float32
	AirDensity float32
}

func (p *AerodynamicsParams) Lambdas(int) int { return 0 }

func (p *AerodynamicsParams) Project(ctx *Context, idx []int32, _ []float32) {
	i := idx[0]
	w := ctx.InvMass(i)
	if w == 0 {
		return
	}
	set := ctx.Particles
	rel := set.Velocities[i].Sub(set.Wind[i]).Vec3()
	dir, speed := flexmath.Normalize(rel)
	if speed < flexmath.Epsilon {
		return
	}
	normal, nl := flexmath.Normalize(set.Normals[i].Vec3())
	if nl == 0 {
		normal = dir
	} else if normal.Dot(dir) < 0 {
		normal = normal.Mul(-1)
	}

	density := p.AirDensity
	if density <= 0 {
		density = 1
	}
	r := set.Radius(i)
	area := float32(math.Pi) * r * r
	cos := dir.Dot(normal)
	force := normal.Mul((p.Drag - p.Lift) * cos).Add(dir.Mul(p.Lift)).
		Mul(-0.5 * density * speed * speed * area)

	dt := ctx.SubstepTime
	ctx.AddDelta(i, force.Mul(w*dt*dt))
}

// NewAerodynamicsGroup creates an empty group of aerodynamic constraints.
func NewAerodynamicsGroup() *Group[AerodynamicsParams, *AerodynamicsParams] {
	return NewGroup[AerodynamicsParams, *AerodynamicsParams](Aerodynamics)
}
