package constraints

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// pinnedMass stands in for the mass of particles with zero inverse mass.
const pinnedMass = 1e4

// ShapeMatchingParams pulls a cluster of particles toward the best rigid
// fit of their rest shape. Plastic deformation permanently reshapes the rest
// configuration when the cluster is strained beyond PlasticYield.
type ShapeMatchingParams struct {
	Rest      []mgl32.Vec3 // rest positions, one per particle of the tuple
	Stiffness float32

	PlasticYield    float32
	PlasticCreep    float32
	PlasticRecovery float32
	MaxDeformation  float32

	// Deformation is the accumulated plastic transform of the rest shape.
	Deformation mgl32.Mat3

	local []mgl32.Vec3
}

func (p *ShapeMatchingParams) Lambdas(int) int { return 0 }

func massOf(w float32) float32 {
	if w <= 0 {
		return pinnedMass
	}
	return 1 / w
}

func (p *ShapeMatchingParams) Project(ctx *Context, idx []int32, _ []float32) {
	n := len(idx)
	if n < 2 || len(p.Rest) < n {
		return
	}
	if p.Deformation == (mgl32.Mat3{}) {
		p.Deformation = mgl32.Ident3()
	}
	if cap(p.local) < n {
		p.local = make([]mgl32.Vec3, n)
	}
	local := p.local[:n]

	var mass float32
	var com, restCom mgl32.Vec3
	for k, i := range idx {
		m := massOf(ctx.InvMass(i))
		mass += m
		com = com.Add(ctx.Position(i).Mul(m))
		restCom = restCom.Add(p.Rest[k].Mul(m))
	}
	com = com.Mul(1 / mass)
	restCom = restCom.Mul(1 / mass)

	var apq, aqq mgl32.Mat3
	for k, i := range idx {
		m := massOf(ctx.InvMass(i))
		q := p.Deformation.Mul3x1(p.Rest[k].Sub(restCom))
		local[k] = q
		apq = apq.Add(ctx.Position(i).Sub(com).OuterProd3(q).Mul(m))
		aqq = aqq.Add(q.OuterProd3(q).Mul(m))
	}

	a := apq.Mul3(flexmath.PseudoInverse(aqq, 1e-9))
	r, s, ok := flexmath.PolarDecompose(a)
	if !ok {
		return
	}

	stiffness := p.Stiffness
	if stiffness <= 0 {
		stiffness = 1
	}
	rq := flexmath.QuatFromMat3(r)
	for k, i := range idx {
		if ctx.InvMass(i) == 0 {
			continue
		}
		goal := com.Add(r.Mul3x1(local[k]))
		ctx.AddDelta(i, goal.Sub(ctx.Position(i)).Mul(stiffness))
		if ctx.Particles.InvRotationalMasses[i] > 0 {
			q := ctx.Particles.Orientations[i]
			if q.Dot(rq) < 0 {
				q = q.Scale(-1)
			}
			ctx.AddOrientationDelta(i, rq.Sub(q).Scale(stiffness))
		}
	}

	p.plasticity(s, ctx.SubstepTime)
}

// plasticity updates the rest deformation from the symmetric stretch s.
func (p *ShapeMatchingParams) plasticity(s mgl32.Mat3, dt float32) {
	if p.PlasticYield <= 0 && p.PlasticRecovery <= 0 {
		return
	}
	ident := mgl32.Ident3()
	strain := s.Sub(ident)
	if frobenius(strain) > p.PlasticYield && p.PlasticYield > 0 {
		p.Deformation = ident.Add(strain.Mul(p.PlasticCreep * dt)).Mul3(p.Deformation)
	}
	if p.PlasticRecovery > 0 {
		p.Deformation = p.Deformation.Add(ident.Sub(p.Deformation).Mul(min(p.PlasticRecovery*dt, 1)))
	}
	// Keep volume and bound the total deformation.
	if det := p.Deformation.Det(); det > flexmath.Epsilon {
		p.Deformation = p.Deformation.Mul(1 / cbrt(det))
	} else {
		p.Deformation = ident
	}
	if p.MaxDeformation > 0 {
		if d := frobenius(p.Deformation.Sub(ident)); d > p.MaxDeformation {
			p.Deformation = ident.Add(p.Deformation.Sub(ident).Mul(p.MaxDeformation / d))
		}
	}
}

func frobenius(m mgl32.Mat3) float32 {
	var s float32
	for _, v := range m {
		s += v * v
	}
	return flexmath.Sqrt(s)
}

func cbrt(v float32) float32 {
	return float32(math.Cbrt(float64(v)))
}

// NewShapeMatchingGroup creates an empty group of shape matching constraints.
func NewShapeMatchingGroup() *Group[ShapeMatchingParams, *ShapeMatchingParams] {
	return NewGroup[ShapeMatchingParams, *ShapeMatchingParams](ShapeMatching)
}
