package constraints

import (
	"github.com/go-gl/mathgl/mgl32"
)

var e3 = mgl32.Vec3{0, 0, 1}

// StretchShearParams is the Cosserat stretch/shear constraint between two
// consecutive rod particles. The orientation of the first particle frames
// the segment; its local Z axis should follow the segment direction.
type StretchShearParams struct {
	RestLength float32
	// Compliance per axis: shear X, shear Y, stretch Z.
	Compliance mgl32.Vec3
}

func (p *StretchShearParams) Lambdas(int) int { return 3 }

func (p *StretchShearParams) Project(ctx *Context, idx []int32, lambda []float32) {
	a, b := idx[0], idx[1]
	l := p.RestLength
	if l <= 0 {
		return
	}
	wa, wb := ctx.InvMass(a), ctx.InvMass(b)
	wq := ctx.Particles.InvRotationalMasses[a]
	q := ctx.Particles.Orientations[a]

	d3 := q.Rotate(e3)
	gamma := ctx.Position(b).Sub(ctx.Position(a)).Mul(1 / l).Sub(d3)

	w := (wa+wb)/l + wq*4*l
	if w == 0 {
		return
	}
	// Solve per axis in the segment frame so each axis gets its compliance.
	local := q.Conjugate().Rotate(gamma)
	var dl mgl32.Vec3
	for k := range 3 {
		alpha := ctx.Alpha(p.Compliance[k])
		dl[k] = (-local[k] - alpha*lambda[k]) / (w + alpha)
		lambda[k] += dl[k]
	}
	corr := q.Rotate(dl)

	if wa > 0 {
		ctx.AddDelta(a, corr.Mul(-wa))
	}
	if wb > 0 {
		ctx.AddDelta(b, corr.Mul(wb))
	}
	if wq > 0 {
		qe3bar := q.Mul(mgl32.Quat{W: 0, V: e3.Mul(-1)})
		dq := mgl32.Quat{W: 0, V: corr.Mul(-1)}.Mul(qe3bar).Scale(2 * wq * l)
		ctx.AddOrientationDelta(a, dq)
	}
}

// NewStretchShearGroup creates an empty group of stretch/shear constraints.
func NewStretchShearGroup() *Group[StretchShearParams, *StretchShearParams] {
	return NewGroup[StretchShearParams, *StretchShearParams](StretchShear)
}

// RestDarboux returns the rest Darboux vector between two orientations.
func RestDarboux(qa, qb mgl32.Quat) mgl32.Quat {
	return qa.Conjugate().Mul(qb).Normalize()
}
