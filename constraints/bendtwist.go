package constraints

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BendTwistParams keeps the Darboux vector between two consecutive rod
// orientations at its rest value.
type BendTwistParams struct {
	RestDarboux mgl32.Quat
	// Compliance per axis: bend X, bend Y, twist Z.
	Compliance mgl32.Vec3

	PlasticYield float32
	PlasticCreep float32
}

func (p *BendTwistParams) Lambdas(int) int { return 3 }

func (p *BendTwistParams) Project(ctx *Context, idx []int32, lambda []float32) {
	a, b := idx[0], idx[1]
	wa := ctx.Particles.InvRotationalMasses[a]
	wb := ctx.Particles.InvRotationalMasses[b]
	w := wa + wb
	if w == 0 {
		return
	}
	qa := ctx.Particles.Orientations[a]
	qb := ctx.Particles.Orientations[b]
	rest := p.RestDarboux
	if rest == (mgl32.Quat{}) {
		rest = mgl32.QuatIdent()
	}

	omega := qa.Conjugate().Mul(qb)
	plus := omega.Add(rest)
	minus := omega.Sub(rest)
	c := minus
	if minus.Dot(minus) > plus.Dot(plus) {
		c = plus
	}

	var dl mgl32.Vec3
	for k := range 3 {
		alpha := ctx.Alpha(p.Compliance[k])
		dl[k] = (-c.V[k] - alpha*lambda[k]) / (w + alpha)
		lambda[k] += dl[k]
	}
	corr := mgl32.Quat{W: 0, V: dl.Mul(-1)}
	if wa > 0 {
		ctx.AddOrientationDelta(a, qb.Mul(corr).Scale(wa))
	}
	if wb > 0 {
		ctx.AddOrientationDelta(b, qa.Mul(corr).Scale(-wb))
	}

	if p.PlasticYield > 0 && c.V.Len() > p.PlasticYield {
		sign := float32(1)
		if omega.Dot(rest) < 0 {
			sign = -1
		}
		p.RestDarboux = rest.Add(omega.Scale(sign).Sub(rest).Scale(p.PlasticCreep * ctx.SubstepTime)).Normalize()
	}
}

// NewBendTwistGroup creates an empty group of bend/twist constraints.
func NewBendTwistGroup() *Group[BendTwistParams, *BendTwistParams] {
	return NewGroup[BendTwistParams, *BendTwistParams](BendTwist)
}
