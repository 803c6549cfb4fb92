package constraints

import "github.com/pthm-cable/flex/flexmath"

// StitchParams makes two particles, usually of different actors, coincide.
type StitchParams struct {
	Compliance float32
}

func (p *StitchParams) Lambdas(int) int { return 1 }

func (p *StitchParams) Project(ctx *Context, idx []int32, lambda []float32) {
	i, j := idx[0], idx[1]
	wi, wj := ctx.InvMass(i), ctx.InvMass(j)
	w := wi + wj
	if w == 0 {
		return
	}
	n, l := flexmath.Normalize(ctx.Position(i).Sub(ctx.Position(j)))
	if l == 0 {
		return
	}
	alpha := ctx.Alpha(p.Compliance)
	dl := (-l - alpha*lambda[0]) / (w + alpha)
	lambda[0] += dl
	ctx.AddDelta(i, n.Mul(wi*dl))
	ctx.AddDelta(j, n.Mul(-wj*dl))
}

// NewStitchGroup creates an empty group of stitch constraints.
func NewStitchGroup() *Group[StitchParams, *StitchParams] {
	return NewGroup[StitchParams, *StitchParams](Stitch)
}
