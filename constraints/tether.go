package constraints

import "github.com/pthm-cable/flex/flexmath"

// TetherParams keeps a particle within MaxLength*Scale of an anchor
// particle. Only the first particle of the tuple moves.
type TetherParams struct {
	MaxLength  float32
	Scale      float32
	Compliance float32
}

func (p *TetherParams) Lambdas(int) int { return 1 }

func (p *TetherParams) Project(ctx *Context, idx []int32, lambda []float32) {
	i, anchor := idx[0], idx[1]
	w := ctx.InvMass(i)
	if w == 0 {
		return
	}
	n, l := flexmath.Normalize(ctx.Position(i).Sub(ctx.Position(anchor)))
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	c := l - p.MaxLength*scale
	if c <= 0 || l == 0 {
		return
	}
	alpha := ctx.Alpha(p.Compliance)
	dl := (-c - alpha*lambda[0]) / (w + alpha)
	lambda[0] += dl
	ctx.AddDelta(i, n.Mul(w*dl))
}

// NewTetherGroup creates an empty group of tether constraints.
func NewTetherGroup() *Group[TetherParams, *TetherParams] {
	return NewGroup[TetherParams, *TetherParams](Tether)
}
