package constraints

import (
	"github.com/pthm-cable/flex/flexmath"
)

// DistanceParams keeps two particles at a rest length.
type DistanceParams struct {
	RestLength float32
	Compliance float32
	// MaxCompression is the fraction of RestLength the constraint may
	// shrink before it resists.
	MaxCompression float32
}

func (p *DistanceParams) Lambdas(int) int { return 1 }

func (p *DistanceParams) Project(ctx *Context, idx []int32, lambda []float32) {
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
	c := l - p.RestLength
	if c < 0 {
		c = min(c+p.MaxCompression*p.RestLength, 0)
	}
	alpha := ctx.Alpha(p.Compliance)
	dl := (-c - alpha*lambda[0]) / (w + alpha)
	lambda[0] += dl
	ctx.AddDelta(i, n.Mul(wi*dl))
	ctx.AddDelta(j, n.Mul(-wj*dl))
}

// NewDistanceGroup creates an empty group of distance constraints.
func NewDistanceGroup() *Group[DistanceParams, *DistanceParams] {
	return NewGroup[DistanceParams, *DistanceParams](Distance)
}
