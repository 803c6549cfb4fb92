package constraints

import (
	"github.com/pthm-cable/flex/flexmath"
)

// BendingParams resists the middle particle of a triple leaving the
// centroid of the three. Tuples are (end, end, middle).
type BendingParams struct {
	RestBend   float32
	Compliance float32
	MaxBending float32

	PlasticYield float32
	PlasticCreep float32
}

func (p *BendingParams) Lambdas(int) int { return 1 }

func (p *BendingParams) Project(ctx *Context, idx []int32, lambda []float32) {
	a, b, m := idx[0], idx[1], idx[2]
	wa, wb, wm := ctx.InvMass(a), ctx.InvMass(b), ctx.InvMass(m)
	// |grad C|^2 per particle: 1/9 for the ends, 4/9 for the middle.
	w := (wa + wb + 4*wm) / 9
	if w == 0 {
		return
	}
	xa, xb, xm := ctx.Position(a), ctx.Position(b), ctx.Position(m)
	centroid := xa.Add(xb).Add(xm).Mul(1.0 / 3)
	n, dist := flexmath.Normalize(xm.Sub(centroid))
	if dist == 0 {
		return
	}
	c := dist - p.RestBend
	switch {
	case c > p.MaxBending:
		c -= p.MaxBending
	case c < -p.MaxBending:
		c += p.MaxBending
	default:
		c = 0
	}

	alpha := ctx.Alpha(p.Compliance)
	dl := (-c - alpha*lambda[0]) / (w + alpha)
	lambda[0] += dl

	ctx.AddDelta(a, n.Mul(-wa*dl/3))
	ctx.AddDelta(b, n.Mul(-wb*dl/3))
	ctx.AddDelta(m, n.Mul(2*wm*dl/3))

	if p.PlasticYield > 0 {
		if strain := dist - p.RestBend; strain > p.PlasticYield || strain < -p.PlasticYield {
			p.RestBend += p.PlasticCreep * strain * ctx.SubstepTime
			p.RestBend = max(p.RestBend, 0)
		}
	}
}

// NewBendingGroup creates an empty group of bending constraints.
func NewBendingGroup() *Group[BendingParams, *BendingParams] {
	return NewGroup[BendingParams, *BendingParams](Bending)
}
