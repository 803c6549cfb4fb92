package constraints

import "github.com/pthm-cable/flex/flexmath"

// SkinParams keeps a particle within Radius of its animated skin point and
// outside a backstop sphere placed behind the skin surface.
type SkinParams struct {
	Radius           float32
	BackstopRadius   float32
	BackstopDistance float32
	Compliance       float32
}

func (p *SkinParams) Lambdas(int) int { return 2 }

func (p *SkinParams) Project(ctx *Context, idx []int32, lambda []float32) {
	i := idx[0]
	w := ctx.InvMass(i)
	if w == 0 {
		return
	}
	x := ctx.Position(i)
	skin := ctx.Particles.SkinPoints[i].Vec3()
	normal := ctx.Particles.SkinNormals[i].Vec3()
	alpha := ctx.Alpha(p.Compliance)

	// Radius: C = |x - s| - r <= 0.
	n, l := flexmath.Normalize(x.Sub(skin))
	if c := l - p.Radius; c > 0 && l > 0 {
		dl := (-c - alpha*lambda[0]) / (w + alpha)
		lambda[0] += dl
		ctx.AddDelta(i, n.Mul(w*dl))
	}

	// Backstop: C = rb - |x - b| <= 0.
	if p.BackstopRadius <= 0 || normal.LenSqr() == 0 {
		return
	}
	center := skin.Sub(normal.Mul(p.BackstopRadius + p.BackstopDistance))
	n, l = flexmath.Normalize(x.Sub(center))
	if c := p.BackstopRadius - l; c > 0 && l > 0 {
		dl := (-c - alpha*lambda[1]) / (w + alpha)
		lambda[1] += dl
		ctx.AddDelta(i, n.Mul(-w*dl))
	}
}

// NewSkinGroup creates an empty group of skin constraints.
func NewSkinGroup() *Group[SkinParams, *SkinParams] {
	return NewGroup[SkinParams, *SkinParams](Skin)
}
