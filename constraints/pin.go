package constraints

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// PinParams attaches a particle to a point in a collider's frame.
type PinParams struct {
	Collider int32
	Offset   mgl32.Vec3
	// RestOrientation is the particle orientation relative to the collider.
	RestOrientation      mgl32.Quat
	Compliance           float32
	RotationalCompliance float32
	// BreakThreshold is the force above which the pin detaches; zero never breaks.
	BreakThreshold float32
	Broken         bool
}

func (p *PinParams) Lambdas(int) int { return 1 }

func (p *PinParams) Project(ctx *Context, idx []int32, lambda []float32) {
	i := idx[0]
	if p.Broken || p.Collider < 0 || int(p.Collider) >= ctx.Colliders.Len() {
		return
	}
	col := ctx.Colliders.Colliders[p.Collider]
	w := ctx.InvMass(i)
	if w > 0 {
		target := col.Transform.TransformPoint(p.Offset)
		n, l := flexmath.Normalize(ctx.Position(i).Sub(target))
		if l > 0 {
			alpha := ctx.Alpha(p.Compliance)
			dl := (-l - alpha*lambda[0]) / (w + alpha)
			lambda[0] += dl
			ctx.AddDelta(i, n.Mul(w*dl))

			if p.BreakThreshold > 0 && ctx.SubstepTime > 0 {
				force := -lambda[0] / (w * ctx.SubstepTime * ctx.SubstepTime)
				if force > p.BreakThreshold {
					p.Broken = true
					ctx.ReportBreak(PinBreak{Particle: i, Collider: p.Collider, Force: force})
					return
				}
			}
		}
	}

	wr := ctx.Particles.InvRotationalMasses[i]
	if wr <= 0 || flexmath.QuatIsZero(p.RestOrientation) {
		return
	}
	rot := col.Transform.Rotation
	if flexmath.QuatIsZero(rot) {
		rot = mgl32.QuatIdent()
	}
	target := rot.Mul(p.RestOrientation)
	q := ctx.Particles.Orientations[i]
	if q.Dot(target) < 0 {
		target = target.Scale(-1)
	}
	alpha := ctx.Alpha(p.RotationalCompliance)
	ctx.AddOrientationDelta(i, target.Sub(q).Scale(wr/(wr+alpha)))
}

// NewPinGroup creates an empty group of pin constraints.
func NewPinGroup() *Group[PinParams, *PinParams] {
	return NewGroup[PinParams, *PinParams](Pin)
}
