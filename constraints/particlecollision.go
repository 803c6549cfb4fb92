package constraints

import "github.com/pthm-cable/flex/flexmath"

// ParticleCollisionParams keeps two particles from overlapping.
type ParticleCollisionParams struct {
	Contact int32
}

func (p *ParticleCollisionParams) Lambdas(int) int { return 0 }

func (p *ParticleCollisionParams) Project(ctx *Context, idx []int32, _ []float32) {
	c := &ctx.ParticleContacts[p.Contact]
	a, b := idx[0], idx[1]
	wa, wb := ctx.InvMass(a), ctx.InvMass(b)
	w := wa + wb
	if w == 0 {
		return
	}
	n, l := flexmath.Normalize(ctx.Position(a).Sub(ctx.Position(b)))
	if l == 0 {
		return
	}
	c.Normal = n
	c.Distance = l - ctx.Particles.Radius(a) - ctx.Particles.Radius(b)
	if c.Distance >= 0 {
		return
	}
	dl := -c.Distance / w
	next := max(c.NormalLambda+dl, 0)
	dl = next - c.NormalLambda
	c.NormalLambda = next
	ctx.AddDelta(a, n.Mul(wa*dl))
	ctx.AddDelta(b, n.Mul(-wb*dl))
}

// ParticleFrictionParams applies Coulomb friction between two particles in
// contact.
type ParticleFrictionParams struct {
	Contact         int32
	StaticFriction  float32
	DynamicFriction float32
}

func (p *ParticleFrictionParams) Lambdas(int) int { return 0 }

func (p *ParticleFrictionParams) Project(ctx *Context, idx []int32, _ []float32) {
	c := &ctx.ParticleContacts[p.Contact]
	a, b := idx[0], idx[1]
	wa, wb := ctx.InvMass(a), ctx.InvMass(b)
	w := wa + wb
	if w == 0 || c.NormalLambda <= 0 {
		return
	}
	set := ctx.Particles
	da := set.Positions[a].Sub(set.PrevPositions[a]).Vec3()
	db := set.Positions[b].Sub(set.PrevPositions[b]).Vec3()
	rel := da.Sub(db)
	tangent := rel.Sub(c.Normal.Mul(rel.Dot(c.Normal)))
	slip := tangent.Len()
	if slip == 0 {
		return
	}
	normalCorrection := w * c.NormalLambda
	frac := float32(1)
	if slip > p.StaticFriction*normalCorrection {
		frac = min(p.DynamicFriction*normalCorrection/slip, 1)
	}
	corr := tangent.Mul(frac / w)
	ctx.AddDelta(a, corr.Mul(-wa))
	ctx.AddDelta(b, corr.Mul(wb))
}

// NewParticleCollisionGroup creates an empty group of particle contacts.
func NewParticleCollisionGroup() *Group[ParticleCollisionParams, *ParticleCollisionParams] {
	return NewGroup[ParticleCollisionParams, *ParticleCollisionParams](ParticleCollision)
}

// NewParticleFrictionGroup creates an empty group of particle friction constraints.
func NewParticleFrictionGroup() *Group[ParticleFrictionParams, *ParticleFrictionParams] {
	return NewGroup[ParticleFrictionParams, *ParticleFrictionParams](ParticleFriction)
}
