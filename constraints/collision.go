package constraints

// CollisionParams resolves one particle-collider contact. Contact indexes
// Context.Contacts; its surface is refreshed against the current position on
// every projection so the contact stays accurate through the substep.
type CollisionParams struct {
	Contact int32
}

func (p *CollisionParams) Lambdas(int) int { return 0 }

func (p *CollisionParams) Project(ctx *Context, idx []int32, _ []float32) {
	c := &ctx.Contacts[p.Contact]
	i := idx[0]
	w := ctx.InvMass(i)
	if w == 0 {
		return
	}
	x := ctx.Position(i)
	s := ctx.Colliders.Closest(int(c.Collider), x)
	c.Point, c.Normal = s.Point, s.Normal
	c.Distance = s.Distance - ctx.Particles.Radius(i)
	if c.Distance >= 0 {
		return
	}
	// Inequality: the accumulated multiplier never pulls.
	dl := -c.Distance / w
	next := max(c.NormalLambda+dl, 0)
	dl = next - c.NormalLambda
	c.NormalLambda = next
	ctx.AddDelta(i, c.Normal.Mul(w*dl))
}

// FrictionParams applies Coulomb friction to a particle-collider contact
// using the normal multiplier accumulated by its collision constraint.
type FrictionParams struct {
	Contact         int32
	StaticFriction  float32
	DynamicFriction float32
}

func (p *FrictionParams) Lambdas(int) int { return 0 }

func (p *FrictionParams) Project(ctx *Context, idx []int32, _ []float32) {
	c := &ctx.Contacts[p.Contact]
	i := idx[0]
	w := ctx.InvMass(i)
	if w == 0 || c.NormalLambda <= 0 {
		return
	}
	set := ctx.Particles
	dx := set.Positions[i].Sub(set.PrevPositions[i]).Vec3()
	dx = dx.Sub(ctx.Colliders.VelocityAt(int(c.Collider), c.Point).Mul(ctx.SubstepTime))
	tangent := dx.Sub(c.Normal.Mul(dx.Dot(c.Normal)))
	slip := tangent.Len()
	if slip == 0 {
		return
	}
	normalCorrection := w * c.NormalLambda
	frac := float32(1)
	if slip > p.StaticFriction*normalCorrection {
		frac = min(p.DynamicFriction*normalCorrection/slip, 1)
	}
	ctx.AddDelta(i, tangent.Mul(-frac))
}

// NewCollisionGroup creates an empty group of collider contacts.
func NewCollisionGroup() *Group[CollisionParams, *CollisionParams] {
	return NewGroup[CollisionParams, *CollisionParams](Collision)
}

// NewFrictionGroup creates an empty group of collider friction constraints.
func NewFrictionGroup() *Group[FrictionParams, *FrictionParams] {
	return NewGroup[FrictionParams, *FrictionParams](Friction)
}
