package constraints

import "slices"

// Projector is implemented by the pointer to a constraint parameter type.
// Project computes the corrections of one constraint over its particle tuple
// and accumulates them; it must not write positions directly.
type Projector[P any] interface {
	*P
	// Lambdas returns how many Lagrange multipliers a constraint over n
	// particles needs.
	Lambdas(n int) int
	Project(ctx *Context, idx []int32, lambdas []float32)
}

// Batcher is the type-erased view of a batch held by a Container.
type Batcher interface {
	Len() int
	Touched() []int32
	Evaluate(ctx *Context)
	Apply(ctx *Context, sor float32)
	ResetLambdas()

	reset()
	finalize()
	writeBack()
}

// Batch is a set of constraints of one type, no two of which share a
// particle, so they can be projected concurrently.
type Batch[P any, PP Projector[P]] struct {
	Particles     []int32
	Offsets       []int32
	Params        []P
	Lambdas       []float32
	LambdaOffsets []int32

	touched []int32
	// owners records the group and index each constraint was merged from,
	// so runtime changes to its parameters survive a re-merge.
	owners     []*Group[P, PP]
	ownerIndex []int32
}

// NewBatch creates an empty batch.
func NewBatch[P any, PP Projector[P]]() *Batch[P, PP] {
	return &Batch[P, PP]{Offsets: []int32{0}, LambdaOffsets: []int32{0}}
}

// Len returns the number of constraints.
func (b *Batch[P, PP]) Len() int { return len(b.Params) }

// Touched returns the unique particles referenced by the batch.
func (b *Batch[P, PP]) Touched() []int32 { return b.touched }

// Tuple returns the particles of constraint c.
func (b *Batch[P, PP]) Tuple(c int) []int32 {
	return b.Particles[b.Offsets[c]:b.Offsets[c+1]]
}

// Append adds a constraint. Call finalize (via Container.Finalize) before use.
func (b *Batch[P, PP]) Append(p P, particles []int32) {
	b.appendFrom(nil, -1, p, particles)
}

func (b *Batch[P, PP]) appendFrom(g *Group[P, PP], index int32, p P, particles []int32) {
	b.Params = append(b.Params, p)
	b.Particles = append(b.Particles, particles...)
	b.Offsets = append(b.Offsets, int32(len(b.Particles)))
	b.owners = append(b.owners, g)
	b.ownerIndex = append(b.ownerIndex, index)
}

// writeBack copies the current parameters into the groups they were merged
// from.
func (b *Batch[P, PP]) writeBack() {
	for c, g := range b.owners {
		if g == nil {
			continue
		}
		if k := int(b.ownerIndex[c]); k < len(g.Params) {
			g.Params[k] = b.Params[c]
		}
	}
}

func (b *Batch[P, PP]) reset() {
	b.Particles = b.Particles[:0]
	b.Offsets = b.Offsets[:1]
	b.Params = b.Params[:0]
	b.Lambdas = b.Lambdas[:0]
	b.LambdaOffsets = b.LambdaOffsets[:1]
	b.touched = b.touched[:0]
	clear(b.owners)
	b.owners = b.owners[:0]
	b.ownerIndex = b.ownerIndex[:0]
}

func (b *Batch[P, PP]) finalize() {
	b.LambdaOffsets = b.LambdaOffsets[:1]
	total := int32(0)
	for c := range b.Params {
		total += int32(PP(&b.Params[c]).Lambdas(int(b.Offsets[c+1] - b.Offsets[c])))
		b.LambdaOffsets = append(b.LambdaOffsets, total)
	}
	if cap(b.Lambdas) < int(total) {
		b.Lambdas = make([]float32, total)
	}
	b.Lambdas = b.Lambdas[:total]
	clear(b.Lambdas)

	b.touched = append(b.touched[:0], b.Particles...)
	slices.Sort(b.touched)
	b.touched = slices.Compact(b.touched)
}

// ResetLambdas zeroes the accumulated multipliers.
func (b *Batch[P, PP]) ResetLambdas() {
	clear(b.Lambdas)
}

// Evaluate projects every constraint, accumulating corrections into the
// shared delta buffers.
func (b *Batch[P, PP]) Evaluate(ctx *Context) {
	ctx.Pool.For(len(b.Params), func(start, end, _ int) {
		for c := start; c < end; c++ {
			PP(&b.Params[c]).Project(ctx, b.Tuple(c), b.Lambdas[b.LambdaOffsets[c]:b.LambdaOffsets[c+1]])
		}
	})
}

// Apply writes back the averaged corrections of the touched particles.
func (b *Batch[P, PP]) Apply(ctx *Context, sor float32) {
	applyTouched(ctx, b.touched, sor)
}

func applyTouched(ctx *Context, touched []int32, sor float32) {
	set := ctx.Particles
	ctx.Pool.For(len(touched), func(start, end, _ int) {
		for _, i := range touched[start:end] {
			set.ApplyDelta(i, sor)
		}
	})
}
