package constraints

import (
	"slices"
)

// Container owns the batches of one constraint type, in color order.
type Container struct {
	Type   Type
	Params Parameters

	batches []Batcher
	used    int
	touched []int32
}

// NewContainer creates an empty container with default parameters.
func NewContainer(t Type) *Container {
	return &Container{Type: t, Params: DefaultParameters()}
}

// Batches returns the active batches in color order.
func (c *Container) Batches() []Batcher { return c.batches[:c.used] }

// Len returns the total constraint count.
func (c *Container) Len() int {
	n := 0
	for _, b := range c.Batches() {
		n += b.Len()
	}
	return n
}

// Reset empties every batch, keeping allocations for the next merge.
func (c *Container) Reset() {
	for _, b := range c.batches {
		b.reset()
	}
	c.used = 0
	c.touched = c.touched[:0]
}

// WriteBack stores the runtime state of merged constraints (broken pins,
// plastic rest shapes) back into the groups they came from. Call it before
// Reset when the container is about to be re-merged.
func (c *Container) WriteBack() {
	for _, b := range c.Batches() {
		b.writeBack()
	}
}

// Finalize prepares the batches after merging: multiplier storage and the
// touched particle lists.
func (c *Container) Finalize() {
	c.touched = c.touched[:0]
	for _, b := range c.Batches() {
		b.finalize()
		c.touched = append(c.touched, b.Touched()...)
	}
	slices.Sort(c.touched)
	c.touched = slices.Compact(c.touched)
}

// ResetLambdas zeroes the multipliers of every batch.
func (c *Container) ResetLambdas() {
	for _, b := range c.Batches() {
		b.ResetLambdas()
	}
}

// Solve projects the container for one substep. Batches run sequentially
// in color order; constraints within a batch run on the pool.
func (c *Container) Solve(ctx *Context) {
	if !c.Params.Enabled || c.used == 0 {
		return
	}
	sor := c.Params.SORFactor
	if sor <= 0 {
		sor = 1
	}
	iterations := max(c.Params.Iterations, 1)
	for it := 0; it < iterations; it++ {
		if c.Params.Evaluation == Parallel {
			for _, b := range c.Batches() {
				b.Evaluate(ctx)
			}
			applyTouched(ctx, c.touched, sor)
			continue
		}
		for _, b := range c.Batches() {
			b.Evaluate(ctx)
			b.Apply(ctx, sor)
		}
	}
}
