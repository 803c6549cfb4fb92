package constraints

import "github.com/pthm-cable/flex/coloring"

// Source is authored constraint data that can be merged into a container.
type Source interface {
	Type() Type
	Len() int
	Colorize()
	// MergeInto appends the constraints to c, one batch per color, mapping
	// local particle indices through remap (nil keeps them as is).
	MergeInto(c *Container, remap []int32)
}

// Group holds the authored constraints of one type for one actor, in
// actor-local particle indices.
type Group[P any, PP Projector[P]] struct {
	typ        Type
	Particles  []int32
	Offsets    []int32
	Params     []P
	Colors     []int32
	ColorCount int
}

// NewGroup creates an empty group of type t.
func NewGroup[P any, PP Projector[P]](t Type) *Group[P, PP] {
	return &Group[P, PP]{typ: t, Offsets: []int32{0}}
}

// Type returns the constraint type.
func (g *Group[P, PP]) Type() Type { return g.typ }

// Len returns the number of constraints.
func (g *Group[P, PP]) Len() int { return len(g.Params) }

// Add appends a constraint over the given particles and returns its index.
func (g *Group[P, PP]) Add(p P, particles ...int32) int {
	g.Params = append(g.Params, p)
	g.Particles = append(g.Particles, particles...)
	g.Offsets = append(g.Offsets, int32(len(g.Particles)))
	g.Colors = nil
	return len(g.Params) - 1
}

// Reset removes every constraint, keeping storage.
func (g *Group[P, PP]) Reset() {
	g.Particles = g.Particles[:0]
	g.Offsets = g.Offsets[:1]
	g.Params = g.Params[:0]
	g.Colors = nil
	g.ColorCount = 0
}

// Tuple returns the particles of constraint c.
func (g *Group[P, PP]) Tuple(c int) []int32 {
	return g.Particles[g.Offsets[c]:g.Offsets[c+1]]
}

// Colorize assigns every constraint to a batch.
func (g *Group[P, PP]) Colorize() {
	g.Colors, g.ColorCount = coloring.Color(g.Particles, g.Offsets)
}

// MergeInto appends the constraints to c by color.
func (g *Group[P, PP]) MergeInto(c *Container, remap []int32) {
	if len(g.Colors) != len(g.Params) {
		g.Colorize()
	}
	var scratch []int32
	for i := range g.Params {
		b := batchAt[P, PP](c, int(g.Colors[i]))
		tuple := g.Tuple(i)
		if remap != nil {
			scratch = scratch[:0]
			for _, p := range tuple {
				scratch = append(scratch, remap[p])
			}
			tuple = scratch
		}
		b.appendFrom(g, int32(i), g.Params[i], tuple)
	}
}

func batchAt[P any, PP Projector[P]](c *Container, k int) *Batch[P, PP] {
	for len(c.batches) <= k {
		c.batches = append(c.batches, NewBatch[P, PP]())
	}
	c.used = max(c.used, k+1)
	return c.batches[k].(*Batch[P, PP])
}
