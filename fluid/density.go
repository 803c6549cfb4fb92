// Package fluid implements the SPH density constraint (position based
// fluids) and the velocity-domain fluid effects.
package fluid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/parallel"
	"github.com/pthm-cable/flex/particles"
	"github.com/pthm-cable/flex/spatial"
)

// Settings are the solver-wide density constraint settings.
type Settings struct {
	// Relaxation is added to the lambda denominator.
	Relaxation float32
	// Artificial pressure (tensile instability correction). TensileK is a
	// density error fraction; it only acts on compressed particles.
	TensileK      float32
	TensileN      float32
	TensileDeltaQ float32
}

// DefaultSettings returns the usual position based fluids values.
func DefaultSettings() Settings {
	return Settings{Relaxation: 1e-6, TensileK: 0.1, TensileN: 4, TensileDeltaQ: 0.2}
}

// Density is the fluid density constraint over all active fluid particles.
// Its passes must run in order: UpdateInteractions, CalculateLambdas,
// ApplyPositionCorrections; velocity passes run after velocities are derived.
type Density struct {
	Mode     flexmath.Mode
	Settings Settings

	grid      *spatial.HashGrid
	fluid     []int32
	kernels   []flexmath.Kernel
	neighbors [][]int32
	scratch   []mgl32.Vec4
	omega     []mgl32.Vec4
	// tensile is the artificial pressure scale per fluid slot, in
	// multiplier units.
	tensile []float32
}

// tensileOnset is the density error below which no artificial pressure is
// applied.
const tensileOnset = 1e-3

// NewDensity creates an empty density constraint.
func NewDensity(mode flexmath.Mode, s Settings) *Density {
	return &Density{Mode: mode, Settings: s, grid: spatial.NewHashGrid(1, mode)}
}

// SetParticles replaces the set of fluid particles.
func (d *Density) SetParticles(indices []int32) {
	d.fluid = append(d.fluid[:0], indices...)
	n := len(d.fluid)
	if cap(d.neighbors) < n {
		grown := make([][]int32, n)
		copy(grown, d.neighbors)
		d.neighbors = grown
		d.kernels = make([]flexmath.Kernel, n)
		d.scratch = make([]mgl32.Vec4, n)
		d.omega = make([]mgl32.Vec4, n)
		d.tensile = make([]float32, n)
	}
	d.neighbors = d.neighbors[:n]
	d.kernels = d.kernels[:n]
	d.scratch = d.scratch[:n]
	d.omega = d.omega[:n]
	d.tensile = d.tensile[:n]
}

// Particles returns the fluid particle indices, in slot order.
func (d *Density) Particles() []int32 { return d.fluid }

// Neighbors returns the neighbours found for fluid slot k.
func (d *Density) Neighbors(k int) []int32 { return d.neighbors[k] }

// Len returns the number of fluid particles.
func (d *Density) Len() int { return len(d.fluid) }

// NeighborCount returns the total number of neighbour pairs.
func (d *Density) NeighborCount() int {
	n := 0
	for _, nb := range d.neighbors {
		n += len(nb)
	}
	return n
}

func mass(set *particles.Set, i int32) float32 {
	if w := set.InvMasses[i]; w > 0 {
		return 1 / w
	}
	return 0
}

// UpdateInteractions rebuilds the neighbour lists from current positions.
func (d *Density) UpdateInteractions(set *particles.Set, pool *parallel.Pool) {
	if len(d.fluid) == 0 {
		return
	}
	var h float32
	for k, i := range d.fluid {
		r := set.FluidMaterials[i].SmoothingRadius
		h = max(h, r)
		d.kernels[k] = flexmath.NewKernel(d.Mode, r)
	}
	if h <= 0 {
		return
	}
	d.grid.SetCellSize(h)
	d.grid.Build(set.Positions, d.fluid)
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			d.neighbors[k] = d.grid.NeighborsInto(d.neighbors[k][:0], set.Positions[i], d.kernels[k].Radius, i)
		}
	})
}

func (d *Density) delta(a, b mgl32.Vec4) mgl32.Vec3 {
	r := a.Sub(b).Vec3()
	if d.Mode == flexmath.Mode2D {
		r[2] = 0
	}
	return r
}

// CalculateLambdas computes the density and the constraint multiplier of
// every fluid particle. Density sums neighbours only, so an isolated
// particle has zero density and a zero (liquid) multiplier.
func (d *Density) CalculateLambdas(set *particles.Set, pool *parallel.Pool) {
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			mat := set.FluidMaterials[i]
			state := &set.FluidData[i]
			kern := d.kernels[k]
			d.tensile[k] = 0
			if mat.RestDensity <= 0 || kern.Radius <= 0 {
				*state = particles.FluidState{}
				continue
			}
			xi := set.Positions[i]

			var rho, sumGrad2 float32
			var gradI mgl32.Vec3
			for _, j := range d.neighbors[k] {
				r := d.delta(xi, set.Positions[j])
				mj := mass(set, j)
				rho += mj * kern.Poly6(r.LenSqr())

				dir, l := flexmath.Normalize(r)
				g := dir.Mul(kern.SpikyGrad(l) * mj / mat.RestDensity)
				gradI = gradI.Add(g)
				sumGrad2 += set.InvMasses[j] * g.LenSqr()
			}
			sumGrad2 += set.InvMasses[i] * gradI.LenSqr()

			c := rho/mat.RestDensity - 1
			if !mat.Gas {
				c = max(c, 0)
			}
			state.Density = rho
			state.Neighbors = int32(len(d.neighbors[k]))
			denom := sumGrad2 + d.Settings.Relaxation
			state.Lambda = -c / denom
			if c > tensileOnset {
				d.tensile[k] = d.Settings.TensileK / denom
			}
		}
	})
}

// ApplyPositionCorrections moves fluid particles along the density gradient
// weighted by the multipliers, with an artificial pressure term.
func (d *Density) ApplyPositionCorrections(set *particles.Set, pool *parallel.Pool, sor float32) {
	s := d.Settings
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			wi := set.InvMasses[i]
			mat := set.FluidMaterials[i]
			kern := d.kernels[k]
			if wi == 0 || mat.RestDensity <= 0 || kern.Radius <= 0 {
				d.scratch[k] = mgl32.Vec4{}
				continue
			}
			wq := kern.Poly6(s.TensileDeltaQ * s.TensileDeltaQ * kern.Radius * kern.Radius)
			xi := set.Positions[i]
			li := set.FluidData[i].Lambda
			mi := mass(set, i)

			var dx mgl32.Vec3
			for _, j := range d.neighbors[k] {
				r := d.delta(xi, set.Positions[j])
				dir, l := flexmath.Normalize(r)
				grad := dir.Mul(kern.SpikyGrad(l))
				var corr float32
				if wq > 0 && d.tensile[k] > 0 {
					ratio := kern.Poly6(r.LenSqr()) / wq
					corr = -d.tensile[k] * pow(ratio, s.TensileN)
				}
				mj := mass(set, j)
				dx = dx.Add(grad.Mul(li*mj + set.FluidData[j].Lambda*mi + corr*mj))
			}
			d.scratch[k] = flexmath.Vec4(dx.Mul(wi / mat.RestDensity))
		}
	})
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			set.Positions[i] = set.Positions[i].Add(d.scratch[k].Mul(sor))
			set.Positions[i][3] = 0
		}
	})
}

func pow(v, n float32) float32 {
	if n == 4 {
		v2 := v * v
		return v2 * v2
	}
	r := float32(1)
	for k := 0; k < int(n); k++ {
		r *= v
	}
	return r
}
