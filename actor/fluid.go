package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/fluid"
	"github.com/pthm-cable/flex/particles"
)

// FluidSettings describes a block of fluid particles on a regular lattice.
type FluidSettings struct {
	Mode     flexmath.Mode
	Origin   mgl32.Vec3
	Count    [3]int
	Spacing  float32
	Material particles.FluidMaterial
	Color    mgl32.Vec4
}

// DefaultFluidSettings returns a 10x10x10 block of water.
func DefaultFluidSettings() FluidSettings {
	return FluidSettings{
		Origin:  mgl32.Vec3{-0.5, 0.5, -0.5},
		Count:   [3]int{10, 10, 10},
		Spacing: 0.1,
		Material: particles.FluidMaterial{
			SmoothingRadius: 0.2,
			RestDensity:     1000,
			Viscosity:       0.05,
		},
		Color: mgl32.Vec4{0.2, 0.5, 1, 1},
	}
}

// FluidBlock builds a fluid blueprint. Particle mass is chosen so that an
// interior particle sits at the rest density.
func FluidBlock(s FluidSettings) (*Blueprint, error) {
	if s.Spacing <= 0 || s.Material.RestDensity <= 0 || s.Material.SmoothingRadius <= 0 {
		return nil, fmt.Errorf("fluid: spacing %v, rest density %v, smoothing radius %v",
			s.Spacing, s.Material.RestDensity, s.Material.SmoothingRadius)
	}
	nz := s.Count[2]
	if s.Mode == flexmath.Mode2D {
		nz = 1
	}
	m := fluid.ParticleMass(s.Mode, s.Material.SmoothingRadius, s.Spacing, s.Material.RestDensity)
	r := s.Spacing * 0.5
	b := NewBlueprint("fluid", KindFluid)
	for z := 0; z < nz; z++ {
		for y := 0; y < s.Count[1]; y++ {
			for x := 0; x < s.Count[0]; x++ {
				idx := b.AddParticle(Particle{
					Position: s.Origin.Add(mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(s.Spacing)),
					InvMass:  invMass(m),
					Radius:   mgl32.Vec3{r, r, r},
					Phase:    particles.Fluid,
					Color:    s.Color,
					Fluid:    s.Material,
				})
				b.Points = append(b.Points, idx)
			}
		}
	}
	if len(b.Particles) == 0 {
		return nil, fmt.Errorf("fluid: empty block %v", s.Count)
	}
	return b, nil
}
