package fluid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// ParticleMass returns the mass for fluid particles sampled on a regular
// lattice with the given spacing so that an interior particle sits at the
// rest density. The lattice sum excludes the particle itself, matching the
// neighbour-only density estimate.
func ParticleMass(mode flexmath.Mode, h, spacing, restDensity float32) float32 {
	if h <= 0 || spacing <= 0 || restDensity <= 0 {
		return 0
	}
	kern := flexmath.NewKernel(mode, h)
	n := int(h/spacing) + 1
	zn := n
	if mode == flexmath.Mode2D {
		zn = 0
	}
	var sum float32
	for x := -n; x <= n; x++ {
		for y := -n; y <= n; y++ {
			for z := -zn; z <= zn; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				p := mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(spacing)
				sum += kern.Poly6(p.LenSqr())
			}
		}
	}
	if sum == 0 {
		vol := spacing * spacing
		if mode == flexmath.Mode3D {
			vol *= spacing
		}
		return restDensity * vol
	}
	return restDensity / sum
}
