package flexmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/integrate/quad"
)

func TestKernelsIntegrateToOne(t *testing.T) {
	const h = 0.7
	tests := []struct {
		name string
		mode Mode
		f    func(k Kernel, r float32) float32
	}{
		{"poly6 3d", Mode3D, func(k Kernel, r float32) float32 { return k.Poly6(r * r) }},
		{"spiky 3d", Mode3D, func(k Kernel, r float32) float32 { return k.Spiky(r) }},
		{"poly6 2d", Mode2D, func(k Kernel, r float32) float32 { return k.Poly6(r * r) }},
		{"spiky 2d", Mode2D, func(k Kernel, r float32) float32 { return k.Spiky(r) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewKernel(tt.mode, h)
			integrand := func(r float64) float64 {
				w := float64(tt.f(k, float32(r)))
				if tt.mode == Mode2D {
					return 2 * math.Pi * r * w
				}
				return 4 * math.Pi * r * r * w
			}
			got := quad.Fixed(integrand, 0, h, 200, nil, 0)
			assert.InDelta(t, 1.0, got, 1e-3)
		})
	}
}

func TestKernelsVanishOutsideRadius(t *testing.T) {
	for _, mode := range []Mode{Mode2D, Mode3D} {
		k := NewKernel(mode, 1)
		assert.Zero(t, k.Poly6(1))
		assert.Zero(t, k.Poly6(2))
		assert.Zero(t, k.Spiky(1))
		assert.Zero(t, k.SpikyGrad(1.5))
		assert.Less(t, k.SpikyGrad(0.5), float32(0))
	}
}

func TestKernelMatchesClosedForm(t *testing.T) {
	h, r := 1.0, 0.5
	want := 315 / (64 * math.Pi * math.Pow(h, 9)) * math.Pow(h*h-r*r, 3)
	assert.InDelta(t, want, float64(Poly6At(Mode3D, float32(r), float32(h))), 1e-5)
	want = 10 / (math.Pi * math.Pow(h, 5)) * math.Pow(h-r, 3)
	assert.InDelta(t, want, float64(SpikyAt(Mode2D, float32(r), float32(h))), 1e-5)
}
