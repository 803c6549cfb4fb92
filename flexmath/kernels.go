package flexmath

import "math"

// Kernel evaluates the SPH smoothing kernels for one smoothing radius.
// Coefficients are computed once per radius.
type Kernel struct {
	Mode   Mode
	Radius float32

	h2        float32
	poly6     float32
	spiky     float32
	spikyGrad float32
}

// NewKernel precomputes the kernel coefficients for radius h.
func NewKernel(mode Mode, h float32) Kernel {
	k := Kernel{Mode: mode, Radius: h, h2: h * h}
	hd := float64(h)
	if mode == Mode2D {
		k.poly6 = float32(4 / (math.Pi * math.Pow(hd, 8)))
		k.spiky = float32(10 / (math.Pi * math.Pow(hd, 5)))
		k.spikyGrad = float32(-30 / (math.Pi * math.Pow(hd, 5)))
	} else {
		k.poly6 = float32(315 / (64 * math.Pi * math.Pow(hd, 9)))
		k.spiky = float32(15 / (math.Pi * math.Pow(hd, 6)))
		k.spikyGrad = float32(-45 / (math.Pi * math.Pow(hd, 6)))
	}
	return k
}

// Poly6 evaluates the density kernel for squared distance r2.
func (k Kernel) Poly6(r2 float32) float32 {
	if r2 >= k.h2 || r2 < 0 {
		return 0
	}
	d := k.h2 - r2
	return k.poly6 * d * d * d
}

// Spiky evaluates the pressure kernel at distance r.
func (k Kernel) Spiky(r float32) float32 {
	if r >= k.Radius || r < 0 {
		return 0
	}
	d := k.Radius - r
	return k.spiky * d * d * d
}

// SpikyGrad returns the radial derivative of the spiky kernel at distance r.
// The value is non-positive; multiply by the unit direction to get the gradient.
func (k Kernel) SpikyGrad(r float32) float32 {
	if r >= k.Radius || r < 0 {
		return 0
	}
	d := k.Radius - r
	return k.spikyGrad * d * d
}

// Poly6At is the stateless form of Kernel.Poly6.
func Poly6At(mode Mode, r, h float32) float32 {
	return NewKernel(mode, h).Poly6(r * r)
}

// SpikyAt is the stateless form of Kernel.Spiky.
func SpikyAt(mode Mode, r, h float32) float32 {
	return NewKernel(mode, h).Spiky(r)
}
