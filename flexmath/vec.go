// Package flexmath provides the vector, kernel and geometry primitives used by
// the particle solver.
package flexmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the smallest length treated as non-degenerate.
const Epsilon = 1e-7

// Mode selects the dimensionality of the simulation.
type Mode uint8

const (
	Mode3D Mode = iota
	Mode2D
)

// String returns the config name of the mode.
func (m Mode) String() string {
	if m == Mode2D {
		return "2d"
	}
	return "3d"
}

// ParseMode parses "2d" or "3d". Anything else yields Mode3D.
func ParseMode(s string) Mode {
	if s == "2d" || s == "2D" {
		return Mode2D
	}
	return Mode3D
}

// Normalize returns v/|v| and |v|. Zero-length vectors yield a zero vector.
func Normalize(v mgl32.Vec3) (mgl32.Vec3, float32) {
	l := v.Len()
	if l < Epsilon {
		return mgl32.Vec3{}, 0
	}
	return v.Mul(1 / l), l
}

// Vec4 extends v with w = 0.
func Vec4(v mgl32.Vec3) mgl32.Vec4 {
	return mgl32.Vec4{v[0], v[1], v[2], 0}
}

// Project2D zeroes the z component in 2D mode.
func (m Mode) Project2D(v mgl32.Vec4) mgl32.Vec4 {
	if m == Mode2D {
		v[2] = 0
	}
	return v
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp4 linearly interpolates between a and b.
func Lerp4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

// ClampLength scales v down so that |v| <= maxLen. maxLen <= 0 disables the clamp.
func ClampLength(v mgl32.Vec4, maxLen float32) mgl32.Vec4 {
	if maxLen <= 0 {
		return v
	}
	l2 := v.LenSqr()
	if l2 > maxLen*maxLen {
		return v.Mul(maxLen / float32(math.Sqrt(float64(l2))))
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl32.Vec4) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// MinVec returns the component-wise minimum.
func MinVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

// MaxVec returns the component-wise maximum.
func MaxVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

// MulVec returns the component-wise product.
func MulVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// Sqrt is a float32 square root.
func Sqrt(v float32) float32 {
	return sqrt32(v)
}
