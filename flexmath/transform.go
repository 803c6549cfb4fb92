package flexmath

import "github.com/go-gl/mathgl/mgl32"

// Transform is a translation, rotation and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Translation returns an unrotated, unscaled transform at p.
func Translation(p mgl32.Vec3) Transform {
	t := Identity()
	t.Position = p
	return t
}

func (t Transform) scale() mgl32.Vec3 {
	if t.Scale == (mgl32.Vec3{}) {
		return mgl32.Vec3{1, 1, 1}
	}
	return t.Scale
}

func (t Transform) rotation() mgl32.Quat {
	if t.Rotation == (mgl32.Quat{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

// TransformPoint maps a local point to world space.
func (t Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return t.rotation().Rotate(MulVec(p, t.scale())).Add(t.Position)
}

// InverseTransformPoint maps a world point to local space.
func (t Transform) InverseTransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	s := t.scale()
	l := t.rotation().Conjugate().Rotate(p.Sub(t.Position))
	return mgl32.Vec3{l[0] / s[0], l[1] / s[1], l[2] / s[2]}
}

// TransformDirection rotates a local direction to world space.
func (t Transform) TransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	return t.rotation().Rotate(d)
}

// InverseTransformDirection rotates a world direction to local space.
func (t Transform) InverseTransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	return t.rotation().Conjugate().Rotate(d)
}

// UniformScale returns the largest absolute scale component.
func (t Transform) UniformScale() float32 {
	s := t.scale()
	return max(abs32(s[0]), abs32(s[1]), abs32(s[2]))
}

// LerpTransform interpolates position and scale linearly and rotation with nlerp.
func LerpTransform(a, b Transform, f float32) Transform {
	return Transform{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(f)),
		Rotation: mgl32.QuatNlerp(a.rotation(), b.rotation(), f),
		Scale:    a.scale().Add(b.scale().Sub(a.scale()).Mul(f)),
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
