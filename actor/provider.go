package actor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// TransformProvider supplies the world transform of an actor, read once per
// step. Emitters spawn in this frame.
type TransformProvider interface {
	Transform() flexmath.Transform
}

// SkinProvider supplies the animated skin of a skinned actor, one point and
// normal per particle in actor-local order and world space.
type SkinProvider interface {
	Skin(points, normals []mgl32.Vec3)
}

// StaticTransform is a TransformProvider that never moves.
type StaticTransform flexmath.Transform

// Transform implements TransformProvider.
func (s StaticTransform) Transform() flexmath.Transform { return flexmath.Transform(s) }

// TransformFunc adapts a function to a TransformProvider.
type TransformFunc func() flexmath.Transform

// Transform implements TransformProvider.
func (f TransformFunc) Transform() flexmath.Transform { return f() }

// SkinFunc adapts a function to a SkinProvider.
type SkinFunc func(points, normals []mgl32.Vec3)

// Skin implements SkinProvider.
func (f SkinFunc) Skin(points, normals []mgl32.Vec3) { f(points, normals) }
