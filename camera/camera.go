// Package camera provides the orbit camera of the viewer.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera orbits a target point. Yaw turns around the world Y axis and
// pitch tilts above or below the horizon.
type Camera struct {
	Target   mgl32.Vec3
	Yaw      float32 // radians
	Pitch    float32 // radians
	Distance float32
	FovY     float32 // degrees

	// Distance constraints
	MinDistance, MaxDistance float32

	// Ortho views straight down -Z for 2D solvers.
	Ortho bool
}

// maxPitch keeps the camera off the poles where the up vector flips.
const maxPitch = math.Pi/2 - 0.01

// New creates a camera looking at target from distance.
func New(target mgl32.Vec3, distance float32) *Camera {
	c := &Camera{
		Target:      target,
		Yaw:         math.Pi / 4,
		Pitch:       0.35,
		Distance:    distance,
		FovY:        45,
		MinDistance: 0.5,
		MaxDistance: 200,
	}
	c.SetDistance(distance)
	return c
}

// New2D creates an orthographic camera for the XY plane.
func New2D(target mgl32.Vec3, distance float32) *Camera {
	c := New(target, distance)
	c.Yaw, c.Pitch = 0, 0
	c.Ortho = true
	return c
}

// Position returns the eye position in world space.
func (c *Camera) Position() mgl32.Vec3 {
	if c.Ortho {
		return c.Target.Add(mgl32.Vec3{0, 0, c.Distance})
	}
	sy, cy := math.Sincos(float64(c.Yaw))
	sp, cp := math.Sincos(float64(c.Pitch))
	offset := mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)}
	return c.Target.Add(offset.Mul(c.Distance))
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position()).Normalize()
}

// Right returns the unit screen right direction.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

// Up returns the unit screen up direction.
func (c *Camera) Up() mgl32.Vec3 {
	return c.Right().Cross(c.Forward())
}

// Orbit turns the camera by the given angles. 2D cameras do not orbit.
func (c *Camera) Orbit(dyaw, dpitch float32) {
	if c.Ortho {
		return
	}
	c.Yaw = wrapAngle(c.Yaw + dyaw)
	c.Pitch = clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

// Pan moves the target in the view plane. dx and dy are fractions of the
// distance.
func (c *Camera) Pan(dx, dy float32) {
	delta := c.Right().Mul(dx * c.Distance).Add(c.Up().Mul(dy * c.Distance))
	c.Target = c.Target.Add(delta)
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the distance by factor; factors above one move closer.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Frame centres the camera on the box [lo, hi] and backs off until the
// box's bounding sphere fits the vertical field of view.
func (c *Camera) Frame(lo, hi mgl32.Vec3) {
	c.Target = lo.Add(hi).Mul(0.5)
	r := hi.Sub(lo).Len() / 2
	if r == 0 {
		return
	}
	half := float64(mgl32.DegToRad(c.FovY)) / 2
	c.SetDistance(r / float32(math.Sin(half)))
}

// OrthoHeight returns the visible world height of a 2D camera.
func (c *Camera) OrthoHeight() float32 {
	return 2 * c.Distance * float32(math.Tan(float64(mgl32.DegToRad(c.FovY))/2))
}

// wrapAngle wraps a to [-pi, pi].
func wrapAngle(a float32) float32 {
	r := float32(math.Remainder(float64(a), 2*math.Pi))
	return r
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
