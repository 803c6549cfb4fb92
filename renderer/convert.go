package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/camera"
)

func vec3(v mgl32.Vec3) rl.Vector3 { return rl.NewVector3(v[0], v[1], v[2]) }

func fromVec3(v rl.Vector3) mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

// color converts a linear RGBA colour in [0, 1].
func color(c mgl32.Vec4) rl.Color {
	if c == (mgl32.Vec4{}) {
		return rl.Color{R: 220, G: 220, B: 220, A: 255}
	}
	to := func(v float32) uint8 { return uint8(min(max(v, 0), 1) * 255) }
	return rl.Color{R: to(c[0]), G: to(c[1]), B: to(c[2]), A: to(c[3])}
}

// camera3D converts the orbit camera for raylib.
func camera3D(c *camera.Camera) rl.Camera3D {
	cam := rl.Camera3D{
		Position:   vec3(c.Position()),
		Target:     vec3(c.Target),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       c.FovY,
		Projection: rl.CameraPerspective,
	}
	if c.Ortho {
		cam.Fovy = c.OrthoHeight()
		cam.Projection = rl.CameraOrthographic
	}
	return cam
}
