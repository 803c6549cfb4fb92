package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/ui"
)

var selectedColor = rl.Color{R: 255, G: 210, B: 60, A: 255}

// drawFrame draws particles, surfaces and the per-particle overlays.
func (v *Viewer) drawFrame(view View) {
	f := view.Frame
	flat := f.Mode == "2d"

	if len(f.Triangles) > 0 {
		pos := make(map[int32]mgl32.Vec3, len(f.Indices))
		for k, i := range f.Indices {
			pos[i] = f.Pos[k]
		}
		wire := v.overlays.IsEnabled(ui.OverlayWireframe)
		for _, t := range f.Triangles {
			a, okA := pos[t[0]]
			b, okB := pos[t[1]]
			c, okC := pos[t[2]]
			if !okA || !okB || !okC {
				continue
			}
			fill := rl.Color{R: 90, G: 150, B: 210, A: 200}
			rl.DrawTriangle3D(vec3(a), vec3(b), vec3(c), fill)
			rl.DrawTriangle3D(vec3(a), vec3(c), vec3(b), fill)
			if wire {
				rl.DrawLine3D(vec3(a), vec3(b), rl.RayWhite)
				rl.DrawLine3D(vec3(b), vec3(c), rl.RayWhite)
				rl.DrawLine3D(vec3(c), vec3(a), rl.RayWhite)
			}
		}
	}

	aniso := v.overlays.IsEnabled(ui.OverlayAnisotropy) && len(f.Anisotropy) == len(f.Pos)
	vel := v.overlays.IsEnabled(ui.OverlayVelocities) && view.Particles != nil
	normals := v.overlays.IsEnabled(ui.OverlayNormals) && view.Particles != nil
	for k, p := range f.Pos {
		col := color(f.Colors[k])
		if f.Indices[k] == v.selected {
			col = selectedColor
		}
		r := f.Radii[k]
		if flat {
			drawDisc(p, r, col)
		} else if aniso && f.Fluid[k] {
			drawAxes(p, f.Anisotropy[k], col)
		} else {
			rl.DrawSphereEx(vec3(p), r, 6, 8, col)
		}

		i := f.Indices[k]
		if vel && int(i) < len(view.Particles.Velocities) {
			u := view.Particles.Velocities[i].Vec3()
			rl.DrawLine3D(vec3(p), vec3(p.Add(u.Mul(0.05))), rl.Green)
		}
		if normals && int(i) < len(view.Particles.Normals) {
			n := view.Particles.Normals[i].Vec3()
			if n.LenSqr() > 0 {
				rl.DrawLine3D(vec3(p), vec3(p.Add(n.Normalize().Mul(0.2))), rl.SkyBlue)
			}
		}
	}
}

// drawDisc draws a particle in the XY plane.
func drawDisc(p mgl32.Vec3, r float32, col rl.Color) {
	rl.DrawCircle3D(vec3(p), r, rl.NewVector3(1, 0, 0), 0, col)
	rl.DrawCylinder(vec3(p.Sub(mgl32.Vec3{0, 0, 0.005})), r, r, 0.01, 10, col)
}

// drawAxes draws the principal axes of an anisotropic fluid particle.
func drawAxes(p mgl32.Vec3, axes [3]mgl32.Vec3, col rl.Color) {
	for _, a := range axes {
		rl.DrawLine3D(vec3(p.Sub(a)), vec3(p.Add(a)), col)
	}
	rl.DrawPoint3D(vec3(p), col)
}
