package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/constraints"
)

var (
	colliderColor = rl.Color{R: 120, G: 130, B: 140, A: 255}
	triggerColor  = rl.Color{R: 200, G: 180, B: 60, A: 255}
)

// drawColliders draws every collider of the snapshot in its transform.
func drawColliders(snap *colliders.Snapshot) {
	if snap == nil {
		return
	}
	for _, c := range snap.Colliders {
		col := colliderColor
		if c.Shape.Trigger {
			col = triggerColor
		}
		t := c.Transform
		rl.PushMatrix()
		rl.Translatef(t.Position[0], t.Position[1], t.Position[2])
		if angle, axis := quatAxisAngle(t.Rotation); angle != 0 {
			rl.Rotatef(mgl32.RadToDeg(angle), axis[0], axis[1], axis[2])
		}
		rl.Scalef(t.Scale[0], t.Scale[1], t.Scale[2])
		drawShape(snap, c.Shape, col)
		rl.PopMatrix()
	}
}

func drawShape(snap *colliders.Snapshot, sh colliders.Shape, col rl.Color) {
	center := vec3(sh.Center)
	switch sh.Type {
	case colliders.Sphere:
		rl.DrawSphereWires(center, sh.Size[0], 8, 12, col)
	case colliders.Box:
		size := sh.Size.Mul(2)
		rl.DrawCubeV(center, vec3(size), rl.Fade(col, 0.35))
		rl.DrawCubeWiresV(center, vec3(size), col)
	case colliders.Capsule:
		a := sh.Center.Sub(mgl32.Vec3{0, sh.Size[1], 0})
		b := sh.Center.Add(mgl32.Vec3{0, sh.Size[1], 0})
		rl.DrawCapsuleWires(vec3(a), vec3(b), sh.Size[0], 8, 6, col)
	case colliders.Plane:
		rl.DrawPlane(center, rl.NewVector2(40, 40), rl.Fade(col, 0.25))
	case colliders.TriangleMesh:
		if int(sh.DataIndex) < len(snap.TriangleMeshes) && sh.DataIndex >= 0 {
			m := snap.TriangleMeshes[sh.DataIndex]
			for _, tri := range m.Triangles {
				a, b, c := m.Vertices[tri[0]].Add(sh.Center), m.Vertices[tri[1]].Add(sh.Center), m.Vertices[tri[2]].Add(sh.Center)
				rl.DrawTriangle3D(vec3(a), vec3(b), vec3(c), rl.Fade(col, 0.4))
				rl.DrawLine3D(vec3(a), vec3(b), col)
				rl.DrawLine3D(vec3(b), vec3(c), col)
				rl.DrawLine3D(vec3(c), vec3(a), col)
			}
		}
	case colliders.EdgeMesh:
		if int(sh.DataIndex) < len(snap.EdgeMeshes) && sh.DataIndex >= 0 {
			m := snap.EdgeMeshes[sh.DataIndex]
			for _, e := range m.Edges {
				rl.DrawLine3D(vec3(m.Vertices[e[0]].Add(sh.Center)), vec3(m.Vertices[e[1]].Add(sh.Center)), col)
			}
		}
	case colliders.HeightField:
		drawHeightField(snap, sh, col)
	default:
		// Distance fields draw their bounds only.
		rl.DrawCubeWiresV(center, vec3(sh.Size.Mul(2)), col)
	}
}

func drawHeightField(snap *colliders.Snapshot, sh colliders.Shape, col rl.Color) {
	if sh.DataIndex < 0 || int(sh.DataIndex) >= len(snap.HeightFields) {
		return
	}
	hf := snap.HeightFields[sh.DataIndex]
	if hf.Width < 2 || hf.Depth < 2 {
		return
	}
	dx := sh.Size[0] / float32(hf.Width-1)
	dz := sh.Size[2] / float32(hf.Depth-1)
	point := func(x, z int) rl.Vector3 {
		h := hf.Heights[z*hf.Width+x] * sh.Size[1]
		return vec3(sh.Center.Add(mgl32.Vec3{float32(x) * dx, h, float32(z) * dz}))
	}
	for z := 0; z < hf.Depth; z++ {
		for x := 0; x < hf.Width; x++ {
			if x+1 < hf.Width {
				rl.DrawLine3D(point(x, z), point(x+1, z), col)
			}
			if z+1 < hf.Depth {
				rl.DrawLine3D(point(x, z), point(x, z+1), col)
			}
		}
	}
}

// drawContacts draws contact normals from their surface points.
func drawContacts(contacts []constraints.Contact) {
	for _, c := range contacts {
		p := c.Point
		rl.DrawLine3D(vec3(p), vec3(p.Add(c.Normal.Mul(0.15))), rl.Red)
	}
}

// quatAxisAngle returns the rotation angle in radians and its axis.
func quatAxisAngle(q mgl32.Quat) (float32, mgl32.Vec3) {
	q = q.Normalize()
	s := q.V.Len()
	if s < 1e-6 {
		return 0, mgl32.Vec3{0, 1, 0}
	}
	angle := 2 * float32(math.Atan2(float64(s), float64(q.W)))
	return angle, q.V.Mul(1 / s)
}
