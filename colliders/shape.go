// Package colliders is the collider world consumed by the solver: shapes,
// transforms, materials and mesh data, published once per step as an
// immutable snapshot.
package colliders

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// ShapeType identifies the geometry of a collider.
type ShapeType uint8

const (
	Sphere ShapeType = iota
	Box
	Capsule
	Plane
	HeightField
	TriangleMesh
	EdgeMesh
	DistanceField
)

var shapeNames = [...]string{"sphere", "box", "capsule", "plane", "heightfield", "trianglemesh", "edgemesh", "distancefield"}

func (t ShapeType) String() string {
	if int(t) < len(shapeNames) {
		return shapeNames[t]
	}
	return "unknown"
}

// Shape describes one collider in its local frame.
//
// Size is interpreted per type: sphere radius in X; box half extents;
// capsule radius in X and half height (along local Y) in Y; height field
// extents in X and Z with the height scale in Y. Planes face local +Y.
type Shape struct {
	Type      ShapeType
	Center    mgl32.Vec3
	Size      mgl32.Vec3
	DataIndex int32 // mesh, height field or distance field index
	// MaterialIndex and RigidbodyIndex are -1 when unset.
	MaterialIndex  int32
	RigidbodyIndex int32
	Filter         uint32
	ContactOffset  float32
	Trigger        bool
}

// CollisionMaterial holds contact response parameters.
type CollisionMaterial struct {
	StaticFriction  float32
	DynamicFriction float32
	Stickiness      float32
	StickDistance   float32
}

// DefaultMaterial is used by colliders without a material.
var DefaultMaterial = CollisionMaterial{StaticFriction: 0.3, DynamicFriction: 0.3}

// Rigidbody is the kinematic state of a moving collider.
type Rigidbody struct {
	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3
	CenterOfMass    mgl32.Vec3
	InvMass         float32
	Kinematic       bool
}

// VelocityAt returns the velocity of the body at world point p.
func (r Rigidbody) VelocityAt(p mgl32.Vec3) mgl32.Vec3 {
	return r.Velocity.Add(r.AngularVelocity.Cross(p.Sub(r.CenterOfMass)))
}

// TriangleMeshData is an indexed triangle mesh in collider-local space.
type TriangleMeshData struct {
	Vertices  []mgl32.Vec3
	Triangles [][3]int32
}

// EdgeMeshData is an indexed edge list in collider-local space.
type EdgeMeshData struct {
	Vertices []mgl32.Vec3
	Edges    [][2]int32
}

// DistanceFieldData is a sampled signed distance field on a regular grid.
type DistanceFieldData struct {
	Min      mgl32.Vec3
	CellSize float32
	Dims     [3]int
	Values   []float32 // x fastest, then y, then z
}

// HeightFieldData is a grid of normalized heights, Width samples along X and
// Depth samples along Z.
type HeightFieldData struct {
	Width, Depth int
	Heights      []float32
}

// Surface is the result of a closest-point query against a collider.
type Surface struct {
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32 // signed, negative inside
}

func scaled(t flexmath.Transform) mgl32.Vec3 {
	if t.Scale == (mgl32.Vec3{}) {
		return mgl32.Vec3{1, 1, 1}
	}
	return mgl32.Vec3{abs(t.Scale[0]), abs(t.Scale[1]), abs(t.Scale[2])}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sphereLocal(p mgl32.Vec3, r float32) Surface {
	n, l := flexmath.Normalize(p)
	if l == 0 {
		n = mgl32.Vec3{0, 1, 0}
	}
	return Surface{Point: n.Mul(r), Normal: n, Distance: l - r}
}

func boxLocal(p, h mgl32.Vec3) Surface {
	q := mgl32.Vec3{abs(p[0]) - h[0], abs(p[1]) - h[1], abs(p[2]) - h[2]}
	if q[0] > 0 || q[1] > 0 || q[2] > 0 {
		c := mgl32.Vec3{
			flexmath.Clamp(p[0], -h[0], h[0]),
			flexmath.Clamp(p[1], -h[1], h[1]),
			flexmath.Clamp(p[2], -h[2], h[2]),
		}
		n, l := flexmath.Normalize(p.Sub(c))
		return Surface{Point: c, Normal: n, Distance: l}
	}
	axis := 0
	if q[1] > q[axis] {
		axis = 1
	}
	if q[2] > q[axis] {
		axis = 2
	}
	c := p
	var n mgl32.Vec3
	if p[axis] < 0 {
		c[axis] = -h[axis]
		n[axis] = -1
	} else {
		c[axis] = h[axis]
		n[axis] = 1
	}
	return Surface{Point: c, Normal: n, Distance: q[axis]}
}

func capsuleLocal(p mgl32.Vec3, r, hh float32) Surface {
	a := mgl32.Vec3{0, -hh, 0}
	b := mgl32.Vec3{0, hh, 0}
	c, _ := flexmath.ClosestOnSegment(p, a, b)
	s := sphereLocal(p.Sub(c), r)
	s.Point = s.Point.Add(c)
	return s
}

func planeLocal(p mgl32.Vec3) Surface {
	return Surface{Point: mgl32.Vec3{p[0], 0, p[2]}, Normal: mgl32.Vec3{0, 1, 0}, Distance: p[1]}
}

func (d *HeightFieldData) sample(x, z int) float32 {
	x = min(max(x, 0), d.Width-1)
	z = min(max(z, 0), d.Depth-1)
	return d.Heights[z*d.Width+x]
}

// heightAt returns the bilinear height at normalized grid coordinates.
func (d *HeightFieldData) heightAt(gx, gz float32) float32 {
	x0 := int(gx)
	z0 := int(gz)
	fx := gx - float32(x0)
	fz := gz - float32(z0)
	h00 := d.sample(x0, z0)
	h10 := d.sample(x0+1, z0)
	h01 := d.sample(x0, z0+1)
	h11 := d.sample(x0+1, z0+1)
	return (h00*(1-fx)+h10*fx)*(1-fz) + (h01*(1-fx)+h11*fx)*fz
}

func heightFieldLocal(p, size mgl32.Vec3, d *HeightFieldData) Surface {
	if d == nil || d.Width < 2 || d.Depth < 2 || len(d.Heights) < d.Width*d.Depth {
		return planeLocal(p)
	}
	sx := size[0] / float32(d.Width-1)
	sz := size[2] / float32(d.Depth-1)
	gx := flexmath.Clamp(p[0]/sx, 0, float32(d.Width-1))
	gz := flexmath.Clamp(p[2]/sz, 0, float32(d.Depth-1))
	h := d.heightAt(gx, gz) * size[1]

	const e = 0.5
	dhdx := (d.heightAt(min(gx+e, float32(d.Width-1)), gz) - d.heightAt(max(gx-e, 0), gz)) * size[1] / (2 * e * sx)
	dhdz := (d.heightAt(gx, min(gz+e, float32(d.Depth-1))) - d.heightAt(gx, max(gz-e, 0))) * size[1] / (2 * e * sz)
	n := mgl32.Vec3{-dhdx, 1, -dhdz}.Normalize()
	dist := (p[1] - h) * n[1]
	return Surface{Point: p.Sub(n.Mul(dist)), Normal: n, Distance: dist}
}

func triangleMeshLocal(p mgl32.Vec3, scale mgl32.Vec3, m *TriangleMeshData) Surface {
	best := Surface{Distance: float32(1e30)}
	if m == nil {
		return best
	}
	bestAbs := float32(1e30)
	for _, tri := range m.Triangles {
		a := flexmath.MulVec(m.Vertices[tri[0]], scale)
		b := flexmath.MulVec(m.Vertices[tri[1]], scale)
		c := flexmath.MulVec(m.Vertices[tri[2]], scale)
		q, _ := flexmath.ClosestOnTriangle(p, a, b, c)
		d := p.Sub(q)
		l2 := d.LenSqr()
		if l2 >= bestAbs*bestAbs {
			continue
		}
		face, _ := flexmath.Normalize(b.Sub(a).Cross(c.Sub(a)))
		l := flexmath.Sqrt(l2)
		n := face
		sign := float32(1)
		if d.Dot(face) < 0 {
			sign = -1
		}
		if l > flexmath.Epsilon {
			n = d.Mul(sign / l)
		}
		bestAbs = l
		best = Surface{Point: q, Normal: n, Distance: sign * l}
	}
	return best
}

func edgeMeshLocal(p mgl32.Vec3, scale mgl32.Vec3, m *EdgeMeshData) Surface {
	best := Surface{Distance: float32(1e30)}
	if m == nil {
		return best
	}
	for _, e := range m.Edges {
		a := flexmath.MulVec(m.Vertices[e[0]], scale)
		b := flexmath.MulVec(m.Vertices[e[1]], scale)
		q, _ := flexmath.ClosestOnSegment(p, a, b)
		n, l := flexmath.Normalize(p.Sub(q))
		if l < best.Distance {
			if l == 0 {
				n = mgl32.Vec3{0, 1, 0}
			}
			best = Surface{Point: q, Normal: n, Distance: l}
		}
	}
	return best
}

func (d *DistanceFieldData) value(x, y, z int) float32 {
	x = min(max(x, 0), d.Dims[0]-1)
	y = min(max(y, 0), d.Dims[1]-1)
	z = min(max(z, 0), d.Dims[2]-1)
	return d.Values[(z*d.Dims[1]+y)*d.Dims[0]+x]
}

// Sample returns the trilinearly interpolated distance at local point p.
func (d *DistanceFieldData) Sample(p mgl32.Vec3) float32 {
	g := p.Sub(d.Min).Mul(1 / d.CellSize)
	var i [3]int
	var f [3]float32
	for k := range 3 {
		g[k] = flexmath.Clamp(g[k], 0, float32(d.Dims[k]-1))
		i[k] = int(g[k])
		f[k] = g[k] - float32(i[k])
	}
	lerp := func(a, b, t float32) float32 { return a + (b-a)*t }
	c00 := lerp(d.value(i[0], i[1], i[2]), d.value(i[0]+1, i[1], i[2]), f[0])
	c10 := lerp(d.value(i[0], i[1]+1, i[2]), d.value(i[0]+1, i[1]+1, i[2]), f[0])
	c01 := lerp(d.value(i[0], i[1], i[2]+1), d.value(i[0]+1, i[1], i[2]+1), f[0])
	c11 := lerp(d.value(i[0], i[1]+1, i[2]+1), d.value(i[0]+1, i[1]+1, i[2]+1), f[0])
	return lerp(lerp(c00, c10, f[1]), lerp(c01, c11, f[1]), f[2])
}

func distanceFieldLocal(p mgl32.Vec3, d *DistanceFieldData) Surface {
	if d == nil || d.CellSize <= 0 || len(d.Values) < d.Dims[0]*d.Dims[1]*d.Dims[2] {
		return Surface{Distance: float32(1e30)}
	}
	dist := d.Sample(p)
	e := d.CellSize * 0.5
	grad := mgl32.Vec3{
		d.Sample(p.Add(mgl32.Vec3{e, 0, 0})) - d.Sample(p.Sub(mgl32.Vec3{e, 0, 0})),
		d.Sample(p.Add(mgl32.Vec3{0, e, 0})) - d.Sample(p.Sub(mgl32.Vec3{0, e, 0})),
		d.Sample(p.Add(mgl32.Vec3{0, 0, e})) - d.Sample(p.Sub(mgl32.Vec3{0, 0, e})),
	}
	n, l := flexmath.Normalize(grad)
	if l == 0 {
		n = mgl32.Vec3{0, 1, 0}
	}
	return Surface{Point: p.Sub(n.Mul(dist)), Normal: n, Distance: dist}
}
