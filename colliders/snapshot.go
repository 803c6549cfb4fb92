package colliders

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// Collider is a shape placed in the world.
type Collider struct {
	Shape     Shape
	Transform flexmath.Transform
	Bounds    flexmath.AABB
}

// Snapshot is an immutable, versioned copy of the collider world. The solver
// reads one snapshot for a whole step.
type Snapshot struct {
	Version   uint64
	DeltaTime float32

	Colliders      []Collider
	Rigidbodies    []Rigidbody
	Materials      []CollisionMaterial
	TriangleMeshes []TriangleMeshData
	EdgeMeshes     []EdgeMeshData
	DistanceFields []DistanceFieldData
	HeightFields   []HeightFieldData
}

// Len returns the number of colliders. Safe on a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Colliders)
}

func (s *Snapshot) triangleMesh(i int32) *TriangleMeshData {
	if i < 0 || int(i) >= len(s.TriangleMeshes) {
		return nil
	}
	return &s.TriangleMeshes[i]
}

func (s *Snapshot) edgeMesh(i int32) *EdgeMeshData {
	if i < 0 || int(i) >= len(s.EdgeMeshes) {
		return nil
	}
	return &s.EdgeMeshes[i]
}

func (s *Snapshot) distanceField(i int32) *DistanceFieldData {
	if i < 0 || int(i) >= len(s.DistanceFields) {
		return nil
	}
	return &s.DistanceFields[i]
}

func (s *Snapshot) heightField(i int32) *HeightFieldData {
	if i < 0 || int(i) >= len(s.HeightFields) {
		return nil
	}
	return &s.HeightFields[i]
}

// Material returns the collision material of collider i.
func (s *Snapshot) Material(i int) CollisionMaterial {
	m := s.Colliders[i].Shape.MaterialIndex
	if m < 0 || int(m) >= len(s.Materials) {
		return DefaultMaterial
	}
	return s.Materials[m]
}

// VelocityAt returns the velocity of collider i at world point p.
// Colliders without a rigidbody are static.
func (s *Snapshot) VelocityAt(i int, p mgl32.Vec3) mgl32.Vec3 {
	r := s.Colliders[i].Shape.RigidbodyIndex
	if r < 0 || int(r) >= len(s.Rigidbodies) {
		return mgl32.Vec3{}
	}
	return s.Rigidbodies[r].VelocityAt(p)
}

// Closest returns the closest surface point of collider i to world point p,
// with the outward normal and signed distance.
func (s *Snapshot) Closest(i int, p mgl32.Vec3) Surface {
	c := &s.Colliders[i]
	t := c.Transform
	rot := t.Rotation
	if flexmath.QuatIsZero(rot) {
		rot = mgl32.QuatIdent()
	}
	sc := scaled(t)
	local := rot.Conjugate().Rotate(p.Sub(t.Position)).Sub(c.Shape.Center)

	var surf Surface
	switch c.Shape.Type {
	case Sphere:
		surf = sphereLocal(local, c.Shape.Size[0]*max(sc[0], sc[1], sc[2]))
	case Box:
		surf = boxLocal(local, flexmath.MulVec(c.Shape.Size, sc))
	case Capsule:
		surf = capsuleLocal(local, c.Shape.Size[0]*max(sc[0], sc[2]), c.Shape.Size[1]*sc[1])
	case Plane:
		surf = planeLocal(local)
	case HeightField:
		surf = heightFieldLocal(local, flexmath.MulVec(c.Shape.Size, sc), s.heightField(c.Shape.DataIndex))
	case TriangleMesh:
		surf = triangleMeshLocal(local, sc, s.triangleMesh(c.Shape.DataIndex))
	case EdgeMesh:
		surf = edgeMeshLocal(local, sc, s.edgeMesh(c.Shape.DataIndex))
	case DistanceField:
		surf = distanceFieldLocal(local, s.distanceField(c.Shape.DataIndex))
	default:
		return Surface{Distance: float32(1e30)}
	}
	surf.Point = rot.Rotate(surf.Point.Add(c.Shape.Center)).Add(t.Position)
	surf.Normal = rot.Rotate(surf.Normal)
	return surf
}

// LocalPoint maps world point p into the frame of collider i.
func (s *Snapshot) LocalPoint(i int, p mgl32.Vec3) mgl32.Vec3 {
	return s.Colliders[i].Transform.InverseTransformPoint(p)
}

// WorldPoint maps a point in the frame of collider i to world space.
func (s *Snapshot) WorldPoint(i int, p mgl32.Vec3) mgl32.Vec3 {
	return s.Colliders[i].Transform.TransformPoint(p)
}
