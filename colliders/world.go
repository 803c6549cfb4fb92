package colliders

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// ErrCountMismatch is returned when a collider count exceeds the supplied arrays.
var ErrCountMismatch = errors.New("collider count exceeds array length")

// infiniteExtent bounds planes and other unbounded shapes.
const infiniteExtent = 1e5

// World accumulates collider data from the engine and publishes it as an
// immutable Snapshot on UpdateWorld. Setters may be called from any goroutine.
type World struct {
	mu         sync.Mutex
	shapes     []Shape
	bounds     []flexmath.AABB
	transforms []flexmath.Transform

	rigidbodies    []Rigidbody
	materials      []CollisionMaterial
	triangleMeshes []TriangleMeshData
	edgeMeshes     []EdgeMeshData
	distanceFields []DistanceFieldData
	heightFields   []HeightFieldData

	version uint64
	current atomic.Pointer[Snapshot]
}

// NewWorld creates an empty collider world.
func NewWorld() *World {
	w := &World{}
	w.current.Store(&Snapshot{})
	return w
}

// SetColliders replaces the collider list. bounds may be nil, in which case
// world bounds are computed from the shapes on UpdateWorld.
func (w *World) SetColliders(shapes []Shape, bounds []flexmath.AABB, transforms []flexmath.Transform, count int) error {
	if count < 0 || count > len(shapes) || count > len(transforms) || (bounds != nil && count > len(bounds)) {
		return fmt.Errorf("set colliders (count %d): %w", count, ErrCountMismatch)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shapes = slices.Clone(shapes[:count])
	w.transforms = slices.Clone(transforms[:count])
	w.bounds = nil
	if bounds != nil {
		w.bounds = slices.Clone(bounds[:count])
	}
	return nil
}

// SetRigidbodies replaces the rigidbody list.
func (w *World) SetRigidbodies(rbs []Rigidbody) {
	w.mu.Lock()
	w.rigidbodies = slices.Clone(rbs)
	w.mu.Unlock()
}

// SetCollisionMaterials replaces the material list.
func (w *World) SetCollisionMaterials(m []CollisionMaterial) {
	w.mu.Lock()
	w.materials = slices.Clone(m)
	w.mu.Unlock()
}

// SetTriangleMeshData replaces the triangle meshes referenced by DataIndex.
func (w *World) SetTriangleMeshData(m []TriangleMeshData) {
	w.mu.Lock()
	w.triangleMeshes = slices.Clone(m)
	w.mu.Unlock()
}

// SetEdgeMeshData replaces the edge meshes referenced by DataIndex.
func (w *World) SetEdgeMeshData(m []EdgeMeshData) {
	w.mu.Lock()
	w.edgeMeshes = slices.Clone(m)
	w.mu.Unlock()
}

// SetDistanceFieldData replaces the distance fields referenced by DataIndex.
func (w *World) SetDistanceFieldData(d []DistanceFieldData) {
	w.mu.Lock()
	w.distanceFields = slices.Clone(d)
	w.mu.Unlock()
}

// SetHeightFieldData replaces the height fields referenced by DataIndex.
func (w *World) SetHeightFieldData(h []HeightFieldData) {
	w.mu.Lock()
	w.heightFields = slices.Clone(h)
	w.mu.Unlock()
}

// SetTransform moves a single collider. Out of range indices are ignored.
func (w *World) SetTransform(i int, t flexmath.Transform) {
	w.mu.Lock()
	if i >= 0 && i < len(w.transforms) {
		w.transforms[i] = t
		w.bounds = nil
	}
	w.mu.Unlock()
}

// UpdateWorld publishes the current collider state as a new snapshot.
func (w *World) UpdateWorld(dt float32) *Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.version++
	s := &Snapshot{
		Version:        w.version,
		DeltaTime:      dt,
		Colliders:      make([]Collider, len(w.shapes)),
		Rigidbodies:    slices.Clone(w.rigidbodies),
		Materials:      slices.Clone(w.materials),
		TriangleMeshes: slices.Clone(w.triangleMeshes),
		EdgeMeshes:     slices.Clone(w.edgeMeshes),
		DistanceFields: slices.Clone(w.distanceFields),
		HeightFields:   slices.Clone(w.heightFields),
	}
	for i, sh := range w.shapes {
		c := Collider{Shape: sh, Transform: w.transforms[i]}
		if w.bounds != nil {
			c.Bounds = w.bounds[i]
		} else {
			c.Bounds = s.shapeBounds(sh, c.Transform)
		}
		c.Bounds = c.Bounds.Expand(sh.ContactOffset)
		s.Colliders[i] = c
	}
	w.current.Store(s)
	return s
}

// Snapshot returns the most recently published snapshot. It never returns nil.
func (w *World) Snapshot() *Snapshot {
	return w.current.Load()
}

func (s *Snapshot) shapeBounds(sh Shape, t flexmath.Transform) flexmath.AABB {
	sc := scaled(t)
	rigid := flexmath.Transform{Position: t.Position, Rotation: t.Rotation}
	var local flexmath.AABB
	switch sh.Type {
	case Sphere:
		local = flexmath.AABBFromPoint(sh.Center, sh.Size[0]*max(sc[0], sc[1], sc[2]))
	case Box:
		h := flexmath.MulVec(sh.Size, sc)
		local = flexmath.AABB{Min: sh.Center.Sub(h), Max: sh.Center.Add(h)}
	case Capsule:
		r := sh.Size[0] * max(sc[0], sc[2])
		h := sh.Size[1]*sc[1] + r
		local = flexmath.AABB{Min: sh.Center.Sub(mgl32.Vec3{r, h, r}), Max: sh.Center.Add(mgl32.Vec3{r, h, r})}
	case HeightField:
		size := flexmath.MulVec(sh.Size, sc)
		local = flexmath.AABB{Min: sh.Center, Max: sh.Center.Add(size)}
	case TriangleMesh:
		if m := s.triangleMesh(sh.DataIndex); m != nil && len(m.Vertices) > 0 {
			local = flexmath.AABBFromPoints(scaleAll(m.Vertices, sc)...)
			local = flexmath.AABB{Min: local.Min.Add(sh.Center), Max: local.Max.Add(sh.Center)}
		}
	case EdgeMesh:
		if m := s.edgeMesh(sh.DataIndex); m != nil && len(m.Vertices) > 0 {
			local = flexmath.AABBFromPoints(scaleAll(m.Vertices, sc)...)
			local = flexmath.AABB{Min: local.Min.Add(sh.Center), Max: local.Max.Add(sh.Center)}
		}
	case DistanceField:
		if d := s.distanceField(sh.DataIndex); d != nil {
			ext := mgl32.Vec3{float32(d.Dims[0] - 1), float32(d.Dims[1] - 1), float32(d.Dims[2] - 1)}.Mul(d.CellSize)
			local = flexmath.AABB{Min: d.Min.Add(sh.Center), Max: d.Min.Add(ext).Add(sh.Center)}
		}
	default:
		e := mgl32.Vec3{infiniteExtent, infiniteExtent, infiniteExtent}
		return flexmath.AABB{Min: t.Position.Sub(e), Max: t.Position.Add(e)}
	}
	return local.Transform(rigid)
}

func scaleAll(v []mgl32.Vec3, s mgl32.Vec3) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(v))
	for i := range v {
		out[i] = flexmath.MulVec(v[i], s)
	}
	return out
}
