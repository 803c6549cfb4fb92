package colliders

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/flexmath"
)

func worldWith(t *testing.T, shapes []Shape, transforms []flexmath.Transform, setup func(w *World)) *Snapshot {
	t.Helper()
	w := NewWorld()
	require.NoError(t, w.SetColliders(shapes, nil, transforms, len(shapes)))
	if setup != nil {
		setup(w)
	}
	return w.UpdateWorld(1.0 / 60)
}

func TestClosestPerShape(t *testing.T) {
	cube := TriangleMeshData{
		Vertices:  []mgl32.Vec3{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}},
		Triangles: [][3]int32{{0, 2, 1}, {0, 3, 2}},
	}
	edges := EdgeMeshData{Vertices: []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}}, Edges: [][2]int32{{0, 1}}}
	field := DistanceFieldData{Min: mgl32.Vec3{-2, -2, -2}, CellSize: 0.25, Dims: [3]int{17, 17, 17}}
	for z := 0; z < 17; z++ {
		for y := 0; y < 17; y++ {
			for x := 0; x < 17; x++ {
				p := field.Min.Add(mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(0.25))
				field.Values = append(field.Values, p.Len()-1)
			}
		}
	}
	heights := HeightFieldData{Width: 3, Depth: 3, Heights: make([]float32, 9)}

	tests := []struct {
		name     string
		shape    Shape
		p        mgl32.Vec3
		wantDist float32
		wantN    mgl32.Vec3
	}{
		{"sphere outside", Shape{Type: Sphere, Size: mgl32.Vec3{1, 0, 0}}, mgl32.Vec3{0, 3, 0}, 2, mgl32.Vec3{0, 1, 0}},
		{"sphere inside", Shape{Type: Sphere, Size: mgl32.Vec3{1, 0, 0}}, mgl32.Vec3{0.5, 0, 0}, -0.5, mgl32.Vec3{1, 0, 0}},
		{"box face", Shape{Type: Box, Size: mgl32.Vec3{1, 1, 1}}, mgl32.Vec3{0, 0, 2}, 1, mgl32.Vec3{0, 0, 1}},
		{"box inside", Shape{Type: Box, Size: mgl32.Vec3{1, 1, 1}}, mgl32.Vec3{0.9, 0, 0}, -0.1, mgl32.Vec3{1, 0, 0}},
		{"capsule side", Shape{Type: Capsule, Size: mgl32.Vec3{0.5, 1, 0}}, mgl32.Vec3{2, 0.5, 0}, 1.5, mgl32.Vec3{1, 0, 0}},
		{"capsule cap", Shape{Type: Capsule, Size: mgl32.Vec3{0.5, 1, 0}}, mgl32.Vec3{0, 3, 0}, 1.5, mgl32.Vec3{0, 1, 0}},
		{"plane", Shape{Type: Plane}, mgl32.Vec3{4, 0.25, -3}, 0.25, mgl32.Vec3{0, 1, 0}},
		{"height field flat", Shape{Type: HeightField, Size: mgl32.Vec3{2, 1, 2}, DataIndex: 0}, mgl32.Vec3{1, 0.5, 1}, 0.5, mgl32.Vec3{0, 1, 0}},
		{"triangle mesh above", Shape{Type: TriangleMesh, DataIndex: 0}, mgl32.Vec3{0.2, 0.5, 0.1}, 0.5, mgl32.Vec3{0, 1, 0}},
		{"edge mesh", Shape{Type: EdgeMesh, DataIndex: 0}, mgl32.Vec3{0.5, 0, 2}, 2, mgl32.Vec3{0, 0, 1}},
		{"distance field", Shape{Type: DistanceField, DataIndex: 0}, mgl32.Vec3{1.5, 0, 0}, 0.5, mgl32.Vec3{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := worldWith(t, []Shape{tt.shape}, []flexmath.Transform{flexmath.Identity()}, func(w *World) {
				w.SetTriangleMeshData([]TriangleMeshData{cube})
				w.SetEdgeMeshData([]EdgeMeshData{edges})
				w.SetDistanceFieldData([]DistanceFieldData{field})
				w.SetHeightFieldData([]HeightFieldData{heights})
			})
			s := snap.Closest(0, tt.p)
			assert.InDelta(t, tt.wantDist, s.Distance, 1e-3)
			assertVecNear(t, tt.wantN, s.Normal, 1e-3, "normal %v", s.Normal)
			back := s.Point.Add(s.Normal.Mul(s.Distance))
			assertVecNear(t, tt.p, back, 2e-2, "point %v", s.Point)
		})
	}
}

func TestClosestRespectsTransform(t *testing.T) {
	tr := flexmath.Transform{
		Position: mgl32.Vec3{5, 0, 0},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
	snap := worldWith(t, []Shape{{Type: Plane}}, []flexmath.Transform{tr}, nil)
	// Rotated plane faces -X.
	s := snap.Closest(0, mgl32.Vec3{3, 1, 0})
	assert.InDelta(t, 2, s.Distance, 1e-4)
	assertVecNear(t, mgl32.Vec3{-1, 0, 0}, s.Normal, 1e-4)
}

func TestSetCollidersRejectsBadCount(t *testing.T) {
	w := NewWorld()
	err := w.SetColliders([]Shape{{}}, nil, nil, 1)
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.Zero(t, w.Snapshot().Len())
}

func TestSnapshotIsImmutable(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.SetColliders([]Shape{{Type: Sphere, Size: mgl32.Vec3{1, 0, 0}}}, nil,
		[]flexmath.Transform{flexmath.Identity()}, 1))
	first := w.UpdateWorld(0.1)
	w.SetTransform(0, flexmath.Translation(mgl32.Vec3{10, 0, 0}))
	assert.Equal(t, mgl32.Vec3{}, first.Colliders[0].Transform.Position)

	second := w.UpdateWorld(0.1)
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, second.Colliders[0].Transform.Position)
	assert.True(t, second.Colliders[0].Bounds.Contains(mgl32.Vec3{10.5, 0, 0}))
	assert.Same(t, second, w.Snapshot())
}

func TestMaterialAndVelocity(t *testing.T) {
	snap := worldWith(t,
		[]Shape{{Type: Sphere, MaterialIndex: 0, RigidbodyIndex: 0}, {Type: Sphere, MaterialIndex: -1, RigidbodyIndex: -1}},
		[]flexmath.Transform{flexmath.Identity(), flexmath.Identity()},
		func(w *World) {
			w.SetCollisionMaterials([]CollisionMaterial{{StaticFriction: 0.9, DynamicFriction: 0.7}})
			w.SetRigidbodies([]Rigidbody{{AngularVelocity: mgl32.Vec3{0, 1, 0}}})
		})
	assert.Equal(t, float32(0.9), snap.Material(0).StaticFriction)
	assert.Equal(t, DefaultMaterial, snap.Material(1))
	v := snap.VelocityAt(0, mgl32.Vec3{1, 0, 0})
	assertVecNear(t, mgl32.Vec3{0, 0, -1}, v, 1e-5)
	assert.Equal(t, mgl32.Vec3{}, snap.VelocityAt(1, mgl32.Vec3{1, 0, 0}))
}

func assertVecNear(t *testing.T, want, got mgl32.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for k := range 3 {
		assert.InDelta(t, want[k], got[k], delta, msgAndArgs...)
	}
}
