package flexmath

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolarDecomposeRecoversRotation(t *testing.T) {
	rot := mgl32.QuatRotate(0.8, mgl32.Vec3{1, 2, 3}.Normalize()).Mat4().Mat3()
	stretch := mgl32.Diag3(mgl32.Vec3{2, 1, 0.5})
	r, s, ok := PolarDecompose(rot.Mul3(stretch))
	require.True(t, ok)
	for i := range 9 {
		assert.InDelta(t, rot[i], r[i], 1e-4)
	}
	assert.InDelta(t, 1, r.Det(), 1e-4)
	back := r.Mul3(s)
	want := rot.Mul3(stretch)
	for i := range 9 {
		assert.InDelta(t, want[i], back[i], 1e-4)
	}
}

func TestPolarDecomposeRemovesReflection(t *testing.T) {
	r, _, ok := PolarDecompose(mgl32.Diag3(mgl32.Vec3{1, 1, -1}))
	require.True(t, ok)
	assert.InDelta(t, 1, r.Det(), 1e-4)
}

func TestPseudoInverseOfSingular(t *testing.T) {
	a := mgl32.Diag3(mgl32.Vec3{2, 4, 0})
	inv := PseudoInverse(a, 1e-6)
	assert.InDelta(t, 0.5, inv.At(0, 0), 1e-5)
	assert.InDelta(t, 0.25, inv.At(1, 1), 1e-5)
	assert.InDelta(t, 0, inv.At(2, 2), 1e-5)
}

func TestClosestOnTriangle(t *testing.T) {
	a, b, c := mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	tests := []struct {
		name string
		p    mgl32.Vec3
		want mgl32.Vec3
	}{
		{"above interior", mgl32.Vec3{0.25, 0.25, 1}, mgl32.Vec3{0.25, 0.25, 0}},
		{"vertex region", mgl32.Vec3{-1, -1, 0}, a},
		{"edge region", mgl32.Vec3{0.5, -1, 0}, mgl32.Vec3{0.5, 0, 0}},
		{"hypotenuse", mgl32.Vec3{1, 1, 0}, mgl32.Vec3{0.5, 0.5, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bary := ClosestOnTriangle(tt.p, a, b, c)
			assertVecNear(t, tt.want, got, 1e-5, "got %v", got)
			assert.InDelta(t, 1, bary[0]+bary[1]+bary[2], 1e-5)
		})
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{
		Position: mgl32.Vec3{1, 2, 3},
		Rotation: mgl32.QuatRotate(1.1, mgl32.Vec3{0, 1, 0}),
		Scale:    mgl32.Vec3{2, 2, 2},
	}
	p := mgl32.Vec3{0.3, -0.4, 5}
	back := tr.InverseTransformPoint(tr.TransformPoint(p))
	assertVecNear(t, p, back, 1e-4)
}

func TestRayTriangle(t *testing.T) {
	d, hit := RayTriangle(mgl32.Vec3{0.2, 0.2, 2}, mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	require.True(t, hit)
	assert.InDelta(t, 2, d, 1e-5)
}

func TestSegmentSegmentParallelAndCrossing(t *testing.T) {
	s, u := SegmentSegment(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 1}, mgl32.Vec3{0, 1, 1})
	assert.InDelta(t, 0.5, s, 1e-5)
	assert.InDelta(t, 0.5, u, 1e-5)
}

func assertVecNear(t *testing.T, want, got mgl32.Vec3, delta float64, msgAndArgs ...any) {
	t.Helper()
	for k := range 3 {
		assert.InDelta(t, want[k], got[k], delta, msgAndArgs...)
	}
}
