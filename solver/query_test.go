package solver

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/actor"
	"github.com/pthm-cable/flex/flexmath"
)

// exhaustiveQuery tests every simplex against q without any culling.
func exhaustiveQuery(s *Solver, q Query, t flexmath.Transform) []QueryResult {
	var out []QueryResult
	for _, ref := range s.simplices() {
		n := int(ref.kind)
		verts := make([]mgl32.Vec3, n)
		var radius float32
		for k := 0; k < n; k++ {
			verts[k] = s.particles.Positions[ref.idx[k]].Vec3()
			radius = max(radius, s.particles.Radius(ref.idx[k]))
		}
		if r, ok := s.probe(q, t, verts, radius); ok {
			r.Actor = ActorID{entity: s.actors[ref.actor]}
			r.Kind = ref.kind
			r.Simplex = ref.simplex
			r.Indices = ref.idx
			out = append(out, r)
		}
	}
	return out
}

func TestSpatialQueryMatchesExhaustiveScan(t *testing.T) {
	s := newTestSolver(t, nil)
	cloth, err := actor.Cloth(actor.DefaultClothSettings())
	require.NoError(t, err)
	_, err = s.AddActor(cloth)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	point := func() mgl32.Vec3 {
		return mgl32.Vec3{rng.Float32()*8 - 4, rng.Float32()*8 - 1, rng.Float32()*4 - 2}
	}
	for range 40 {
		_, err := s.AddActor(singleParticle(point(), 1, 0.05+rng.Float32()*0.2))
		require.NoError(t, err)
	}

	var queries []Query
	var transforms []flexmath.Transform
	for k := range 90 {
		q := Query{Center: point(), MaxDistance: rng.Float32() * 0.3}
		tr := flexmath.Identity()
		switch k % 3 {
		case 0:
			q.Shape = QuerySphere
			q.Radius = rng.Float32()
		case 1:
			q.Shape = QueryBox
			q.HalfExtents = mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
			tr.Rotation = mgl32.QuatRotate(rng.Float32()*3, mgl32.Vec3{1, 2, 3}.Normalize())
		case 2:
			q.Shape = QueryRay
			q.Center = mgl32.Vec3{-6, q.Center[1], q.Center[2]}
			q.Direction = mgl32.Vec3{1, rng.Float32()*0.2 - 0.1, 0}
			if k%2 == 0 {
				q.MaxDistance = 0
			} else {
				q.MaxDistance = 10
			}
		}
		queries = append(queries, q)
		transforms = append(transforms, tr)
	}

	got := s.SpatialQuery(queries, transforms)
	var want []QueryResult
	for q := range queries {
		for _, r := range exhaustiveQuery(s, queries[q], transforms[q]) {
			r.Query = q
			want = append(want, r)
		}
	}
	require.NotEmpty(t, want)
	require.Len(t, got, len(want))
	for k := range want {
		assert.Equal(t, want[k].Query, got[k].Query, "result %d", k)
		assert.Equal(t, want[k].Actor, got[k].Actor, "result %d", k)
		assert.Equal(t, want[k].Kind, got[k].Kind, "result %d", k)
		assert.Equal(t, want[k].Simplex, got[k].Simplex, "result %d", k)
		assert.InDelta(t, want[k].Distance, got[k].Distance, 1e-5, "result %d", k)
	}

	// Far away queries find nothing.
	assert.Empty(t, s.SpatialQuery([]Query{{Shape: QuerySphere, Center: mgl32.Vec3{100, 100, 100}, Radius: 1}}, nil))
}
