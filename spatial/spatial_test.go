package spatial

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/flexmath"
)

func randomBox(rng *rand.Rand, maxSize float32) flexmath.AABB {
	c := mgl32.Vec3{rng.Float32()*20 - 10, rng.Float32()*20 - 10, rng.Float32()*20 - 10}
	return flexmath.AABBFromPoint(c, rng.Float32()*maxSize)
}

func TestMultilevelGridNoFalseNegatives(t *testing.T) {
	for _, mode := range []flexmath.Mode{flexmath.Mode3D, flexmath.Mode2D} {
		t.Run(mode.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			g := NewMultilevelGrid(0.25, mode)
			boxes := make([]flexmath.AABB, 400)
			for i := range boxes {
				boxes[i] = randomBox(rng, 3)
				if mode == flexmath.Mode2D {
					boxes[i].Min[2], boxes[i].Max[2] = 0, 0
				}
				g.Insert(int32(i), boxes[i])
			}
			require.Equal(t, len(boxes), g.Len())

			var got []int32
			for q := 0; q < 100; q++ {
				query := randomBox(rng, 2)
				if mode == flexmath.Mode2D {
					query.Min[2], query.Max[2] = 0, 0
				}
				got = g.QueryInto(got[:0], query)
				for i, b := range boxes {
					if b.Overlaps(query) {
						assert.Contains(t, got, int32(i), "query %d missed entry %d", q, i)
					}
				}
			}
		})
	}
}

func TestMultilevelGridLevelCoversExtent(t *testing.T) {
	g := NewMultilevelGrid(0.5, flexmath.Mode3D)
	for _, extent := range []float32{0, 0.1, 0.5, 0.51, 1, 3, 100} {
		level := g.LevelFor(extent)
		assert.GreaterOrEqual(t, g.CellSize(level), extent)
		if level > 0 {
			assert.Less(t, g.CellSize(level-1), extent)
		}
	}
}

func TestMultilevelGridClearAndOverlaps(t *testing.T) {
	g := NewMultilevelGrid(1, flexmath.Mode3D)
	g.Insert(0, flexmath.AABBFromPoint(mgl32.Vec3{0, 0, 0}, 0.2))
	g.Insert(1, flexmath.AABBFromPoint(mgl32.Vec3{1.5, 0, 0}, 0.2))

	got := g.OverlapsInto(nil, flexmath.AABBFromPoint(mgl32.Vec3{0.3, 0, 0}, 0.2))
	assert.Equal(t, []int32{0}, got)

	g.Clear()
	assert.Zero(t, g.Len())
	assert.Empty(t, g.QueryInto(nil, flexmath.AABBFromPoint(mgl32.Vec3{}, 10)))
}

func TestHashGridMatchesBruteForce(t *testing.T) {
	for _, mode := range []flexmath.Mode{flexmath.Mode3D, flexmath.Mode2D} {
		t.Run(mode.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			const radius = 0.3
			pos := make([]mgl32.Vec4, 300)
			idx := make([]int32, len(pos))
			for i := range pos {
				pos[i] = mgl32.Vec4{rng.Float32() * 2, rng.Float32() * 2, rng.Float32() * 2, 0}
				if mode == flexmath.Mode2D {
					pos[i][2] = 0
				}
				idx[i] = int32(i)
			}
			g := NewHashGrid(radius, mode)
			g.Build(pos, idx)

			var got []int32
			for i := range pos {
				got = g.NeighborsInto(got[:0], pos[i], radius, int32(i))
				var want []int32
				for j := range pos {
					if j != i && pos[j].Sub(pos[i]).LenSqr() <= radius*radius {
						want = append(want, int32(j))
					}
				}
				if len(want) > MaxNeighbors {
					assert.Len(t, got, MaxNeighbors)
					continue
				}
				assert.ElementsMatch(t, want, got, "particle %d", i)
			}
		})
	}
}

func TestHashGridSubsetOnly(t *testing.T) {
	pos := []mgl32.Vec4{{0, 0, 0, 0}, {0.1, 0, 0, 0}, {0.2, 0, 0, 0}}
	g := NewHashGrid(1, flexmath.Mode3D)
	g.Build(pos, []int32{0, 2})
	got := g.NeighborsInto(nil, pos[0], 1, 0)
	assert.Equal(t, []int32{2}, got)
}
