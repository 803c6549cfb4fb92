package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// MaxNeighbors caps the number of neighbours returned per query.
// This prevents density spikes from causing unbounded work.
const MaxNeighbors = 128

// HashGrid is a uniform grid with cell side equal to the query radius,
// stored as a hashed, counting-sorted index list. It is rebuilt whenever
// positions change.
type HashGrid struct {
	cellSize float32
	mode     flexmath.Mode

	positions []mgl32.Vec4
	mask      uint32
	cellStart []int32
	cellCount []int32
	sorted    []int32
	hashes    []uint32
}

// NewHashGrid creates a grid with the given cell size.
func NewHashGrid(cellSize float32, mode flexmath.Mode) *HashGrid {
	return &HashGrid{cellSize: max(cellSize, flexmath.Epsilon), mode: mode}
}

// CellSize returns the cell side.
func (g *HashGrid) CellSize() float32 { return g.cellSize }

// SetCellSize changes the cell side. Takes effect on the next Build.
func (g *HashGrid) SetCellSize(s float32) {
	g.cellSize = max(s, flexmath.Epsilon)
}

func (g *HashGrid) cell(p mgl32.Vec4) (int32, int32, int32) {
	x := int32(math.Floor(float64(p[0] / g.cellSize)))
	y := int32(math.Floor(float64(p[1] / g.cellSize)))
	var z int32
	if g.mode == flexmath.Mode3D {
		z = int32(math.Floor(float64(p[2] / g.cellSize)))
	}
	return x, y, z
}

func (g *HashGrid) hash(x, y, z int32) uint32 {
	h := uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791
	return h & g.mask
}

// Build indexes the given particles. positions is kept by reference and must
// not change until the next Build.
func (g *HashGrid) Build(positions []mgl32.Vec4, indices []int32) {
	g.positions = positions
	n := len(indices)
	size := uint32(64)
	for size < uint32(2*n) {
		size <<= 1
	}
	g.mask = size - 1
	if cap(g.cellStart) < int(size) {
		g.cellStart = make([]int32, size)
		g.cellCount = make([]int32, size)
	}
	g.cellStart = g.cellStart[:size]
	g.cellCount = g.cellCount[:size]
	clear(g.cellCount)

	if cap(g.hashes) < n {
		g.hashes = make([]uint32, n)
		g.sorted = make([]int32, n)
	}
	g.hashes = g.hashes[:n]
	g.sorted = g.sorted[:n]

	for i, idx := range indices {
		h := g.hash(g.cell(positions[idx]))
		g.hashes[i] = h
		g.cellCount[h]++
	}
	var acc int32
	for h := range g.cellStart {
		g.cellStart[h] = acc
		acc += g.cellCount[h]
	}
	clear(g.cellCount)
	for i, idx := range indices {
		h := g.hashes[i]
		g.sorted[g.cellStart[h]+g.cellCount[h]] = idx
		g.cellCount[h]++
	}
}

// NeighborsInto appends every indexed particle within radius of p, other than
// exclude, to dst (up to MaxNeighbors) and returns the updated slice.
// radius must not exceed the cell size.
func (g *HashGrid) NeighborsInto(dst []int32, p mgl32.Vec4, radius float32, exclude int32) []int32 {
	if len(g.sorted) == 0 {
		return dst
	}
	cx, cy, cz := g.cell(p)
	r2 := radius * radius
	var visited [27]uint32
	nv := 0
	zr := int32(1)
	if g.mode == flexmath.Mode2D {
		zr = 0
	}
	start := len(dst)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := -zr; dz <= zr; dz++ {
				h := g.hash(cx+dx, cy+dy, cz+dz)
				seen := false
				for _, v := range visited[:nv] {
					if v == h {
						seen = true
						break
					}
				}
				if seen {
					continue
				}
				visited[nv] = h
				nv++

				s := g.cellStart[h]
				for _, j := range g.sorted[s : s+g.cellCount[h]] {
					if j == exclude {
						continue
					}
					d := g.positions[j].Sub(p)
					if g.mode == flexmath.Mode2D {
						d[2] = 0
					}
					d[3] = 0
					if d.LenSqr() <= r2 {
						dst = append(dst, j)
						if len(dst)-start >= MaxNeighbors {
							return dst
						}
					}
				}
			}
		}
	}
	return dst
}
