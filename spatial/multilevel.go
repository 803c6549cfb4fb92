// Package spatial provides the broad-phase structures used by the solver: a
// multilevel grid for bounded entries and a radius-keyed hash grid for fluid
// neighbour search.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
)

// maxLevels bounds the coarsest level. Cell sizes grow as base*2^level.
const maxLevels = 24

type cellKey struct {
	x, y, z int32
	level   int8
}

// MultilevelGrid buckets AABBs into the finest level whose cell size is at
// least the AABB's largest extent, so each entry lives in exactly one cell.
type MultilevelGrid struct {
	baseSize float32
	mode     flexmath.Mode

	cells     map[cellKey][]int32
	bounds    []flexmath.AABB
	populated [maxLevels]int
	count     int
}

// NewMultilevelGrid creates a grid whose level-0 cells have side baseSize.
func NewMultilevelGrid(baseSize float32, mode flexmath.Mode) *MultilevelGrid {
	if baseSize <= 0 {
		baseSize = 1
	}
	return &MultilevelGrid{
		baseSize: baseSize,
		mode:     mode,
		cells:    make(map[cellKey][]int32, 256),
	}
}

// Clear removes all entries. Cell storage is kept for reuse.
func (g *MultilevelGrid) Clear() {
	for k, v := range g.cells {
		g.cells[k] = v[:0]
	}
	g.populated = [maxLevels]int{}
	g.count = 0
}

// Len returns the number of inserted entries.
func (g *MultilevelGrid) Len() int { return g.count }

// LevelFor returns the level an AABB with the given extent is stored at.
func (g *MultilevelGrid) LevelFor(extent float32) int {
	if extent <= g.baseSize {
		return 0
	}
	level := int(math.Ceil(math.Log2(float64(extent / g.baseSize))))
	for level < maxLevels-1 && g.CellSize(level) < extent {
		level++
	}
	return min(max(level, 0), maxLevels-1)
}

// CellSize returns the cell side at level.
func (g *MultilevelGrid) CellSize(level int) float32 {
	return g.baseSize * float32(uint32(1)<<uint(level))
}

func (g *MultilevelGrid) cellOf(p mgl32.Vec3, level int) cellKey {
	cs := g.CellSize(level)
	k := cellKey{
		x:     int32(math.Floor(float64(p[0] / cs))),
		y:     int32(math.Floor(float64(p[1] / cs))),
		level: int8(level),
	}
	if g.mode == flexmath.Mode3D {
		k.z = int32(math.Floor(float64(p[2] / cs)))
	}
	return k
}

// Insert adds an entry with the given index and bounds.
func (g *MultilevelGrid) Insert(index int32, box flexmath.AABB) {
	level := g.LevelFor(box.MaxExtent())
	key := g.cellOf(box.Center(), level)
	g.cells[key] = append(g.cells[key], index)
	g.populated[level]++
	g.count++
	if int(index) >= len(g.bounds) {
		n := max(int(index)+1, 2*len(g.bounds))
		grown := make([]flexmath.AABB, n)
		copy(grown, g.bounds)
		g.bounds = grown
	}
	g.bounds[index] = box
}

// Bounds returns the AABB an entry was inserted with.
func (g *MultilevelGrid) Bounds(index int32) flexmath.AABB {
	return g.bounds[index]
}

// QueryInto appends to dst the indices of all entries whose cell could
// overlap box and returns the updated slice. Results may contain false
// positives but never miss an overlapping entry.
func (g *MultilevelGrid) QueryInto(dst []int32, box flexmath.AABB) []int32 {
	for level := 0; level < maxLevels; level++ {
		if g.populated[level] == 0 {
			continue
		}
		lo := g.cellOf(box.Min, level)
		hi := g.cellOf(box.Max, level)
		zlo, zhi := lo.z-1, hi.z+1
		if g.mode == flexmath.Mode2D {
			zlo, zhi = 0, 0
		}
		for x := lo.x - 1; x <= hi.x+1; x++ {
			for y := lo.y - 1; y <= hi.y+1; y++ {
				for z := zlo; z <= zhi; z++ {
					dst = append(dst, g.cells[cellKey{x, y, z, int8(level)}]...)
				}
			}
		}
	}
	return dst
}

// OverlapsInto is QueryInto followed by an exact AABB test.
func (g *MultilevelGrid) OverlapsInto(dst []int32, box flexmath.AABB) []int32 {
	start := len(dst)
	dst = g.QueryInto(dst, box)
	out := dst[:start]
	for _, idx := range dst[start:] {
		if g.bounds[idx].Overlaps(box) {
			out = append(out, idx)
		}
	}
	return out
}
