package solver

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
	"github.com/pthm-cable/flex/spatial"
)

// QueryShape selects the geometry of a spatial query.
type QueryShape uint8

const (
	QuerySphere QueryShape = iota
	QueryBox
	QueryRay
)

// Query is a read-only probe against the actors' simplices, expressed in the
// frame of its transform. Sphere queries use Center and Radius; box queries
// use Center and HalfExtents; ray queries start at Center along Direction
// for MaxDistance.
type Query struct {
	Shape       QueryShape
	Center      mgl32.Vec3
	Radius      float32
	HalfExtents mgl32.Vec3
	Direction   mgl32.Vec3
	// MaxDistance is the ray length, or the extra distance at which sphere
	// and box queries still report a simplex.
	MaxDistance float32
	// Filter restricts which particles are reported; zero accepts all.
	Filter uint32
}

// SimplexKind is the number of particles in a simplex.
type SimplexKind uint8

const (
	SimplexPoint SimplexKind = iota + 1
	SimplexEdge
	SimplexTriangle
)

// QueryResult is one simplex found by a query.
type QueryResult struct {
	Query    int
	Actor    ActorID
	Kind     SimplexKind
	Simplex  int // index into the actor's points, edges or triangles
	Indices  [3]int32
	Point    mgl32.Vec3 // closest point on the simplex, world space
	Distance float32    // surface distance; ray queries report the hit distance
}

// simplexRef addresses one simplex during a query.
type simplexRef struct {
	actor   int
	kind    SimplexKind
	simplex int
	idx     [3]int32
}

// queryIndex buckets simplex bounds so queries only test nearby simplices.
type queryIndex struct {
	grid  *spatial.MultilevelGrid
	base  float32
	boxes []flexmath.AABB
	scene flexmath.AABB
}

// build indexes refs at the current particle positions.
func (x *queryIndex) build(s *Solver, refs []simplexRef) {
	x.boxes = x.boxes[:0]
	var extent float32
	for k, ref := range refs {
		var verts [3]mgl32.Vec3
		var radius float32
		for j := 0; j < int(ref.kind); j++ {
			i := ref.idx[j]
			verts[j] = s.particles.Positions[i].Vec3()
			radius = max(radius, s.particles.Radius(i))
		}
		box := flexmath.AABBFromPoints(verts[:ref.kind]...).Expand(radius)
		x.boxes = append(x.boxes, box)
		extent = max(extent, box.MaxExtent())
		if k == 0 {
			x.scene = box
		} else {
			x.scene = x.scene.Encapsulate(box)
		}
	}
	if x.grid == nil || extent > 2*x.base || extent < x.base/2 {
		x.base = max(extent, 1e-3)
		x.grid = spatial.NewMultilevelGrid(x.base, s.mode)
	} else {
		x.grid.Clear()
	}
	for k, box := range x.boxes {
		x.grid.Insert(int32(k), box)
	}
}

// candidates appends the simplices whose bounds overlap box, in ref order.
// Boxes spanning more cells than there are simplices are scanned linearly.
func (x *queryIndex) candidates(dst []int32, box flexmath.AABB, mode flexmath.Mode) []int32 {
	box = box.Expand(1e-4)
	if len(x.boxes) == 0 || !box.Overlaps(x.scene) {
		return dst
	}
	box = flexmath.AABB{Min: flexmath.MaxVec(box.Min, x.scene.Min), Max: flexmath.MinVec(box.Max, x.scene.Max)}
	size := box.Size()
	cells := 1.0
	for a := 0; a < 3; a++ {
		if a == 2 && mode == flexmath.Mode2D {
			break
		}
		cells *= math.Floor(float64(size[a]/x.base)) + 3
	}
	start := len(dst)
	if cells > float64(len(x.boxes)) {
		for k := range x.boxes {
			dst = append(dst, int32(k))
		}
	} else {
		dst = x.grid.QueryInto(dst, box)
		slices.Sort(dst[start:])
	}
	out := dst[:start]
	for _, k := range dst[start:] {
		if x.boxes[k].Overlaps(box) {
			out = append(out, k)
		}
	}
	return out
}

// queryBounds returns a world space box containing every point a query can
// report, before simplex radii are added.
func queryBounds(q Query, t flexmath.Transform) flexmath.AABB {
	reach := max(q.MaxDistance, 0)
	switch q.Shape {
	case QuerySphere:
		return flexmath.AABBFromPoint(t.TransformPoint(q.Center), max(q.Radius*t.UniformScale(), 0)+reach)
	case QueryBox:
		local := flexmath.AABB{Min: q.Center.Sub(q.HalfExtents), Max: q.Center.Add(q.HalfExtents)}
		return local.Transform(t).Expand(reach)
	default:
		origin := t.TransformPoint(q.Center)
		dir, _ := flexmath.Normalize(t.TransformDirection(q.Direction))
		length := q.MaxDistance
		if length <= 0 {
			length = 1e6
		}
		return flexmath.AABBFromPoints(origin, origin.Add(dir.Mul(length)))
	}
}

// SpatialQuery runs every query against the current particle positions.
// transforms holds one frame per query; missing entries are identity.
// Results are ordered by query, then by actor insertion order.
func (s *Solver) SpatialQuery(queries []Query, transforms []flexmath.Transform) []QueryResult {
	if len(queries) == 0 {
		return nil
	}
	s.refreshActive()
	refs := s.simplices()
	s.query.build(s, refs)
	parts := make([][]QueryResult, len(queries))
	s.pool.For(len(queries), func(start, end, _ int) {
		var verts [3]mgl32.Vec3
		var cand []int32
		for q := start; q < end; q++ {
			query := queries[q]
			t := flexmath.Identity()
			if q < len(transforms) {
				t = transforms[q]
			}
			cand = s.query.candidates(cand[:0], queryBounds(query, t), s.mode)
			for _, c := range cand {
				ref := refs[c]
				n := int(ref.kind)
				var radius float32
				accepted := query.Filter == 0
				for k := 0; k < n; k++ {
					i := ref.idx[k]
					verts[k] = s.particles.Positions[i].Vec3()
					radius = max(radius, s.particles.Radius(i))
					if !accepted && particles.FiltersCollide(query.Filter, s.particles.Filters[i]) {
						accepted = true
					}
				}
				if !accepted {
					continue
				}
				if r, ok := s.probe(query, t, verts[:n], radius); ok {
					r.Query = q
					r.Actor = ActorID{entity: s.actors[ref.actor]}
					r.Kind = ref.kind
					r.Simplex = ref.simplex
					r.Indices = ref.idx
					parts[q] = append(parts[q], r)
				}
			}
		}
	})
	var out []QueryResult
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// simplices lists the active simplices of every actor. Actors without
// authored simplices expose their active particles as points.
func (s *Solver) simplices() []simplexRef {
	var refs []simplexRef
	for a, e := range s.actors {
		st := s.actorMap.Get(e)
		active := func(idx ...int32) bool {
			for _, i := range idx {
				if !s.slotActive(st, i) {
					return false
				}
			}
			return true
		}
		if len(st.points) == 0 && len(st.edges) == 0 && len(st.triangles) == 0 {
			locals := slices.Clone(st.order[:st.active])
			slices.Sort(locals)
			for _, local := range locals {
				refs = append(refs, simplexRef{actor: a, kind: SimplexPoint, simplex: int(local), idx: [3]int32{st.indices[local]}})
			}
			continue
		}
		for k, p := range st.points {
			if active(p) {
				refs = append(refs, simplexRef{actor: a, kind: SimplexPoint, simplex: k, idx: [3]int32{p}})
			}
		}
		for k, e := range st.edges {
			if active(e[0], e[1]) {
				refs = append(refs, simplexRef{actor: a, kind: SimplexEdge, simplex: k, idx: [3]int32{e[0], e[1]}})
			}
		}
		for k, t := range st.triangles {
			if active(t[0], t[1], t[2]) {
				refs = append(refs, simplexRef{actor: a, kind: SimplexTriangle, simplex: k, idx: t})
			}
		}
	}
	return refs
}

func (s *Solver) slotActive(st *actorState, slot int32) bool {
	local := s.slotLocal[slot]
	return local >= 0 && int(st.position[local]) < st.active
}

// probe tests one simplex against a query in world space.
func (s *Solver) probe(q Query, t flexmath.Transform, verts []mgl32.Vec3, radius float32) (QueryResult, bool) {
	switch q.Shape {
	case QuerySphere:
		center := t.TransformPoint(q.Center)
		p, _ := flexmath.ClosestOnSimplex(center, verts)
		d := p.Sub(center).Len() - q.Radius*t.UniformScale() - radius
		return QueryResult{Point: p, Distance: d}, d <= q.MaxDistance

	case QueryBox:
		// Work in the box frame where it is axis aligned.
		local := make([]mgl32.Vec3, len(verts))
		for k, v := range verts {
			local[k] = t.InverseTransformPoint(v)
		}
		p, _ := flexmath.ClosestOnSimplex(q.Center, local)
		lo, hi := q.Center.Sub(q.HalfExtents), q.Center.Add(q.HalfExtents)
		clamped := flexmath.MaxVec(lo, flexmath.MinVec(p, hi))
		d := t.TransformPoint(clamped).Sub(t.TransformPoint(p)).Len() - radius
		return QueryResult{Point: t.TransformPoint(p), Distance: d}, d <= q.MaxDistance

	case QueryRay:
		origin := t.TransformPoint(q.Center)
		dir, l := flexmath.Normalize(t.TransformDirection(q.Direction))
		if l == 0 {
			return QueryResult{}, false
		}
		return rayProbe(origin, dir, q.MaxDistance, verts, radius)
	}
	return QueryResult{}, false
}

// rayProbe intersects a ray with a point (sphere), edge (capsule) or
// triangle thickened by radius.
func rayProbe(o, d mgl32.Vec3, maxDist float32, verts []mgl32.Vec3, radius float32) (QueryResult, bool) {
	if maxDist <= 0 {
		maxDist = 1e6
	}
	hit := func(t float32) (QueryResult, bool) {
		if t < 0 || t > maxDist {
			return QueryResult{}, false
		}
		p := o.Add(d.Mul(t))
		c, _ := flexmath.ClosestOnSimplex(p, verts)
		return QueryResult{Point: c, Distance: t}, true
	}
	switch len(verts) {
	case 1:
		if t, ok := flexmath.RaySphere(o, d, verts[0], radius); ok {
			return hit(t)
		}
	case 2:
		end := o.Add(d.Mul(maxDist))
		sp, tp := flexmath.SegmentSegment(o, end, verts[0], verts[1])
		a := o.Add(end.Sub(o).Mul(sp))
		b := verts[0].Add(verts[1].Sub(verts[0]).Mul(tp))
		if a.Sub(b).Len() <= radius {
			return hit(sp * maxDist)
		}
	case 3:
		if t, ok := flexmath.RayTriangle(o, d, verts[0], verts[1], verts[2]); ok {
			return hit(t)
		}
	}
	return QueryResult{}, false
}
