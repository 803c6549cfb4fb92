package flexmath

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// AABBFromPoint returns a box of half extent r around p.
func AABBFromPoint(p mgl32.Vec3, r float32) AABB {
	e := mgl32.Vec3{r, r, r}
	return AABB{Min: p.Sub(e), Max: p.Add(e)}
}

// AABBFromPoints returns the bounds of pts. An empty slice yields the zero box.
func AABBFromPoints(pts ...mgl32.Vec3) AABB {
	if len(pts) == 0 {
		return AABB{}
	}
	b := AABB{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.EncapsulatePoint(p)
	}
	return b
}

// EncapsulatePoint grows the box to contain p.
func (b AABB) EncapsulatePoint(p mgl32.Vec3) AABB {
	return AABB{Min: MinVec(b.Min, p), Max: MaxVec(b.Max, p)}
}

// Encapsulate grows the box to contain o.
func (b AABB) Encapsulate(o AABB) AABB {
	return AABB{Min: MinVec(b.Min, o.Min), Max: MaxVec(b.Max, o.Max)}
}

// Expand inflates the box by d on every side.
func (b AABB) Expand(d float32) AABB {
	e := mgl32.Vec3{d, d, d}
	return AABB{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Overlaps reports whether the boxes intersect (touching counts).
func (b AABB) Overlaps(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// Contains reports whether p is inside the box.
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Center returns the box centre.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the box extents.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// MaxExtent returns the largest side length.
func (b AABB) MaxExtent() float32 {
	s := b.Size()
	return max(s[0], s[1], s[2])
}

// Transform returns the bounds of the box after applying t.
func (b AABB) Transform(t Transform) AABB {
	out := AABB{}
	for i := 0; i < 8; i++ {
		c := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		w := t.TransformPoint(c)
		if i == 0 {
			out = AABB{Min: w, Max: w}
		} else {
			out = out.EncapsulatePoint(w)
		}
	}
	return out
}
