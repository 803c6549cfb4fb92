package flexmath

import "github.com/go-gl/mathgl/mgl32"

// ClosestOnSegment returns the closest point to p on segment ab and its
// barycentric parameter t in [0,1].
func ClosestOnSegment(p, a, b mgl32.Vec3) (mgl32.Vec3, float32) {
	ab := b.Sub(a)
	l2 := ab.LenSqr()
	if l2 < Epsilon {
		return a, 0
	}
	t := Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t)), t
}

// ClosestOnTriangle returns the closest point to p on triangle abc and its
// barycentric coordinates.
func ClosestOnTriangle(p, a, b, c mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a, mgl32.Vec3{1, 0, 0}
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b, mgl32.Vec3{0, 1, 0}
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v)), mgl32.Vec3{1 - v, v, 0}
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c, mgl32.Vec3{0, 0, 1}
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w)), mgl32.Vec3{1 - w, 0, w}
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w)), mgl32.Vec3{0, 1 - w, w}
	}
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w)), mgl32.Vec3{1 - v - w, v, w}
}

// ClosestOnSimplex returns the closest point to p on the simplex formed by
// one, two or three vertices, and the barycentric weights of that point.
func ClosestOnSimplex(p mgl32.Vec3, verts []mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	switch len(verts) {
	case 1:
		return verts[0], mgl32.Vec3{1, 0, 0}
	case 2:
		q, t := ClosestOnSegment(p, verts[0], verts[1])
		return q, mgl32.Vec3{1 - t, t, 0}
	case 3:
		return ClosestOnTriangle(p, verts[0], verts[1], verts[2])
	}
	return p, mgl32.Vec3{}
}

// SegmentSegment returns the parameters s, t of the closest points between
// segments p1q1 and p2q2.
func SegmentSegment(p1, q1, p2, q2 mgl32.Vec3) (s, t float32) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.LenSqr()
	e := d2.LenSqr()
	f := d2.Dot(r)
	if a <= Epsilon && e <= Epsilon {
		return 0, 0
	}
	if a <= Epsilon {
		return 0, Clamp(f/e, 0, 1)
	}
	c := d1.Dot(r)
	if e <= Epsilon {
		return Clamp(-c/a, 0, 1), 0
	}
	b := d1.Dot(d2)
	denom := a*e - b*b
	if denom != 0 {
		s = Clamp((b*f-c*e)/denom, 0, 1)
	}
	t = (b*s + f) / e
	if t < 0 {
		t = 0
		s = Clamp(-c/a, 0, 1)
	} else if t > 1 {
		t = 1
		s = Clamp((b-c)/a, 0, 1)
	}
	return s, t
}

// RayTriangle intersects the ray o + t*d with triangle abc. It returns the hit
// distance and whether the ray hit.
func RayTriangle(o, d, a, b, c mgl32.Vec3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	h := d.Cross(e2)
	det := e1.Dot(h)
	if det > -Epsilon && det < Epsilon {
		return 0, false
	}
	inv := 1 / det
	s := o.Sub(a)
	u := inv * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := inv * d.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := inv * e2.Dot(q)
	return t, t >= 0
}

// RaySphere intersects the ray o + t*d (d unit length) with a sphere.
func RaySphere(o, d, center mgl32.Vec3, radius float32) (float32, bool) {
	m := o.Sub(center)
	b := m.Dot(d)
	c := m.LenSqr() - radius*radius
	if c > 0 && b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - sqrt32(disc)
	if t < 0 {
		t = 0
	}
	return t, true
}

// SignedTetVolume returns the signed volume of the tetrahedron with apex o.
func SignedTetVolume(o, a, b, c mgl32.Vec3) float32 {
	return a.Sub(o).Dot(b.Sub(o).Cross(c.Sub(o))) / 6
}
