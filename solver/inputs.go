package solver

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

// updateSkins copies every skin provider's pose into the skin arrays.
func (s *Solver) updateSkins() {
	set := s.particles
	for _, e := range s.actors {
		st := s.actorMap.Get(e)
		if st.skin == nil {
			continue
		}
		st.skin.Skin(st.skinPoints, st.skinNormals)
		for local, slot := range st.indices {
			set.SkinPoints[slot] = s.mode.Project2D(flexmath.Vec4(st.skinPoints[local]))
			set.SkinNormals[slot] = flexmath.Vec4(st.skinNormals[local])
		}
	}
}

// updateClothNormals recomputes area weighted vertex normals of every
// non-fluid actor with triangles.
func (s *Solver) updateClothNormals() {
	set := s.particles
	for _, e := range s.actors {
		st := s.actorMap.Get(e)
		if len(st.triangles) == 0 {
			continue
		}
		for _, slot := range st.indices {
			if !particles.IsFluid(set.Phases[slot]) {
				set.Normals[slot] = mgl32.Vec4{}
			}
		}
		for _, t := range st.triangles {
			a, b, c := set.Positions[t[0]].Vec3(), set.Positions[t[1]].Vec3(), set.Positions[t[2]].Vec3()
			n := flexmath.Vec4(b.Sub(a).Cross(c.Sub(a)))
			for _, i := range t {
				set.Normals[i] = set.Normals[i].Add(n)
			}
		}
		for _, slot := range st.indices {
			if n, l := flexmath.Normalize(set.Normals[slot].Vec3()); l > 0 {
				set.Normals[slot] = flexmath.Vec4(n)
			}
		}
	}
}
