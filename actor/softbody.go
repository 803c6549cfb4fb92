package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/particles"
)

// SoftbodySettings describes a cube of particles held together by
// overlapping shape matching clusters.
type SoftbodySettings struct {
	Center          mgl32.Vec3
	Size            float32
	Resolution      int // particles per side
	Mass            float32
	Stiffness       float32
	PlasticYield    float32
	PlasticCreep    float32
	PlasticRecovery float32
	MaxDeformation  float32
	Color           mgl32.Vec4
}

// DefaultSoftbodySettings returns a 1 m elastic cube.
func DefaultSoftbodySettings() SoftbodySettings {
	return SoftbodySettings{
		Center:     mgl32.Vec3{0, 2, 0},
		Size:       1,
		Resolution: 4,
		Mass:       0.1,
		Stiffness:  1,
		Color:      mgl32.Vec4{0.9, 0.4, 0.4, 1},
	}
}

// Softbody builds a softbody blueprint. Each lattice cell is one cluster;
// neighbouring clusters share their common faces.
func Softbody(s SoftbodySettings) (*Blueprint, error) {
	if s.Resolution < 2 {
		return nil, fmt.Errorf("softbody: resolution %d", s.Resolution)
	}
	n := s.Resolution
	spacing := s.Size / float32(n-1)
	origin := s.Center.Sub(mgl32.Vec3{s.Size, s.Size, s.Size}.Mul(0.5))
	id := func(x, y, z int) int32 { return int32((z*n+y)*n + x) }
	radius := spacing * 0.5

	b := NewBlueprint("softbody", KindSoftbody)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				idx := b.AddParticle(Particle{
					Position: origin.Add(mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(spacing)),
					InvMass:  invMass(s.Mass),
					Radius:   mgl32.Vec3{radius, radius, radius},
					Color:    s.Color,
				})
				b.Points = append(b.Points, idx)
			}
		}
	}

	sm := constraints.NewShapeMatchingGroup()
	for z := 0; z+1 < n; z++ {
		for y := 0; y+1 < n; y++ {
			for x := 0; x+1 < n; x++ {
				var members []int32
				var rest []mgl32.Vec3
				for k := 0; k < 8; k++ {
					i := id(x+k&1, y+(k>>1)&1, z+(k>>2)&1)
					members = append(members, i)
					rest = append(rest, b.Particles[i].Position)
				}
				sm.Add(constraints.ShapeMatchingParams{
					Rest:            rest,
					Stiffness:       s.Stiffness,
					PlasticYield:    s.PlasticYield,
					PlasticCreep:    s.PlasticCreep,
					PlasticRecovery: s.PlasticRecovery,
					MaxDeformation:  s.MaxDeformation,
					Deformation:     mgl32.Ident3(),
				}, members...)
			}
		}
	}
	b.Add(sm)
	return b, nil
}

// BalloonSettings describes an inflated closed sphere: a subdivided
// icosahedron with distance constraints along its edges and a volume
// constraint over the whole surface.
type BalloonSettings struct {
	Center       mgl32.Vec3
	Radius       float32
	Subdivisions int
	Mass         float32
	Compliance   float32
	Pressure     float32
	ParticleSize float32
	Color        mgl32.Vec4
}

// DefaultBalloonSettings returns a 0.5 m balloon at rest pressure.
func DefaultBalloonSettings() BalloonSettings {
	return BalloonSettings{
		Center:       mgl32.Vec3{0, 2, 0},
		Radius:       0.5,
		Subdivisions: 2,
		Mass:         0.02,
		Pressure:     1,
		ParticleSize: 0.04,
		Color:        mgl32.Vec4{0.9, 0.9, 0.3, 1},
	}
}

// Balloon builds a balloon blueprint.
func Balloon(s BalloonSettings) (*Blueprint, error) {
	if s.Radius <= 0 {
		return nil, fmt.Errorf("balloon: radius %v", s.Radius)
	}
	verts, tris := Icosphere(s.Subdivisions)
	b := NewBlueprint("balloon", KindSoftbody)
	for _, v := range verts {
		b.AddParticle(Particle{
			Position: s.Center.Add(v.Mul(s.Radius)),
			InvMass:  invMass(s.Mass),
			Radius:   mgl32.Vec3{s.ParticleSize, s.ParticleSize, s.ParticleSize},
			Phase:    particles.OneSided,
			Color:    s.Color,
		})
	}
	b.Triangles = tris

	dist := constraints.NewDistanceGroup()
	seen := make(map[[2]int32]bool)
	for _, t := range tris {
		for k := range 3 {
			i, j := t[k], t[(k+1)%3]
			key := [2]int32{min(i, j), max(i, j)}
			if seen[key] {
				continue
			}
			seen[key] = true
			b.Edges = append(b.Edges, key)
			dist.Add(constraints.DistanceParams{
				RestLength: b.Particles[i].Position.Sub(b.Particles[j].Position).Len(),
				Compliance: s.Compliance,
			}, key[0], key[1])
		}
	}
	b.Add(dist)

	all := make([]int32, len(verts))
	for i := range all {
		all[i] = int32(i)
	}
	rest := constraints.MeshVolume(func(k int32) mgl32.Vec3 { return b.Particles[k].Position }, tris)
	volume := constraints.NewVolumeGroup()
	volume.Add(constraints.VolumeParams{Triangles: tris, RestVolume: rest, Pressure: s.Pressure}, all...)
	b.Add(volume)
	return b, nil
}

// Icosphere returns a unit sphere mesh with outward winding.
func Icosphere(subdivisions int) ([]mgl32.Vec3, [][3]int32) {
	t := float32((1 + 2.2360679775) / 2)
	verts := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	tris := [][3]int32{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for range subdivisions {
		mid := make(map[[2]int32]int32)
		midpoint := func(a, b int32) int32 {
			key := [2]int32{min(a, b), max(a, b)}
			if m, ok := mid[key]; ok {
				return m
			}
			verts = append(verts, verts[a].Add(verts[b]).Normalize())
			m := int32(len(verts) - 1)
			mid[key] = m
			return m
		}
		next := make([][3]int32, 0, len(tris)*4)
		for _, tri := range tris {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			next = append(next,
				[3]int32{tri[0], a, c}, [3]int32{tri[1], b, a},
				[3]int32{tri[2], c, b}, [3]int32{a, b, c})
		}
		tris = next
	}
	return verts, tris
}

// PinTo attaches local particle i to a collider at the given collider-space
// offset. The blueprint keeps at most one pin group.
func PinTo(b *Blueprint, i int32, collider int32, offset mgl32.Vec3, compliance, breakThreshold float32) {
	g, _ := b.Group(constraints.Pin).(*constraints.Group[constraints.PinParams, *constraints.PinParams])
	if g == nil {
		g = constraints.NewPinGroup()
		b.Add(g)
	}
	g.Add(constraints.PinParams{
		Collider:        collider,
		Offset:          offset,
		RestOrientation: mgl32.QuatIdent(),
		Compliance:      compliance,
		BreakThreshold:  breakThreshold,
	}, i)
}
