package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
)

// RopeSettings describes a rope between two points.
type RopeSettings struct {
	Start, End     mgl32.Vec3
	Segments       int
	Radius         float32
	Mass           float32 // per particle
	Compliance     float32
	BendCompliance float32
	MaxBending     float32
	PinStart       bool
	// UseChain solves all segments jointly instead of one distance
	// constraint per segment.
	UseChain bool
	// Tethers keep every particle within its rest distance of the pinned
	// start, which stops long ropes from stretching under load.
	Tethers bool
	Color   mgl32.Vec4
}

// DefaultRopeSettings returns a 3 m horizontal rope pinned at its start.
func DefaultRopeSettings() RopeSettings {
	return RopeSettings{
		Start:          mgl32.Vec3{0, 2, 0},
		End:            mgl32.Vec3{3, 2, 0},
		Segments:       20,
		Radius:         0.05,
		Mass:           0.1,
		BendCompliance: 1e-3,
		PinStart:       true,
		Color:          mgl32.Vec4{0.9, 0.7, 0.3, 1},
	}
}

func invMass(m float32) float32 {
	if m <= 0 {
		return 0
	}
	return 1 / m
}

// Rope builds a rope blueprint.
func Rope(s RopeSettings) (*Blueprint, error) {
	if s.Segments < 1 {
		return nil, fmt.Errorf("rope: %d segments", s.Segments)
	}
	n := s.Segments + 1
	b := NewBlueprint("rope", KindRope)
	segment := s.End.Sub(s.Start).Len() / float32(s.Segments)
	for k := 0; k < n; k++ {
		w := invMass(s.Mass)
		if k == 0 && s.PinStart {
			w = 0
		}
		b.AddParticle(Particle{
			Position: s.Start.Add(s.End.Sub(s.Start).Mul(float32(k) / float32(s.Segments))),
			InvMass:  w,
			Radius:   mgl32.Vec3{s.Radius, s.Radius, s.Radius},
			Color:    s.Color,
		})
	}
	for k := 0; k+1 < n; k++ {
		b.Edges = append(b.Edges, [2]int32{int32(k), int32(k + 1)})
	}

	if s.UseChain {
		chain := constraints.NewChainGroup()
		rest := make([]float32, s.Segments)
		idx := make([]int32, n)
		for k := range rest {
			rest[k] = segment
		}
		for k := range idx {
			idx[k] = int32(k)
		}
		chain.Add(constraints.ChainParams{RestLengths: rest, Compliance: s.Compliance}, idx...)
		b.Add(chain)
	} else {
		dist := constraints.NewDistanceGroup()
		for k := 0; k+1 < n; k++ {
			dist.Add(constraints.DistanceParams{RestLength: segment, Compliance: s.Compliance}, int32(k), int32(k+1))
		}
		b.Add(dist)
	}

	if n >= 3 {
		bend := constraints.NewBendingGroup()
		for k := 1; k+1 < n; k++ {
			bend.Add(constraints.BendingParams{Compliance: s.BendCompliance, MaxBending: s.MaxBending},
				int32(k-1), int32(k+1), int32(k))
		}
		b.Add(bend)
	}

	if s.Tethers && s.PinStart {
		tether := constraints.NewTetherGroup()
		for k := 1; k < n; k++ {
			tether.Add(constraints.TetherParams{MaxLength: segment * float32(k), Scale: 1}, int32(k), 0)
		}
		b.Add(tether)
	}
	return b, nil
}

// RodSettings describes a Cosserat rod: a rope with oriented particles that
// resists bending and twisting.
type RodSettings struct {
	Start, End          mgl32.Vec3
	Segments            int
	Radius              float32
	Mass                float32
	RotationalMass      float32
	StretchCompliance   mgl32.Vec3 // shear X, shear Y, stretch Z
	BendTwistCompliance mgl32.Vec3 // bend X, bend Y, twist Z
	PlasticYield        float32
	PlasticCreep        float32
	PinStart            bool
	Color               mgl32.Vec4
}

// DefaultRodSettings returns a stiff 2 m rod pinned at its start.
func DefaultRodSettings() RodSettings {
	return RodSettings{
		Start:          mgl32.Vec3{0, 2, 0},
		End:            mgl32.Vec3{2, 2, 0},
		Segments:       16,
		Radius:         0.05,
		Mass:           0.1,
		RotationalMass: 0.01,
		PinStart:       true,
		Color:          mgl32.Vec4{0.4, 0.8, 0.4, 1},
	}
}

// Rod builds a rod blueprint. Each particle's local Z axis follows the
// segment leaving it.
func Rod(s RodSettings) (*Blueprint, error) {
	if s.Segments < 1 {
		return nil, fmt.Errorf("rod: %d segments", s.Segments)
	}
	n := s.Segments + 1
	dir, length := flexmath.Normalize(s.End.Sub(s.Start))
	if length == 0 {
		return nil, fmt.Errorf("rod: zero length")
	}
	segment := length / float32(s.Segments)
	q := flexmath.QuatFromTo(mgl32.Vec3{0, 0, 1}, dir)

	b := NewBlueprint("rod", KindRod)
	for k := 0; k < n; k++ {
		w, wr := invMass(s.Mass), invMass(s.RotationalMass)
		if k == 0 && s.PinStart {
			w, wr = 0, 0
		}
		b.AddParticle(Particle{
			Position:          s.Start.Add(dir.Mul(segment * float32(k))),
			Orientation:       q,
			InvMass:           w,
			InvRotationalMass: wr,
			Radius:            mgl32.Vec3{s.Radius, s.Radius, s.Radius},
			Color:             s.Color,
		})
	}

	stretch := constraints.NewStretchShearGroup()
	for k := 0; k+1 < n; k++ {
		stretch.Add(constraints.StretchShearParams{RestLength: segment, Compliance: s.StretchCompliance}, int32(k), int32(k+1))
		b.Edges = append(b.Edges, [2]int32{int32(k), int32(k + 1)})
	}
	b.Add(stretch)

	if n >= 3 {
		bend := constraints.NewBendTwistGroup()
		for k := 0; k+2 < n; k++ {
			bend.Add(constraints.BendTwistParams{
				RestDarboux:  constraints.RestDarboux(q, q),
				Compliance:   s.BendTwistCompliance,
				PlasticYield: s.PlasticYield,
				PlasticCreep: s.PlasticCreep,
			}, int32(k), int32(k+1))
		}
		b.Add(bend)
	}
	return b, nil
}
