package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

// Pinning selects which cloth particles get zero inverse mass.
type Pinning uint8

const (
	PinNone Pinning = iota
	PinCorners
	PinTopRow
)

// ClothSettings describes a rectangular cloth in the local XY plane, rows
// running down from +Y. Transform places it in the world.
type ClothSettings struct {
	Transform         flexmath.Transform
	Width, Height     float32
	ResX, ResY        int // particles per side
	Radius            float32
	Mass              float32 // per particle
	StretchCompliance float32
	ShearCompliance   float32
	BendCompliance    float32
	MaxCompression    float32
	Pin               Pinning
	Tethers           bool
	Drag, Lift        float32
	AirDensity        float32
	// SkinRadius > 0 adds a skin constraint per particle.
	SkinRadius       float32
	BackstopRadius   float32
	BackstopDistance float32
	SelfCollision    bool
	Color            mgl32.Vec4
}

// DefaultClothSettings returns a 2x2 m cloth hanging from its top row.
func DefaultClothSettings() ClothSettings {
	return ClothSettings{
		Transform:      flexmath.Translation(mgl32.Vec3{-1, 3, 0}),
		Width:          2,
		Height:         2,
		ResX:           20,
		ResY:           20,
		Radius:         0.04,
		Mass:           0.02,
		BendCompliance: 1e-4,
		Pin:            PinTopRow,
		Drag:           0.05,
		Lift:           0.05,
		AirDensity:     1.2,
		Color:          mgl32.Vec4{0.3, 0.5, 0.9, 1},
	}
}

// Cloth builds a cloth blueprint.
func Cloth(s ClothSettings) (*Blueprint, error) {
	if s.ResX < 2 || s.ResY < 2 {
		return nil, fmt.Errorf("cloth: resolution %dx%d", s.ResX, s.ResY)
	}
	b := NewBlueprint("cloth", KindCloth)
	dx := s.Width / float32(s.ResX-1)
	dy := s.Height / float32(s.ResY-1)
	id := func(x, y int) int32 { return int32(y*s.ResX + x) }

	var flags uint32
	if s.SelfCollision {
		flags |= particles.SelfCollide
	}
	for y := 0; y < s.ResY; y++ {
		for x := 0; x < s.ResX; x++ {
			w := invMass(s.Mass)
			switch s.Pin {
			case PinCorners:
				if y == 0 && (x == 0 || x == s.ResX-1) {
					w = 0
				}
			case PinTopRow:
				if y == 0 {
					w = 0
				}
			}
			local := mgl32.Vec3{float32(x) * dx, -float32(y) * dy, 0}
			b.AddParticle(Particle{
				Position: s.Transform.TransformPoint(local),
				InvMass:  w,
				Radius:   mgl32.Vec3{s.Radius, s.Radius, s.Radius},
				Phase:    flags,
				Color:    s.Color,
			})
		}
	}

	pos := func(i int32) mgl32.Vec3 { return b.Particles[i].Position }
	dist := constraints.NewDistanceGroup()
	link := func(i, j int32, compliance float32) {
		dist.Add(constraints.DistanceParams{
			RestLength:     pos(i).Sub(pos(j)).Len(),
			Compliance:     compliance,
			MaxCompression: s.MaxCompression,
		}, i, j)
	}
	for y := 0; y < s.ResY; y++ {
		for x := 0; x < s.ResX; x++ {
			if x+1 < s.ResX {
				link(id(x, y), id(x+1, y), s.StretchCompliance)
			}
			if y+1 < s.ResY {
				link(id(x, y), id(x, y+1), s.StretchCompliance)
			}
			if x+1 < s.ResX && y+1 < s.ResY {
				link(id(x, y), id(x+1, y+1), s.ShearCompliance)
				link(id(x+1, y), id(x, y+1), s.ShearCompliance)
				b.Triangles = append(b.Triangles,
					[3]int32{id(x, y), id(x, y+1), id(x+1, y)},
					[3]int32{id(x+1, y), id(x, y+1), id(x+1, y+1)})
			}
		}
	}
	b.Add(dist)

	bend := constraints.NewBendingGroup()
	for y := 0; y < s.ResY; y++ {
		for x := 0; x < s.ResX; x++ {
			if x > 0 && x+1 < s.ResX {
				bend.Add(constraints.BendingParams{Compliance: s.BendCompliance}, id(x-1, y), id(x+1, y), id(x, y))
			}
			if y > 0 && y+1 < s.ResY {
				bend.Add(constraints.BendingParams{Compliance: s.BendCompliance}, id(x, y-1), id(x, y+1), id(x, y))
			}
		}
	}
	b.Add(bend)

	if s.Tethers {
		addTethers(b)
	}

	if s.Drag > 0 || s.Lift > 0 {
		aero := constraints.NewAerodynamicsGroup()
		air := s.AirDensity
		if air <= 0 {
			air = 1.2
		}
		for i := range b.Particles {
			if b.Particles[i].InvMass > 0 {
				aero.Add(constraints.AerodynamicsParams{Drag: s.Drag, Lift: s.Lift, AirDensity: air}, int32(i))
			}
		}
		b.Add(aero)
	}

	if s.SkinRadius > 0 {
		skin := constraints.NewSkinGroup()
		for i := range b.Particles {
			skin.Add(constraints.SkinParams{
				Radius:           s.SkinRadius,
				BackstopRadius:   s.BackstopRadius,
				BackstopDistance: s.BackstopDistance,
			}, int32(i))
		}
		b.Add(skin)
	}
	return b, nil
}

// addTethers links every free particle to its closest pinned particle.
func addTethers(b *Blueprint) {
	var pinned []int32
	for i, p := range b.Particles {
		if p.InvMass == 0 {
			pinned = append(pinned, int32(i))
		}
	}
	if len(pinned) == 0 {
		return
	}
	tether := constraints.NewTetherGroup()
	for i, p := range b.Particles {
		if p.InvMass == 0 {
			continue
		}
		best, bestDist := pinned[0], float32(-1)
		for _, a := range pinned {
			d := b.Particles[a].Position.Sub(p.Position).Len()
			if bestDist < 0 || d < bestDist {
				best, bestDist = a, d
			}
		}
		tether.Add(constraints.TetherParams{MaxLength: bestDist, Scale: 1}, int32(i), best)
	}
	b.Add(tether)
}
