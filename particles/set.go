// Package particles holds the struct-of-arrays particle storage owned by the
// solver.
package particles

import (
	"github.com/go-gl/mathgl/mgl32"
)

// FluidMaterial holds per-particle SPH parameters.
// Zero RestDensity marks a non-fluid particle.
type FluidMaterial struct {
	SmoothingRadius     float32
	RestDensity         float32
	Viscosity           float32
	SurfaceTension      float32
	Vorticity           float32
	AtmosphericDrag     float32
	AtmosphericPressure float32
	Buoyancy            float32
	// Gas fluids are not clamped to non-negative density error.
	Gas bool
}

// FluidState is the per-particle fluid scratch written by the density pass.
type FluidState struct {
	Density   float32
	Lambda    float32
	Neighbors int32
}

// Set is the struct-of-arrays particle store. All slices share one length,
// the capacity. Indices are stable: the store grows but never shrinks.
type Set struct {
	Positions           []mgl32.Vec4
	PrevPositions       []mgl32.Vec4
	StartPositions      []mgl32.Vec4
	EndPositions        []mgl32.Vec4
	RenderablePositions []mgl32.Vec4
	RestPositions       []mgl32.Vec4
	Velocities          []mgl32.Vec4
	AngularVelocities   []mgl32.Vec4
	ExternalForces      []mgl32.Vec4
	ExternalTorques     []mgl32.Vec4
	Wind                []mgl32.Vec4
	Normals             []mgl32.Vec4
	Vorticity           []mgl32.Vec4
	SkinPoints          []mgl32.Vec4
	SkinNormals         []mgl32.Vec4

	Orientations           []mgl32.Quat
	PrevOrientations       []mgl32.Quat
	StartOrientations      []mgl32.Quat
	EndOrientations        []mgl32.Quat
	RenderableOrientations []mgl32.Quat
	RestOrientations       []mgl32.Quat

	InvMasses           []float32
	InvRotationalMasses []float32
	PrincipalRadii      []mgl32.Vec4
	Phases              []uint32
	Filters             []uint32
	Colors              []mgl32.Vec4
	Life                []float32

	FluidMaterials []FluidMaterial
	FluidData      []FluidState
	Anisotropies   [3][]mgl32.Vec4

	// Shared accumulation scratch, one slot per particle.
	Deltas            []mgl32.Vec4
	Counts            []int32
	OrientationDeltas []mgl32.Quat
	OrientationCounts []int32
}

// NewSet allocates a store with the given capacity.
func NewSet(capacity int) *Set {
	s := &Set{}
	s.Grow(capacity)
	return s
}

// Capacity returns the number of slots.
func (s *Set) Capacity() int { return len(s.Positions) }

func grow[T any](v []T, n int) []T {
	if len(v) >= n {
		return v
	}
	out := make([]T, n)
	copy(out, v)
	return out
}

func growQuat(v []mgl32.Quat, n int) []mgl32.Quat {
	old := len(v)
	v = grow(v, n)
	for i := old; i < n; i++ {
		v[i] = mgl32.QuatIdent()
	}
	return v
}

// Grow extends every array to at least n slots, keeping existing contents.
// New slots hold identity orientations and zero inverse mass.
func (s *Set) Grow(n int) {
	if n <= s.Capacity() {
		return
	}
	s.Positions = grow(s.Positions, n)
	s.PrevPositions = grow(s.PrevPositions, n)
	s.StartPositions = grow(s.StartPositions, n)
	s.EndPositions = grow(s.EndPositions, n)
	s.RenderablePositions = grow(s.RenderablePositions, n)
	s.RestPositions = grow(s.RestPositions, n)
	s.Velocities = grow(s.Velocities, n)
	s.AngularVelocities = grow(s.AngularVelocities, n)
	s.ExternalForces = grow(s.ExternalForces, n)
	s.ExternalTorques = grow(s.ExternalTorques, n)
	s.Wind = grow(s.Wind, n)
	s.Normals = grow(s.Normals, n)
	s.Vorticity = grow(s.Vorticity, n)
	s.SkinPoints = grow(s.SkinPoints, n)
	s.SkinNormals = grow(s.SkinNormals, n)

	s.Orientations = growQuat(s.Orientations, n)
	s.PrevOrientations = growQuat(s.PrevOrientations, n)
	s.StartOrientations = growQuat(s.StartOrientations, n)
	s.EndOrientations = growQuat(s.EndOrientations, n)
	s.RenderableOrientations = growQuat(s.RenderableOrientations, n)
	s.RestOrientations = growQuat(s.RestOrientations, n)

	s.InvMasses = grow(s.InvMasses, n)
	s.InvRotationalMasses = grow(s.InvRotationalMasses, n)
	s.PrincipalRadii = grow(s.PrincipalRadii, n)
	s.Phases = grow(s.Phases, n)
	s.Filters = grow(s.Filters, n)
	s.Colors = grow(s.Colors, n)
	s.Life = grow(s.Life, n)

	s.FluidMaterials = grow(s.FluidMaterials, n)
	s.FluidData = grow(s.FluidData, n)
	for i := range s.Anisotropies {
		s.Anisotropies[i] = grow(s.Anisotropies[i], n)
	}

	s.Deltas = grow(s.Deltas, n)
	s.Counts = grow(s.Counts, n)
	s.OrientationDeltas = grow(s.OrientationDeltas, n)
	s.OrientationCounts = grow(s.OrientationCounts, n)
}

// Radius returns the collision radius of particle i (largest principal radius).
func (s *Set) Radius(i int32) float32 {
	r := s.PrincipalRadii[i]
	return max(r[0], r[1], r[2])
}

// Reset clears the dynamic state of slot i, leaving it inert.
func (s *Set) Reset(i int32) {
	s.Positions[i] = mgl32.Vec4{}
	s.PrevPositions[i] = mgl32.Vec4{}
	s.StartPositions[i] = mgl32.Vec4{}
	s.EndPositions[i] = mgl32.Vec4{}
	s.RenderablePositions[i] = mgl32.Vec4{}
	s.Velocities[i] = mgl32.Vec4{}
	s.AngularVelocities[i] = mgl32.Vec4{}
	s.ExternalForces[i] = mgl32.Vec4{}
	s.ExternalTorques[i] = mgl32.Vec4{}
	s.Wind[i] = mgl32.Vec4{}
	s.Normals[i] = mgl32.Vec4{}
	s.Vorticity[i] = mgl32.Vec4{}
	q := mgl32.QuatIdent()
	s.Orientations[i] = q
	s.PrevOrientations[i] = q
	s.StartOrientations[i] = q
	s.EndOrientations[i] = q
	s.RenderableOrientations[i] = q
	s.InvMasses[i] = 0
	s.InvRotationalMasses[i] = 0
	s.Life[i] = 0
	s.FluidData[i] = FluidState{}
	s.Deltas[i] = mgl32.Vec4{}
	s.Counts[i] = 0
	s.OrientationDeltas[i] = mgl32.Quat{}
	s.OrientationCounts[i] = 0
}

// Teleport places particle i at p with zero velocity.
func (s *Set) Teleport(i int32, p mgl32.Vec4) {
	p[3] = 0
	s.Positions[i] = p
	s.PrevPositions[i] = p
	s.StartPositions[i] = p
	s.EndPositions[i] = p
	s.RenderablePositions[i] = p
	s.Velocities[i] = mgl32.Vec4{}
}

// AddDelta accumulates a position correction for particle i.
func (s *Set) AddDelta(i int32, d mgl32.Vec4) {
	s.Deltas[i] = s.Deltas[i].Add(d)
	s.Counts[i]++
}

// AddOrientationDelta accumulates an orientation correction for particle i.
func (s *Set) AddOrientationDelta(i int32, d mgl32.Quat) {
	s.OrientationDeltas[i] = s.OrientationDeltas[i].Add(d)
	s.OrientationCounts[i]++
}

// ApplyDelta writes back the averaged correction of particle i scaled by sor
// and clears its accumulator. Particles with no contributions are skipped.
func (s *Set) ApplyDelta(i int32, sor float32) {
	if c := s.Counts[i]; c > 0 {
		s.Positions[i] = s.Positions[i].Add(s.Deltas[i].Mul(sor / float32(c)))
		s.Positions[i][3] = 0
	}
	s.Deltas[i] = mgl32.Vec4{}
	s.Counts[i] = 0
	if c := s.OrientationCounts[i]; c > 0 {
		q := s.Orientations[i].Add(s.OrientationDeltas[i].Scale(sor / float32(c)))
		s.Orientations[i] = q.Normalize()
	}
	s.OrientationDeltas[i] = mgl32.Quat{}
	s.OrientationCounts[i] = 0
}
