package fluid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

const (
	testRadius  = float32(0.2)
	testSpacing = float32(0.1)
	testRest    = float32(1000)
)

func fluidSet(mode flexmath.Mode, pts []mgl32.Vec3, gas bool) (*particles.Set, []int32) {
	set := particles.NewSet(len(pts))
	m := ParticleMass(mode, testRadius, testSpacing, testRest)
	idx := make([]int32, len(pts))
	for i, p := range pts {
		idx[i] = int32(i)
		set.Positions[i] = flexmath.Vec4(p)
		set.InvMasses[i] = 1 / m
		set.PrincipalRadii[i] = mgl32.Vec4{0.05, 0.05, 0.05, 0}
		set.FluidMaterials[i] = particles.FluidMaterial{
			SmoothingRadius: testRadius,
			RestDensity:     testRest,
			Viscosity:       0.5,
			Gas:             gas,
		}
	}
	return set, idx
}

func lattice(n int, spacing float32, mode flexmath.Mode) []mgl32.Vec3 {
	var pts []mgl32.Vec3
	zn := n
	if mode == flexmath.Mode2D {
		zn = 1
	}
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < zn; z++ {
				pts = append(pts, mgl32.Vec3{float32(x), float32(y), float32(z)}.Mul(spacing))
			}
		}
	}
	return pts
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func TestIsolatedParticleHasZeroDensity(t *testing.T) {
	for _, gas := range []bool{false, true} {
		set, idx := fluidSet(flexmath.Mode3D, []mgl32.Vec3{{1, 2, 3}}, gas)
		d := NewDensity(flexmath.Mode3D, DefaultSettings())
		d.SetParticles(idx)
		d.UpdateInteractions(set, nil)
		d.CalculateLambdas(set, nil)

		state := set.FluidData[0]
		assert.Zero(t, state.Density)
		assert.Zero(t, state.Neighbors)
		assert.True(t, finite(state.Lambda), "gas=%v lambda=%v", gas, state.Lambda)
		if !gas {
			assert.Zero(t, state.Lambda)
		}

		d.ApplyPositionCorrections(set, nil, 1)
		assert.Equal(t, mgl32.Vec4{1, 2, 3, 0}, set.Positions[0])
	}
}

func TestInteriorDensityMatchesRest(t *testing.T) {
	for _, mode := range []flexmath.Mode{flexmath.Mode3D, flexmath.Mode2D} {
		set, idx := fluidSet(mode, lattice(9, testSpacing, mode), false)
		d := NewDensity(mode, DefaultSettings())
		d.SetParticles(idx)
		d.UpdateInteractions(set, nil)
		d.CalculateLambdas(set, nil)

		// Centre of the lattice.
		var centre int32
		target := mgl32.Vec3{4, 4, 0}.Mul(testSpacing)
		if mode == flexmath.Mode3D {
			target[2] = 4 * testSpacing
		}
		for i := range idx {
			if set.Positions[i].Vec3().Sub(target).Len() < 1e-5 {
				centre = int32(i)
			}
		}
		assert.InDelta(t, testRest, set.FluidData[centre].Density, float64(testRest)*1e-3, mode.String())
	}
}

func TestCompressedFluidExpands(t *testing.T) {
	set, idx := fluidSet(flexmath.Mode3D, lattice(6, testSpacing*0.6, flexmath.Mode3D), false)
	d := NewDensity(flexmath.Mode3D, DefaultSettings())
	d.SetParticles(idx)

	mean := func() float32 {
		var s float32
		for _, i := range idx {
			s += set.FluidData[i].Density
		}
		return s / float32(len(idx))
	}

	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	before := mean()
	require.Greater(t, before, testRest)

	for range 5 {
		d.UpdateInteractions(set, nil)
		d.CalculateLambdas(set, nil)
		d.ApplyPositionCorrections(set, nil, 1)
	}
	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	assert.Less(t, mean(), before)
	for _, i := range idx {
		assert.True(t, flexmath.IsFinite(set.Positions[i]))
	}
}

func TestPairCorrectionConservesMomentum(t *testing.T) {
	set, idx := fluidSet(flexmath.Mode3D, []mgl32.Vec3{{0, 0, 0}, {0.02, 0, 0}}, false)
	// Make the pair dense enough to push apart.
	for _, i := range idx {
		set.FluidMaterials[i].RestDensity = 1
	}
	d := NewDensity(flexmath.Mode3D, Settings{Relaxation: 1e-6})
	d.SetParticles(idx)
	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	d.ApplyPositionCorrections(set, nil, 1)

	a, b := set.Positions[0].Vec3(), set.Positions[1].Vec3()
	assert.Less(t, a.X(), float32(0))
	assert.Greater(t, b.X(), float32(0.02))
	assert.InDelta(t, 0.02, float64(a.X()+b.X()), 1e-5)
}

func TestViscosityReducesRelativeVelocity(t *testing.T) {
	set, idx := fluidSet(flexmath.Mode3D, []mgl32.Vec3{{0, 0, 0}, {0.1, 0, 0}}, false)
	set.Velocities[0] = mgl32.Vec4{0, 1, 0, 0}
	set.Velocities[1] = mgl32.Vec4{0, -1, 0, 0}
	d := NewDensity(flexmath.Mode3D, DefaultSettings())
	d.SetParticles(idx)
	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	d.ApplyVelocityCorrections(set, nil, mgl32.Vec3{0, -9.81, 0}, 1.0/60)

	rel := set.Velocities[0].Sub(set.Velocities[1]).Len()
	assert.Less(t, rel, float32(2))
	assert.InDelta(t, 0, float64(set.Velocities[0].Y()+set.Velocities[1].Y()), 1e-5)
}

func TestSurfaceNormalsPointOutward(t *testing.T) {
	set, idx := fluidSet(flexmath.Mode3D, lattice(5, testSpacing, flexmath.Mode3D), false)
	d := NewDensity(flexmath.Mode3D, DefaultSettings())
	d.SetParticles(idx)
	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	d.UpdateNormals(set, nil)

	centre := mgl32.Vec3{2, 2, 2}.Mul(testSpacing)
	// Index 0 is a corner.
	out := set.Positions[0].Vec3().Sub(centre)
	assert.Greater(t, set.Normals[0].Vec3().Dot(out), float32(0))
}

func TestAnisotropyFlattensAlongSheet(t *testing.T) {
	set, idx := fluidSet(flexmath.Mode3D, lattice(7, testSpacing*0.5, flexmath.Mode2D), false)
	d := NewDensity(flexmath.Mode3D, DefaultSettings())
	d.SetParticles(idx)
	d.UpdateInteractions(set, nil)
	d.CalculateLambdas(set, nil)
	d.UpdateAnisotropy(set, nil, 4)

	// Middle of a flat sheet in z = 0: the smallest axis is along z.
	i := int32(3*7 + 3)
	smallest := set.Anisotropies[0][i].Vec3()
	require.Greater(t, smallest.Len(), float32(0))
	n := smallest.Normalize()
	assert.InDelta(t, 1, math.Abs(float64(n.Z())), 1e-3)
}

func TestParticleMassIsPositive(t *testing.T) {
	assert.Greater(t, ParticleMass(flexmath.Mode3D, 0.2, 0.1, 1000), float32(0))
	assert.Greater(t, ParticleMass(flexmath.Mode2D, 0.2, 0.1, 1000), float32(0))
	assert.Zero(t, ParticleMass(flexmath.Mode3D, 0, 0.1, 1000))
}

func TestRestingLatticeStaysPut(t *testing.T) {
	pts := lattice(4, testSpacing, flexmath.Mode3D)
	set, idx := fluidSet(flexmath.Mode3D, pts, false)
	d := NewDensity(flexmath.Mode3D, DefaultSettings())
	d.SetParticles(idx)

	for range 20 {
		d.UpdateInteractions(set, nil)
		d.CalculateLambdas(set, nil)
		d.ApplyPositionCorrections(set, nil, 1)
	}
	var moved float32
	for k, i := range idx {
		moved = max(moved, set.Positions[i].Vec3().Sub(pts[k]).Len())
	}
	assert.Less(t, moved, float32(1e-4))
	assert.Positive(t, d.NeighborCount())
}

func TestArtificialPressureOnlyUnderCompression(t *testing.T) {
	run := func(spacing float32, tensileK float32) float32 {
		pts := lattice(4, spacing, flexmath.Mode3D)
		set, idx := fluidSet(flexmath.Mode3D, pts, false)
		s := DefaultSettings()
		s.TensileK = tensileK
		d := NewDensity(flexmath.Mode3D, s)
		d.SetParticles(idx)
		d.UpdateInteractions(set, nil)
		d.CalculateLambdas(set, nil)
		d.ApplyPositionCorrections(set, nil, 1)
		var moved float32
		for k, i := range idx {
			moved += set.Positions[i].Vec3().Sub(pts[k]).Len()
		}
		return moved
	}

	// At rest spacing the term is inactive.
	assert.InDelta(t, run(testSpacing, 0), run(testSpacing, 0.1), 1e-6)
	// Compressed, it adds repulsion of the same order as the density
	// correction rather than swamping it.
	plain := run(testSpacing*0.8, 0)
	with := run(testSpacing*0.8, 0.1)
	assert.Greater(t, with, plain)
	assert.Less(t, with, 2*plain)
}
