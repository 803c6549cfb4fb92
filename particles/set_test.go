package particles

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowKeepsContents(t *testing.T) {
	s := NewSet(2)
	s.Teleport(1, mgl32.Vec4{1, 2, 3, 9})
	s.InvMasses[1] = 0.5

	s.Grow(8)
	require.Equal(t, 8, s.Capacity())
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 0}, s.Positions[1])
	assert.Equal(t, float32(0.5), s.InvMasses[1])
	assert.Equal(t, mgl32.QuatIdent(), s.Orientations[7])
	assert.Zero(t, s.InvMasses[7])
	assert.Len(t, s.Anisotropies[2], 8)

	// Shrinking is a no-op.
	s.Grow(4)
	assert.Equal(t, 8, s.Capacity())
}

func TestResetClearsSlot(t *testing.T) {
	s := NewSet(1)
	s.Teleport(0, mgl32.Vec4{1, 1, 1, 0})
	s.Velocities[0] = mgl32.Vec4{3, 0, 0, 0}
	s.InvMasses[0] = 1
	s.AddDelta(0, mgl32.Vec4{1, 0, 0, 0})

	s.Reset(0)
	assert.Zero(t, s.Positions[0])
	assert.Zero(t, s.Velocities[0])
	assert.Zero(t, s.InvMasses[0])
	assert.Zero(t, s.Counts[0])
}

func TestApplyDeltaAverages(t *testing.T) {
	s := NewSet(1)
	s.AddDelta(0, mgl32.Vec4{1, 0, 0, 0})
	s.AddDelta(0, mgl32.Vec4{0, 2, 0, 0})

	s.ApplyDelta(0, 1)
	assert.InDelta(t, 0.5, s.Positions[0][0], 1e-6)
	assert.InDelta(t, 1.0, s.Positions[0][1], 1e-6)
	assert.Zero(t, s.Counts[0])

	s.ApplyDelta(0, 1)
	assert.InDelta(t, 0.5, s.Positions[0][0], 1e-6, "no contributions leaves position alone")
}

func TestApplyDeltaNormalizesOrientation(t *testing.T) {
	s := NewSet(1)
	s.AddOrientationDelta(0, mgl32.Quat{W: 0, V: mgl32.Vec3{0.5, 0, 0}})
	s.ApplyDelta(0, 1)
	assert.InDelta(t, 1.0, s.Orientations[0].Len(), 1e-5)
}

func TestRadius(t *testing.T) {
	s := NewSet(1)
	s.PrincipalRadii[0] = mgl32.Vec4{0.1, 0.3, 0.2, 0}
	assert.Equal(t, float32(0.3), s.Radius(0))
}

func TestPhases(t *testing.T) {
	p := MakePhase(5, SelfCollide|Fluid)
	assert.Equal(t, uint32(5), PhaseGroup(p))
	assert.True(t, IsFluid(p))
	assert.False(t, IsFluid(MakePhase(5, SelfCollide)))

	// Group bits do not leak into flags.
	assert.Equal(t, uint32(0), MakePhase(GroupMask+1, 0))
}

func TestPhasesCollide(t *testing.T) {
	f := DefaultFilter
	tests := []struct {
		name   string
		pa, pb uint32
		want   bool
	}{
		{"different groups", MakePhase(1, 0), MakePhase(2, 0), true},
		{"same group without self collision", MakePhase(1, 0), MakePhase(1, 0), false},
		{"same group self colliding", MakePhase(1, SelfCollide), MakePhase(1, SelfCollide), true},
		{"same group one self colliding", MakePhase(1, SelfCollide), MakePhase(1, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhasesCollide(tt.pa, tt.pb, f, f))
		})
	}
}

func TestFiltersCollide(t *testing.T) {
	a := MakeFilter(0b10, 0b01)
	b := MakeFilter(0b01, 0b10)
	assert.True(t, FiltersCollide(a, b))

	c := MakeFilter(0b01, 0b01)
	assert.False(t, FiltersCollide(a, c), "a does not accept category 1")
	assert.False(t, FiltersCollide(MakeFilter(0, 1), DefaultFilter))
}
