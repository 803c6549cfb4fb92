package actor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/coloring"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/particles"
)

type grouped interface {
	constraints.Source
	Tuple(c int) []int32
}

// colorsValid checks every group of b with the coloring validator.
func colorsValid(t *testing.T, b *Blueprint) {
	t.Helper()
	b.Generate()
	for _, src := range b.Constraints {
		g := src.(grouped)
		parts := []int32{}
		offsets := []int32{0}
		for c := 0; c < g.Len(); c++ {
			parts = append(parts, g.Tuple(c)...)
			offsets = append(offsets, int32(len(parts)))
		}
		colors, _ := coloring.Color(parts, offsets)
		assert.True(t, coloring.Valid(parts, offsets, colors), src.Type().String())
	}
}

func TestRopeBlueprint(t *testing.T) {
	s := DefaultRopeSettings()
	s.Segments = 10
	s.Tethers = true
	b, err := Rope(s)
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	assert.Equal(t, 11, b.Len())
	assert.Zero(t, b.Particles[0].InvMass)
	assert.Len(t, b.Edges, 10)
	assert.Equal(t, 10, b.Group(constraints.Distance).Len())
	assert.Equal(t, 9, b.Group(constraints.Bending).Len())
	assert.Equal(t, 10, b.Group(constraints.Tether).Len())
	assert.Nil(t, b.Group(constraints.Chain))
	colorsValid(t, b)

	s.UseChain = true
	b, err = Rope(s)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Group(constraints.Chain).Len())
	assert.Nil(t, b.Group(constraints.Distance))
}

func TestRodOrientationsFollowSegments(t *testing.T) {
	b, err := Rod(DefaultRodSettings())
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	dir := b.Particles[1].Position.Sub(b.Particles[0].Position).Normalize()
	z := b.Particles[0].Orientation.Rotate(mgl32.Vec3{0, 0, 1})
	assert.InDelta(t, 1, z.Dot(dir), 1e-5)
	assert.NotNil(t, b.Group(constraints.StretchShear))
	assert.NotNil(t, b.Group(constraints.BendTwist))
}

func TestClothBlueprint(t *testing.T) {
	s := DefaultClothSettings()
	s.ResX, s.ResY = 4, 3
	s.Tethers = true
	s.SkinRadius = 0.1
	b, err := Cloth(s)
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	assert.Equal(t, 12, b.Len())
	assert.Len(t, b.Triangles, 2*3*2)
	// Structural, vertical and two shear links per cell.
	assert.Equal(t, 3*3+4*2+2*3*2, b.Group(constraints.Distance).Len())
	// Top row pinned, the other eight tethered.
	assert.Equal(t, 8, b.Group(constraints.Tether).Len())
	assert.Equal(t, 8, b.Group(constraints.Aerodynamics).Len())
	assert.Equal(t, 12, b.Group(constraints.Skin).Len())
	colorsValid(t, b)
}

func TestSoftbodyClusters(t *testing.T) {
	s := DefaultSoftbodySettings()
	s.Resolution = 3
	b, err := Softbody(s)
	require.NoError(t, err)
	require.NoError(t, b.Validate())
	assert.Equal(t, 27, b.Len())
	assert.Equal(t, 8, b.Group(constraints.ShapeMatching).Len())
	colorsValid(t, b)
}

func TestBalloonEnclosesPositiveVolume(t *testing.T) {
	b, err := Balloon(DefaultBalloonSettings())
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	g := b.Group(constraints.Volume).(*constraints.Group[constraints.VolumeParams, *constraints.VolumeParams])
	require.Equal(t, 1, g.Len())
	// Close to the sphere volume for a twice subdivided icosahedron.
	sphere := 4.0 / 3 * 3.14159265 * 0.125
	assert.InDelta(t, sphere, g.Params[0].RestVolume, sphere*0.1)
	assert.Len(t, b.Particles, 162)
}

func TestFluidBlock(t *testing.T) {
	s := DefaultFluidSettings()
	s.Count = [3]int{3, 4, 5}
	b, err := FluidBlock(s)
	require.NoError(t, err)
	assert.Equal(t, 60, b.Len())
	for _, p := range b.Particles {
		assert.True(t, particles.IsFluid(p.Phase))
		assert.Greater(t, p.InvMass, float32(0))
	}

	s.Material.RestDensity = 0
	_, err = FluidBlock(s)
	assert.Error(t, err)
}

func TestEmitterStartsPooled(t *testing.T) {
	b, err := Emitter(DefaultEmitterSettings())
	require.NoError(t, err)
	require.NoError(t, b.Validate())
	assert.Equal(t, 512, b.Len())
	assert.Zero(t, b.Active())
	require.NotNil(t, b.Emitter)
}

func TestValidateErrors(t *testing.T) {
	empty := NewBlueprint("empty", KindGeneric)
	assert.ErrorIs(t, empty.Validate(), ErrEmptyBlueprint)

	b := NewBlueprint("b", KindGeneric)
	b.AddParticle(Particle{InvMass: 1})
	b.AddParticle(Particle{InvMass: 1})
	b.Edges = [][2]int32{{0, 2}}
	assert.ErrorIs(t, b.Validate(), ErrIndexOutOfRange)

	b.Edges = nil
	d1 := constraints.NewDistanceGroup()
	d1.Add(constraints.DistanceParams{RestLength: 1}, 0, 1)
	b.Add(d1)
	b.Add(constraints.NewDistanceGroup())
	assert.ErrorIs(t, b.Validate(), ErrDuplicateGroup)

	b.Constraints = b.Constraints[:1]
	b.ActiveCount = 1
	assert.ErrorIs(t, b.Validate(), ErrInactiveTouched)

	b.ActiveCount = -1
	assert.NoError(t, b.Validate())
}

func TestPinToReusesGroup(t *testing.T) {
	b, err := Rope(DefaultRopeSettings())
	require.NoError(t, err)
	PinTo(b, 0, 0, mgl32.Vec3{}, 0, 0)
	PinTo(b, 3, 0, mgl32.Vec3{1, 0, 0}, 0, 0)
	assert.Equal(t, 2, b.Group(constraints.Pin).Len())
	assert.NoError(t, b.Validate())
}
