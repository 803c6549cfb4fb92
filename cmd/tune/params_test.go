package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/constraints"
)

func TestNormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	assert.InDeltaSlice(t, raw, pv.Denormalize(pv.Normalize(raw)), 1e-9)
}

func TestClampRoundsIntegers(t *testing.T) {
	pv := NewParamVector()
	v := pv.DefaultVector()
	v[0] = 3.6 // substeps
	v[2] = 5   // distance sor above max
	v[6] = -1  // collision margin below min
	c := pv.Clamp(v)
	assert.Equal(t, 4.0, c[0])
	assert.Equal(t, 1.9, c[2])
	assert.Equal(t, 0.005, c[6])
}

func TestApplyAndExtract(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	want := []float64{6, 3, 1.5, 2, 2, 4, 0.05, 0.2}
	pv.ApplyToConfig(cfg, want)

	require.Equal(t, 6, cfg.Solver.Substeps)
	assert.Equal(t, 3, cfg.Solver.Parameters(constraints.Distance).Iterations)
	assert.Equal(t, 4, cfg.Solver.Parameters(constraints.Density).Iterations)
	assert.InDeltaSlice(t, want, pv.ExtractFromConfig(cfg), 1e-6)
	require.NoError(t, cfg.Solver.Validate())
}

func TestRMSError(t *testing.T) {
	assert.Zero(t, rmsError(nil, nil))
	assert.InDelta(t, 1.0, rmsError(
		[]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}},
		[]mgl32.Vec3{{0, 1, 0}, {1, 0, 1}},
	), 1e-9)
	assert.True(t, math.IsInf(rmsError(make([]mgl32.Vec3, 2), make([]mgl32.Vec3, 3)), 1))
}
