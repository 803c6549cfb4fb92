package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Solver.Substeps)
	assert.Equal(t, flexmath.Mode3D, cfg.Derived.Mode)
	assert.Equal(t, mgl32.Vec3{0, -9.81, 0}, cfg.Derived.Gravity)
	assert.InDelta(t, 1.0/60, cfg.Derived.StepTime32, 1e-6)
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	path := writeFile(t, "solver:\n  substeps: 8\n  mode: 2d\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Solver.Substeps)
	assert.Equal(t, flexmath.Mode2D, cfg.Derived.Mode)
	assert.Equal(t, 1024, cfg.Solver.Capacity)
}

func TestLoadRejectsInvalidSolver(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero substeps", "solver:\n  substeps: 0\n"},
		{"negative step", "solver:\n  step_time: -1\n"},
		{"bad mode", "solver:\n  mode: 4d\n"},
		{"bad gravity", "solver:\n  gravity: [0, 1]\n"},
		{"unknown constraint", "solver:\n  constraints:\n    springs:\n      iterations: 2\n"},
		{"bad evaluation", "solver:\n  constraints:\n    distance:\n      evaluation: random\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParametersOverrides(t *testing.T) {
	cfg := Default()
	cfg.Solver.Constraints = nil

	assert.Equal(t, constraints.DefaultParameters(), cfg.Solver.Parameters(constraints.Volume))

	want := constraints.Parameters{Enabled: false, Iterations: 3, SORFactor: 1.5, Evaluation: constraints.Parallel}
	cfg.Solver.SetParameters(constraints.Volume, want)
	assert.Equal(t, want, cfg.Solver.Parameters(constraints.Volume))
	assert.Equal(t, constraints.DefaultParameters(), cfg.Solver.Parameters(constraints.Tether))
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Solver.Substeps = 6
	cfg.Scene.Name = "rope"

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Solver.Substeps)
	assert.Equal(t, "rope", loaded.Scene.Name)
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	saved := global
	defer func() { global = saved }()

	global = nil
	assert.Panics(t, func() { Cfg() })
	require.NoError(t, Init(""))
	assert.NotNil(t, Cfg())
}
