package scene

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/stream"
	"github.com/pthm-cable/flex/telemetry"
)

// smallConfig shrinks every scene so a few steps run quickly.
func smallConfig(name string) *config.Config {
	cfg := config.Default()
	cfg.Scene.Name = name
	cfg.Solver.Workers = 1
	cfg.Scene.Rope.Segments = 8
	cfg.Scene.Cloth.Resolution = 6
	cfg.Scene.Fluid.Count = []int{4, 4, 4}
	cfg.Scene.Softbody.Resolution = 3
	cfg.Scene.Emitter.Capacity = 32
	cfg.Scene.Terrain.Resolution = 8
	return cfg
}

func TestNames(t *testing.T) {
	names := Names()
	assert.IsNonDecreasing(t, names)
	for _, want := range []string{"rope", "cloth", "fluid", "softbody", "emitter", "terrain", "showcase"} {
		assert.Contains(t, names, want)
	}
}

func TestUnknownScene(t *testing.T) {
	_, err := New(smallConfig("nope"), nil)
	require.ErrorIs(t, err, ErrUnknownScene)
}

func TestEverySceneSteps(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			sc, err := New(smallConfig(name), nil)
			require.NoError(t, err)
			defer sc.Close()

			assert.NotEmpty(t, sc.World.Snapshot().Colliders)
			for range 10 {
				require.NoError(t, sc.Solver.Step(1.0/60))
			}
			f := sc.Solver.Frame()
			for k, p := range f.Pos {
				require.True(t, flexmath.IsFinite(flexmath.Vec4(p)), "particle %d of %s: %v", k, name, p)
			}
		})
	}
}

func TestFluidSceneStaysInTank(t *testing.T) {
	sc, err := New(smallConfig("fluid"), nil)
	require.NoError(t, err)
	defer sc.Close()

	for range 60 {
		require.NoError(t, sc.Solver.Step(1.0/60))
	}
	for _, p := range sc.Solver.Frame().Pos {
		assert.GreaterOrEqual(t, p[1], float32(-0.05))
		assert.LessOrEqual(t, p[0], float32(1.1))
		assert.GreaterOrEqual(t, p[0], float32(-1.1))
	}
	assert.NotEmpty(t, sc.Contacts())
}

func TestPick(t *testing.T) {
	sc, err := New(smallConfig("rope"), nil)
	require.NoError(t, err)
	defer sc.Close()

	// Segment length is 3/8; particle 3 sits at x = -1.5 + 3*0.375.
	x := float32(-1.5 + 3*0.375)
	assert.Equal(t, int32(3), sc.Pick(mgl32.Vec3{x, 10, 0}, mgl32.Vec3{0, -1, 0}))
	assert.Equal(t, int32(-1), sc.Pick(mgl32.Vec3{x, 10, 5}, mgl32.Vec3{0, -1, 0}))
	assert.Equal(t, "rope", sc.ActorName(3))
	assert.Equal(t, "", sc.ActorName(999))
}

func TestTuningApply(t *testing.T) {
	sc, err := New(smallConfig("rope"), nil)
	require.NoError(t, err)
	defer sc.Close()

	want := Tuning{
		GravityY:           -3,
		Damping:            0.5,
		WindX:              1,
		WindZ:              -2,
		Turbulence:         0.25,
		DistanceIterations: 4,
		DensityIterations:  2,
		TimeScale:          0.5,
	}
	require.NoError(t, want.Apply(sc.Solver))
	assert.Equal(t, want, ReadTuning(sc.Solver, 0.5))
}

func TestHeights(t *testing.T) {
	h := Heights(7, 16, 3, 0.3)
	require.Len(t, h, 16*16)
	lo, hi := h[0], h[0]
	for _, v := range h {
		lo, hi = min(lo, v), max(hi, v)
	}
	assert.InDelta(t, 0, lo, 1e-6)
	assert.InDelta(t, 1, hi, 1e-6)
	assert.Equal(t, h, Heights(7, 16, 3, 0.3))
	assert.NotEqual(t, h, Heights(8, 16, 3, 0.3))
}

func TestRunnerHeadlessWritesTelemetry(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig("rope")
	cfg.Telemetry.StatsWindow = 0.25

	r, err := NewRunner(cfg, Options{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, r.RunHeadless(context.Background(), 30))
	assert.Equal(t, int64(30), r.Scene().Solver.StepCount())
	require.NoError(t, r.Close())

	steps, err := os.ReadFile(filepath.Join(dir, "steps.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(steps)), "\n")
	assert.Len(t, lines, 31)
	assert.True(t, strings.HasPrefix(lines[0], "step,"))
	assert.Equal(t, 1, strings.Count(string(steps), "sim_time"))

	stats, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(strings.Split(strings.TrimSpace(string(stats)), "\n")), 2)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestRunnerCountsEmitterEvents(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig("emitter")
	cfg.Telemetry.StatsWindow = 0.25
	cfg.Scene.Emitter.Lifetime = 0.2

	r, err := NewRunner(cfg, Options{OutputDir: dir})
	require.NoError(t, err)
	require.NoError(t, r.RunHeadless(context.Background(), 30))
	require.NoError(t, r.Close())

	f, err := os.Open(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	defer f.Close()
	var windows []telemetry.WindowStats
	require.NoError(t, gocsv.UnmarshalFile(f, &windows))
	require.NotEmpty(t, windows)

	var emitted, expired int
	for _, w := range windows {
		emitted += w.Emitted
		expired += w.Expired
	}
	assert.GreaterOrEqual(t, emitted, 25)
	assert.LessOrEqual(t, emitted, 32)
	assert.Positive(t, expired)
	assert.Less(t, expired, emitted)

	_, err = os.Stat(filepath.Join(dir, "bookmarks.csv"))
	assert.NoError(t, err)
}

func TestRunnerHeadlessStopsOnCancel(t *testing.T) {
	r, err := NewRunner(smallConfig("rope"), Options{})
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.RunHeadless(ctx, 0), context.Canceled)
}

func TestRunnerPauseAndStep(t *testing.T) {
	r, err := NewRunner(smallConfig("rope"), Options{})
	require.NoError(t, err)
	defer r.Close()

	r.SetPaused(true)
	assert.Equal(t, 0, r.Update(1))
	r.StepOnce()
	assert.Equal(t, 1, r.Update(0))
	assert.Equal(t, 0, r.Update(1))

	r.SetPaused(false)
	r.Tuning().TimeScale = 0.5
	require.NoError(t, r.ApplyTuning())
	// Half of 4/60 s of wall time is two steps.
	assert.Equal(t, 2, r.Update(4.0/60+1e-4))
}

func TestRunnerCommands(t *testing.T) {
	r, err := NewRunner(smallConfig("rope"), Options{})
	require.NoError(t, err)
	defer r.Close()

	paused, scale := true, 2.0
	r.apply(stream.Command{Paused: &paused, TimeScale: &scale, Gravity: []float64{0, -1, 0}})
	assert.True(t, r.Paused())
	assert.Equal(t, float32(2), r.Tuning().TimeScale)
	assert.Equal(t, mgl32.Vec3{0, -1, 0}, r.Scene().Solver.Gravity())

	for range 3 {
		r.StepOnce()
		r.Update(0)
	}
	old := r.Scene()
	r.apply(stream.Command{Reset: true})
	assert.NotSame(t, old, r.Scene())
	assert.Zero(t, r.Scene().Solver.StepCount())
	// Tuning survives a reset.
	assert.Equal(t, float32(-1), r.Scene().Solver.Gravity()[1])
}

func TestRunnerPublishesFrames(t *testing.T) {
	hub := stream.NewHub(nil, 4)
	defer hub.Close()
	r, err := NewRunner(smallConfig("rope"), Options{Hub: hub, FrameInterval: 1})
	require.NoError(t, err)
	defer r.Close()

	r.Update(1.0 / 60)
	assert.Equal(t, int64(1), r.Frame().Step)
	assert.Len(t, r.Frame().Pos, 9)
}
