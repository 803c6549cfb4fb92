package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/solver"
)

// Tuning holds the solver values that can be edited while a scene runs.
type Tuning struct {
	GravityY           float32
	Damping            float32
	WindX, WindZ       float32
	Turbulence         float32
	DistanceIterations int
	DensityIterations  int
	TimeScale          float32
}

// ReadTuning captures the current values of s.
func ReadTuning(s *solver.Solver, timeScale float32) Tuning {
	wind, turbulence := s.Wind()
	return Tuning{
		GravityY:           s.Gravity()[1],
		Damping:            s.Damping(),
		WindX:              wind[0],
		WindZ:              wind[2],
		Turbulence:         turbulence,
		DistanceIterations: s.Parameters(constraints.Distance).Iterations,
		DensityIterations:  s.Parameters(constraints.Density).Iterations,
		TimeScale:          timeScale,
	}
}

// Apply writes the values into s. Time scale is applied by the runner.
func (t Tuning) Apply(s *solver.Solver) error {
	g := s.Gravity()
	g[1] = t.GravityY
	s.SetGravity(g)
	s.SetDamping(t.Damping)
	s.SetWind(mgl32.Vec3{t.WindX, 0, t.WindZ})
	s.SetTurbulence(t.Turbulence)

	iters := []struct {
		typ constraints.Type
		n   int
	}{
		{constraints.Distance, t.DistanceIterations},
		{constraints.Density, t.DensityIterations},
	}
	for _, it := range iters {
		p := s.Parameters(it.typ)
		p.Iterations = it.n
		if err := s.SetParameters(it.typ, p); err != nil {
			return err
		}
	}
	return nil
}
