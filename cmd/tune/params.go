package main

import (
	"math"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/constraints"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	// Integer parameters are rounded before they are applied.
	Integer bool
	apply   func(cfg *config.SolverConfig, v float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

func setIterations(t constraints.Type) func(*config.SolverConfig, float64) {
	return func(cfg *config.SolverConfig, v float64) {
		p := cfg.Parameters(t)
		p.Iterations = int(v)
		cfg.SetParameters(t, p)
	}
}

func setSOR(t constraints.Type) func(*config.SolverConfig, float64) {
	return func(cfg *config.SolverConfig, v float64) {
		p := cfg.Parameters(t)
		p.SORFactor = float32(v)
		cfg.SetParameters(t, p)
	}
}

// NewParamVector creates the standard set of solver parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "substeps", Path: "solver.substeps", Min: 1, Max: 8, Default: 4, Integer: true,
				apply: func(c *config.SolverConfig, v float64) { c.Substeps = int(v) }},
			{Name: "distance_iterations", Path: "solver.constraints.distance.iterations", Min: 1, Max: 8, Default: 1, Integer: true,
				apply: setIterations(constraints.Distance)},
			{Name: "distance_sor", Path: "solver.constraints.distance.sor", Min: 1, Max: 1.9, Default: 1,
				apply: setSOR(constraints.Distance)},
			{Name: "bending_iterations", Path: "solver.constraints.bending.iterations", Min: 1, Max: 4, Default: 1, Integer: true,
				apply: setIterations(constraints.Bending)},
			{Name: "shapematching_iterations", Path: "solver.constraints.shapematching.iterations", Min: 1, Max: 4, Default: 1, Integer: true,
				apply: setIterations(constraints.ShapeMatching)},
			{Name: "density_iterations", Path: "solver.constraints.density.iterations", Min: 1, Max: 6, Default: 1, Integer: true,
				apply: setIterations(constraints.Density)},
			{Name: "collision_margin", Path: "solver.collision_margin", Min: 0.005, Max: 0.1, Default: 0.02,
				apply: func(c *config.SolverConfig, v float64) { c.CollisionMargin = v }},
			{Name: "tensile_k", Path: "solver.fluid.tensile_k", Min: 0, Max: 0.3, Default: 0.1,
				apply: func(c *config.SolverConfig, v float64) { c.Fluid.TensileK = v }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds and rounds integer parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Min(math.Max(v[i], spec.Min), spec.Max)
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to the solver section of cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		spec.apply(&cfg.Solver, clamped[i])
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	s := &cfg.Solver
	return []float64{
		float64(s.Substeps),
		float64(s.Parameters(constraints.Distance).Iterations),
		float64(s.Parameters(constraints.Distance).SORFactor),
		float64(s.Parameters(constraints.Bending).Iterations),
		float64(s.Parameters(constraints.ShapeMatching).Iterations),
		float64(s.Parameters(constraints.Density).Iterations),
		s.CollisionMargin,
		s.Fluid.TensileK,
	}
}
