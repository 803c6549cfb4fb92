package main

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/scene"
)

// Reference solver settings. Candidates are scored against a run with
// these values.
const (
	referenceSubsteps   = 16
	referenceIterations = 8
)

// FitnessEvaluator runs headless scenes and scores them against a
// high-accuracy reference run. Lower is better.
type FitnessEvaluator struct {
	params     *ParamVector
	configPath string
	scenes     []string
	steps      int
	costWeight float64

	reference map[string]runResult

	mu          sync.Mutex
	lastError   float64
	lastCost    float64
	bestFitness float64
}

// runResult holds the final positions and timing of one run.
type runResult struct {
	positions []mgl32.Vec3
	perStep   time.Duration
	unstable  bool
}

// NewFitnessEvaluator runs the reference for every scene and returns the
// evaluator.
func NewFitnessEvaluator(params *ParamVector, configPath string, scenes []string, steps int, costWeight float64) (*FitnessEvaluator, error) {
	fe := &FitnessEvaluator{
		params:      params,
		configPath:  configPath,
		scenes:      scenes,
		steps:       steps,
		costWeight:  costWeight,
		reference:   make(map[string]runResult),
		bestFitness: math.Inf(1),
	}
	for _, name := range scenes {
		cfg, err := fe.loadConfig(name)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Substeps = referenceSubsteps
		for _, spec := range params.Specs {
			if spec.Integer && spec.Name != "substeps" {
				spec.apply(&cfg.Solver, referenceIterations)
			}
		}
		ref, err := fe.run(cfg)
		if err != nil {
			return nil, fmt.Errorf("reference run %s: %w", name, err)
		}
		if ref.unstable {
			return nil, fmt.Errorf("reference run %s diverged", name)
		}
		fe.reference[name] = ref
	}
	return fe, nil
}

// LastError returns the RMS position error of the most recent evaluation.
func (fe *FitnessEvaluator) LastError() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastError
}

// LastCost returns the step time ratio of the most recent evaluation.
func (fe *FitnessEvaluator) LastCost() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastCost
}

// loadConfig loads a fresh config for a scene. Every evaluation gets its own
// copy so constraint override maps are never shared.
func (fe *FitnessEvaluator) loadConfig(name string) (*config.Config, error) {
	cfg, err := config.Load(fe.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Scene.Name = name
	cfg.Solver.Workers = 1
	return cfg, nil
}

// Evaluate computes fitness for a raw parameter vector: mean RMS error
// against the reference plus costWeight times the mean step time ratio.
// Scenes run in parallel; diverged runs score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	errs := make([]float64, len(fe.scenes))
	costs := make([]float64, len(fe.scenes))
	var wg sync.WaitGroup
	for i, name := range fe.scenes {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			errs[idx], costs[idx] = math.Inf(1), math.Inf(1)
			cfg, err := fe.loadConfig(name)
			if err != nil {
				return
			}
			fe.params.ApplyToConfig(cfg, x)
			res, err := fe.run(cfg)
			if err != nil || res.unstable {
				return
			}
			ref := fe.reference[name]
			errs[idx] = rmsError(res.positions, ref.positions)
			costs[idx] = float64(res.perStep) / float64(max(ref.perStep, 1))
		}(i, name)
	}
	wg.Wait()

	n := float64(len(fe.scenes))
	meanErr := floats.Sum(errs) / n
	meanCost := floats.Sum(costs) / n
	fitness := meanErr + fe.costWeight*meanCost

	fe.mu.Lock()
	fe.lastError = meanErr
	fe.lastCost = meanCost
	fe.bestFitness = math.Min(fe.bestFitness, fitness)
	fe.mu.Unlock()
	return fitness
}

// run builds the scene and steps it fe.steps times.
func (fe *FitnessEvaluator) run(cfg *config.Config) (runResult, error) {
	sc, err := scene.New(cfg, discardLogger)
	if err != nil {
		return runResult{}, err
	}
	defer sc.Close()

	stepTime := float32(cfg.Solver.StepTime)
	start := time.Now()
	for range fe.steps {
		if err := sc.Solver.Step(stepTime); err != nil {
			return runResult{}, err
		}
	}
	elapsed := time.Since(start)

	f := sc.Solver.Frame()
	res := runResult{positions: f.Pos, perStep: elapsed / time.Duration(max(fe.steps, 1))}
	for _, p := range f.Pos {
		if !flexmath.IsFinite(flexmath.Vec4(p)) {
			res.unstable = true
			break
		}
	}
	return res, nil
}

// rmsError returns the root mean square distance between matching
// positions. Runs that ended with different particle counts score +Inf.
func rmsError(a, b []mgl32.Vec3) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i].Sub(b[i]).LenSqr())
	}
	return math.Sqrt(sum / float64(len(a)))
}
