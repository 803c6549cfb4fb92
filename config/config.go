// Package config provides configuration loading and access for the solver
// and the demo scenes.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Solver    SolverConfig    `yaml:"solver"`
	Scene     SceneConfig     `yaml:"scene"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stream    StreamConfig    `yaml:"stream"`
	Tune      TuneConfig      `yaml:"tune"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SolverConfig is everything a solver needs at construction. It is passed
// explicitly; the solver never reads the global configuration.
type SolverConfig struct {
	Mode               string    `yaml:"mode"` // "3d" or "2d"
	Capacity           int       `yaml:"capacity"`
	StepTime           float64   `yaml:"step_time"`
	Substeps           int       `yaml:"substeps"`
	MaxStepsPerFrame   int       `yaml:"max_steps_per_frame"`
	Gravity            []float64 `yaml:"gravity"`
	Damping            float64   `yaml:"damping"`              // fraction of velocity removed per second
	MaxVelocity        float64   `yaml:"max_velocity"`         // 0 disables
	MaxAngularVelocity float64   `yaml:"max_angular_velocity"` // 0 disables
	SleepThreshold     float64   `yaml:"sleep_threshold"`
	CollisionMargin    float64   `yaml:"collision_margin"`
	ParticleCollisions bool      `yaml:"particle_collisions"`
	Interpolation      bool      `yaml:"interpolation"`
	MaxAnisotropy      float64   `yaml:"max_anisotropy"`
	Workers            int       `yaml:"workers"` // 0 uses GOMAXPROCS
	ParallelThreshold  int       `yaml:"parallel_threshold"`

	Fluid       FluidConfig                 `yaml:"fluid"`
	Wind        WindConfig                  `yaml:"wind"`
	Constraints map[string]ConstraintConfig `yaml:"constraints"`
}

// FluidConfig holds the density constraint settings.
type FluidConfig struct {
	Relaxation    float64 `yaml:"relaxation"`
	TensileK      float64 `yaml:"tensile_k"`
	TensileN      float64 `yaml:"tensile_n"`
	TensileDeltaQ float64 `yaml:"tensile_delta_q"`
}

// WindConfig describes the ambient wind field sampled by aerodynamics.
type WindConfig struct {
	Velocity   []float64 `yaml:"velocity"`
	Turbulence float64   `yaml:"turbulence"` // noise amplitude in m/s
	Frequency  float64   `yaml:"frequency"`  // spatial frequency of the noise
	Speed      float64   `yaml:"speed"`      // how fast the noise evolves
	Seed       int64     `yaml:"seed"`
}

// ConstraintConfig overrides the solver parameters of one constraint type.
type ConstraintConfig struct {
	Enabled    *bool   `yaml:"enabled"`
	Iterations int     `yaml:"iterations"`
	SOR        float64 `yaml:"sor"`
	Evaluation string  `yaml:"evaluation"` // "sequential" or "parallel"
}

// SceneConfig holds the demo scene parameters.
type SceneConfig struct {
	Name     string        `yaml:"name"`
	Seed     int64         `yaml:"seed"`
	Rope     RopeConfig    `yaml:"rope"`
	Cloth    ClothConfig   `yaml:"cloth"`
	Fluid    FluidScene    `yaml:"fluid"`
	Softbody SoftbodyScene `yaml:"softbody"`
	Emitter  EmitterScene  `yaml:"emitter"`
	Terrain  TerrainScene  `yaml:"terrain"`
}

// RopeConfig describes the demo rope.
type RopeConfig struct {
	Segments   int     `yaml:"segments"`
	Length     float64 `yaml:"length"`
	Radius     float64 `yaml:"radius"`
	Mass       float64 `yaml:"mass"`
	Compliance float64 `yaml:"compliance"`
	UseChain   bool    `yaml:"use_chain"`
}

// ClothConfig describes the demo cloth.
type ClothConfig struct {
	Resolution        int     `yaml:"resolution"`
	Size              float64 `yaml:"size"`
	Mass              float64 `yaml:"mass"`
	StretchCompliance float64 `yaml:"stretch_compliance"`
	BendCompliance    float64 `yaml:"bend_compliance"`
	Drag              float64 `yaml:"drag"`
	Lift              float64 `yaml:"lift"`
}

// FluidScene describes the demo fluid block.
type FluidScene struct {
	Count           []int   `yaml:"count"`
	Spacing         float64 `yaml:"spacing"`
	SmoothingRadius float64 `yaml:"smoothing_radius"`
	RestDensity     float64 `yaml:"rest_density"`
	Viscosity       float64 `yaml:"viscosity"`
	SurfaceTension  float64 `yaml:"surface_tension"`
	Vorticity       float64 `yaml:"vorticity"`
}

// SoftbodyScene describes the demo softbody.
type SoftbodyScene struct {
	Resolution   int     `yaml:"resolution"`
	Size         float64 `yaml:"size"`
	Stiffness    float64 `yaml:"stiffness"`
	PlasticYield float64 `yaml:"plastic_yield"`
	PlasticCreep float64 `yaml:"plastic_creep"`
}

// EmitterScene describes the demo emitter.
type EmitterScene struct {
	Capacity int     `yaml:"capacity"`
	Rate     float64 `yaml:"rate"`
	Speed    float64 `yaml:"speed"`
	Lifetime float64 `yaml:"lifetime"`
	Radius   float64 `yaml:"radius"`
}

// TerrainScene holds the noise height field settings.
type TerrainScene struct {
	Resolution int     `yaml:"resolution"` // samples per side
	Size       float64 `yaml:"size"`
	Height     float64 `yaml:"height"`
	Frequency  float64 `yaml:"frequency"`
	Octaves    int     `yaml:"octaves"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	OutputDir           string  `yaml:"output_dir"`
}

// StreamConfig holds the websocket frame sink settings.
type StreamConfig struct {
	Addr          string `yaml:"addr"`
	FrameInterval int    `yaml:"frame_interval"` // send every Nth frame
}

// TuneConfig holds the parameter search settings used by cmd/tune.
type TuneConfig struct {
	Evaluations int     `yaml:"evaluations"`
	Population  int     `yaml:"population"`
	Steps       int     `yaml:"steps"`
	InitStdDev  float64 `yaml:"init_std_dev"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StepTime32 float32 // Solver.StepTime as float32
	Gravity    mgl32.Vec3
	Mode       flexmath.Mode
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.StepTime32 = float32(c.Solver.StepTime)
	c.Derived.Gravity = c.Solver.GravityVec()
	c.Derived.Mode = c.Solver.ModeValue()

	if c.Screen.Width == 0 {
		c.Screen.Width = 1280
	}
	if c.Screen.Height == 0 {
		c.Screen.Height = 720
	}
}

// Validate checks the solver settings.
func (s *SolverConfig) Validate() error {
	switch {
	case s.StepTime <= 0:
		return fmt.Errorf("%w: solver.step_time must be positive, got %v", ErrInvalid, s.StepTime)
	case s.Substeps < 1:
		return fmt.Errorf("%w: solver.substeps must be at least 1, got %d", ErrInvalid, s.Substeps)
	case s.Capacity < 0:
		return fmt.Errorf("%w: solver.capacity must not be negative", ErrInvalid)
	case len(s.Gravity) != 0 && len(s.Gravity) != 3:
		return fmt.Errorf("%w: solver.gravity needs 3 components", ErrInvalid)
	}
	if m := strings.ToLower(s.Mode); m != "" && m != "3d" && m != "2d" {
		return fmt.Errorf("%w: solver.mode %q", ErrInvalid, s.Mode)
	}
	for name, cc := range s.Constraints {
		if _, ok := constraints.ParseType(name); !ok {
			return fmt.Errorf("%w: unknown constraint type %q", ErrInvalid, name)
		}
		if e := cc.Evaluation; e != "" && e != "sequential" && e != "parallel" {
			return fmt.Errorf("%w: constraint %s evaluation %q", ErrInvalid, name, e)
		}
	}
	return nil
}

// ModeValue returns the dimensionality mode.
func (s *SolverConfig) ModeValue() flexmath.Mode {
	return flexmath.ParseMode(s.Mode)
}

// GravityVec returns the gravity as a vector.
func (s *SolverConfig) GravityVec() mgl32.Vec3 {
	return vec3(s.Gravity)
}

// WindVec returns the ambient wind velocity.
func (s *SolverConfig) WindVec() mgl32.Vec3 {
	return vec3(s.Wind.Velocity)
}

func vec3(v []float64) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < len(v) && i < 3; i++ {
		out[i] = float32(v[i])
	}
	return out
}

// Parameters returns the solver parameters of constraint type t with the
// configured overrides applied.
func (s *SolverConfig) Parameters(t constraints.Type) constraints.Parameters {
	p := constraints.DefaultParameters()
	cc, ok := s.Constraints[t.String()]
	if !ok {
		return p
	}
	if cc.Enabled != nil {
		p.Enabled = *cc.Enabled
	}
	if cc.Iterations > 0 {
		p.Iterations = cc.Iterations
	}
	if cc.SOR > 0 {
		p.SORFactor = float32(cc.SOR)
	}
	if cc.Evaluation == "parallel" {
		p.Evaluation = constraints.Parallel
	}
	return p
}

// SetParameters stores p as the override for type t.
func (s *SolverConfig) SetParameters(t constraints.Type, p constraints.Parameters) {
	if s.Constraints == nil {
		s.Constraints = make(map[string]ConstraintConfig)
	}
	enabled := p.Enabled
	eval := "sequential"
	if p.Evaluation == constraints.Parallel {
		eval = "parallel"
	}
	s.Constraints[t.String()] = ConstraintConfig{
		Enabled:    &enabled,
		Iterations: p.Iterations,
		SOR:        float64(p.SORFactor),
		Evaluation: eval,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
