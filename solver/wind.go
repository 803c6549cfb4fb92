package solver

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
)

// windField is a constant wind plus simplex turbulence that drifts over time.
type windField struct {
	base       mgl32.Vec3
	turbulence float32
	frequency  float32
	speed      float32
	mode       flexmath.Mode
	noise      [3]opensimplex.Noise32
}

func newWindField(cfg config.WindConfig, mode flexmath.Mode) *windField {
	w := &windField{
		turbulence: float32(cfg.Turbulence),
		frequency:  float32(cfg.Frequency),
		speed:      float32(cfg.Speed),
		mode:       mode,
	}
	for k := 0; k < len(cfg.Velocity) && k < 3; k++ {
		w.base[k] = float32(cfg.Velocity[k])
	}
	// One independent field per axis.
	for k := range w.noise {
		w.noise[k] = opensimplex.New32(cfg.Seed + int64(k)*7919)
	}
	return w
}

// SetBase changes the constant wind velocity.
func (w *windField) SetBase(v mgl32.Vec3) { w.base = v }

// Sample returns the wind velocity at p and time t.
func (w *windField) Sample(p mgl32.Vec3, t float32) mgl32.Vec3 {
	v := w.base
	if w.turbulence > 0 {
		q := p.Mul(w.frequency)
		z := q[2] + t*w.speed
		for k := range w.noise {
			v[k] += w.turbulence * w.noise[k].Eval3(q[0], q[1], z)
		}
	}
	if w.mode == flexmath.Mode2D {
		v[2] = 0
	}
	return v
}

// SetWind changes the constant part of the wind field.
func (s *Solver) SetWind(v mgl32.Vec3) {
	s.wind.SetBase(v)
}

// Wind returns the constant part of the wind field and its turbulence.
func (s *Solver) Wind() (mgl32.Vec3, float32) {
	return s.wind.base, s.wind.turbulence
}

// SetTurbulence changes the noise amplitude of the wind in m/s.
func (s *Solver) SetTurbulence(t float32) {
	s.wind.turbulence = max(t, 0)
}

// updateWind samples the wind at every active particle.
func (s *Solver) updateWind() {
	set := s.particles
	t := float32(s.simTime)
	s.pool.For(len(s.active), func(start, end, _ int) {
		for _, i := range s.active[start:end] {
			set.Wind[i] = flexmath.Vec4(s.wind.Sample(set.Positions[i].Vec3(), t))
		}
	})
}
