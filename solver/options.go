package solver

import (
	"log/slog"

	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/parallel"
	"github.com/pthm-cable/flex/telemetry"
)

// Option configures a Solver at construction.
type Option func(*Solver)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPool makes the solver use a shared worker pool. The caller keeps
// ownership; Close does not stop it.
func WithPool(p *parallel.Pool) Option {
	return func(s *Solver) {
		s.pool = p
		s.ownPool = false
	}
}

// WithColliders attaches a collider world. The solver publishes a new
// snapshot from it at the start of every step.
func WithColliders(w *colliders.World) Option {
	return func(s *Solver) { s.colliders = w }
}

// WithPerf attaches a phase timing collector.
func WithPerf(p *telemetry.PerfCollector) Option {
	return func(s *Solver) { s.perf = p }
}

// OnCollision registers a callback receiving the collider contacts of each
// step, triggers included. The slice is only valid during the call.
func OnCollision(fn func(contacts []constraints.Contact, triggers []constraints.Contact)) Option {
	return func(s *Solver) { s.onCollision = fn }
}

// OnParticleCollision registers a callback receiving the particle contacts
// of each step. The slice is only valid during the call.
func OnParticleCollision(fn func(contacts []constraints.ParticleContact)) Option {
	return func(s *Solver) { s.onParticleCollision = fn }
}

// OnEvent registers a callback receiving particle lifecycle, pin break and
// aborted step events as they happen.
func OnEvent(fn func(telemetry.Event)) Option {
	return func(s *Solver) { s.onEvent = fn }
}

// OnPinBreak registers a callback receiving the pins broken during a step.
func OnPinBreak(fn func(breaks []constraints.PinBreak)) Option {
	return func(s *Solver) { s.onPinBreak = fn }
}
