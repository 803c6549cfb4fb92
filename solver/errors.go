package solver

import "errors"

// Errors returned by the solver. Each is returned before any state changes.
var (
	ErrInvalidTimestep     = errors.New("timestep must be positive and finite")
	ErrInvalidSubsteps     = errors.New("substep count must be at least 1")
	ErrInvalidState        = errors.New("operation not allowed in the current step state")
	ErrActorNotFound       = errors.New("actor not found")
	ErrStaleHandle         = errors.New("stale particle handle")
	ErrParticleConstrained = errors.New("particle is referenced by constraints")
)
