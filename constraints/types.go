// Package constraints implements the XPBD constraint batches projected by the
// solver. Each constraint type is a parameter struct with a Project method;
// Batch, Group and Container are generic over it.
package constraints

// Type identifies a constraint family. The declaration order is the order in
// which the solver projects containers within a substep.
type Type uint8

const (
	Distance Type = iota
	Bending
	ShapeMatching
	Volume
	Tether
	Chain
	Skin
	Pin
	StretchShear
	BendTwist
	Stitch
	Aerodynamics
	Density
	Collision
	ParticleCollision
	Friction
	ParticleFriction

	TypeCount
)

var typeNames = [TypeCount]string{
	"distance", "bending", "shapematching", "volume", "tether", "chain", "skin", "pin",
	"stretchshear", "bendtwist", "stitch", "aerodynamics", "density", "collision",
	"particlecollision", "friction", "particlefriction",
}

func (t Type) String() string {
	if t < TypeCount {
		return typeNames[t]
	}
	return "unknown"
}

// ParseType returns the type with the given config name.
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return 0, false
}

// EvaluationMode selects how a container combines its batches.
type EvaluationMode uint8

const (
	// Sequential projects and applies each batch in color order.
	Sequential EvaluationMode = iota
	// Parallel projects every batch, then applies the averaged result once.
	Parallel
)

// Parameters are the per-type solver settings.
type Parameters struct {
	Enabled    bool
	Iterations int
	SORFactor  float32
	Evaluation EvaluationMode
}

// DefaultParameters returns one sequential iteration with no over-relaxation.
func DefaultParameters() Parameters {
	return Parameters{Enabled: true, Iterations: 1, SORFactor: 1, Evaluation: Sequential}
}
