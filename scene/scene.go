// Package scene builds demo scenes from configuration and drives them with a
// fixed step updater and optional frame sinks.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/actor"
	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/constraints"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/solver"
	"github.com/pthm-cable/flex/telemetry"
)

// ErrUnknownScene is returned for a scene name without a builder.
var ErrUnknownScene = errors.New("unknown scene")

// Scene is a solver populated with actors and colliders.
type Scene struct {
	Name   string
	Solver *solver.Solver
	World  *colliders.World
	Perf   *telemetry.PerfCollector
	Events *telemetry.Collector

	mode       flexmath.Mode
	shapes     []colliders.Shape
	transforms []flexmath.Transform
	materials  []colliders.CollisionMaterial
	heights    []colliders.HeightFieldData

	names    map[solver.ActorID]string
	contacts []constraints.Contact
	breaks   int
}

// New builds the scene named by cfg.Scene.Name.
func New(cfg *config.Config, logger *slog.Logger) (*Scene, error) {
	if logger == nil {
		logger = slog.Default()
	}
	layout, ok := scenes[cfg.Scene.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownScene, cfg.Scene.Name, Names())
	}

	sc := &Scene{
		Name:   cfg.Scene.Name,
		World:  colliders.NewWorld(),
		Perf:   telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		Events: telemetry.NewCollector(),
		mode:   cfg.Solver.ModeValue(),
		names:  make(map[solver.ActorID]string),
	}
	s, err := solver.New(cfg.Solver,
		solver.WithLogger(logger),
		solver.WithColliders(sc.World),
		solver.WithPerf(sc.Perf),
		solver.OnCollision(func(contacts, _ []constraints.Contact) {
			sc.contacts = append(sc.contacts[:0], contacts...)
		}),
		solver.OnEvent(sc.Events.Record),
		solver.OnPinBreak(func(b []constraints.PinBreak) {
			sc.breaks += len(b)
		}),
	)
	if err != nil {
		return nil, err
	}
	sc.Solver = s

	for _, p := range layout {
		if err := p.build(sc, &cfg.Scene, sc.flatten(p.at)); err != nil {
			s.Close()
			return nil, fmt.Errorf("building scene %s: %w", sc.Name, err)
		}
	}
	if err := sc.commitColliders(); err != nil {
		s.Close()
		return nil, err
	}

	logger.Info("scene built",
		"scene", sc.Name,
		"mode", sc.mode.String(),
		"actors", len(sc.names),
		"particles", len(s.ActiveParticles()),
		"colliders", len(sc.shapes),
	)
	return sc, nil
}

// Names returns the known scene names in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenes))
	for name := range scenes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close releases the solver.
func (sc *Scene) Close() { sc.Solver.Close() }

// Contacts returns the collider contacts of the last step.
func (sc *Scene) Contacts() []constraints.Contact { return sc.contacts }

func (sc *Scene) clearContacts() { sc.contacts = sc.contacts[:0] }

// PinBreaks returns the number of pins broken since the scene was built.
func (sc *Scene) PinBreaks() int { return sc.breaks }

// addActor adds a blueprint and records its display name.
func (sc *Scene) addActor(bp *actor.Blueprint) (solver.ActorID, error) {
	id, err := sc.Solver.AddActor(bp)
	if err != nil {
		return id, err
	}
	sc.names[id] = bp.Name
	return id, nil
}

// addCollider queues a static collider. Colliders are published once the
// scene is built.
func (sc *Scene) addCollider(sh colliders.Shape, t flexmath.Transform) int32 {
	if sh.MaterialIndex == 0 && len(sc.materials) == 0 {
		sh.MaterialIndex = -1
	}
	sh.RigidbodyIndex = -1
	sc.shapes = append(sc.shapes, sh)
	sc.transforms = append(sc.transforms, t)
	return int32(len(sc.shapes) - 1)
}

func (sc *Scene) commitColliders() error {
	sc.World.SetCollisionMaterials(sc.materials)
	sc.World.SetHeightFieldData(sc.heights)
	if err := sc.World.SetColliders(sc.shapes, nil, sc.transforms, len(sc.shapes)); err != nil {
		return err
	}
	sc.World.UpdateWorld(0)
	return nil
}

// MoveCollider moves collider i and publishes the change on the next step.
func (sc *Scene) MoveCollider(i int, t flexmath.Transform) {
	sc.World.SetTransform(i, t)
}

func (sc *Scene) flatten(p mgl32.Vec3) mgl32.Vec3 {
	if sc.mode == flexmath.Mode2D {
		p[2] = 0
	}
	return p
}

// ActorName returns the name of the actor owning solver index i.
func (sc *Scene) ActorName(i int32) string {
	for _, id := range sc.Solver.Actors() {
		idx, err := sc.Solver.ActorIndices(id)
		if err != nil {
			continue
		}
		if slices.Contains(idx, i) {
			return sc.names[id]
		}
	}
	return ""
}

// Pick returns the solver index of the particle closest along the ray, or -1.
func (sc *Scene) Pick(origin, dir mgl32.Vec3) int32 {
	results := sc.Solver.SpatialQuery([]solver.Query{{
		Shape:       solver.QueryRay,
		Center:      origin,
		Direction:   dir,
		MaxDistance: 200,
	}}, nil)
	pos := sc.Solver.Particles().Positions
	best, dist := int32(-1), float32(math.MaxFloat32)
	for _, r := range results {
		if r.Distance >= dist {
			continue
		}
		dist = r.Distance
		// Report the particle of the simplex nearest to the hit.
		best = r.Indices[0]
		near := float32(math.MaxFloat32)
		for _, i := range r.Indices[:r.Kind] {
			if d := pos[i].Vec3().Sub(r.Point).LenSqr(); d < near {
				best, near = i, d
			}
		}
	}
	return best
}
