package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/actor"
	"github.com/pthm-cable/flex/colliders"
	"github.com/pthm-cable/flex/config"
	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/particles"
)

// builder adds one part of a scene at a position.
type builder func(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error

type placement struct {
	build builder
	at    mgl32.Vec3
}

var scenes = map[string][]placement{
	"rope": {
		{addGround, mgl32.Vec3{}},
		{addRope, mgl32.Vec3{-1.5, 3, 0}},
	},
	"cloth": {
		{addGround, mgl32.Vec3{}},
		{addSphere, mgl32.Vec3{0, 1.2, 0.4}},
		{addCloth, mgl32.Vec3{0, 3, 0}},
	},
	"fluid": {
		{addTank, mgl32.Vec3{}},
		{addFluid, mgl32.Vec3{-0.9, 0.2, -0.5}},
	},
	"softbody": {
		{addGround, mgl32.Vec3{}},
		{addSoftbody, mgl32.Vec3{0, 2, 0}},
	},
	"emitter": {
		{addGround, mgl32.Vec3{}},
		{addSphere, mgl32.Vec3{0, 2.5, 0}},
		{addEmitter, mgl32.Vec3{0, 0.2, 0}},
	},
	"terrain": {
		{addTerrain, mgl32.Vec3{}},
		{addFluid, mgl32.Vec3{-0.5, 2, -0.5}},
	},
	"showcase": {
		{addGround, mgl32.Vec3{}},
		{addRope, mgl32.Vec3{-5, 3, 0}},
		{addCloth, mgl32.Vec3{0, 3, -1}},
		{addSoftbody, mgl32.Vec3{3, 2, 1}},
		{addEmitter, mgl32.Vec3{-2, 0.2, 2}},
	},
}

func addGround(sc *Scene, _ *config.SceneConfig, at mgl32.Vec3) error {
	sc.materials = append(sc.materials, colliders.CollisionMaterial{StaticFriction: 0.4, DynamicFriction: 0.3})
	sc.addCollider(colliders.Shape{
		Type:          colliders.Plane,
		MaterialIndex: int32(len(sc.materials) - 1),
	}, flexmath.Translation(at))
	return nil
}

func addSphere(sc *Scene, _ *config.SceneConfig, at mgl32.Vec3) error {
	sc.addCollider(colliders.Shape{Type: colliders.Sphere, Size: mgl32.Vec3{0.6, 0, 0}}, flexmath.Translation(at))
	return nil
}

// addTank adds a floor and four walls around a 2x1 m basin.
func addTank(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	if err := addGround(sc, cfg, at); err != nil {
		return err
	}
	const half, height, wall = 1.0, 1.0, 0.05
	walls := []struct {
		center mgl32.Vec3
		size   mgl32.Vec3
	}{
		{mgl32.Vec3{-half - wall, height / 2, 0}, mgl32.Vec3{wall, height / 2, half}},
		{mgl32.Vec3{half + wall, height / 2, 0}, mgl32.Vec3{wall, height / 2, half}},
		{mgl32.Vec3{0, height / 2, -half - wall}, mgl32.Vec3{half, height / 2, wall}},
		{mgl32.Vec3{0, height / 2, half + wall}, mgl32.Vec3{half, height / 2, wall}},
	}
	for _, w := range walls {
		if sc.mode == flexmath.Mode2D && w.center[2] != 0 {
			continue
		}
		sc.addCollider(colliders.Shape{Type: colliders.Box, Size: w.size}, flexmath.Translation(at.Add(w.center)))
	}
	return nil
}

func addRope(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	s := actor.DefaultRopeSettings()
	r := cfg.Rope
	s.Start = at
	s.End = at.Add(mgl32.Vec3{float32(r.Length), 0, 0})
	s.Segments = r.Segments
	s.Radius = float32(r.Radius)
	s.Mass = float32(r.Mass)
	s.Compliance = float32(r.Compliance)
	s.UseChain = r.UseChain
	bp, err := actor.Rope(s)
	if err != nil {
		return err
	}
	_, err = sc.addActor(bp)
	return err
}

func addCloth(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	s := actor.DefaultClothSettings()
	c := cfg.Cloth
	size := float32(c.Size)
	s.Transform = flexmath.Translation(at.Sub(mgl32.Vec3{size / 2, 0, 0}))
	s.Width, s.Height = size, size
	s.ResX, s.ResY = c.Resolution, c.Resolution
	s.Mass = float32(c.Mass)
	s.StretchCompliance = float32(c.StretchCompliance)
	s.BendCompliance = float32(c.BendCompliance)
	s.Drag = float32(c.Drag)
	s.Lift = float32(c.Lift)
	bp, err := actor.Cloth(s)
	if err != nil {
		return err
	}
	_, err = sc.addActor(bp)
	return err
}

func addFluid(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	f := cfg.Fluid
	if len(f.Count) != 3 {
		return fmt.Errorf("fluid count needs 3 entries, got %d", len(f.Count))
	}
	s := actor.DefaultFluidSettings()
	s.Mode = sc.mode
	s.Origin = at
	s.Count = [3]int{f.Count[0], f.Count[1], f.Count[2]}
	s.Spacing = float32(f.Spacing)
	s.Material = particles.FluidMaterial{
		SmoothingRadius: float32(f.SmoothingRadius),
		RestDensity:     float32(f.RestDensity),
		Viscosity:       float32(f.Viscosity),
		SurfaceTension:  float32(f.SurfaceTension),
		Vorticity:       float32(f.Vorticity),
	}
	bp, err := actor.FluidBlock(s)
	if err != nil {
		return err
	}
	_, err = sc.addActor(bp)
	return err
}

func addSoftbody(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	s := actor.DefaultSoftbodySettings()
	b := cfg.Softbody
	s.Center = at
	s.Size = float32(b.Size)
	s.Resolution = b.Resolution
	s.Stiffness = float32(b.Stiffness)
	s.PlasticYield = float32(b.PlasticYield)
	s.PlasticCreep = float32(b.PlasticCreep)
	bp, err := actor.Softbody(s)
	if err != nil {
		return err
	}
	_, err = sc.addActor(bp)
	return err
}

func addEmitter(sc *Scene, cfg *config.SceneConfig, at mgl32.Vec3) error {
	s := actor.DefaultEmitterSettings()
	e := cfg.Emitter
	s.Mode = sc.mode
	s.Capacity = e.Capacity
	s.Rate = float32(e.Rate)
	s.Speed = float32(e.Speed)
	s.Lifetime = float32(e.Lifetime)
	s.Radius = float32(e.Radius)
	bp, err := actor.Emitter(s)
	if err != nil {
		return err
	}
	id, err := sc.addActor(bp)
	if err != nil {
		return err
	}
	return sc.Solver.SetTransformProvider(id, actor.StaticTransform(flexmath.Translation(at)))
}
