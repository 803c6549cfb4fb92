package solver

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/particles"
)

// Frame is the renderable state of the active particles, copied out of the
// solver so sinks may hold it across steps.
type Frame struct {
	Step    int64        `json:"step"`
	SimTime float64      `json:"sim_time"`
	Mode    string       `json:"mode"`
	Indices []int32      `json:"indices"`
	Pos     []mgl32.Vec3 `json:"positions"`
	Rot     []mgl32.Quat `json:"orientations"`
	Radii   []float32    `json:"radii"`
	Colors  []mgl32.Vec4 `json:"colors"`
	Fluid   []bool       `json:"fluid"`
	// Anisotropy holds the three scaled ellipsoid axes of fluid particles,
	// zero for others.
	Anisotropy [][3]mgl32.Vec3 `json:"anisotropy,omitempty"`
	// Triangles of cloth and softbody surfaces, in solver indices.
	Triangles [][3]int32 `json:"triangles,omitempty"`
}

// Frame copies the renderable particle state. Call it after Interpolate.
func (s *Solver) Frame() Frame {
	s.refreshActive()
	set := s.particles
	n := len(s.active)
	f := Frame{
		Step:    s.step,
		SimTime: s.simTime,
		Mode:    s.mode.String(),
		Indices: append([]int32(nil), s.active...),
		Pos:     make([]mgl32.Vec3, n),
		Rot:     make([]mgl32.Quat, n),
		Radii:   make([]float32, n),
		Colors:  make([]mgl32.Vec4, n),
		Fluid:   make([]bool, n),
	}
	hasFluid := s.density.Len() > 0
	if hasFluid {
		f.Anisotropy = make([][3]mgl32.Vec3, n)
	}
	for k, i := range s.active {
		f.Pos[k] = set.RenderablePositions[i].Vec3()
		f.Rot[k] = set.RenderableOrientations[i]
		f.Radii[k] = set.Radius(i)
		f.Colors[k] = set.Colors[i]
		f.Fluid[k] = particles.IsFluid(set.Phases[i])
		if hasFluid && f.Fluid[k] {
			for a := range 3 {
				f.Anisotropy[k][a] = set.Anisotropies[a][i].Vec3()
			}
		}
	}
	for _, e := range s.actors {
		f.Triangles = append(f.Triangles, s.actorMap.Get(e).triangles...)
	}
	return f
}
