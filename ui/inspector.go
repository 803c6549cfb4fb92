package ui

import (
	"fmt"

	"github.com/pthm-cable/flex/particles"
)

// ParticleInspector shows the state of one picked particle.
type ParticleInspector struct {
	paint *Painter
	x, y  int32
	width int32
}

// NewParticleInspector creates an inspector panel.
func NewParticleInspector(x, y, width int32) *ParticleInspector {
	return &ParticleInspector{paint: NewPainter(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (p *ParticleInspector) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders particle i of set. actor names the owning actor.
func (p *ParticleInspector) Draw(set *particles.Set, i int32, actor string) {
	r := p.paint
	padding := r.Style.Padding
	fluid := particles.IsFluid(set.Phases[i])
	lines := int32(9)
	if fluid {
		lines += 3
	}
	r.Panel(p.x, p.y, p.width, lines*r.Style.LineHeight+padding*2)

	x := p.x + padding
	y := p.y + padding
	y = r.Header(x, y, fmt.Sprintf("Particle %d", i))

	pos := set.Positions[i]
	vel := set.Velocities[i]
	y = r.Field(x, y, "Actor", actor)
	y = r.Vec(x, y, "Position", pos.Vec3())
	y = r.Vec(x, y, "Velocity", vel.Vec3())
	y = r.Field(x, y, "Speed", fmt.Sprintf("%.3f", vel.Vec3().Len()))
	y = r.Field(x, y, "Inv mass", fmt.Sprintf("%.4g", set.InvMasses[i]))
	y = r.Field(x, y, "Radius", fmt.Sprintf("%.3f", set.Radius(i)))
	y = r.Field(x, y, "Group", fmt.Sprintf("%d", particles.PhaseGroup(set.Phases[i])))
	if life := set.Life[i]; life > 0 {
		y = r.Field(x, y, "Life", fmt.Sprintf("%.2fs", life))
	}
	if fluid {
		fd := set.FluidData[i]
		mat := set.FluidMaterials[i]
		y = r.Header(x, y, "Fluid")
		y = r.Gauge(x, y, "Density", fd.Density, mat.RestDensity, p.width-padding*2)
		r.Field(x, y, "Lambda", fmt.Sprintf("%.4g", fd.Lambda))
	}
}
