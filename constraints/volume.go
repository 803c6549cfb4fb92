package constraints

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VolumeParams preserves the enclosed volume of a closed triangle mesh.
// The tuple lists the mesh's unique particles; Triangles index into it.
type VolumeParams struct {
	Triangles  [][3]int32
	RestVolume float32
	Pressure   float32
	Compliance float32

	grads []mgl32.Vec3
}

func (p *VolumeParams) Lambdas(int) int { return 1 }

// MeshVolume returns the signed volume enclosed by the triangles.
func MeshVolume(pos func(k int32) mgl32.Vec3, tris [][3]int32) float32 {
	var v float32
	for _, t := range tris {
		v += pos(t[0]).Dot(pos(t[1]).Cross(pos(t[2])))
	}
	return v / 6
}

func (p *VolumeParams) Project(ctx *Context, idx []int32, lambda []float32) {
	if p.RestVolume <= 0 || len(p.Triangles) == 0 {
		return
	}
	if cap(p.grads) < len(idx) {
		p.grads = make([]mgl32.Vec3, len(idx))
	}
	grads := p.grads[:len(idx)]
	clear(grads)

	pos := func(k int32) mgl32.Vec3 { return ctx.Position(idx[k]) }
	var volume float32
	for _, t := range p.Triangles {
		a, b, c := pos(t[0]), pos(t[1]), pos(t[2])
		volume += a.Dot(b.Cross(c))
		grads[t[0]] = grads[t[0]].Add(b.Cross(c))
		grads[t[1]] = grads[t[1]].Add(c.Cross(a))
		grads[t[2]] = grads[t[2]].Add(a.Cross(b))
	}
	volume /= 6

	var w float32
	for k, g := range grads {
		g = g.Mul(1.0 / 6)
		grads[k] = g
		w += ctx.InvMass(idx[k]) * g.LenSqr()
	}
	if w < 1e-10 {
		return
	}

	pressure := p.Pressure
	if pressure == 0 {
		pressure = 1
	}
	c := volume - pressure*p.RestVolume
	alpha := ctx.Alpha(p.Compliance)
	dl := (-c - alpha*lambda[0]) / (w + alpha)
	lambda[0] += dl
	for k, g := range grads {
		if wi := ctx.InvMass(idx[k]); wi > 0 {
			ctx.AddDelta(idx[k], g.Mul(wi*dl))
		}
	}
}

// NewVolumeGroup creates an empty group of volume constraints.
func NewVolumeGroup() *Group[VolumeParams, *VolumeParams] {
	return NewGroup[VolumeParams, *VolumeParams](Volume)
}
