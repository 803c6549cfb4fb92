package constraints

import (
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/flex/flexmath"
)

// ChainParams solves all segment lengths of an ordered particle chain at
// once, as a tridiagonal system in the segment multipliers.
type ChainParams struct {
	RestLengths []float32
	Compliance  float32

	normals []mgl32.Vec3
	dl, d   []float64
	du, rhs []float64
	sol     mat.VecDense
}

func (p *ChainParams) Lambdas(n int) int { return max(n-1, 0) }

func (p *ChainParams) Project(ctx *Context, idx []int32, lambda []float32) {
	segs := len(idx) - 1
	if segs < 1 || len(p.RestLengths) < segs {
		return
	}
	if cap(p.d) < segs {
		p.normals = make([]mgl32.Vec3, segs)
		p.d = make([]float64, segs)
		p.rhs = make([]float64, segs)
		p.dl = make([]float64, max(segs-1, 1))
		p.du = make([]float64, max(segs-1, 1))
	}
	normals := p.normals[:segs]
	alpha := ctx.Alpha(p.Compliance)

	var total float32
	for k := 0; k < segs; k++ {
		n, l := flexmath.Normalize(ctx.Position(idx[k+1]).Sub(ctx.Position(idx[k])))
		normals[k] = n
		wk, wk1 := ctx.InvMass(idx[k]), ctx.InvMass(idx[k+1])
		total += wk + wk1
		p.d[k] = float64(wk + wk1 + alpha)
		p.rhs[k] = float64(-(l - p.RestLengths[k]) - alpha*lambda[k])
	}
	if total == 0 {
		return
	}
	for k := 0; k+1 < segs; k++ {
		off := float64(-ctx.InvMass(idx[k+1]) * normals[k].Dot(normals[k+1]))
		p.dl[k] = off
		p.du[k] = off
	}

	if segs == 1 {
		if p.d[0] == 0 {
			return
		}
		p.rhs[0] /= p.d[0]
	} else {
		a := mat.NewTridiag(segs, p.dl[:segs-1], p.d[:segs], p.du[:segs-1])
		b := mat.NewVecDense(segs, p.rhs[:segs])
		if err := a.SolveVecTo(&p.sol, false, b); err != nil {
			return
		}
		for k := 0; k < segs; k++ {
			p.rhs[k] = p.sol.AtVec(k)
		}
	}

	// Each particle gets the sum of its two segment corrections in a
	// single contribution so averaging does not dilute the joint solve.
	for k := 0; k < segs; k++ {
		lambda[k] += float32(p.rhs[k])
	}
	for j := 0; j <= segs; j++ {
		w := ctx.InvMass(idx[j])
		if w == 0 {
			continue
		}
		var delta mgl32.Vec3
		if j > 0 {
			delta = delta.Add(normals[j-1].Mul(w * float32(p.rhs[j-1])))
		}
		if j < segs {
			delta = delta.Sub(normals[j].Mul(w * float32(p.rhs[j])))
		}
		ctx.AddDelta(idx[j], delta)
	}
}

// NewChainGroup creates an empty group of chain constraints.
func NewChainGroup() *Group[ChainParams, *ChainParams] {
	return NewGroup[ChainParams, *ChainParams](Chain)
}
