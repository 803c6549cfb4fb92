package flexmath

import (
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/mat"
)

func toDense(m mgl32.Mat3) *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			d.Set(r, c, float64(m.At(r, c)))
		}
	}
	return d
}

func fromDense(d mat.Matrix) mgl32.Mat3 {
	var m mgl32.Mat3
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m.Set(r, c, float32(d.At(r, c)))
		}
	}
	return m
}

// PolarDecompose returns the rotation R and the symmetric stretch S such that
// A = R*S. Reflections are removed by flipping the axis of the smallest
// singular value. ok is false if the factorization failed.
func PolarDecompose(a mgl32.Mat3) (r, s mgl32.Mat3, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(toDense(a), mat.SVDFull) {
		return mgl32.Ident3(), mgl32.Ident3(), false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)

	var rd mat.Dense
	rd.Mul(&u, v.T())
	if mat.Det(&rd) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		vals[2] = -vals[2]
		rd.Mul(&u, v.T())
	}

	var sd, tmp mat.Dense
	sig := mat.NewDiagDense(3, vals)
	tmp.Mul(&v, sig)
	sd.Mul(&tmp, v.T())
	return fromDense(&rd), fromDense(&sd), true
}

// PseudoInverse returns the Moore-Penrose pseudo-inverse of a, treating
// singular values below tol as zero. Degenerate (planar or linear) particle
// clusters yield rank-deficient moment matrices, which this handles.
func PseudoInverse(a mgl32.Mat3, tol float64) mgl32.Mat3 {
	var svd mat.SVD
	if !svd.Factorize(toDense(a), mat.SVDFull) {
		return mgl32.Mat3{}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)
	inv := make([]float64, 3)
	for i, s := range vals {
		if s > tol {
			inv[i] = 1 / s
		}
	}
	var out, tmp mat.Dense
	tmp.Mul(&v, mat.NewDiagDense(3, inv))
	out.Mul(&tmp, u.T())
	return fromDense(&out)
}

// SymmetricEigen returns the eigenvalues (ascending) and the matrix whose
// columns are the matching eigenvectors of a symmetric 3x3 matrix.
func SymmetricEigen(a mgl32.Mat3) (vals [3]float32, vecs mgl32.Mat3, ok bool) {
	sym := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			sym.SetSym(r, c, 0.5*float64(a.At(r, c)+a.At(c, r)))
		}
	}
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return vals, mgl32.Ident3(), false
	}
	ev := es.Values(nil)
	var vd mat.Dense
	es.VectorsTo(&vd)
	for i := range 3 {
		vals[i] = float32(ev[i])
	}
	return vals, fromDense(&vd), true
}
