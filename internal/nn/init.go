package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// NormWeight initializes an [nin, nout] weight matrix.
//
// Square matrices with ortho set get an orthogonal initialization; all others
// are drawn from N(0, scale²).
func NormWeight(rng *rand.Rand, nin, nout int, scale float64, ortho bool) *mat.Dense {
	if nin == nout && ortho {
		return OrthoWeight(rng, nin)
	}
	data := make([]float64, nin*nout)
	for i := range data {
		data[i] = scale * rng.NormFloat64()
	}
	return mat.NewDense(nin, nout, data)
}

// OrthoWeight returns the left singular vectors of a random normal
// [n, n] matrix.
func OrthoWeight(rng *rand.Rand, n int) *mat.Dense {
	data := make([]float64, n*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(n, n, data), mat.SVDThin) {
		panic("nn: orthogonal init: SVD did not converge")
	}
	var u mat.Dense
	svd.UTo(&u)
	return &u
}

// Zeros returns an [r, c] zero matrix.
//
// This is commonly used for bias initialization.
func Zeros(r, c int) *mat.Dense {
	return mat.NewDense(r, c, nil)
}

// hstack joins matrices with equal row counts along columns.
func hstack(ms ...*mat.Dense) *mat.Dense {
	rows, cols := 0, 0
	for _, m := range ms {
		r, c := m.Dims()
		rows = r
		cols += c
	}
	out := mat.NewDense(rows, cols, nil)
	off := 0
	for _, m := range ms {
		_, c := m.Dims()
		out.Slice(0, rows, off, off+c).(*mat.Dense).Copy(m)
		off += c
	}
	return out
}
