package ops

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// zerosLike allocates a zero matrix with the dimensions of m.
func zerosLike(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, nil)
}

// mustSameShape panics when a and b differ in shape.
func mustSameShape(op string, a, b mat.Matrix) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(fmt.Sprintf("%s: shape mismatch [%d,%d] vs [%d,%d]", op, ar, ac, br, bc))
	}
}

// mustRows panics when m does not have exactly n rows.
func mustRows(op string, m mat.Matrix, n int) {
	if r, _ := m.Dims(); r != n {
		panic(fmt.Sprintf("%s: expected %d rows, got %d", op, n, r))
	}
}

// rowSums returns a [1, cols] matrix holding the column-wise sum over rows.
func rowSums(g *mat.Dense) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(1, c, nil)
	dst := out.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, v := range g.RawRowView(i) {
			dst[j] += v
		}
	}
	return out
}
