package ops

import "gonum.org/v1/gonum/mat"

// RowDotOp computes the per-row inner product of two equally shaped matrices,
// giving a [rows, 1] column.
type RowDotOp struct {
	inputs []*mat.Dense
	output *mat.Dense
}

// NewRowDotOp computes out[i] = Σ_j a[i,j]*b[i,j].
func NewRowDotOp(a, b *mat.Dense) *RowDotOp {
	mustSameShape("RowDotOp", a, b)
	r, _ := a.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, mat.Dot(a.RowView(i), b.RowView(i)))
	}
	return &RowDotOp{inputs: []*mat.Dense{a, b}, output: out}
}

// Backward returns [g_i * b, g_i * a].
func (op *RowDotOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	a, b := op.inputs[0], op.inputs[1]
	gradA := zerosLike(a)
	gradB := zerosLike(b)
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		g := outputGrad.At(i, 0)
		ga, gb := gradA.RawRowView(i), gradB.RawRowView(i)
		ar, br := a.RawRowView(i), b.RawRowView(i)
		for j := range ga {
			ga[j] = g * br[j]
			gb[j] = g * ar[j]
		}
	}
	return []*mat.Dense{gradA, gradB}
}

// Inputs returns [a, b].
func (op *RowDotOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns the [rows, 1] dot products.
func (op *RowDotOp) Output() *mat.Dense { return op.output }

// ScaleRowsOp multiplies each row of x by the matching entry of a [rows, 1] weight column.
type ScaleRowsOp struct {
	inputs []*mat.Dense // [x, w]
	output *mat.Dense
}

// NewScaleRowsOp computes out[i,j] = x[i,j] * w[i].
func NewScaleRowsOp(x, w *mat.Dense) *ScaleRowsOp {
	r, _ := x.Dims()
	mustRows("ScaleRowsOp", w, r)
	out := zerosLike(x)
	for i := 0; i < r; i++ {
		s := w.At(i, 0)
		dst := out.RawRowView(i)
		for j, v := range x.RawRowView(i) {
			dst[j] = v * s
		}
	}
	return &ScaleRowsOp{inputs: []*mat.Dense{x, w}, output: out}
}

// Backward returns [g ⊙ w, Σ_j g ⊙ x].
func (op *ScaleRowsOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	x, w := op.inputs[0], op.inputs[1]
	gradX := zerosLike(x)
	gradW := zerosLike(w)
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		s := w.At(i, 0)
		gx := gradX.RawRowView(i)
		xr := x.RawRowView(i)
		var acc float64
		for j, g := range outputGrad.RawRowView(i) {
			gx[j] = g * s
			acc += g * xr[j]
		}
		gradW.Set(i, 0, acc)
	}
	return []*mat.Dense{gradX, gradW}
}

// Inputs returns [x, w].
func (op *ScaleRowsOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns the scaled rows.
func (op *ScaleRowsOp) Output() *mat.Dense { return op.output }
