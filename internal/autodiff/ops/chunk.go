package ops

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SliceColsOp selects the column range [from, to) of its input.
//
// Used to split the fused reset/update gate pre-activation of a GRU.
type SliceColsOp struct {
	input    *mat.Dense
	from, to int
	output   *mat.Dense
}

// NewSliceColsOp copies columns [from, to) of x into a new matrix.
func NewSliceColsOp(x *mat.Dense, from, to int) *SliceColsOp {
	r, c := x.Dims()
	if from < 0 || to > c || from >= to {
		panic(fmt.Sprintf("SliceColsOp: invalid range [%d,%d) for %d columns", from, to, c))
	}
	out := mat.NewDense(r, to-from, nil)
	out.Copy(x.Slice(0, r, from, to))
	return &SliceColsOp{input: x, from: from, to: to, output: out}
}

// Backward scatters the gradient back into the selected columns.
func (op *SliceColsOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.input)
	r, _ := g.Dims()
	dst := g.Slice(0, r, op.from, op.to).(*mat.Dense)
	dst.Copy(outputGrad)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *SliceColsOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns the selected columns.
func (op *SliceColsOp) Output() *mat.Dense { return op.output }
