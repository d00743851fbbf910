package ops

import "gonum.org/v1/gonum/mat"

// ConcatColsOp concatenates matrices with equal row counts along the column axis.
type ConcatColsOp struct {
	inputs []*mat.Dense
	output *mat.Dense
}

// NewConcatColsOp builds [x0 | x1 | ... ].
func NewConcatColsOp(xs ...*mat.Dense) *ConcatColsOp {
	if len(xs) == 0 {
		panic("ConcatColsOp: no inputs")
	}
	rows, _ := xs[0].Dims()
	total := 0
	for _, x := range xs {
		mustRows("ConcatColsOp", x, rows)
		_, c := x.Dims()
		total += c
	}
	out := mat.NewDense(rows, total, nil)
	offset := 0
	for _, x := range xs {
		_, c := x.Dims()
		out.Slice(0, rows, offset, offset+c).(*mat.Dense).Copy(x)
		offset += c
	}
	return &ConcatColsOp{inputs: xs, output: out}
}

// Backward splits the output gradient back into per-input column blocks.
func (op *ConcatColsOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	rows, _ := outputGrad.Dims()
	grads := make([]*mat.Dense, len(op.inputs))
	offset := 0
	for i, x := range op.inputs {
		_, c := x.Dims()
		g := mat.NewDense(rows, c, nil)
		g.Copy(outputGrad.Slice(0, rows, offset, offset+c))
		grads[i] = g
		offset += c
	}
	return grads
}

// Inputs returns the concatenated matrices.
func (op *ConcatColsOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns the concatenation.
func (op *ConcatColsOp) Output() *mat.Dense { return op.output }
