package ops

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// TanhOp represents the hyperbolic tangent activation.
type TanhOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewTanhOp computes tanh(x).
func NewTanhOp(x *mat.Dense) *TanhOp {
	out := zerosLike(x)
	out.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
	return &TanhOp{input: x, output: out}
}

// Backward computes the gradient for tanh.
//
// Since we have the output tanh(x) already computed:
// grad_input = grad_output * (1 - output²).
func (op *TanhOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(outputGrad)
	g.Apply(func(i, j int, v float64) float64 {
		y := op.output.At(i, j)
		return v * (1 - y*y)
	}, outputGrad)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *TanhOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns tanh(x).
func (op *TanhOp) Output() *mat.Dense { return op.output }
