package ops

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SigmoidOp represents the logistic activation: sigmoid(x) = 1 / (1 + exp(-x)).
type SigmoidOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewSigmoidOp computes sigmoid(x).
func NewSigmoidOp(x *mat.Dense) *SigmoidOp {
	out := zerosLike(x)
	out.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, x)
	return &SigmoidOp{input: x, output: out}
}

// Backward uses the cached output: grad_input = grad_output * s * (1 - s).
func (op *SigmoidOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(outputGrad)
	g.Apply(func(i, j int, v float64) float64 {
		s := op.output.At(i, j)
		return v * s * (1 - s)
	}, outputGrad)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *SigmoidOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns sigmoid(x).
func (op *SigmoidOp) Output() *mat.Dense { return op.output }

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
