package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = act(x @ W + b)
// where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [in_features, out_features]
//   - b is the bias row with shape [1, out_features]
//
// Weights use NormWeight (scale 0.01), biases start at zero.
type Linear struct {
	weight *mat.Dense
	bias   *mat.Dense
	act    Activation
}

// NewLinear registers W and b in scope.
func NewLinear(scope Scope, rng *rand.Rand, nin, nout int, ortho bool, act Activation) *Linear {
	return &Linear{
		weight: scope.Add("W", NormWeight(rng, nin, nout, 0.01, ortho)),
		bias:   scope.Add("b", Zeros(1, nout)),
		act:    act,
	}
}

// Forward computes act(x @ W + b).
func (l *Linear) Forward(tape *autodiff.GradientTape, x *mat.Dense) *mat.Dense {
	return l.act.Apply(tape, tape.AddBias(tape.MatMul(x, l.weight), l.bias))
}
