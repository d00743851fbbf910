package ops

import "gonum.org/v1/gonum/mat"

// MatMulOp represents a matrix multiplication operation: output = a @ b.
//
// Backward pass:
//   - d(A@B)/dA = outputGrad @ B^T
//   - d(A@B)/dB = A^T @ outputGrad
type MatMulOp struct {
	inputs []*mat.Dense // [a, b]
	output *mat.Dense   // a @ b
}

// NewMatMulOp computes a @ b and records both inputs.
func NewMatMulOp(a, b *mat.Dense) *MatMulOp {
	ar, _ := a.Dims()
	_, bc := b.Dims()
	out := mat.NewDense(ar, bc, nil)
	out.Mul(a, b)
	return &MatMulOp{
		inputs: []*mat.Dense{a, b},
		output: out,
	}
}

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	a, b := op.inputs[0], op.inputs[1]

	gradA := zerosLike(a)
	gradA.Mul(outputGrad, b.T())

	gradB := zerosLike(b)
	gradB.Mul(a.T(), outputGrad)

	return []*mat.Dense{gradA, gradB}
}

// Inputs returns the input matrices [a, b].
func (op *MatMulOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns a @ b.
func (op *MatMulOp) Output() *mat.Dense {
	return op.output
}
