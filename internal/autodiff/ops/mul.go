package ops

import "gonum.org/v1/gonum/mat"

// MulOp represents element-wise multiplication: output = a ⊙ b.
//
// Backward: d/da = outputGrad ⊙ b, d/db = outputGrad ⊙ a.
type MulOp struct {
	inputs []*mat.Dense
	output *mat.Dense
}

// NewMulOp computes a ⊙ b.
func NewMulOp(a, b *mat.Dense) *MulOp {
	mustSameShape("MulOp", a, b)
	out := zerosLike(a)
	out.MulElem(a, b)
	return &MulOp{inputs: []*mat.Dense{a, b}, output: out}
}

// Backward computes gradients for both factors.
func (op *MulOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	a, b := op.inputs[0], op.inputs[1]
	gradA := zerosLike(a)
	gradA.MulElem(outputGrad, b)
	gradB := zerosLike(b)
	gradB.MulElem(outputGrad, a)
	return []*mat.Dense{gradA, gradB}
}

// Inputs returns [a, b].
func (op *MulOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns a ⊙ b.
func (op *MulOp) Output() *mat.Dense { return op.output }

// OneMinusOp computes 1 - x element-wise. Used for the GRU update-gate complement.
type OneMinusOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewOneMinusOp computes 1 - x.
func NewOneMinusOp(x *mat.Dense) *OneMinusOp {
	out := zerosLike(x)
	out.Apply(func(_, _ int, v float64) float64 { return 1 - v }, x)
	return &OneMinusOp{input: x, output: out}
}

// Backward negates the output gradient.
func (op *OneMinusOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(outputGrad)
	g.Scale(-1, outputGrad)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *OneMinusOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns 1 - x.
func (op *OneMinusOp) Output() *mat.Dense { return op.output }
