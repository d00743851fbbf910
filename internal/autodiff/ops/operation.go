// Package ops defines the differentiable operations recorded by the gradient tape.
//
// Every operation works on 2-D gonum matrices laid out as [rows, features]
// (rows are batch entries). Constructors compute the forward value eagerly;
// Backward maps the gradient of the output to gradients of the inputs.
//
// Supported operations:
//   - MatMulOp: matrix product (dA = G·Bᵀ, dB = Aᵀ·G)
//   - AddOp, AddBiasOp, MulOp, ScaleOp, OneMinusOp: element-wise arithmetic
//   - SigmoidOp, TanhOp: activations
//   - SliceColsOp, ConcatColsOp, LookupOp: indexing
//   - BlendOp: mask controlled hold of a previous state
//   - RowDotOp, ScaleRowsOp, SoftmaxOp: attention building blocks
//   - CrossEntropyOp, NegEntropyOp, SumOp, MeanOp, SquareSumOp: losses and reductions
package ops

import "gonum.org/v1/gonum/mat"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// The returned slice is aligned with Inputs(); a nil entry means no
	// gradient flows to that input.
	Backward(outputGrad *mat.Dense) []*mat.Dense

	// Inputs returns the input matrices for this operation.
	Inputs() []*mat.Dense

	// Output returns the matrix produced by this operation.
	Output() *mat.Dense
}

// Scatterer is implemented by operations whose single input gradient is
// sparse in rows. The tape adds it into one buffer per input instead of
// materializing a dense gradient per operation.
type Scatterer interface {
	Operation
	ScatterAdd(dst, outputGrad *mat.Dense)
}
