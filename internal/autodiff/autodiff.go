// Package autodiff implements reverse-mode automatic differentiation over
// gonum matrices.
//
// Architecture:
//   - GradientTape: records operations during the forward pass
//   - ops.Operation: each op (MatMul, Tanh, CrossEntropy, ...) implements its backward pass
//   - The tape methods below compute an op, record it and return its output
//
// Usage:
//
//	tape := autodiff.NewGradientTape()
//	tape.StartRecording()
//	h := tape.Tanh(tape.AddBias(tape.MatMul(x, w), b))
//	loss := tape.Mean(tape.CrossEntropy(h, targets, nil))
//	grads := tape.Backward(loss)
//	gw := grads[w]
package autodiff

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff/ops"
)

// MatMul returns a @ b.
func (t *GradientTape) MatMul(a, b *mat.Dense) *mat.Dense {
	op := ops.NewMatMulOp(a, b)
	t.Record(op)
	return op.Output()
}

// Add returns a + b.
func (t *GradientTape) Add(a, b *mat.Dense) *mat.Dense {
	op := ops.NewAddOp(a, b)
	t.Record(op)
	return op.Output()
}

// AddBias adds a [1, cols] bias row to every row of x.
func (t *GradientTape) AddBias(x, bias *mat.Dense) *mat.Dense {
	op := ops.NewAddBiasOp(x, bias)
	t.Record(op)
	return op.Output()
}

// Mul returns a ⊙ b.
func (t *GradientTape) Mul(a, b *mat.Dense) *mat.Dense {
	op := ops.NewMulOp(a, b)
	t.Record(op)
	return op.Output()
}

// Scale returns factor * x.
func (t *GradientTape) Scale(x *mat.Dense, factor float64) *mat.Dense {
	op := ops.NewScaleOp(x, factor)
	t.Record(op)
	return op.Output()
}

// OneMinus returns 1 - x.
func (t *GradientTape) OneMinus(x *mat.Dense) *mat.Dense {
	op := ops.NewOneMinusOp(x)
	t.Record(op)
	return op.Output()
}

// Sigmoid returns sigmoid(x).
func (t *GradientTape) Sigmoid(x *mat.Dense) *mat.Dense {
	op := ops.NewSigmoidOp(x)
	t.Record(op)
	return op.Output()
}

// Tanh returns tanh(x).
func (t *GradientTape) Tanh(x *mat.Dense) *mat.Dense {
	op := ops.NewTanhOp(x)
	t.Record(op)
	return op.Output()
}

// SliceCols returns columns [from, to) of x.
func (t *GradientTape) SliceCols(x *mat.Dense, from, to int) *mat.Dense {
	op := ops.NewSliceColsOp(x, from, to)
	t.Record(op)
	return op.Output()
}

// ConcatCols concatenates matrices along the column axis.
func (t *GradientTape) ConcatCols(xs ...*mat.Dense) *mat.Dense {
	op := ops.NewConcatColsOp(xs...)
	t.Record(op)
	return op.Output()
}

// Lookup gathers table rows by id; negative ids give zero rows.
func (t *GradientTape) Lookup(table *mat.Dense, ids []int) *mat.Dense {
	op := ops.NewLookupOp(table, ids)
	t.Record(op)
	return op.Output()
}

// Blend keeps prev on rows whose mask is 0 and next on rows whose mask is 1.
func (t *GradientTape) Blend(next, prev *mat.Dense, mask []float64) *mat.Dense {
	op := ops.NewBlendOp(next, prev, mask)
	t.Record(op)
	return op.Output()
}

// RowDot returns the per-row inner product of a and b as a [rows, 1] column.
func (t *GradientTape) RowDot(a, b *mat.Dense) *mat.Dense {
	op := ops.NewRowDotOp(a, b)
	t.Record(op)
	return op.Output()
}

// ScaleRows multiplies every row of x by the matching entry of w.
func (t *GradientTape) ScaleRows(x, w *mat.Dense) *mat.Dense {
	op := ops.NewScaleRowsOp(x, w)
	t.Record(op)
	return op.Output()
}

// Softmax returns the row-wise softmax of x. mask may be nil.
func (t *GradientTape) Softmax(x, mask *mat.Dense) *mat.Dense {
	op := ops.NewSoftmaxOp(x, mask)
	t.Record(op)
	return op.Output()
}

// CrossEntropy returns the per-row weighted negative log-likelihood of targets.
func (t *GradientTape) CrossEntropy(logits *mat.Dense, targets []int, weights []float64) *mat.Dense {
	op := ops.NewCrossEntropyOp(logits, targets, weights)
	t.Record(op)
	return op.Output()
}

// NegEntropy returns Σ p log p per row of softmax(logits).
func (t *GradientTape) NegEntropy(logits *mat.Dense) *mat.Dense {
	op := ops.NewNegEntropyOp(logits)
	t.Record(op)
	return op.Output()
}

// Sum reduces x to a [1, 1] scalar.
func (t *GradientTape) Sum(x *mat.Dense) *mat.Dense {
	op := ops.NewSumOp(x)
	t.Record(op)
	return op.Output()
}

// Mean reduces x to its [1, 1] mean.
func (t *GradientTape) Mean(x *mat.Dense) *mat.Dense {
	op := ops.NewMeanOp(x)
	t.Record(op)
	return op.Output()
}

// SquareSum returns Σ x² as a [1, 1] scalar.
func (t *GradientTape) SquareSum(x *mat.Dense) *mat.Dense {
	op := ops.NewSquareSumOp(x)
	t.Record(op)
	return op.Output()
}
