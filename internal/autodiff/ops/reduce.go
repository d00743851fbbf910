package ops

import "gonum.org/v1/gonum/mat"

// SumOp reduces a matrix to a [1, 1] scalar holding the sum of all entries.
type SumOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewSumOp computes Σ x.
func NewSumOp(x *mat.Dense) *SumOp {
	return &SumOp{input: x, output: mat.NewDense(1, 1, []float64{mat.Sum(x)})}
}

// Backward broadcasts the scalar gradient to every entry.
func (op *SumOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{fill(op.input, outputGrad.At(0, 0))}
}

// Inputs returns [x].
func (op *SumOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns the scalar sum.
func (op *SumOp) Output() *mat.Dense { return op.output }

// MeanOp reduces a matrix to a [1, 1] scalar holding the mean of all entries.
type MeanOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewMeanOp computes mean(x).
func NewMeanOp(x *mat.Dense) *MeanOp {
	r, c := x.Dims()
	return &MeanOp{input: x, output: mat.NewDense(1, 1, []float64{mat.Sum(x) / float64(r*c)})}
}

// Backward spreads the scalar gradient evenly.
func (op *MeanOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	r, c := op.input.Dims()
	return []*mat.Dense{fill(op.input, outputGrad.At(0, 0)/float64(r*c))}
}

// Inputs returns [x].
func (op *MeanOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns the scalar mean.
func (op *MeanOp) Output() *mat.Dense { return op.output }

// SquareSumOp computes Σ x² as a [1, 1] scalar (L2 weight decay).
type SquareSumOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewSquareSumOp computes Σ x².
func NewSquareSumOp(x *mat.Dense) *SquareSumOp {
	var s float64
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		for _, v := range x.RawRowView(i) {
			s += v * v
		}
	}
	return &SquareSumOp{input: x, output: mat.NewDense(1, 1, []float64{s})}
}

// Backward returns 2·x·g.
func (op *SquareSumOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.input)
	g.Scale(2*outputGrad.At(0, 0), op.input)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *SquareSumOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns the scalar.
func (op *SquareSumOp) Output() *mat.Dense { return op.output }

func fill(like *mat.Dense, v float64) *mat.Dense {
	out := zerosLike(like)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] = v
		}
	}
	return out
}
