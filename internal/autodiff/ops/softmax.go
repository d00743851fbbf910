package ops

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxOp represents the row-wise softmax operation.
//
// Forward (for each row):
//
//	softmax(x)_i = exp(x_i - max(x)) / Σ_j exp(x_j - max(x))
//
// An optional 0/1 mask of the same shape removes entries from the
// normalisation; masked entries get probability 0.
//
// Backward:
//
//	∂L/∂x_j = softmax_j * (∂L/∂softmax_j - Σ_i ∂L/∂softmax_i * softmax_i)
type SoftmaxOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewSoftmaxOp computes softmax(x) per row. mask may be nil.
func NewSoftmaxOp(x, mask *mat.Dense) *SoftmaxOp {
	if mask != nil {
		mustSameShape("SoftmaxOp", x, mask)
	}
	out := zerosLike(x)
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		var m []float64
		if mask != nil {
			m = mask.RawRowView(i)
		}
		softmaxRow(out.RawRowView(i), x.RawRowView(i), m)
	}
	return &SoftmaxOp{input: x, output: out}
}

// Backward computes the gradient with respect to input.
func (op *SoftmaxOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.input)
	r, _ := g.Dims()
	for i := 0; i < r; i++ {
		p := op.output.RawRowView(i)
		gy := outputGrad.RawRowView(i)
		dot := floats.Dot(p, gy)
		dst := g.RawRowView(i)
		for j := range dst {
			dst[j] = p[j] * (gy[j] - dot)
		}
	}
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *SoftmaxOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns the probabilities.
func (op *SoftmaxOp) Output() *mat.Dense { return op.output }

// softmaxRow writes the (masked) softmax of src into dst.
// A fully masked row stays zero.
func softmaxRow(dst, src, mask []float64) {
	maxVal := math.Inf(-1)
	for j, v := range src {
		if mask != nil && mask[j] == 0 {
			continue
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(maxVal, -1) {
		return
	}
	var sum float64
	for j, v := range src {
		if mask != nil && mask[j] == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = math.Exp(v - maxVal)
		sum += dst[j]
	}
	floats.Scale(1/sum, dst)
}

// Softmax returns the row-wise softmax of x without recording anything.
func Softmax(x *mat.Dense) *mat.Dense {
	return NewSoftmaxOp(x, nil).Output()
}
