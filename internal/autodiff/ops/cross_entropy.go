package ops

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CrossEntropyOp computes the weighted negative log-likelihood of target ids
// under the row-wise softmax of logits:
//
//	loss[i] = w[i] * -(z[i,t_i] - logsumexp(z[i,:]))
//
// The output is a [rows, 1] column. The weight is the target mask, so padded
// positions contribute nothing.
//
// Backward: ∂loss_i/∂z[i,j] = w[i] * (softmax(z)[i,j] - 1[j == t_i]).
type CrossEntropyOp struct {
	logits  *mat.Dense
	targets []int
	weights []float64
	probs   *mat.Dense
	output  *mat.Dense
}

// NewCrossEntropyOp computes the per-row loss. weights may be nil (all ones).
func NewCrossEntropyOp(logits *mat.Dense, targets []int, weights []float64) *CrossEntropyOp {
	r, c := logits.Dims()
	mustRows("CrossEntropyOp", logits, len(targets))
	if weights != nil && len(weights) != r {
		panic(fmt.Sprintf("CrossEntropyOp: %d weights for %d rows", len(weights), r))
	}
	probs := mat.NewDense(r, c, nil)
	out := mat.NewDense(r, 1, nil)
	for i, t := range targets {
		if t < 0 || t >= c {
			panic(fmt.Sprintf("CrossEntropyOp: target %d out of range for %d classes", t, c))
		}
		z := logits.RawRowView(i)
		lse := floats.LogSumExp(z)
		p := probs.RawRowView(i)
		for j, v := range z {
			p[j] = math.Exp(v - lse)
		}
		out.Set(i, 0, weight(weights, i)*(lse-z[t]))
	}
	return &CrossEntropyOp{logits: logits, targets: targets, weights: weights, probs: probs, output: out}
}

// Backward computes the gradient with respect to the logits.
func (op *CrossEntropyOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.logits)
	for i, t := range op.targets {
		s := outputGrad.At(i, 0) * weight(op.weights, i)
		if s == 0 {
			continue
		}
		dst := g.RawRowView(i)
		for j, p := range op.probs.RawRowView(i) {
			dst[j] = s * p
		}
		dst[t] -= s
	}
	return []*mat.Dense{g}
}

// Inputs returns [logits].
func (op *CrossEntropyOp) Inputs() []*mat.Dense { return []*mat.Dense{op.logits} }

// Output returns the [rows, 1] losses.
func (op *CrossEntropyOp) Output() *mat.Dense { return op.output }

// NegEntropyOp computes Σ_k p_k log p_k of the row-wise softmax of logits.
// Minimising it pushes the distribution towards uniform.
//
// Backward: ∂/∂z_j = p_j (log p_j - Σ_k p_k log p_k).
type NegEntropyOp struct {
	logits *mat.Dense
	probs  *mat.Dense
	logp   *mat.Dense
	output *mat.Dense
}

// NewNegEntropyOp computes the per-row negative entropy as a [rows, 1] column.
func NewNegEntropyOp(logits *mat.Dense) *NegEntropyOp {
	r, c := logits.Dims()
	probs := mat.NewDense(r, c, nil)
	logp := mat.NewDense(r, c, nil)
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		z := logits.RawRowView(i)
		lse := floats.LogSumExp(z)
		p, lp := probs.RawRowView(i), logp.RawRowView(i)
		var h float64
		for j, v := range z {
			lp[j] = v - lse
			p[j] = math.Exp(lp[j])
			h += p[j] * lp[j]
		}
		out.Set(i, 0, h)
	}
	return &NegEntropyOp{logits: logits, probs: probs, logp: logp, output: out}
}

// Backward computes the gradient with respect to the logits.
func (op *NegEntropyOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.logits)
	r, _ := g.Dims()
	for i := 0; i < r; i++ {
		s := outputGrad.At(i, 0)
		h := op.output.At(i, 0)
		p, lp := op.probs.RawRowView(i), op.logp.RawRowView(i)
		dst := g.RawRowView(i)
		for j := range dst {
			dst[j] = s * p[j] * (lp[j] - h)
		}
	}
	return []*mat.Dense{g}
}

// Inputs returns [logits].
func (op *NegEntropyOp) Inputs() []*mat.Dense { return []*mat.Dense{op.logits} }

// Output returns the [rows, 1] negative entropies.
func (op *NegEntropyOp) Output() *mat.Dense { return op.output }

func weight(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}
