package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
	"github.com/born-ml/styleshift/internal/autodiff/ops"
)

// StyleAdversary predicts the style label from the encoder context through
// two bias-free linear maps, M0 [dim, dim] and M1 [dim, styles].
type StyleAdversary struct {
	m0     *mat.Dense
	m1     *mat.Dense
	styles int
}

// NewStyleAdversary registers the adversary matrices in scope.
func NewStyleAdversary(scope Scope, rng *rand.Rand, dim, styles int) *StyleAdversary {
	return &StyleAdversary{
		m0:     scope.Add("M0", NormWeight(rng, dim, dim, 0.01, true)),
		m1:     scope.Add("M1", NormWeight(rng, dim, styles, 0.01, true)),
		styles: styles,
	}
}

// Logits returns the [batch, styles] style logits.
func (s *StyleAdversary) Logits(tape *autodiff.GradientTape, ctx *mat.Dense) *mat.Dense {
	return tape.MatMul(tape.MatMul(ctx, s.m0), s.m1)
}

// Probs returns the style distribution per example.
func (s *StyleAdversary) Probs(ctx *mat.Dense) *mat.Dense {
	return ops.Softmax(s.Logits(nil, ctx))
}

// Entropy is the mean of p·log p over every (example, style) entry. It is
// minimised by a uniform prediction.
func (s *StyleAdversary) Entropy(tape *autodiff.GradientTape, logits *mat.Dense) *mat.Dense {
	return tape.Scale(tape.Mean(tape.NegEntropy(logits)), 1/float64(s.styles))
}

// Classification is the mean of -onehot·log p over every (example, style)
// entry.
func (s *StyleAdversary) Classification(tape *autodiff.GradientTape, logits *mat.Dense, labels []int) *mat.Dense {
	return tape.Scale(tape.Mean(tape.CrossEntropy(logits, labels, nil)), 1/float64(s.styles))
}
