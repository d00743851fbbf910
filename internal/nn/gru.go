package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// GRU is a single-layer gated recurrent unit.
//
// Per step, with prev the previous state and x the input:
//
//	[r, u] = sigmoid(prev @ U + x @ W + b)
//	h~     = tanh((prev @ Ux) ⊙ r + x @ Wx + bx)
//	h      = u ⊙ prev + (1 - u) ⊙ h~
//
// Parameters: W [nin, 2*dim], b [1, 2*dim], U [dim, 2*dim],
// Wx [nin, dim], bx [1, dim], Ux [dim, dim].
type GRU struct {
	dim int
	w   *mat.Dense
	b   *mat.Dense
	u   *mat.Dense
	wx  *mat.Dense
	bx  *mat.Dense
	ux  *mat.Dense
}

// NewGRU registers a GRU in scope.
func NewGRU(scope Scope, rng *rand.Rand, nin, dim int) *GRU {
	return &GRU{
		dim: dim,
		w:   scope.Add("W", hstack(NormWeight(rng, nin, dim, 0.01, true), NormWeight(rng, nin, dim, 0.01, true))),
		b:   scope.Add("b", Zeros(1, 2*dim)),
		u:   scope.Add("U", hstack(OrthoWeight(rng, dim), OrthoWeight(rng, dim))),
		wx:  scope.Add("Wx", NormWeight(rng, nin, dim, 0.01, true)),
		bx:  scope.Add("bx", Zeros(1, dim)),
		ux:  scope.Add("Ux", OrthoWeight(rng, dim)),
	}
}

// Dim returns the hidden size.
func (g *GRU) Dim() int { return g.dim }

// Condition returns nil: the plain GRU has no context.
func (g *GRU) Condition(*autodiff.GradientTape, EncoderContext) *Conditioning { return nil }

// Step advances one position.
func (g *GRU) Step(tape *autodiff.GradientTape, x, prev *mat.Dense, _ *Conditioning) *mat.Dense {
	return g.step(tape, x, prev, nil, nil)
}

// step is the recurrence shared by every GRU variant. gateCtx and candCtx are
// added to the gate and candidate pre-activations when non-nil.
func (g *GRU) step(tape *autodiff.GradientTape, x, prev, gateCtx, candCtx *mat.Dense) *mat.Dense {
	preact := tape.Add(tape.MatMul(prev, g.u), tape.AddBias(tape.MatMul(x, g.w), g.b))
	if gateCtx != nil {
		preact = tape.Add(preact, gateCtx)
	}
	preact = tape.Sigmoid(preact)
	r := tape.SliceCols(preact, 0, g.dim)
	u := tape.SliceCols(preact, g.dim, 2*g.dim)

	preactx := tape.Mul(tape.MatMul(prev, g.ux), r)
	preactx = tape.Add(preactx, tape.AddBias(tape.MatMul(x, g.wx), g.bx))
	if candCtx != nil {
		preactx = tape.Add(preactx, candCtx)
	}
	h := tape.Tanh(preactx)

	return tape.Add(tape.Mul(u, prev), tape.Mul(tape.OneMinus(u), h))
}

// ConditionalGRU adds a fixed per-example context to the gate and candidate
// pre-activations through Wc [dimctx, 2*dim] and Wcx [dimctx, dim].
type ConditionalGRU struct {
	*GRU
	wc  *mat.Dense
	wcx *mat.Dense
}

// NewConditionalGRU registers a conditional GRU in scope.
func NewConditionalGRU(scope Scope, rng *rand.Rand, nin, dim, dimctx int) *ConditionalGRU {
	return &ConditionalGRU{
		GRU: NewGRU(scope, rng, nin, dim),
		wc:  scope.Add("Wc", NormWeight(rng, dimctx, 2*dim, 0.01, true)),
		wcx: scope.Add("Wcx", NormWeight(rng, dimctx, dim, 0.01, true)),
	}
}

// Condition projects the last encoder state.
func (c *ConditionalGRU) Condition(tape *autodiff.GradientTape, ctx EncoderContext) *Conditioning {
	return &Conditioning{
		Gates:     tape.MatMul(ctx.Last, c.wc),
		Candidate: tape.MatMul(ctx.Last, c.wcx),
	}
}

// Step advances one position.
func (c *ConditionalGRU) Step(tape *autodiff.GradientTape, x, prev *mat.Dense, cond *Conditioning) *mat.Dense {
	return c.step(tape, x, prev, cond.Gates, cond.Candidate)
}
