package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// AttentionGRU is a GRU that scores every encoder position against the
// previous decoder state:
//
//	score_i = Σ_d (States_i @ Wcx)_d * prev_d
//	alpha   = softmax_i(score) over unmasked source positions
//	ctx     = Σ_i alpha_i * States_i
//
// With fold enabled ctx @ Wca is added to the candidate pre-activation.
// Without it the recurrence is the plain GRU and the weights are only
// observable through Attend.
type AttentionGRU struct {
	*GRU
	wcx  *mat.Dense
	wca  *mat.Dense
	fold bool
}

// NewAttentionGRU registers an attention GRU in scope. Wca is registered only
// when fold is set.
func NewAttentionGRU(scope Scope, rng *rand.Rand, nin, dim, dimctx int, fold bool) *AttentionGRU {
	a := &AttentionGRU{
		GRU:  NewGRU(scope, rng, nin, dim),
		wcx:  scope.Add("Wcx", NormWeight(rng, dimctx, dim, 0.01, true)),
		fold: fold,
	}
	if fold {
		a.wca = scope.Add("Wca", NormWeight(rng, dimctx, dim, 0.01, true))
	}
	return a
}

// Folded reports whether the attended context reaches the candidate.
func (a *AttentionGRU) Folded() bool { return a.fold }

// Condition projects every encoder state into key space.
func (a *AttentionGRU) Condition(tape *autodiff.GradientTape, ctx EncoderContext) *Conditioning {
	keys := make([]*mat.Dense, len(ctx.States))
	for i, s := range ctx.States {
		keys[i] = tape.MatMul(s, a.wcx)
	}
	return &Conditioning{Keys: keys, Values: ctx.States, Mask: ctx.Mask}
}

// Attend returns the [batch, srcLen] attention weights and the weighted
// context for the given decoder state.
func (a *AttentionGRU) Attend(tape *autodiff.GradientTape, prev *mat.Dense, cond *Conditioning) (*mat.Dense, *mat.Dense) {
	scores := make([]*mat.Dense, len(cond.Keys))
	for i, k := range cond.Keys {
		scores[i] = tape.RowDot(k, prev)
	}
	alpha := tape.Softmax(tape.ConcatCols(scores...), cond.Mask)

	var ctx *mat.Dense
	for i, v := range cond.Values {
		term := tape.ScaleRows(v, tape.SliceCols(alpha, i, i+1))
		if ctx == nil {
			ctx = term
		} else {
			ctx = tape.Add(ctx, term)
		}
	}
	return alpha, ctx
}

// Step advances one position.
func (a *AttentionGRU) Step(tape *autodiff.GradientTape, x, prev *mat.Dense, cond *Conditioning) *mat.Dense {
	if !a.fold {
		return a.step(tape, x, prev, nil, nil)
	}
	_, ctx := a.Attend(tape, prev, cond)
	return a.step(tape, x, prev, nil, tape.MatMul(ctx, a.wca))
}

// NewCell builds the cell of the given kind in scope.
func NewCell(kind CellKind, scope Scope, rng *rand.Rand, nin, dim, dimctx int, fold bool) Cell {
	switch kind {
	case CellConditional:
		return NewConditionalGRU(scope, rng, nin, dim, dimctx)
	case CellAttention:
		return NewAttentionGRU(scope, rng, nin, dim, dimctx, fold)
	default:
		return NewGRU(scope, rng, nin, dim)
	}
}
