package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/nn"
)

// Costs are the scalar [1, 1] objectives of one training forward pass.
type Costs struct {
	// Recon is the mean sequence loss of the selected decoder, plus weight
	// decay when configured.
	Recon *mat.Dense
	// Class is the adversary's classification loss.
	Class *mat.Dense
	// Entropy is the mean p·log p of the adversary's prediction.
	Entropy *mat.Dense
	// PerSequence is the [batch, 1] reconstruction loss before decay.
	PerSequence *mat.Dense
}

// Value returns the scalar of a [1, 1] cost.
func Value(c *mat.Dense) float64 {
	return c.At(0, 0)
}

// Forward builds the training graph for the decoder of the given style.
// Pass a recording tape to compute gradients afterwards, or nil to only
// evaluate.
func (m *Model) Forward(tape *autodiff.GradientTape, b *data.Batch, style int) Costs {
	enc := m.Encode(tape, b.X, b.XMask)

	logits := m.adversary.Logits(tape, enc.Last)
	costs := Costs{
		Class:   m.adversary.Classification(tape, logits, b.Labels),
		Entropy: m.adversary.Entropy(tape, logits),
	}

	costs.PerSequence = m.sequenceLoss(tape, style, enc, b.Y, b.YMask)
	costs.Recon = tape.Mean(costs.PerSequence)
	if m.opts.DecayC > 0 {
		costs.Recon = tape.Add(costs.Recon, m.weightDecay(tape))
	}
	return costs
}

// weightDecay returns decayC * Σ‖W‖² over every parameter.
func (m *Model) weightDecay(tape *autodiff.GradientTape) *mat.Dense {
	var total *mat.Dense
	for _, p := range m.reg.Parameters() {
		sq := tape.SquareSum(p.Value())
		if total == nil {
			total = sq
		} else {
			total = tape.Add(total, sq)
		}
	}
	return tape.Scale(total, m.opts.DecayC)
}

// Gradients composes the update direction for every parameter from a tape
// recorded by Forward.
//
// Every parameter receives its reconstruction gradient. Adversary
// parameters also receive WeightD times the classification gradient when
// StyleClass is set, and encoder parameters receive WeightH times the
// entropy gradient when StyleAdv is set. Parameters the objectives do not
// reach get a zero gradient.
func (m *Model) Gradients(tape *autodiff.GradientTape, costs Costs) map[*nn.Parameter]*mat.Dense {
	recon := tape.Backward(costs.Recon)
	var class, entropy map[*mat.Dense]*mat.Dense
	if m.opts.StyleClass {
		class = tape.Backward(costs.Class)
	}
	if m.opts.StyleAdv {
		entropy = tape.Backward(costs.Entropy)
	}

	out := make(map[*nn.Parameter]*mat.Dense, m.reg.Len())
	for _, c := range []nn.Component{nn.Encoder, nn.Bridge, nn.Decoder, nn.Readout, nn.Adversary} {
		for _, p := range m.reg.Owned(c) {
			g := gradOrZero(recon, p)
			switch {
			case c == nn.Adversary && m.opts.StyleClass:
				addScaled(g, class, p, m.opts.WeightD)
			case c == nn.Encoder && m.opts.StyleAdv:
				addScaled(g, entropy, p, m.opts.WeightH)
			}
			out[p] = g
		}
	}
	return out
}

func gradOrZero(grads map[*mat.Dense]*mat.Dense, p *nn.Parameter) *mat.Dense {
	if g, ok := grads[p.Value()]; ok {
		return mat.DenseCopyOf(g)
	}
	r, c := p.Shape()
	return mat.NewDense(r, c, nil)
}

func addScaled(dst *mat.Dense, grads map[*mat.Dense]*mat.Dense, p *nn.Parameter, w float64) {
	g, ok := grads[p.Value()]
	if !ok || w == 0 {
		return
	}
	var scaled mat.Dense
	scaled.Scale(w, g)
	dst.Add(dst, &scaled)
}

// Evaluate returns the per-sequence reconstruction loss of every decoder,
// without weight decay. It records nothing.
func (m *Model) Evaluate(b *data.Batch) [][]float64 {
	enc := m.Encode(nil, b.X, b.XMask)
	out := make([][]float64, len(m.decoders))
	for s := range m.decoders {
		loss := m.sequenceLoss(nil, s, enc, b.Y, b.YMask)
		out[s] = mat.Col(nil, 0, loss)
	}
	return out
}

// StyleProbs returns the adversary's style distribution for a batch.
func (m *Model) StyleProbs(b *data.Batch) *mat.Dense {
	enc := m.Encode(nil, b.X, b.XMask)
	return m.adversary.Probs(enc.Last)
}
