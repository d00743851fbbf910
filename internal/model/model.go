package model

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
	"github.com/born-ml/styleshift/internal/nn"
)

// Model is the encoder, two style decoders and the style adversary over
// one parameter registry.
type Model struct {
	opts      Options
	reg       *nn.Registry
	srcEmb    *nn.Embedding
	encoder   nn.Cell
	tgtEmb    *nn.Embedding
	decoders  []*styleDecoder
	adversary *nn.StyleAdversary
}

// styleDecoder is the per-style half of the network: the bridge from
// context to initial state, the recurrent cell and the readout.
type styleDecoder struct {
	bridge *nn.Linear
	cell   nn.Cell
	state  *nn.Linear
	prev   *nn.Linear
	ctx    *nn.Linear
	logit  *nn.Linear
}

// New builds a model with freshly initialized parameters.
func New(opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // Deterministic initialization
	reg := nn.NewRegistry()

	m := &Model{opts: opts, reg: reg}
	m.srcEmb = nn.NewEmbedding(reg.Scope(nn.Encoder, "embedding"), rng, opts.NWordsSrc, opts.DimWord)
	m.tgtEmb = nn.NewEmbedding(reg.Scope(nn.Decoder, "embedding"), rng, opts.NWords, opts.DimWord)
	m.encoder = nn.NewCell(opts.Encoder, reg.Scope(nn.Encoder, ""), rng, opts.DimWord, opts.Dim, opts.Dim, false)

	for s := 0; s < opts.SentiNum; s++ {
		m.decoders = append(m.decoders, &styleDecoder{
			bridge: nn.NewLinear(reg.Scope(nn.Bridge, styleName(s)), rng, opts.Dim, opts.Dim, true, nn.Tanh),
		})
	}
	m.adversary = nn.NewStyleAdversary(reg.Scope(nn.Adversary, ""), rng, opts.Dim, opts.SentiNum)

	for s, d := range m.decoders {
		name := styleName(s)
		d.cell = nn.NewCell(opts.Decoder, reg.Scope(nn.Decoder, name), rng, opts.DimWord, opts.Dim, opts.Dim, opts.AttentionFold)
		d.state = nn.NewLinear(reg.Scope(nn.Readout, name+".state"), rng, opts.Dim, opts.DimWord, false, nn.Identity)
		d.prev = nn.NewLinear(reg.Scope(nn.Readout, name+".prev"), rng, opts.DimWord, opts.DimWord, false, nn.Identity)
		d.ctx = nn.NewLinear(reg.Scope(nn.Readout, name+".ctx"), rng, opts.Dim, opts.DimWord, false, nn.Identity)
		d.logit = nn.NewLinear(reg.Scope(nn.Readout, name+".logit"), rng, opts.DimWord, opts.NWords, true, nn.Identity)
	}

	if err := reg.Err(); err != nil {
		return nil, errors.Wrap(err, "can't build model")
	}
	return m, nil
}

func styleName(s int) string {
	return fmt.Sprintf("style%d", s)
}

// Options returns the options the model was built with.
func (m *Model) Options() Options {
	return m.opts
}

// Registry returns the parameter store.
func (m *Model) Registry() *nn.Registry {
	return m.reg
}

// SourceEmbedding returns the encoder embedding table.
func (m *Model) SourceEmbedding() *nn.Embedding {
	return m.srcEmb
}

// TargetEmbedding returns the decoder embedding table.
func (m *Model) TargetEmbedding() *nn.Embedding {
	return m.tgtEmb
}

// Styles returns the number of style decoders.
func (m *Model) Styles() int {
	return len(m.decoders)
}

// Encode runs the encoder over time-major source ids.
func (m *Model) Encode(tape *autodiff.GradientTape, x [][]int, xmask [][]float64) nn.EncoderContext {
	embs := make([]*mat.Dense, len(x))
	for t, ids := range x {
		embs[t] = m.srcEmb.Forward(tape, ids)
	}
	states := nn.Unroll(tape, m.encoder, embs, xmask, nil, nil)

	batch := len(x[0])
	mask := mat.NewDense(batch, len(x), nil)
	for t, row := range xmask {
		for i, v := range row {
			mask.Set(i, t, v)
		}
	}
	return nn.EncoderContext{States: states, Last: states[len(states)-1], Mask: mask}
}

// shiftedInputs returns the decoder input embeddings: position 0 is the zero
// vector and position t is the embedding of target t-1.
func (m *Model) shiftedInputs(tape *autodiff.GradientTape, y [][]int) []*mat.Dense {
	embs := make([]*mat.Dense, len(y))
	start := make([]int, len(y[0]))
	for i := range start {
		start[i] = -1
	}
	for t := range y {
		ids := start
		if t > 0 {
			ids = y[t-1]
		}
		embs[t] = m.tgtEmb.Forward(tape, ids)
	}
	return embs
}

// logits computes the readout for one position.
func (d *styleDecoder) logits(tape *autodiff.GradientTape, h, prevEmb, ctxTerm *mat.Dense) *mat.Dense {
	hidden := tape.Add(tape.Add(d.state.Forward(tape, h), d.prev.Forward(tape, prevEmb)), ctxTerm)
	return d.logit.Forward(tape, tape.Tanh(hidden))
}

// sequenceLoss returns the [batch, 1] masked negative log-likelihood of y,
// summed over positions.
func (m *Model) sequenceLoss(tape *autodiff.GradientTape, style int, enc nn.EncoderContext, y [][]int, ymask [][]float64) *mat.Dense {
	d := m.decoders[style]
	init := d.bridge.Forward(tape, enc.Last)
	cond := d.cell.Condition(tape, enc)
	embs := m.shiftedInputs(tape, y)
	states := nn.Unroll(tape, d.cell, embs, ymask, init, cond)
	ctxTerm := d.ctx.Forward(tape, enc.Last)

	var total *mat.Dense
	for t := range y {
		ce := tape.CrossEntropy(d.logits(tape, states[t], embs[t], ctxTerm), y[t], ymask[t])
		if total == nil {
			total = ce
		} else {
			total = tape.Add(total, ce)
		}
	}
	return total
}
