package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff/ops"
	"github.com/born-ml/styleshift/internal/data"
	"github.com/born-ml/styleshift/internal/nn"
)

// Session decodes one source sentence with one style decoder, one position
// at a time. It implements generate.Stepper.
//
// The encoder context, the context projections and the initial state are
// computed once; Next tiles them to the number of live hypotheses.
type Session struct {
	m       *Model
	dec     *styleDecoder
	cond    *nn.Conditioning
	ctxTerm *mat.Dense
	init    *mat.Dense
}

// NewSession encodes source for decoding with the decoder of style. A
// trailing EOS is appended when missing.
func (m *Model) NewSession(source []int, style int) *Session {
	ids := append([]int{}, source...)
	if len(ids) == 0 || ids[len(ids)-1] != data.EOS {
		ids = append(ids, data.EOS)
	}
	x := make([][]int, len(ids))
	xmask := make([][]float64, len(ids))
	for t, id := range ids {
		x[t] = []int{id}
		xmask[t] = []float64{1}
	}

	d := m.decoders[style]
	enc := m.Encode(nil, x, xmask)
	return &Session{
		m:       m,
		dec:     d,
		cond:    d.cell.Condition(nil, enc),
		ctxTerm: d.ctx.Forward(nil, enc.Last),
		init:    d.bridge.Forward(nil, enc.Last),
	}
}

// InitialState returns the [1, dim] initial decoder state.
func (s *Session) InitialState() *mat.Dense {
	return mat.DenseCopyOf(s.init)
}

// Next advances every hypothesis by one position. prev holds the last token
// of each hypothesis (-1 before the first), states is [len(prev), dim].
// It returns the [len(prev), vocab] next-token distributions and the new
// states.
func (s *Session) Next(prev []int, states *mat.Dense) (*mat.Dense, *mat.Dense) {
	n := len(prev)
	emb := s.m.tgtEmb.Forward(nil, prev)
	next := s.dec.cell.Step(nil, emb, states, s.cond.Repeat(n))
	ctxTerm := nn.RepeatRow(s.ctxTerm, n)
	probs := ops.Softmax(s.dec.logits(nil, next, emb, ctxTerm))
	return probs, next
}
