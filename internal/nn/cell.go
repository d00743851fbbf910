package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// CellKind is the closed set of recurrent cells.
type CellKind int

// Supported cells.
const (
	CellGRU         CellKind = iota // plain GRU
	CellConditional                 // GRU conditioned on a fixed context
	CellAttention                   // GRU conditioned on attended encoder states
)

var cellKindNames = map[string]CellKind{
	"gru":                CellGRU,
	"gru_cond_simple":    CellConditional,
	"gru_cond_attention": CellAttention,
}

// ParseCellKind resolves a configured cell name.
func ParseCellKind(name string) (CellKind, error) {
	k, ok := cellKindNames[name]
	if !ok {
		return CellGRU, errors.Errorf("unknown cell kind %q", name)
	}
	return k, nil
}

// String returns the configuration name of the cell kind.
func (k CellKind) String() string {
	for name, v := range cellKindNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CellKind) UnmarshalText(b []byte) error {
	v, err := ParseCellKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// EncoderContext is what a decoder conditions on.
type EncoderContext struct {
	// States holds the encoder hidden state per source position, each [batch, dim].
	States []*mat.Dense
	// Last is the final encoder state, [batch, dim].
	Last *mat.Dense
	// Mask is the [batch, srcLen] source mask.
	Mask *mat.Dense
}

// Conditioning holds the per-source projections a conditional cell reuses at
// every step. Fields a cell does not need are nil.
type Conditioning struct {
	Gates     *mat.Dense   // [batch, 2*dim] context to gates
	Candidate *mat.Dense   // [batch, dim] context to candidate
	Keys      []*mat.Dense // per source position, [batch, dim]
	Values    []*mat.Dense // per source position, [batch, dimctx]
	Mask      *mat.Dense   // [batch, srcLen]
}

// Repeat tiles a single-example conditioning to n rows. It is used by search,
// where every live hypothesis shares one source, and is not recorded.
func (c *Conditioning) Repeat(n int) *Conditioning {
	if c == nil {
		return nil
	}
	out := &Conditioning{
		Gates:     RepeatRow(c.Gates, n),
		Candidate: RepeatRow(c.Candidate, n),
		Mask:      RepeatRow(c.Mask, n),
	}
	for _, k := range c.Keys {
		out.Keys = append(out.Keys, RepeatRow(k, n))
	}
	for _, v := range c.Values {
		out.Values = append(out.Values, RepeatRow(v, n))
	}
	return out
}

// RepeatRow tiles a [1, c] matrix to [n, c]. A nil matrix stays nil.
func RepeatRow(m *mat.Dense, n int) *mat.Dense {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	if r != 1 {
		panic("nn: Repeat needs a single-row conditioning")
	}
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, m.RawRowView(0))
	}
	return out
}

// Cell is a recurrent cell with one shared step function, used both for
// unrolled training and for single-step inference.
type Cell interface {
	// Dim returns the hidden size.
	Dim() int
	// Condition precomputes the context projections. Plain cells return nil.
	Condition(tape *autodiff.GradientTape, ctx EncoderContext) *Conditioning
	// Step advances one position: x is [batch, nin], prev is [batch, dim].
	Step(tape *autodiff.GradientTape, x, prev *mat.Dense, cond *Conditioning) *mat.Dense
}

// Unroll runs cell over xs left to right, starting from init (zeros when nil).
//
// Where masks[t][i] is 0 the state of row i is held at its previous value.
// masks may be nil, meaning every position is live.
func Unroll(tape *autodiff.GradientTape, cell Cell, xs []*mat.Dense, masks [][]float64, init *mat.Dense, cond *Conditioning) []*mat.Dense {
	if len(xs) == 0 {
		return nil
	}
	h := init
	if h == nil {
		r, _ := xs[0].Dims()
		h = Zeros(r, cell.Dim())
	}
	states := make([]*mat.Dense, len(xs))
	for t, x := range xs {
		next := cell.Step(tape, x, h, cond)
		if masks != nil {
			next = tape.Blend(next, h, masks[t])
		}
		h = next
		states[t] = h
	}
	return states
}
