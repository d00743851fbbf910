package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// Embedding maps token ids to rows of a [vocab, dim] table.
//
// Negative ids select a zero vector; decoders use id -1 for the
// "nothing generated yet" position.
type Embedding struct {
	table *mat.Dense
}

// NewEmbedding registers the table under field "W".
func NewEmbedding(scope Scope, rng *rand.Rand, vocab, dim int) *Embedding {
	return &Embedding{table: scope.Add("W", NormWeight(rng, vocab, dim, 0.01, true))}
}

// Forward returns the [len(ids), dim] embeddings.
func (e *Embedding) Forward(tape *autodiff.GradientTape, ids []int) *mat.Dense {
	return tape.Lookup(e.table, ids)
}

// Table returns the embedding table.
func (e *Embedding) Table() *mat.Dense { return e.table }

// Vocab returns the number of rows.
func (e *Embedding) Vocab() int {
	r, _ := e.table.Dims()
	return r
}

// Dim returns the vector size.
func (e *Embedding) Dim() int {
	_, c := e.table.Dims()
	return c
}
