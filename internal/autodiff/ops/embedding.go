package ops

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LookupOp gathers rows of an embedding table by token id.
//
// A negative id selects the zero vector; it marks the "nothing emitted yet"
// position in front of every target sequence.
type LookupOp struct {
	table  *mat.Dense
	ids    []int
	output *mat.Dense
}

// NewLookupOp returns a [len(ids), dim] matrix of table rows.
func NewLookupOp(table *mat.Dense, ids []int) *LookupOp {
	vocab, dim := table.Dims()
	out := mat.NewDense(len(ids), dim, nil)
	for i, id := range ids {
		if id < 0 {
			continue
		}
		if id >= vocab {
			panic(fmt.Sprintf("LookupOp: id %d out of range for vocabulary of %d", id, vocab))
		}
		copy(out.RawRowView(i), table.RawRowView(id))
	}
	return &LookupOp{table: table, ids: ids, output: out}
}

// Backward returns a table-shaped gradient holding the row gradients. The
// tape avoids it through ScatterAdd.
func (op *LookupOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(op.table)
	op.ScatterAdd(g, outputGrad)
	return []*mat.Dense{g}
}

// ScatterAdd adds the gradient of every looked-up row into dst, a
// table-shaped gradient buffer.
func (op *LookupOp) ScatterAdd(dst, outputGrad *mat.Dense) {
	for i, id := range op.ids {
		if id < 0 {
			continue
		}
		row := dst.RawRowView(id)
		for j, v := range outputGrad.RawRowView(i) {
			row[j] += v
		}
	}
}

// Inputs returns [table].
func (op *LookupOp) Inputs() []*mat.Dense { return []*mat.Dense{op.table} }

// Output returns the gathered rows.
func (op *LookupOp) Output() *mat.Dense { return op.output }
