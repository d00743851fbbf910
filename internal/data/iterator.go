package data

import (
	"io"
)

// Minibatch is a group of examples that share one style index. The style
// index selects the decoder and optimizer used for the update.
type Minibatch struct {
	Examples   []Example
	StyleIndex int
}

// Iterator yields minibatches. Next returns io.EOF at the end of an epoch;
// Reset rewinds to the beginning.
type Iterator interface {
	Next() (Minibatch, error)
	Reset() error
}

// SliceIterator serves an in-memory corpus, grouped like TextIterator.
type SliceIterator struct {
	examples []Example
	group    *grouper
	pos      int
	pending  []Minibatch
}

// NewSliceIterator creates an iterator over examples with labels in
// [0, styles).
func NewSliceIterator(examples []Example, batchSize, styles int) *SliceIterator {
	return &SliceIterator{examples: examples, group: newGrouper(batchSize, styles)}
}

// Next returns the next minibatch or io.EOF.
func (it *SliceIterator) Next() (Minibatch, error) {
	if len(it.pending) > 0 {
		mb := it.pending[0]
		it.pending = it.pending[1:]
		return mb, nil
	}
	for it.pos < len(it.examples) {
		ex := it.examples[it.pos]
		it.pos++
		if mb, ok := it.group.add(ex); ok {
			return mb, nil
		}
	}
	it.pending = it.group.flush()
	if len(it.pending) == 0 {
		return Minibatch{}, io.EOF
	}
	return it.Next()
}

// Reset rewinds the iterator.
func (it *SliceIterator) Reset() error {
	it.pos = 0
	it.pending = nil
	it.group.reset()
	return nil
}

// grouper buffers examples per style label and emits a minibatch when a
// buffer is full.
type grouper struct {
	batchSize int
	buffers   [][]Example
}

func newGrouper(batchSize, styles int) *grouper {
	return &grouper{batchSize: max(batchSize, 1), buffers: make([][]Example, max(styles, 1))}
}

func (g *grouper) add(ex Example) (Minibatch, bool) {
	label := ex.Label
	g.buffers[label] = append(g.buffers[label], ex)
	if len(g.buffers[label]) < g.batchSize {
		return Minibatch{}, false
	}
	mb := Minibatch{Examples: g.buffers[label], StyleIndex: label}
	g.buffers[label] = nil
	return mb, true
}

// flush returns the partially filled buffers in label order.
func (g *grouper) flush() []Minibatch {
	var out []Minibatch
	for label, buf := range g.buffers {
		if len(buf) > 0 {
			out = append(out, Minibatch{Examples: buf, StyleIndex: label})
			g.buffers[label] = nil
		}
	}
	return out
}

func (g *grouper) reset() {
	for i := range g.buffers {
		g.buffers[i] = nil
	}
}
