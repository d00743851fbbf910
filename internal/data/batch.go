// Package data turns token-id sequences into padded, masked, time-major
// batches and iterates corpora of (source, target, style) examples.
package data

import (
	"github.com/pkg/errors"
)

// EOS is the end-of-sequence and padding id.
const EOS = 0

// UNK is the id of out-of-vocabulary tokens.
const UNK = 1

// ErrEmptyBatch signals that every example was filtered out. Callers skip
// the batch without advancing their update counter.
var ErrEmptyBatch = errors.New("empty batch")

// Example is one training pair with its style label.
type Example struct {
	Source []int
	Target []int
	Label  int
}

// Batch is a padded, time-major minibatch.
//
// X[t][i] is the source id of example i at position t; positions past the
// sequence are EOS. XMask[t][i] is 1 up to and including the first EOS
// position and 0 after it. Y and YMask follow the same layout.
type Batch struct {
	X      [][]int
	XMask  [][]float64
	Y      [][]int
	YMask  [][]float64
	Labels []int
}

// Size returns the number of examples.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// SourceLen returns the padded source length.
func (b *Batch) SourceLen() int {
	return len(b.X)
}

// TargetLen returns the padded target length.
func (b *Batch) TargetLen() int {
	return len(b.Y)
}

// Source returns the ids of example i up to, not including, the first EOS.
func (b *Batch) Source(i int) []int {
	return column(b.X, i)
}

// Target returns the target ids of example i up to the first EOS.
func (b *Batch) Target(i int) []int {
	return column(b.Y, i)
}

func column(m [][]int, i int) []int {
	var out []int
	for _, row := range m {
		if row[i] == EOS {
			break
		}
		out = append(out, row[i])
	}
	return out
}

// PrepareData filters and pads examples.
//
// Examples whose source or target length is not below maxLen are dropped
// (maxLen <= 0 keeps everything). Both sides are padded to their longest
// sequence plus one EOS position. If nothing survives, ErrEmptyBatch is
// returned.
func PrepareData(examples []Example, maxLen int) (*Batch, error) {
	kept := examples
	if maxLen > 0 {
		kept = make([]Example, 0, len(examples))
		for _, ex := range examples {
			if len(ex.Source) < maxLen && len(ex.Target) < maxLen {
				kept = append(kept, ex)
			}
		}
	}
	if len(kept) == 0 {
		return nil, ErrEmptyBatch
	}

	lenX, lenY := 0, 0
	for _, ex := range kept {
		lenX = max(lenX, len(ex.Source))
		lenY = max(lenY, len(ex.Target))
	}

	b := &Batch{Labels: make([]int, len(kept))}
	b.X, b.XMask = grid(lenX+1, len(kept))
	b.Y, b.YMask = grid(lenY+1, len(kept))
	for i, ex := range kept {
		fill(b.X, b.XMask, i, ex.Source)
		fill(b.Y, b.YMask, i, ex.Target)
		b.Labels[i] = ex.Label
	}
	return b, nil
}

func grid(steps, n int) ([][]int, [][]float64) {
	ids := make([][]int, steps)
	mask := make([][]float64, steps)
	for t := range ids {
		ids[t] = make([]int, n)
		mask[t] = make([]float64, n)
	}
	return ids, mask
}

func fill(ids [][]int, mask [][]float64, i int, seq []int) {
	for t, id := range seq {
		ids[t][i] = id
	}
	for t := 0; t <= len(seq); t++ {
		mask[t][i] = 1
	}
}
