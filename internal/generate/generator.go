// Package generate provides decoding strategies for the style decoders.
//
// Decoding is driven through a Stepper, which advances a batch of partial
// hypotheses by one token. Sampler draws (or takes the arg-max of) one
// hypothesis; Beam keeps the k best.
package generate

import (
	"gonum.org/v1/gonum/mat"
)

// EOS ends a hypothesis.
const EOS = 0

// Stepper advances decoder states one token at a time.
type Stepper interface {
	// InitialState returns the [1, dim] state before the first token.
	InitialState() *mat.Dense
	// Next takes the last token of each hypothesis (-1 before the first)
	// and their [len(prev), dim] states, and returns the [len(prev), vocab]
	// next-token distributions with the new states.
	Next(prev []int, states *mat.Dense) (probs, next *mat.Dense)
}

// Result is a decoded token sequence with its cumulative negative
// log-probability.
type Result struct {
	Tokens []int
	Score  float64
}

// NormalizeByLength divides every score by its sequence length.
func NormalizeByLength(results []Result) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		n := len(r.Tokens)
		if n == 0 {
			n = 1
		}
		out[i] = r.Score / float64(n)
	}
	return out
}

// Best returns the index of the lowest score, optionally length-normalized.
// It returns -1 for no results.
func Best(results []Result, normalize bool) int {
	if len(results) == 0 {
		return -1
	}
	scores := make([]float64, len(results))
	if normalize {
		scores = NormalizeByLength(results)
	} else {
		for i, r := range results {
			scores[i] = r.Score
		}
	}
	best := 0
	for i, s := range scores {
		if s < scores[best] {
			best = i
		}
	}
	return best
}
