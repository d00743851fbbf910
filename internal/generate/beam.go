package generate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type hypothesis struct {
	tokens []int
	score  float64
}

type candidate struct {
	from  int
	token int
	score float64
}

// Beam runs beam search of width k for at most maxLen tokens.
//
// Each step expands every live hypothesis over the whole vocabulary and
// keeps the k-len(finished) best continuations by cumulative negative
// log-probability, ties going to the earlier (hypothesis, token) pair.
// A continuation ending in EOS is finished. Search stops when nothing is
// live or k hypotheses have finished; hypotheses still live at maxLen are
// returned too. Results are ordered by raw cumulative score, best first;
// equal scores keep their finishing order.
func Beam(stepper Stepper, k, maxLen int) []Result {
	if k < 1 {
		k = 1
	}
	live := []hypothesis{{}}
	states := stepper.InitialState()
	prev := []int{-1}
	var finished []Result

	for step := 0; step < maxLen; step++ {
		probs, next := stepper.Next(prev, states)
		best := topCandidates(live, probs, k-len(finished))

		var nextLive []hypothesis
		var rows []int
		for _, c := range best {
			tokens := append(append([]int{}, live[c.from].tokens...), c.token)
			if c.token == EOS {
				finished = append(finished, Result{Tokens: tokens, Score: c.score})
				continue
			}
			nextLive = append(nextLive, hypothesis{tokens: tokens, score: c.score})
			rows = append(rows, c.from)
		}
		live = nextLive
		if len(live) == 0 || len(finished) >= k {
			break
		}

		prev = make([]int, len(live))
		for i, h := range live {
			prev[i] = h.tokens[len(h.tokens)-1]
		}
		states = gatherRows(next, rows)
	}

	for _, h := range live {
		finished = append(finished, Result{Tokens: h.tokens, Score: h.score})
	}
	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].Score < finished[j].Score
	})
	return finished
}

// topCandidates selects the n lowest-scoring continuations in enumeration
// order of (hypothesis, token).
func topCandidates(live []hypothesis, probs *mat.Dense, n int) []candidate {
	best := make([]candidate, 0, n+1)
	for i, h := range live {
		for w, p := range probs.RawRowView(i) {
			c := candidate{from: i, token: w, score: h.score - math.Log(p)}
			if len(best) == n && !(c.score < best[n-1].score) {
				continue
			}
			pos := len(best)
			for pos > 0 && c.score < best[pos-1].score {
				pos--
			}
			best = append(best, candidate{})
			copy(best[pos+1:], best[pos:])
			best[pos] = c
			if len(best) > n {
				best = best[:n]
			}
		}
	}
	return best
}

func gatherRows(m *mat.Dense, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		out.SetRow(i, m.RawRowView(r))
	}
	return out
}
