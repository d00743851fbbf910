package generate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// tableStepper returns table[prev+1] as the next distribution; the state
// counts steps.
type tableStepper struct {
	table [][]float64
	calls int
}

func (s *tableStepper) InitialState() *mat.Dense {
	return mat.NewDense(1, 1, nil)
}

func (s *tableStepper) Next(prev []int, states *mat.Dense) (*mat.Dense, *mat.Dense) {
	s.calls++
	vocab := len(s.table[0])
	probs := mat.NewDense(len(prev), vocab, nil)
	next := mat.NewDense(len(prev), 1, nil)
	for i, w := range prev {
		probs.SetRow(i, s.table[w+1])
		next.Set(i, 0, states.At(i, 0)+1)
	}
	return probs, next
}

// vocab {eos, a, b}; start prefers a, a prefers b, b prefers eos.
func chainStepper() *tableStepper {
	return &tableStepper{table: [][]float64{
		{0.1, 0.6, 0.3},
		{0.3, 0.3, 0.4},
		{0.2, 0.1, 0.7},
		{0.8, 0.1, 0.1},
	}}
}

func TestSampler_Argmax(t *testing.T) {
	s := NewSampler(SamplingConfig{Argmax: true, MaxLen: 10})
	res := s.Decode(chainStepper())

	assert.Equal(t, []int{1, 2, 0}, res.Tokens)
	want := -math.Log(0.6) - math.Log(0.7) - math.Log(0.8)
	assert.InDelta(t, want, res.Score, 1e-12)
}

func TestSampler_MaxLen(t *testing.T) {
	loop := &tableStepper{table: [][]float64{
		{0, 1, 0},
		{0, 1, 0},
		{0, 1, 0},
		{0, 1, 0},
	}}
	s := NewSampler(SamplingConfig{Argmax: true, MaxLen: 4})
	res := s.Decode(loop)

	assert.Equal(t, []int{1, 1, 1, 1}, res.Tokens)
	assert.Equal(t, 4, loop.calls)
}

func TestSampler_Deterministic(t *testing.T) {
	cfg := SamplingConfig{MaxLen: 20, Seed: 7}
	s1 := NewSampler(cfg)
	s2 := NewSamplerWithRand(cfg, rand.New(rand.NewSource(7))) //nolint:gosec // test seed

	for i := 0; i < 10; i++ {
		assert.Equal(t, s1.Decode(chainStepper()), s2.Decode(chainStepper()))
	}
}

func TestSampler_Multinomial(t *testing.T) {
	s := NewSampler(SamplingConfig{Seed: 42})
	counts := make([]int, 3)
	for i := 0; i < 1000; i++ {
		counts[s.multinomial([]float64{0, 0.25, 0.75})]++
	}
	assert.Zero(t, counts[0])
	assert.Greater(t, counts[2], counts[1])
}

func TestBeam_WidthOneIsGreedy(t *testing.T) {
	greedy := NewSampler(SamplingConfig{Argmax: true, MaxLen: 10}).Decode(chainStepper())
	results := Beam(chainStepper(), 1, 10)

	require.Len(t, results, 1)
	assert.Equal(t, greedy.Tokens, results[0].Tokens)
	assert.InDelta(t, greedy.Score, results[0].Score, 1e-12)
}

func TestBeam_Bounds(t *testing.T) {
	for k := 1; k <= 4; k++ {
		for _, maxLen := range []int{1, 2, 5} {
			results := Beam(chainStepper(), k, maxLen)
			assert.NotEmpty(t, results)
			assert.LessOrEqual(t, len(results), k)
			for _, r := range results {
				assert.LessOrEqual(t, len(r.Tokens), maxLen)
				for i, w := range r.Tokens {
					if w == EOS {
						assert.Equal(t, len(r.Tokens)-1, i, "EOS only at the end")
					}
				}
			}
		}
	}
}

func TestBeam_KeepsBest(t *testing.T) {
	results := Beam(chainStepper(), 3, 1)

	// One step: eos finishes, a and b stay live and are flushed.
	require.Len(t, results, 3)
	assert.Equal(t, []int{1}, results[0].Tokens)
	assert.Equal(t, []int{2}, results[1].Tokens)
	assert.Equal(t, []int{0}, results[2].Tokens)
	assert.InDelta(t, -math.Log(0.1), results[2].Score, 1e-12)
}

func TestBeam_RanksByScore(t *testing.T) {
	// eos finishes first at step one with a poor score; "a b eos" finishes
	// later with a better one.
	st := &tableStepper{table: [][]float64{
		{0.05, 0.9, 0.05},
		{0.1, 0.1, 0.8},
		{0.01, 0.01, 0.98},
		{0.98, 0.01, 0.01},
	}}
	results := Beam(st, 2, 5)

	require.NotEmpty(t, results)
	assert.Equal(t, []int{1, 2, 0}, results[0].Tokens)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, 0, Best(results, false))
}

func TestBeam_TiesPreferEarlierCandidates(t *testing.T) {
	flat := &tableStepper{table: [][]float64{
		{0.2, 0.4, 0.4},
		{0.2, 0.4, 0.4},
		{0.2, 0.4, 0.4},
		{0.2, 0.4, 0.4},
	}}
	results := Beam(flat, 1, 1)

	require.Len(t, results, 1)
	assert.Equal(t, []int{1}, results[0].Tokens)
}

func TestBest(t *testing.T) {
	results := []Result{
		{Tokens: []int{1, 2, 3, 0}, Score: 4},
		{Tokens: []int{0}, Score: 3},
	}
	assert.Equal(t, 1, Best(results, false))
	assert.Equal(t, 0, Best(results, true))
	assert.Equal(t, -1, Best(nil, true))
	assert.Equal(t, []float64{1, 3}, NormalizeByLength(results))
}
