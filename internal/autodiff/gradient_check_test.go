package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64() * 0.5
	}
	return mat.NewDense(r, c, data)
}

// checkGradients compares tape gradients of the scalar f against central
// finite differences for every entry of every parameter.
func checkGradients(t *testing.T, params []*mat.Dense, f func(tape *autodiff.GradientTape) *mat.Dense) {
	t.Helper()

	tape := autodiff.NewGradientTape()
	tape.StartRecording()
	out := f(tape)
	require.Equal(t, 1, out.RawMatrix().Rows)
	require.Equal(t, 1, out.RawMatrix().Cols)
	grads := tape.Backward(out)

	const eps = 1e-6
	for pi, p := range params {
		g, ok := grads[p]
		require.True(t, ok, "param %d has no gradient", pi)
		raw := p.RawMatrix()
		for i := 0; i < raw.Rows; i++ {
			for j := 0; j < raw.Cols; j++ {
				orig := p.At(i, j)
				p.Set(i, j, orig+eps)
				plus := f(nil).At(0, 0)
				p.Set(i, j, orig-eps)
				minus := f(nil).At(0, 0)
				p.Set(i, j, orig)

				numeric := (plus - minus) / (2 * eps)
				analytic := g.At(i, j)
				tol := 1e-5 * math.Max(1, math.Abs(numeric))
				assert.InDelta(t, numeric, analytic, tol, "param %d entry (%d,%d)", pi, i, j)
			}
		}
	}
}

func TestGradient_MatMulTanhMean(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := randomDense(rng, 3, 4)
	w := randomDense(rng, 4, 2)
	b := randomDense(rng, 1, 2)

	checkGradients(t, []*mat.Dense{x, w, b}, func(tape *autodiff.GradientTape) *mat.Dense {
		return tape.Mean(tape.Tanh(tape.AddBias(tape.MatMul(x, w), b)))
	})
}

func TestGradient_GatedUpdate(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	prev := randomDense(rng, 2, 3)
	cand := randomDense(rng, 2, 3)
	gate := randomDense(rng, 2, 3)

	checkGradients(t, []*mat.Dense{prev, cand, gate}, func(tape *autodiff.GradientTape) *mat.Dense {
		u := tape.Sigmoid(gate)
		h := tape.Add(tape.Mul(u, prev), tape.Mul(tape.OneMinus(u), tape.Tanh(cand)))
		h = tape.Blend(h, prev, []float64{1, 0})
		return tape.SquareSum(tape.Scale(h, 0.7))
	})
}

func TestGradient_SliceConcat(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randomDense(rng, 2, 6)
	y := randomDense(rng, 2, 2)

	checkGradients(t, []*mat.Dense{x, y}, func(tape *autodiff.GradientTape) *mat.Dense {
		left := tape.SliceCols(x, 0, 3)
		right := tape.SliceCols(x, 3, 6)
		joined := tape.ConcatCols(tape.Mul(left, right), y)
		return tape.Sum(tape.Tanh(joined))
	})
}

func TestGradient_Lookup(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	table := randomDense(rng, 4, 3)
	w := randomDense(rng, 3, 2)

	checkGradients(t, []*mat.Dense{table, w}, func(tape *autodiff.GradientTape) *mat.Dense {
		emb := tape.Lookup(table, []int{2, -1, 2, 0})
		return tape.Mean(tape.Tanh(tape.MatMul(emb, w)))
	})
}

func TestGradient_MaskedAttention(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	s0 := randomDense(rng, 2, 3)
	s1 := randomDense(rng, 2, 3)
	s2 := randomDense(rng, 2, 3)
	query := randomDense(rng, 2, 3)
	mask := mat.NewDense(2, 3, []float64{1, 1, 1, 1, 1, 0})

	checkGradients(t, []*mat.Dense{s0, s1, s2, query}, func(tape *autodiff.GradientTape) *mat.Dense {
		states := []*mat.Dense{s0, s1, s2}
		scores := make([]*mat.Dense, len(states))
		for i, s := range states {
			scores[i] = tape.RowDot(s, query)
		}
		alpha := tape.Softmax(tape.ConcatCols(scores...), mask)
		var ctx *mat.Dense
		for i, s := range states {
			term := tape.ScaleRows(s, tape.SliceCols(alpha, i, i+1))
			if ctx == nil {
				ctx = term
			} else {
				ctx = tape.Add(ctx, term)
			}
		}
		return tape.SquareSum(ctx)
	})
}

func TestGradient_CrossEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	logits := randomDense(rng, 3, 5)

	checkGradients(t, []*mat.Dense{logits}, func(tape *autodiff.GradientTape) *mat.Dense {
		return tape.Sum(tape.CrossEntropy(logits, []int{4, 0, 2}, []float64{1, 0.5, 0}))
	})
}

func TestGradient_NegEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	logits := randomDense(rng, 3, 2)

	checkGradients(t, []*mat.Dense{logits}, func(tape *autodiff.GradientTape) *mat.Dense {
		return tape.Mean(tape.NegEntropy(logits))
	})
}

func TestGradient_ReusedInput(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	x := randomDense(rng, 2, 2)

	checkGradients(t, []*mat.Dense{x}, func(tape *autodiff.GradientTape) *mat.Dense {
		return tape.Sum(tape.Add(tape.Mul(x, x), tape.MatMul(x, x)))
	})
}
