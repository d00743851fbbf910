package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff/ops"
)

// Backward computes d output / d x for every matrix x reachable from output.
//
// Algorithm:
//  1. Seed the output gradient with ones
//  2. Walk operations in reverse order
//  3. For each operation whose output has a gradient, apply the chain rule
//  4. Accumulate gradients when the same matrix is used multiple times
//
// Operations recorded after output, or not on a path to it, receive no
// gradient. Backward may be called several times on the same tape, once per
// objective. The result maps each matrix to its accumulated gradient.
func (t *GradientTape) Backward(output *mat.Dense) map[*mat.Dense]*mat.Dense {
	grads := make(map[*mat.Dense]*mat.Dense)
	if t.NumOps() == 0 {
		return grads
	}

	seed := mat.NewDense(output.RawMatrix().Rows, output.RawMatrix().Cols, nil)
	seed.Apply(func(_, _ int, _ float64) float64 { return 1 }, seed)
	grads[output] = seed

	// Stop recording during backward pass
	wasRecording := t.recording
	t.recording = false
	defer func() {
		t.recording = wasRecording
	}()

	acc := accumulator{grads: grads, owned: make(map[*mat.Dense]bool)}
	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outputGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		if s, ok := op.(ops.Scatterer); ok {
			s.ScatterAdd(acc.buffer(op.Inputs()[0]), outputGrad)
			continue
		}
		acc.add(op, op.Backward(outputGrad))
	}

	return grads
}

// accumulator sums input gradients. A gradient returned by an operation may
// alias another matrix, so it is stored as is and only copied when a second
// contribution arrives; buffers allocated here are owned by their key and
// updated in place.
type accumulator struct {
	grads map[*mat.Dense]*mat.Dense
	owned map[*mat.Dense]bool
}

func (a *accumulator) add(op ops.Operation, inputGrads []*mat.Dense) {
	inputs := op.Inputs()
	if len(inputGrads) > len(inputs) {
		panic(fmt.Sprintf("backward: %T returned %d gradients for %d inputs", op, len(inputGrads), len(inputs)))
	}
	for j, g := range inputGrads {
		if g == nil {
			continue
		}
		in := inputs[j]
		existing, ok := a.grads[in]
		switch {
		case !ok:
			a.grads[in] = g
		case a.owned[in]:
			existing.Add(existing, g)
		default:
			sum := mat.NewDense(existing.RawMatrix().Rows, existing.RawMatrix().Cols, nil)
			sum.Add(existing, g)
			a.grads[in] = sum
			a.owned[in] = true
		}
	}
}

// buffer returns an owned gradient buffer for in, starting from any gradient
// already accumulated for it.
func (a *accumulator) buffer(in *mat.Dense) *mat.Dense {
	if a.owned[in] {
		return a.grads[in]
	}
	r, c := in.Dims()
	buf := mat.NewDense(r, c, nil)
	if existing, ok := a.grads[in]; ok {
		buf.Copy(existing)
	}
	a.grads[in] = buf
	a.owned[in] = true
	return buf
}
