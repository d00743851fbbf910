package ops

import "gonum.org/v1/gonum/mat"

// BlendOp mixes a new state with the previous one under a per-row mask:
//
//	out[i] = m[i]*next[i] + (1-m[i])*prev[i]
//
// Rows with mask 0 keep the previous state exactly.
type BlendOp struct {
	inputs []*mat.Dense // [next, prev]
	mask   []float64
	output *mat.Dense
}

// NewBlendOp applies the mask hold.
func NewBlendOp(next, prev *mat.Dense, mask []float64) *BlendOp {
	mustSameShape("BlendOp", next, prev)
	mustRows("BlendOp", next, len(mask))
	out := zerosLike(next)
	for i, m := range mask {
		dst := out.RawRowView(i)
		p := prev.RawRowView(i)
		for j, v := range next.RawRowView(i) {
			dst[j] = m*v + (1-m)*p[j]
		}
	}
	return &BlendOp{inputs: []*mat.Dense{next, prev}, mask: mask, output: out}
}

// Backward splits the gradient by mask weight.
func (op *BlendOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	gNext := zerosLike(outputGrad)
	gPrev := zerosLike(outputGrad)
	for i, m := range op.mask {
		gn := gNext.RawRowView(i)
		gp := gPrev.RawRowView(i)
		for j, v := range outputGrad.RawRowView(i) {
			gn[j] = m * v
			gp[j] = (1 - m) * v
		}
	}
	return []*mat.Dense{gNext, gPrev}
}

// Inputs returns [next, prev].
func (op *BlendOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns the blended state.
func (op *BlendOp) Output() *mat.Dense { return op.output }
