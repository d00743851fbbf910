package ops

import "gonum.org/v1/gonum/mat"

// AddOp represents element-wise addition: output = a + b.
type AddOp struct {
	inputs []*mat.Dense
	output *mat.Dense
}

// NewAddOp computes a + b.
func NewAddOp(a, b *mat.Dense) *AddOp {
	mustSameShape("AddOp", a, b)
	out := zerosLike(a)
	out.Add(a, b)
	return &AddOp{inputs: []*mat.Dense{a, b}, output: out}
}

// Backward passes the output gradient to both inputs unchanged.
func (op *AddOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{outputGrad, outputGrad}
}

// Inputs returns [a, b].
func (op *AddOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns a + b.
func (op *AddOp) Output() *mat.Dense { return op.output }

// AddBiasOp adds a [1, cols] bias row to every row of x.
//
// The bias gradient is the column-wise sum of the output gradient.
type AddBiasOp struct {
	inputs []*mat.Dense // [x, bias]
	output *mat.Dense
}

// NewAddBiasOp computes x + 1·bias.
func NewAddBiasOp(x, bias *mat.Dense) *AddBiasOp {
	mustRows("AddBiasOp", bias, 1)
	r, c := x.Dims()
	if _, bc := bias.Dims(); bc != c {
		panic("AddBiasOp: bias width does not match input")
	}
	out := mat.NewDense(r, c, nil)
	b := bias.RawRowView(0)
	for i := 0; i < r; i++ {
		dst := out.RawRowView(i)
		for j, v := range x.RawRowView(i) {
			dst[j] = v + b[j]
		}
	}
	return &AddBiasOp{inputs: []*mat.Dense{x, bias}, output: out}
}

// Backward returns [outputGrad, Σ_rows outputGrad].
func (op *AddBiasOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{outputGrad, rowSums(outputGrad)}
}

// Inputs returns [x, bias].
func (op *AddBiasOp) Inputs() []*mat.Dense { return op.inputs }

// Output returns x + bias.
func (op *AddBiasOp) Output() *mat.Dense { return op.output }

// ScaleOp multiplies a matrix by a constant.
type ScaleOp struct {
	input  *mat.Dense
	factor float64
	output *mat.Dense
}

// NewScaleOp computes factor * x.
func NewScaleOp(x *mat.Dense, factor float64) *ScaleOp {
	out := zerosLike(x)
	out.Scale(factor, x)
	return &ScaleOp{input: x, factor: factor, output: out}
}

// Backward returns factor * outputGrad.
func (op *ScaleOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	g := zerosLike(outputGrad)
	g.Scale(op.factor, outputGrad)
	return []*mat.Dense{g}
}

// Inputs returns [x].
func (op *ScaleOp) Inputs() []*mat.Dense { return []*mat.Dense{op.input} }

// Output returns factor * x.
func (op *ScaleOp) Output() *mat.Dense { return op.output }
