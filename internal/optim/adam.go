package optim

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t  = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t  = beta2 * v_{t-1} + (1-beta2) * gradient²
//	lr_t = lr * sqrt(1 - beta2^t) / (1 - beta1^t)
//	param = param - lr_t * m_t / (sqrt(v_t) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int // Timestep for bias correction
	state *slots
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

const (
	slotMean     = "mean"
	slotVariance = "variance"
	stepKey      = "adam.t"
)

// NewAdam creates a new Adam optimizer.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		lr:    config.LR,
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		state: newSlots(params, slotMean, slotVariance),
	}
}

// Step performs a single optimization step using Adam algorithm.
func (a *Adam) Step(grads map[*nn.Parameter]*mat.Dense) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))

	for _, p := range a.state.params {
		g := gradient(grads, p)
		m := a.state.get(slotMean, p)
		v := a.state.get(slotVariance, p)
		data := p.Value().RawMatrix().Data
		for i := range data {
			gi := at(g, i)
			m[i] = a.beta1*m[i] + (1-a.beta1)*gi
			v[i] = a.beta2*v[i] + (1-a.beta2)*gi*gi
			data[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.eps)
		}
	}
}

// Name returns "adam".
func (a *Adam) Name() string { return KindAdam.String() }

// GetLR returns the learning rate.
func (a *Adam) GetLR() float64 { return a.lr }

// StateDict returns the moments and the timestep.
func (a *Adam) StateDict() map[string]*mat.Dense {
	out := a.state.stateDict()
	out[stepKey] = mat.NewDense(1, 1, []float64{float64(a.t)})
	return out
}

// LoadStateDict restores the moments and the timestep.
func (a *Adam) LoadStateDict(state map[string]*mat.Dense) error {
	t, ok := state[stepKey]
	if !ok {
		return errors.Errorf("optimizer state %s missing", stepKey)
	}
	if err := a.state.load(state); err != nil {
		return err
	}
	a.t = int(t.At(0, 0))
	return nil
}
