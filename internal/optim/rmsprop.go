package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/nn"
)

// RMSProp implements centred RMSProp with momentum.
//
// Update rule:
//
//	Eg   = rho * Eg  + (1-rho) * g
//	Eg²  = rho * Eg² + (1-rho) * g²
//	dir  = momentum * dir - lr * g / sqrt(Eg² - (Eg)² + eps)
//	param = param + dir
type RMSProp struct {
	lr       float64
	rho      float64
	momentum float64
	eps      float64
	state    *slots
}

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR       float64 // Step size (default: 1e-4)
	Rho      float64 // Running average decay (default: 0.95)
	Momentum float64 // Momentum of the update direction (default: 0.9)
	Eps      float64 // Term for numerical stability (default: 1e-4)
}

const (
	slotGrad   = "running_grad"
	slotUpdate = "updir"
)

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(params []*nn.Parameter, config RMSPropConfig) *RMSProp {
	if config.LR == 0 {
		config.LR = 1e-4
	}
	if config.Rho == 0 {
		config.Rho = 0.95
	}
	if config.Momentum == 0 {
		config.Momentum = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-4
	}
	return &RMSProp{
		lr:       config.LR,
		rho:      config.Rho,
		momentum: config.Momentum,
		eps:      config.Eps,
		state:    newSlots(params, slotGrad, slotGrad2, slotUpdate),
	}
}

// Step performs a single optimization step.
func (r *RMSProp) Step(grads map[*nn.Parameter]*mat.Dense) {
	for _, p := range r.state.params {
		g := gradient(grads, p)
		rg := r.state.get(slotGrad, p)
		rg2 := r.state.get(slotGrad2, p)
		ud := r.state.get(slotUpdate, p)
		data := p.Value().RawMatrix().Data
		for i := range data {
			gi := at(g, i)
			rg[i] = r.rho*rg[i] + (1-r.rho)*gi
			rg2[i] = r.rho*rg2[i] + (1-r.rho)*gi*gi
			ud[i] = r.momentum*ud[i] - r.lr*gi/math.Sqrt(rg2[i]-rg[i]*rg[i]+r.eps)
			data[i] += ud[i]
		}
	}
}

// Name returns "rmsprop".
func (r *RMSProp) Name() string { return KindRMSProp.String() }

// GetLR returns the step size.
func (r *RMSProp) GetLR() float64 { return r.lr }

// StateDict returns the running averages and the update direction.
func (r *RMSProp) StateDict() map[string]*mat.Dense { return r.state.stateDict() }

// LoadStateDict restores the running averages and the update direction.
func (r *RMSProp) LoadStateDict(state map[string]*mat.Dense) error { return r.state.load(state) }
