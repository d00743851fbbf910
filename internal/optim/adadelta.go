package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/nn"
)

// Adadelta implements the Adadelta optimizer.
//
// Update rule, per parameter element:
//
//	Eg²  = rho * Eg²  + (1-rho) * g²
//	step = -sqrt(Edx² + eps) / sqrt(Eg² + eps) * g
//	Edx² = rho * Edx² + (1-rho) * step²
//	param = param + scale * step
//
// Both accumulators are sums of squares with non-negative weights, so they
// never go negative. There is no learning rate; Scale defaults to 1.
type Adadelta struct {
	rho   float64
	eps   float64
	scale float64
	state *slots
}

// AdadeltaConfig holds configuration for Adadelta.
type AdadeltaConfig struct {
	Rho   float64 // Decay of both running averages (default: 0.95)
	Eps   float64 // Term for numerical stability (default: 1e-6)
	Scale float64 // Uniform step multiplier (default: 1)
}

const (
	slotGrad2   = "running_grad2"
	slotUpdate2 = "running_up2"
)

// NewAdadelta creates a new Adadelta optimizer.
func NewAdadelta(params []*nn.Parameter, config AdadeltaConfig) *Adadelta {
	if config.Rho == 0 {
		config.Rho = 0.95
	}
	if config.Eps == 0 {
		config.Eps = 1e-6
	}
	if config.Scale == 0 {
		config.Scale = 1
	}
	return &Adadelta{
		rho:   config.Rho,
		eps:   config.Eps,
		scale: config.Scale,
		state: newSlots(params, slotGrad2, slotUpdate2),
	}
}

// Step performs a single optimization step.
func (a *Adadelta) Step(grads map[*nn.Parameter]*mat.Dense) {
	for _, p := range a.state.params {
		g := gradient(grads, p)
		rg2 := a.state.get(slotGrad2, p)
		ru2 := a.state.get(slotUpdate2, p)
		data := p.Value().RawMatrix().Data
		for i := range data {
			gi := at(g, i)
			rg2[i] = a.rho*rg2[i] + (1-a.rho)*gi*gi
			step := -math.Sqrt(ru2[i]+a.eps) / math.Sqrt(rg2[i]+a.eps) * gi
			ru2[i] = a.rho*ru2[i] + (1-a.rho)*step*step
			data[i] += a.scale * step
		}
	}
}

// Name returns "adadelta".
func (a *Adadelta) Name() string { return KindAdadelta.String() }

// GetLR returns the step scale.
func (a *Adadelta) GetLR() float64 { return a.scale }

// StateDict returns both running averages per parameter.
func (a *Adadelta) StateDict() map[string]*mat.Dense { return a.state.stateDict() }

// LoadStateDict restores both running averages.
func (a *Adadelta) LoadStateDict(state map[string]*mat.Dense) error { return a.state.load(state) }
