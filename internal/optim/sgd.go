package optim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/nn"
)

// SGD implements plain gradient descent:
//
//	param = param - lr * gradient
type SGD struct {
	params []*nn.Parameter
	lr     float64
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR float64 // Learning rate (default: 0.01)
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{params: params, lr: config.LR}
}

// Step performs a single optimization step.
func (s *SGD) Step(grads map[*nn.Parameter]*mat.Dense) {
	for _, p := range s.params {
		g := gradient(grads, p)
		if g == nil {
			continue
		}
		data := p.Value().RawMatrix().Data
		for i := range data {
			data[i] -= s.lr * g[i]
		}
	}
}

// Name returns "sgd".
func (s *SGD) Name() string { return KindSGD.String() }

// GetLR returns the learning rate.
func (s *SGD) GetLR() float64 { return s.lr }

// StateDict returns an empty map: SGD keeps no state.
func (s *SGD) StateDict() map[string]*mat.Dense { return map[string]*mat.Dense{} }

// LoadStateDict ignores state.
func (s *SGD) LoadStateDict(map[string]*mat.Dense) error { return nil }
