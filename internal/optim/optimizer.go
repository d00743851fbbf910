// Package optim implements optimization algorithms for training the style
// transfer model.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - Adadelta: running averages of squared gradients and updates
//   - Adam: Adaptive Moment Estimation
//   - RMSProp: centred RMSProp with momentum
//   - SGD: plain gradient descent
//
// Every optimizer keeps its per-parameter accumulators private and exports
// them through StateDict so a checkpoint can resume training exactly.
//
// Example usage:
//
//	opt, err := optim.New(optim.Adadelta, model.Registry().Parameters(), optim.Config{})
//	grads := model.Gradients(tape, costs)
//	opt.Step(grads)
package optim

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one update to every parameter. A parameter missing from
	// grads is updated with a zero gradient.
	Step(grads map[*nn.Parameter]*mat.Dense)

	// Name returns the configuration name of the algorithm.
	Name() string

	// GetLR returns the configured learning rate.
	GetLR() float64

	// StateDict returns the accumulators keyed "<parameter>.<slot>".
	StateDict() map[string]*mat.Dense

	// LoadStateDict restores accumulators saved by StateDict.
	LoadStateDict(state map[string]*mat.Dense) error
}

// Kind is the closed set of optimizers.
type Kind int

// Supported optimizers.
const (
	KindAdadelta Kind = iota
	KindAdam
	KindRMSProp
	KindSGD
)

var kindNames = [...]string{
	KindAdadelta: "adadelta",
	KindAdam:     "adam",
	KindRMSProp:  "rmsprop",
	KindSGD:      "sgd",
}

// ParseKind resolves an optimizer name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return KindAdadelta, errors.Errorf("unknown optimizer %q", name)
}

// String returns the configuration name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate; Adadelta and RMSProp ignore it
}

// New creates an optimizer of the given kind over params.
func New(kind Kind, params []*nn.Parameter, cfg Config) (Optimizer, error) {
	switch kind {
	case KindAdadelta:
		return NewAdadelta(params, AdadeltaConfig{}), nil
	case KindAdam:
		return NewAdam(params, AdamConfig{LR: cfg.LR}), nil
	case KindRMSProp:
		return NewRMSProp(params, RMSPropConfig{}), nil
	case KindSGD:
		return NewSGD(params, SGDConfig{LR: cfg.LR}), nil
	default:
		return nil, errors.Errorf("unsupported optimizer kind %d", int(kind))
	}
}

// slots holds named per-parameter accumulators, allocated as zeros.
type slots struct {
	params []*nn.Parameter
	names  []string
	values map[string]map[*nn.Parameter]*mat.Dense
}

func newSlots(params []*nn.Parameter, names ...string) *slots {
	s := &slots{params: params, names: names, values: make(map[string]map[*nn.Parameter]*mat.Dense)}
	for _, name := range names {
		m := make(map[*nn.Parameter]*mat.Dense, len(params))
		for _, p := range params {
			r, c := p.Shape()
			m[p] = mat.NewDense(r, c, nil)
		}
		s.values[name] = m
	}
	return s
}

func (s *slots) get(name string, p *nn.Parameter) []float64 {
	return s.values[name][p].RawMatrix().Data
}

func (s *slots) stateDict() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense, len(s.params)*len(s.names))
	for _, name := range s.names {
		for _, p := range s.params {
			out[p.Name()+"."+name] = s.values[name][p]
		}
	}
	return out
}

func (s *slots) load(state map[string]*mat.Dense) error {
	for _, name := range s.names {
		for _, p := range s.params {
			key := p.Name() + "." + name
			src, ok := state[key]
			if !ok {
				return errors.Errorf("optimizer state %s missing", key)
			}
			pr, pc := p.Shape()
			sr, sc := src.Dims()
			if pr != sr || pc != sc {
				return errors.Errorf("optimizer state %s: shape mismatch: expected [%d %d], got [%d %d]", key, pr, pc, sr, sc)
			}
		}
	}
	for _, name := range s.names {
		for _, p := range s.params {
			s.values[name][p].Copy(state[p.Name()+"."+name])
		}
	}
	return nil
}

// gradient returns the raw gradient data for p, or nil for a zero gradient.
func gradient(grads map[*nn.Parameter]*mat.Dense, p *nn.Parameter) []float64 {
	g, ok := grads[p]
	if !ok || g == nil {
		return nil
	}
	if g.RawMatrix().Stride != g.RawMatrix().Cols {
		g = mat.DenseCopyOf(g)
	}
	return g.RawMatrix().Data
}

func at(g []float64, i int) float64 {
	if g == nil {
		return 0
	}
	return g[i]
}
