package nn

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/styleshift/internal/autodiff"
)

// Activation is a closed set of point-wise nonlinearities for feed-forward
// layers, resolved when options are parsed.
type Activation int

// Supported activations.
const (
	Identity Activation = iota
	Tanh
)

// ParseActivation resolves an activation name ("linear", "identity", "tanh").
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "linear", "identity":
		return Identity, nil
	case "tanh":
		return Tanh, nil
	default:
		return Identity, errors.Errorf("unknown activation %q", name)
	}
}

// String returns the canonical name.
func (a Activation) String() string {
	switch a {
	case Identity:
		return "linear"
	case Tanh:
		return "tanh"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}

// Apply evaluates the activation on x.
func (a Activation) Apply(tape *autodiff.GradientTape, x *mat.Dense) *mat.Dense {
	if a == Tanh {
		return tape.Tanh(x)
	}
	return x
}
