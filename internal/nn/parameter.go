package nn

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Component identifies the part of the model that owns a parameter.
//
// Gradient composition iterates components, so every parameter must be
// registered under the component whose objectives it serves.
type Component int

// Owning components.
const (
	Encoder   Component = iota // source embedding and encoder recurrence
	Bridge                     // context to initial decoder state projections
	Decoder                    // target embedding and decoder recurrences
	Readout                    // decoder state to vocabulary logits
	Adversary                  // style classifier over the encoder context
)

var componentNames = [...]string{
	Encoder:   "encoder",
	Bridge:    "bridge",
	Decoder:   "decoder",
	Readout:   "readout",
	Adversary: "adversary",
}

// String returns the component name used in checkpoints.
func (c Component) String() string {
	if c < 0 || int(c) >= len(componentNames) {
		return fmt.Sprintf("component(%d)", int(c))
	}
	return componentNames[c]
}

// Key identifies a parameter by (component, instance, field).
//
// Instance distinguishes repeated sub-modules within a component
// (e.g. "style0" and "style1" decoders); it may be empty.
type Key struct {
	Component Component
	Instance  string
	Field     string
}

// String returns the stable checkpoint name, e.g. "decoder.style0.Ux".
func (k Key) String() string {
	parts := []string{k.Component.String()}
	if k.Instance != "" {
		parts = append(parts, k.Instance)
	}
	parts = append(parts, k.Field)
	return strings.Join(parts, ".")
}

// Parameter represents a trainable parameter in the model.
//
// The value matrix is allocated once at construction and updated in place by
// optimizers; its shape never changes. Layers hold the same *mat.Dense, so a
// gradient map keyed by matrix resolves back to its parameter.
type Parameter struct {
	key   Key
	value *mat.Dense
}

// Name returns the stable checkpoint name.
func (p *Parameter) Name() string {
	return p.key.String()
}

// Owner returns the owning component.
func (p *Parameter) Owner() Component {
	return p.key.Component
}

// Value returns the parameter matrix.
func (p *Parameter) Value() *mat.Dense {
	return p.value
}

// Shape returns (rows, cols).
func (p *Parameter) Shape() (int, int) {
	return p.value.Dims()
}
