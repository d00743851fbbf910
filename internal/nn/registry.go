package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDuplicateParameter is recorded when a key is registered twice.
	ErrDuplicateParameter = errors.New("duplicate parameter")
	// ErrMissingParameter is returned when a key or checkpoint name is unknown.
	ErrMissingParameter = errors.New("missing parameter")
)

// Registry holds every named parameter of a model (the ParameterStore).
//
// Layer constructors register through a Scope. Construction errors are sticky:
// the first one is kept and reported by Err, so a model can build all its
// layers and check once.
type Registry struct {
	params []*Parameter
	index  map[Key]*Parameter
	byName map[string]*Parameter
	byMat  map[*mat.Dense]*Parameter
	err    error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index:  make(map[Key]*Parameter),
		byName: make(map[string]*Parameter),
		byMat:  make(map[*mat.Dense]*Parameter),
	}
}

// Scope returns a registration scope for one sub-module.
func (r *Registry) Scope(c Component, instance string) Scope {
	return Scope{reg: r, component: c, instance: instance}
}

// Register adds a parameter. A duplicate key records ErrDuplicateParameter
// and returns the existing parameter.
func (r *Registry) Register(key Key, value *mat.Dense) *Parameter {
	if p, ok := r.index[key]; ok {
		r.fail(errors.Wrapf(ErrDuplicateParameter, "register %s", key))
		return p
	}
	p := &Parameter{key: key, value: value}
	r.params = append(r.params, p)
	r.index[key] = p
	r.byName[key.String()] = p
	r.byMat[value] = p
	return p
}

// Err returns the first construction error, if any.
func (r *Registry) Err() error {
	return r.err
}

func (r *Registry) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Get resolves a parameter by key.
func (r *Registry) Get(key Key) (*Parameter, error) {
	p, ok := r.index[key]
	if !ok {
		return nil, errors.Wrapf(ErrMissingParameter, "get %s", key)
	}
	return p, nil
}

// Lookup resolves the parameter that owns the given matrix.
func (r *Registry) Lookup(m *mat.Dense) (*Parameter, bool) {
	p, ok := r.byMat[m]
	return p, ok
}

// Parameters returns all parameters in registration order.
func (r *Registry) Parameters() []*Parameter {
	out := make([]*Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// Owned returns the parameters of one component in registration order.
func (r *Registry) Owned(c Component) []*Parameter {
	var out []*Parameter
	for _, p := range r.params {
		if p.key.Component == c {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of parameters.
func (r *Registry) Len() int {
	return len(r.params)
}

// StateDict returns the parameter values keyed by checkpoint name.
// The matrices are shared, not copied.
func (r *Registry) StateDict() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense, len(r.params))
	for _, p := range r.params {
		out[p.Name()] = p.value
	}
	return out
}

// LoadStateDict copies values into the registered parameters.
//
// Every registered parameter must be present with its exact shape; extra
// entries in state are ignored.
func (r *Registry) LoadStateDict(state map[string]*mat.Dense) error {
	for _, p := range r.params {
		src, ok := state[p.Name()]
		if !ok {
			return errors.Wrapf(ErrMissingParameter, "load %s", p.Name())
		}
		pr, pc := p.value.Dims()
		sr, sc := src.Dims()
		if pr != sr || pc != sc {
			return errors.Errorf("load %s: shape mismatch: have [%d %d], checkpoint [%d %d]", p.Name(), pr, pc, sr, sc)
		}
	}
	for _, p := range r.params {
		p.value.Copy(state[p.Name()])
	}
	return nil
}

// Snapshot returns a deep copy of all parameter values.
func (r *Registry) Snapshot() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense, len(r.params))
	for _, p := range r.params {
		out[p.Name()] = mat.DenseCopyOf(p.value)
	}
	return out
}

// Restore copies a snapshot back into the parameters.
func (r *Registry) Restore(snapshot map[string]*mat.Dense) error {
	return r.LoadStateDict(snapshot)
}

// Scope registers parameters for one (component, instance) pair.
type Scope struct {
	reg       *Registry
	component Component
	instance  string
}

// Add registers value under field and returns it.
func (s Scope) Add(field string, value *mat.Dense) *mat.Dense {
	return s.reg.Register(Key{Component: s.component, Instance: s.instance, Field: field}, value).Value()
}

// Component returns the owning component of this scope.
func (s Scope) Component() Component {
	return s.component
}
