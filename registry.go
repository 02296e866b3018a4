package weft

import (
	"fmt"
	"sync"
)

// Registry resolves spec names back to Spec values when a store is
// rehydrated. Every spec a page can persist must be registered before
// the first request touches it.
//
// Registration problems are programmer errors and panic at startup, not
// at request time.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

// NewRegistry creates an empty spec registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Add registers specs. Panics on an empty name, a duplicate name bound to
// a different spec, or a derived spec (register the base instead).
func (r *Registry) Add(specs ...*Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range specs {
		if s.Name == "" {
			panic("weft: spec registered without a name")
		}
		if s.base != nil {
			panic(fmt.Sprintf("weft: derived spec %q cannot be registered, register its base", s.Name))
		}
		if existing, ok := r.specs[s.Name]; ok && existing != s {
			panic(fmt.Sprintf("weft: spec name collision for %q", s.Name))
		}
		r.specs[s.Name] = s
	}
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// Resolve turns a persisted class descriptor back into a spec, re-deriving
// parameterized variants from their baked configuration.
func (r *Registry) Resolve(cs ClassState) (*Spec, error) {
	base, ok := r.Lookup(cs.Spec)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpec, cs.Spec)
	}
	if len(cs.Config) == 0 {
		return base, nil
	}
	return base.Derive(cs.Config), nil
}
