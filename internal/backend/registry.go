package backend

import (
	"fmt"
	"slices"
)

// Registry holds the adapters available to a conversation, keyed by mode
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry creates a registry containing the given adapters. Registration order determines
// the order in which Modes lists them.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an adapter. Registering two adapters for the same mode is an error.
func (r *Registry) Register(a Adapter) error {
	mode := a.Mode()
	if _, ok := r.adapters[mode]; ok {
		return fmt.Errorf("an adapter for mode '%s' is already registered", mode)
	}
	r.adapters[mode] = a
	r.order = append(r.order, mode)
	return nil
}

// Get returns the adapter for mode, if one is registered
func (r *Registry) Get(mode string) (Adapter, bool) {
	a, ok := r.adapters[mode]
	return a, ok
}

// Has reports whether an adapter is registered for mode
func (r *Registry) Has(mode string) bool {
	_, ok := r.adapters[mode]
	return ok
}

// Modes returns the registered modes in registration order
func (r *Registry) Modes() []string {
	return slices.Clone(r.order)
}

// Next returns the mode registered after mode, wrapping around. Unknown modes yield the first
// registered mode.
func (r *Registry) Next(mode string) string {
	if len(r.order) == 0 {
		return mode
	}
	i := slices.Index(r.order, mode)
	return r.order[(i+1)%len(r.order)]
}
