package entity

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps entity names to descriptors.
//
// Registration is idempotent: registering a descriptor equal to the one
// already stored returns the stored one, so concurrent bootstrap code that
// races to register the same entity converges on a single descriptor.
// Registering a different descriptor under an existing name is an error.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	entries sync.Map // string -> *Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores d under its name and returns the canonical descriptor for
// that name.
func (r *Registry) Register(d *Descriptor) (*Descriptor, error) {
	if d == nil {
		return nil, fmt.Errorf("register: nil descriptor")
	}
	actual, loaded := r.entries.LoadOrStore(d.Name(), d)
	existing := actual.(*Descriptor)
	if loaded && !existing.Equal(d) {
		return nil, fmt.Errorf("register %s: conflicting descriptor already registered (%s)", d.Name(), existing)
	}
	return existing, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	v, ok := r.entries.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Descriptor), true
}

// All returns every registered descriptor sorted by name.
func (r *Registry) All() []*Descriptor {
	var out []*Descriptor
	r.entries.Range(func(_, v any) bool {
		out = append(out, v.(*Descriptor))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
