package payment

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps providers to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Provider()] = a
}

func (r *Registry) Get(p Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	return a, nil
}

// Providers lists the configured providers in name order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
