package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured adapters keyed by provider id.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates a registry with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	ret := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		ret.adapters[adapter.ID()] = adapter
	}
	return ret
}

// Register adds or replaces an adapter.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.ID()] = adapter
}

// Lookup returns the adapter for the given provider id.
func (r *Registry) Lookup(providerID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}
	return adapter, nil
}

// IDs returns the registered provider ids in stable order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
