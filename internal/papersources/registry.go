package papersources

import (
	"sync"

	"github.com/helixir/metasearch-service/internal/domain"
)

// Registry manages adapters in registration order. The order is the
// fan-out order used by the orchestrator and the event order of streaming
// searches.
type Registry struct {
	mu       sync.RWMutex
	order    []domain.Provider
	adapters map[domain.Provider]Adapter
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[domain.Provider]Adapter),
	}
}

// Register adds an adapter to the registry.
// If an adapter for the same provider already exists, it is replaced in
// place and keeps its original position.
// This method is thread-safe.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := adapter.Provider()
	if _, exists := r.adapters[p]; !exists {
		r.order = append(r.order, p)
	}
	r.adapters[p] = adapter
}

// Get returns the adapter for a provider, or nil if not found.
func (r *Registry) Get(p domain.Provider) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[p]
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns every registered adapter in registration order.
// The returned slice is a snapshot.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.order))
	for _, p := range r.order {
		adapters = append(adapters, r.adapters[p])
	}
	return adapters
}

// Enabled returns the enabled adapters in registration order.
func (r *Registry) Enabled() []Adapter {
	return r.Select(nil)
}

// Select returns the enabled adapters whose provider is in providers,
// in registration order. An empty providers list selects every enabled
// adapter. Unknown or unregistered providers are skipped.
func (r *Registry) Select(providers []domain.Provider) []Adapter {
	var want map[domain.Provider]bool
	if len(providers) > 0 {
		want = make(map[domain.Provider]bool, len(providers))
		for _, p := range providers {
			want[p] = true
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	adapters := make([]Adapter, 0, len(r.order))
	for _, p := range r.order {
		if want != nil && !want[p] {
			continue
		}
		a := r.adapters[p]
		if a.IsEnabled() {
			adapters = append(adapters, a)
		}
	}
	return adapters
}
