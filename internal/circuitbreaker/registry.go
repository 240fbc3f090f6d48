package circuitbreaker

import (
	"sort"
	"sync"
)

// Registry hands out one breaker per endpoint identifier. Breakers are created
// on first use from the template config and live as long as the registry.
type Registry struct {
	mu       sync.Mutex
	template Config
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers share template's thresholds.
// template.Name is ignored.
func NewRegistry(template Config) *Registry {
	return &Registry{
		template: template,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for endpoint, creating it if needed.
func (r *Registry) Get(endpoint string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[endpoint]; ok {
		return cb
	}
	cfg := r.template
	cfg.Name = endpoint
	cb := New(cfg)
	r.breakers[endpoint] = cb
	return cb
}

// Lookup returns the breaker for endpoint without creating one.
func (r *Registry) Lookup(endpoint string) (*CircuitBreaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[endpoint]
	return cb, ok
}

// Snapshots returns the state of every breaker, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	list := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		list = append(list, cb)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, cb := range list {
		out = append(out, cb.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset closes the breaker for endpoint. It reports false for unknown endpoints.
func (r *Registry) Reset(endpoint string) bool {
	cb, ok := r.Lookup(endpoint)
	if !ok {
		return false
	}
	cb.Reset()
	return true
}
