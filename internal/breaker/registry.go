package breaker

import (
	"log"
	"sort"
	"sync"
)

// Registry holds the process-wide set of named circuit breakers. It is
// injected through constructors so tests can substitute their own.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker)}
}

// GetOrCreate returns the breaker registered under cfg.Name, creating
// it from cfg on first use. A transition logger is attached when the
// config carries none.
func (r *Registry) GetOrCreate(cfg Config) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[cfg.Name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[cfg.Name]; ok {
		return cb
	}

	if cfg.OnStateChange == nil {
		cfg.OnStateChange = func(name string, from, to State) {
			log.Printf("[breaker] %s: %s → %s", name, from, to)
		}
	}

	cb = New(cfg)
	r.breakers[cfg.Name] = cb
	return cb
}

// Get returns the breaker registered under name, or nil.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[name]
}

// Snapshots returns metrics for every registered breaker, sorted by name.
func (r *Registry) Snapshots() []Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metrics, 0, len(r.breakers))
	for _, cb := range r.breakers {
		out = append(out, cb.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
