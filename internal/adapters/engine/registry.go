// Package engine holds the translation engine registry, circuit breaker and env wiring
package engine

import (
	"sort"
	"strings"
	"sync"

	dom "linkshell/internal/services/pipeline/domain"
)

// Registry resolves engines by case-insensitive name
type Registry struct {
	mu sync.RWMutex
	m  map[string]dom.Engine
}

// NewRegistry registers es in order; a later engine with the same name wins
func NewRegistry(es ...dom.Engine) *Registry {
	r := &Registry{m: map[string]dom.Engine{}}
	for _, e := range es {
		r.Register(e)
	}
	return r
}

// Register adds or replaces e
func (r *Registry) Register(e dom.Engine) {
	if e == nil {
		return
	}
	r.mu.Lock()
	r.m[key(e.Name())] = e
	r.mu.Unlock()
}

// Engine implements domain.EngineResolver
func (r *Registry) Engine(name string) (dom.Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.m[key(name)]
	return e, ok
}

// Names lists registered engine names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func key(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
