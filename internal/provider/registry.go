package provider

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Registry maps source names to their providers.
// Thread-safe for concurrent access during queries.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register associates a source name with a provider, replacing any
// previous registration.
func (r *Registry) Register(source string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[source] = p
}

// Get retrieves the provider for a source.
// Returns an error if the source is not registered.
func (r *Registry) Get(source string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source: %s", source)
	}
	return p, nil
}

// Sources returns all registered source names, sorted.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.providers))
	for s := range r.providers {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Close releases every provider that holds resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
