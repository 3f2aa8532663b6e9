package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the providers a deployment has configured, keyed by the
// name workflow configs use to select them. One provider may be marked
// as the default; AI modules whose config names no provider fall back
// to it.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under name, replacing any provider already registered
// there.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Default returns the fallback provider and the name it is registered
// under. It fails when no default has been designated or the designated
// name was since re-registered away.
func (r *Registry) Default() (string, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return "", nil, fmt.Errorf("no default provider configured")
	}
	p, ok := r.providers[r.defaultName]
	if !ok {
		return "", nil, fmt.Errorf("default provider %q is not registered", r.defaultName)
	}
	return r.defaultName, p, nil
}

// SetDefault designates a registered provider as the fallback. The name
// must already be registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	r.defaultName = name
	return nil
}

// List returns the sorted names of all registered providers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
