// Package providers materializes data-source bindings into concrete loader
// handles for the working dataset.
package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownLoaderType is returned when no provider is registered.
	ErrUnknownLoaderType = errors.New("unknown loader type")

	// ErrMissingConfig is returned when a required config key is absent.
	ErrMissingConfig = errors.New("missing binding config")
)

// Provider turns a binding's config into a loader handle.
type Provider interface {
	// Materialize creates the loader handle and returns its generated name.
	Materialize(ctx context.Context, config map[string]string) (string, error)

	// LogicalNameFor computes the name Materialize would generate, without
	// contacting anything.
	LogicalNameFor(config map[string]string) string
}

// Registry maps loader types to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under loaderType, replacing any previous provider.
func (r *Registry) Register(loaderType string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[loaderType] = p
}

// Lookup returns the provider for loaderType.
func (r *Registry) Lookup(loaderType string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLoaderType, loaderType)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[loaderType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLoaderType, loaderType)
	}
	return p, nil
}

// LoaderTypes returns the registered loader types in sorted order.
func (r *Registry) LoaderTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func requireKeys(config map[string]string, keys ...string) error {
	for _, key := range keys {
		if config[key] == "" {
			return fmt.Errorf("%w: %s", ErrMissingConfig, key)
		}
	}
	return nil
}
