package dataset

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jakoblorz/go-projectdoc/internal/config"
)

// Registration records one registered id.
type Registration struct {
	ID         string
	Provenance string
	Priority   int
}

// Memory is an in-memory WorkingDataset backed by a static catalog.
// It is safe for concurrent use so load jobs can resolve off the owning
// goroutine.
type Memory struct {
	mu            sync.Mutex
	catalog       map[string]string
	cache         map[string]string
	registrations map[string]Registration
	batchCalls    int
	closed        bool

	// ResolveError, when set, fails every ResolveBatch call
	ResolveError error
}

// NewMemory creates an empty in-memory dataset.
func NewMemory() *Memory {
	return &Memory{
		catalog:       make(map[string]string),
		cache:         make(map[string]string),
		registrations: make(map[string]Registration),
	}
}

// NewMemoryFactory returns a Factory producing datasets seeded from the
// configured catalog.
func NewMemoryFactory(cfg config.DatasetConfig) Factory {
	return func() (WorkingDataset, error) {
		m := NewMemory()
		for _, entry := range cfg.Catalog {
			m.Publish(entry.ID, entry.Canonical)
		}
		return m, nil
	}
}

// Publish adds a legacy -> canonical mapping to the catalog.
func (m *Memory) Publish(id, canonical string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[id] = canonical
}

func (m *Memory) Register(id, provenance string, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.registrations[id] = Registration{ID: id, Provenance: provenance, Priority: priority}
	return nil
}

func (m *Memory) Unregister(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.registrations[id]; !ok {
		return fmt.Errorf("unregister %s: %w", id, ErrNotRegistered)
	}
	delete(m.registrations, id)
	return nil
}

func (m *Memory) ResolveBatch(ctx context.Context, ids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	m.batchCalls++
	if m.ResolveError != nil {
		return nil, m.ResolveError
	}

	resolved := make(map[string]string, len(ids))
	for _, id := range ids {
		if canonical, ok := m.cache[id]; ok {
			resolved[id] = canonical
			continue
		}
		if canonical, ok := m.catalog[id]; ok {
			m.cache[id] = canonical
			resolved[id] = canonical
		}
	}
	return resolved, nil
}

func (m *Memory) ResetCachedLookups() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]string)
}

// Close releases the dataset. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.registrations = make(map[string]Registration)
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Registered returns the registration for id, if any.
func (m *Memory) Registered(id string) (Registration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	return reg, ok
}

// Registrations returns all registrations ordered by priority, then id.
func (m *Memory) Registrations() []Registration {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := make([]Registration, 0, len(m.registrations))
	for _, reg := range m.registrations {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].Priority != regs[j].Priority {
			return regs[i].Priority < regs[j].Priority
		}
		return regs[i].ID < regs[j].ID
	})
	return regs
}

// BatchCalls returns how many ResolveBatch round trips were made.
func (m *Memory) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// CachedLookups returns the number of memoized resolutions.
func (m *Memory) CachedLookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
