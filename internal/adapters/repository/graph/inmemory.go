package graphrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/commgraph/commgraph/internal/core/topology"
)

// InMemoryDescriptionRepository keeps compiled topologies by name
// PRINCIPLES:
// - KISS: Simple map-based storage
// - SRP: Only responsible for description persistence
// - Thread-safe
type InMemoryDescriptionRepository struct {
	mu    sync.RWMutex
	descs map[string]*topology.Description
}

func NewInMemoryDescriptionRepository() *InMemoryDescriptionRepository {
	return &InMemoryDescriptionRepository{
		descs: make(map[string]*topology.Description),
	}
}

// Save stores d under name after checking its graph is playable
func (r *InMemoryDescriptionRepository) Save(ctx context.Context, name string, d *topology.Description) error {
	if d == nil || d.Graph == nil {
		return fmt.Errorf("invalid description %q: no graph", name)
	}
	if err := d.Graph.Validate(); err != nil {
		return fmt.Errorf("invalid description %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descs[name] = d
	return nil
}

func (r *InMemoryDescriptionRepository) Get(ctx context.Context, name string) (*topology.Description, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", topology.ErrDescriptionNotFound, name)
	}
	return d, nil
}

// List returns the stored names in sorted order
func (r *InMemoryDescriptionRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.descs))
	for name := range r.descs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
