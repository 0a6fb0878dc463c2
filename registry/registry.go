// Package registry maintains the durable set of known container
// identifiers, independent of the per-identity fingerprint store.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"deploytrace/model"
)

// Store persists registry membership. Implemented by the database layer.
type Store interface {
	LoadContainerIDs() ([]string, error)
	InsertContainerID(id string) error
	DeleteContainerID(id string) error
}

// Registry is the in-memory membership set backed by durable storage.
// Mutations are written through synchronously, but only on actual change.
type Registry struct {
	mu    sync.Mutex
	ids   map[string]bool
	store Store
}

// New loads the persisted membership and returns a ready registry.
func New(store Store) (*Registry, error) {
	ids, err := store.LoadContainerIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to load container registry: %w", err)
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return &Registry{ids: set, store: store}, nil
}

// Add inserts a container identifier, persisting only when it was absent.
func (r *Registry) Add(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ids[id] {
		return nil
	}
	if err := r.store.InsertContainerID(id); err != nil {
		return err
	}
	r.ids[id] = true
	return nil
}

// Remove deletes a container identifier, persisting only when it was
// present. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ids[id] {
		return nil
	}
	if err := r.store.DeleteContainerID(id); err != nil {
		return err
	}
	delete(r.ids, id)
	return nil
}

// Contains reports membership.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[id]
}

// List returns a sorted snapshot copy, safe to iterate while the registry
// mutates concurrently.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of registered containers.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// OnNewDeployment registers the container observed by an ingestion.
// This makes the registry a notification listener.
func (r *Registry) OnNewDeployment(containerID string) error {
	return r.Add(containerID)
}

// OnReport is a no-op; the registry only cares about deployments.
func (r *Registry) OnReport(*model.Report) error {
	return nil
}
