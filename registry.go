/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package gaejs

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/VivekRajagopal/gae-js/datastore"
)

// TypedRegistry holds the repositories for a specific entity type, keyed
// by kind.
type TypedRegistry[T any] struct {
	mu           sync.RWMutex
	repositories map[string]*datastore.Repository[T]
}

// NewTypedRegistry creates a new TypedRegistry for type T.
func NewTypedRegistry[T any]() *TypedRegistry[T] {
	return &TypedRegistry[T]{
		repositories: make(map[string]*datastore.Repository[T]),
	}
}

// Register adds a repository under the given kind.
func (tr *TypedRegistry[T]) Register(kind string, repo *datastore.Repository[T]) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repositories[kind]; exists {
		return fmt.Errorf("repository for kind %q already registered", kind)
	}
	tr.repositories[kind] = repo
	return nil
}

// Get retrieves a repository by kind.
func (tr *TypedRegistry[T]) Get(kind string) (*datastore.Repository[T], error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	repo, exists := tr.repositories[kind]
	if !exists {
		return nil, fmt.Errorf("repository for kind %q not found", kind)
	}
	return repo, nil
}

// Remove deletes a repository by kind.
func (tr *TypedRegistry[T]) Remove(kind string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repositories[kind]; !exists {
		return fmt.Errorf("repository for kind %q not found", kind)
	}
	delete(tr.repositories, kind)
	return nil
}

// List returns all registered kinds.
func (tr *TypedRegistry[T]) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	kinds := make([]string, 0, len(tr.repositories))
	for kind := range tr.repositories {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Registry manages TypedRegistry instances for different entity types, so
// an application can wire all its repositories in one place.
type Registry struct {
	mu         sync.RWMutex
	registries map[reflect.Type]interface{}
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		registries: make(map[reflect.Type]interface{}),
	}
}

// TypedRegistryFor returns the TypedRegistry for type T, creating it if
// necessary.
func TypedRegistryFor[T any](r *Registry) *TypedRegistry[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	typ := reflect.TypeOf(zero)

	if reg, exists := r.registries[typ]; exists {
		return reg.(*TypedRegistry[T])
	}

	reg := NewTypedRegistry[T]()
	r.registries[typ] = reg
	return reg
}

// RegisterRepository registers a repository for type T under its kind.
func RegisterRepository[T any](r *Registry, repo *datastore.Repository[T]) error {
	return TypedRegistryFor[T](r).Register(repo.Kind(), repo)
}

// GetRepository retrieves the repository for type T and the given kind.
func GetRepository[T any](r *Registry, kind string) (*datastore.Repository[T], error) {
	return TypedRegistryFor[T](r).Get(kind)
}

// RemoveRepository removes the repository for type T and the given kind.
func RemoveRepository[T any](r *Registry, kind string) error {
	return TypedRegistryFor[T](r).Remove(kind)
}

// ListRepositories lists all kinds registered for type T.
func ListRepositories[T any](r *Registry) []string {
	return TypedRegistryFor[T](r).List()
}
