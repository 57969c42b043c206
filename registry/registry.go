// Package registry hands out one shared instance per type, or a fresh one on
// request.
package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/guyvdb/recstore/fault"
)

type InstanceType int

const (
	Singleton InstanceType = iota
	NewInstance
)

func (it InstanceType) String() string {
	switch it {
	case Singleton:
		return "Singleton"
	case NewInstance:
		return "NewInstance"
	}
	return fmt.Sprintf("InstanceType(%d)", int(it))
}

// Registry records a factory per type and caches singleton instances. At
// most one instance is ever cached per type.
type Registry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]any
	instances map[reflect.Type]any
	building  map[reflect.Type]*sync.Mutex
}

func New() *Registry {
	slog.Debug("registry.New() - create registry")
	return &Registry{
		factories: make(map[reflect.Type]any),
		instances: make(map[reflect.Type]any),
		building:  make(map[reflect.Type]*sync.Mutex),
	}
}

// Register records the factory used to build instances of T. Registering
// again replaces the factory but not an already cached instance.
func Register[T any](r *Registry, factory func() (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := reflect.TypeFor[T]()
	slog.Debug("Registry.Register() - register type", "type", t.String())
	r.factories[t] = factory
}

// Resolve returns an instance of T built by its registered factory.
func Resolve[T any](r *Registry, mode InstanceType) (T, error) {
	t := reflect.TypeFor[T]()

	r.mu.RLock()
	f, found := r.factories[t]
	r.mu.RUnlock()

	if !found {
		var zero T
		return zero, fmt.Errorf("%w: %s", fault.ErrTypeNotFound, t)
	}
	return ResolveWith(r, mode, f.(func() (T, error)))
}

// ResolveWith returns an instance of T, using factory to build it when
// needed. NewInstance always builds and never touches the cache. A singleton
// factory runs without the registry lock held, so it may resolve other types;
// a factory that resolves its own type deadlocks.
func ResolveWith[T any](r *Registry, mode InstanceType, factory func() (T, error)) (T, error) {
	if mode == NewInstance {
		return build(factory)
	}

	t := reflect.TypeFor[T]()
	if instance, found := r.cached(t); found {
		return instance.(T), nil
	}

	r.mu.Lock()
	lock, found := r.building[t]
	if !found {
		lock = &sync.Mutex{}
		r.building[t] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	// another caller may have built it while we waited
	if instance, found := r.cached(t); found {
		return instance.(T), nil
	}

	v, err := build(factory)
	if err != nil {
		return v, err
	}

	r.mu.Lock()
	r.instances[t] = v
	r.mu.Unlock()
	slog.Debug("Registry.Resolve() - cached instance", "type", t.String())
	return v, nil
}

func (r *Registry) cached(t reflect.Type) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, found := r.instances[t]
	return instance, found
}

func build[T any](factory func() (T, error)) (T, error) {
	var zero T
	if factory == nil {
		return zero, fmt.Errorf("%w: no factory for %s", fault.ErrInstanceCreation, reflect.TypeFor[T]())
	}
	v, err := factory()
	if err != nil {
		slog.Error("Registry.build() - instance creation failed", "type", reflect.TypeFor[T]().String(), "err", err)
		return zero, fmt.Errorf("%w: %s: %w", fault.ErrInstanceCreation, reflect.TypeFor[T](), err)
	}
	return v, nil
}

// Len returns the number of cached instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Reset drops every cached instance. Factories stay registered.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[reflect.Type]any)
}
