/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/resolver"
	"github.com/suparena/livestore/storagemodels"
)

// TypeMapping binds the put, get and delete resolvers of one type.
type TypeMapping[T any] struct {
	Put    resolver.PutResolver[T]
	Get    resolver.GetResolver[T]
	Delete resolver.DeleteResolver[T]
}

func (m TypeMapping[T]) validate() error {
	switch {
	case m.Put == nil:
		return errors.NewValidationError("Put", "type mapping requires a put resolver")
	case m.Get == nil:
		return errors.NewValidationError("Get", "type mapping requires a get resolver")
	case m.Delete == nil:
		return errors.NewValidationError("Delete", "type mapping requires a delete resolver")
	}
	return nil
}

// Entry is the type-erased view of a registered TypeMapping. It lets
// heterogeneous collections dispatch each element to its own resolvers.
type Entry interface {
	Type() reflect.Type
	PerformPut(ctx context.Context, ds datastore.DataStore, obj any) (storagemodels.PutResult, error)
	PerformDelete(ctx context.Context, ds datastore.DataStore, obj any) (storagemodels.DeleteResult, error)
	// Mapping returns the registered TypeMapping[T] as any.
	Mapping() any
}

type typedEntry[T any] struct {
	t reflect.Type
	m TypeMapping[T]
}

func (e *typedEntry[T]) Type() reflect.Type { return e.t }

func (e *typedEntry[T]) Mapping() any { return e.m }

func (e *typedEntry[T]) PerformPut(ctx context.Context, ds datastore.DataStore, obj any) (storagemodels.PutResult, error) {
	typed, ok := obj.(T)
	if !ok {
		return storagemodels.PutResult{}, fmt.Errorf("registry: object of type %T dispatched to mapping for %s", obj, e.t)
	}
	return e.m.Put.PerformPut(ctx, ds, typed)
}

func (e *typedEntry[T]) PerformDelete(ctx context.Context, ds datastore.DataStore, obj any) (storagemodels.DeleteResult, error) {
	typed, ok := obj.(T)
	if !ok {
		return storagemodels.DeleteResult{}, fmt.Errorf("registry: object of type %T dispatched to mapping for %s", obj, e.t)
	}
	return e.m.Delete.PerformDelete(ctx, ds, typed)
}

// TypeRegistry maps exact runtime types to their TypeMapping. There is no
// fallback from a type to its pointer, element or embedded types.
type TypeRegistry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]Entry
}

// New returns an empty registry.
func New() *TypeRegistry {
	return &TypeRegistry{entries: make(map[reflect.Type]Entry)}
}

// Register adds the mapping for T. Registering a type twice fails with
// ErrAlreadyRegistered; use Replace to swap a mapping deliberately.
func Register[T any](r *TypeRegistry, m TypeMapping[T]) error {
	t, err := concreteType[T]()
	if err != nil {
		return err
	}
	if err := m.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[t]; exists {
		return fmt.Errorf("%w: %s", errors.ErrAlreadyRegistered, t)
	}
	r.entries[t] = &typedEntry[T]{t: t, m: m}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *TypeRegistry, m TypeMapping[T]) {
	if err := Register(r, m); err != nil {
		panic(err)
	}
}

// Replace swaps the existing mapping for T.
func Replace[T any](r *TypeRegistry, m TypeMapping[T]) error {
	t, err := concreteType[T]()
	if err != nil {
		return err
	}
	if err := m.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[t]; !exists {
		return fmt.Errorf("%w: %s", errors.ErrNotRegistered, t)
	}
	r.entries[t] = &typedEntry[T]{t: t, m: m}
	return nil
}

// Lookup returns the mapping registered for T.
func Lookup[T any](r *TypeRegistry) (TypeMapping[T], bool) {
	e, ok := r.LookupType(reflect.TypeFor[T]())
	if !ok {
		return TypeMapping[T]{}, false
	}
	m, ok := e.Mapping().(TypeMapping[T])
	return m, ok
}

// LookupType returns the entry registered for exactly t.
func (r *TypeRegistry) LookupType(t reflect.Type) (Entry, bool) {
	if t == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	return e, ok
}

// LookupObject returns the entry registered for the dynamic type of obj.
func (r *TypeRegistry) LookupObject(obj any) (Entry, bool) {
	return r.LookupType(reflect.TypeOf(obj))
}

// Unregister removes the mapping for T and reports whether one existed.
func Unregister[T any](r *TypeRegistry) bool {
	t := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[t]
	delete(r.entries, t)
	return ok
}

// Types lists the registered types sorted by name.
func (r *TypeRegistry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]reflect.Type, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func concreteType[T any]() (reflect.Type, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		return nil, errors.NewValidationError("type", fmt.Sprintf("cannot register interface type %s", t))
	}
	return t, nil
}
