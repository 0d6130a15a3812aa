/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	stderrors "errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/notify"
	"github.com/suparena/livestore/registry"
	"github.com/suparena/livestore/storagemodels"
)

// Store ties a DataStore to its type registry and change bus. Every
// preparer takes a Store.
type Store struct {
	ds       datastore.DataStore
	registry *registry.TypeRegistry
	bus      *notify.Bus
	logger   *slog.Logger

	observeDefaults []storagemodels.ObserveOption

	closeOnce sync.Once
	closers   []func() error
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry shares an existing registry instead of creating one.
func WithRegistry(r *registry.TypeRegistry) Option {
	return func(s *Store) {
		s.registry = r
	}
}

// WithBus shares an existing bus, e.g. between stores over the same data.
func WithBus(b *notify.Bus) Option {
	return func(s *Store) {
		s.bus = b
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithObserveDefaults sets options applied to every live query before its own.
func WithObserveDefaults(opts ...storagemodels.ObserveOption) Option {
	return func(s *Store) {
		s.observeDefaults = append(s.observeDefaults, opts...)
	}
}

// WithCloser registers a function run by Close, e.g. to close the database.
func WithCloser(fn func() error) Option {
	return func(s *Store) {
		s.closers = append(s.closers, fn)
	}
}

// New creates a Store over ds.
func New(ds datastore.DataStore, opts ...Option) *Store {
	s := &Store{ds: ds}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.bus == nil {
		s.bus = notify.NewBus(notify.WithLogger(s.logger))
	}
	return s
}

// Register adds the resolvers for T to the store's registry.
func Register[T any](s *Store, m registry.TypeMapping[T]) error {
	if err := registry.Register(s.registry, m); err != nil {
		return err
	}
	s.logger.Debug("type mapping registered", slog.String("type", reflect.TypeFor[T]().String()))
	return nil
}

// DataStore returns the underlying storage collaborator.
func (s *Store) DataStore() datastore.DataStore { return s.ds }

// Registry returns the store's type registry.
func (s *Store) Registry() *registry.TypeRegistry { return s.registry }

// Bus returns the store's change bus.
func (s *Store) Bus() *notify.Bus { return s.bus }

// NotifyChanges announces changes made outside the store's own writes, for
// example by another process or a DynamoDB stream.
func (s *Store) NotifyChanges(changes storagemodels.Changes) {
	changes.Relations = storagemodels.NormalizeRelations(changes.Relations)
	if len(changes.Relations) == 0 {
		return
	}
	if l, ok := s.ds.(datastore.ChangeListener); ok {
		l.OnChanges(changes)
	}
	s.bus.Publish(changes)
}

// ObserveChanges subscribes to raw change events for relations.
func (s *Store) ObserveChanges(relations ...string) *notify.Subscription {
	return s.bus.Subscribe(relations...)
}

// Close cancels all subscriptions and runs registered closers.
func (s *Store) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.bus.Close()
		for _, fn := range s.closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return stderrors.Join(errs...)
}

func (s *Store) publish(relations, ids []string) {
	if len(relations) == 0 {
		return
	}
	s.NotifyChanges(storagemodels.NewChanges(relations, ids...))
}
