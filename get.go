/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/registry"
	"github.com/suparena/livestore/resolver"
	"github.com/suparena/livestore/storagemodels"
)

// readTarget is the query half shared by all Get preparers. The last
// WithQuery or WithRawQuery call wins.
type readTarget struct {
	query *storagemodels.Query
	raw   *storagemodels.RawQuery
}

func (r *readTarget) setQuery(q storagemodels.Query) {
	r.query, r.raw = &q, nil
}

func (r *readTarget) setRaw(q storagemodels.RawQuery) {
	r.query, r.raw = nil, &q
}

func (r *readTarget) check(op string) error {
	switch {
	case r.query != nil:
		if err := r.query.Validate(); err != nil {
			return errors.NewConfigurationError(op, "", err)
		}
	case r.raw != nil:
		if err := r.raw.Validate(); err != nil {
			return errors.NewConfigurationError(op, "", err)
		}
	default:
		return errors.NewNoQueryError(op)
	}
	return nil
}

// relations returns the relations whose changes invalidate the read.
func (r *readTarget) relations() []string {
	if r.query != nil {
		return r.query.ObservedRelations()
	}
	if r.raw != nil {
		return r.raw.ObservedRelations()
	}
	return nil
}

func (r *readTarget) relation() string {
	if r.query != nil {
		return r.query.Relation
	}
	return ""
}

func openCursor[T any](ctx context.Context, s *Store, t *readTarget, r resolver.GetResolver[T]) (storagemodels.Cursor, error) {
	if t.query != nil {
		return r.PerformGet(ctx, s.ds, *t.query)
	}
	return r.PerformRawGet(ctx, s.ds, *t.raw)
}

// getResolverFor returns explicit when set, otherwise the registered get
// resolver for T.
func getResolverFor[T any](s *Store, op string, explicit resolver.GetResolver[T]) (resolver.GetResolver[T], error) {
	if explicit != nil {
		return explicit, nil
	}
	m, ok := registry.Lookup[T](s.registry)
	if !ok {
		typeName := reflect.TypeFor[T]().String()
		err := errors.NewNoTypeMappingError(op, typeName)
		s.logger.Warn("no resolver for type", slog.String("op", op), slog.String("type", typeName))
		return nil, err
	}
	return m.Get, nil
}

// PreparedGetList reads every row of a query as a []T.
type PreparedGetList[T any] struct {
	store    *Store
	target   readTarget
	resolver resolver.GetResolver[T]
}

// GetList prepares a list read of T.
func GetList[T any](s *Store) *PreparedGetList[T] {
	return &PreparedGetList[T]{store: s}
}

// WithQuery sets a structured query.
func (p *PreparedGetList[T]) WithQuery(q storagemodels.Query) *PreparedGetList[T] {
	p.target.setQuery(q)
	return p
}

// WithRawQuery sets a raw statement. Its ObservesRelations drive Observe.
func (p *PreparedGetList[T]) WithRawQuery(q storagemodels.RawQuery) *PreparedGetList[T] {
	p.target.setRaw(q)
	return p
}

// WithResolver overrides the registered get resolver.
func (p *PreparedGetList[T]) WithResolver(r resolver.GetResolver[T]) *PreparedGetList[T] {
	p.resolver = r
	return p
}

func (p *PreparedGetList[T]) prepare() (func(context.Context) ([]T, error), error) {
	const op = "get list"
	if err := p.target.check(op); err != nil {
		return nil, err
	}
	r, err := getResolverFor(p.store, op, p.resolver)
	if err != nil {
		return nil, err
	}
	target := p.target
	return func(ctx context.Context) ([]T, error) {
		cur, err := openCursor(ctx, p.store, &target, r)
		if err != nil {
			return nil, errors.NewStorageError(op, target.relation(), err)
		}
		defer cur.Close()

		out := make([]T, 0, cur.Len())
		for cur.Next() {
			v, err := r.MapFromCursor(cur)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if err := cur.Err(); err != nil {
			return nil, errors.NewStorageError(op, target.relation(), err)
		}
		return out, nil
	}, nil
}

// Execute runs the read once. An empty result is an empty, non-nil slice.
func (p *PreparedGetList[T]) Execute(ctx context.Context) ([]T, error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Observe starts a live query that re-reads the list whenever an observed
// relation changes.
func (p *PreparedGetList[T]) Observe(ctx context.Context, opts ...storagemodels.ObserveOption) (*LiveQuery[[]T], error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return startLiveQuery(ctx, p.store, p.target.relations(), run, opts), nil
}

// PreparedGetObject reads the first row of a query as a *T.
type PreparedGetObject[T any] struct {
	store    *Store
	target   readTarget
	resolver resolver.GetResolver[T]
}

// GetObject prepares a single object read of T.
func GetObject[T any](s *Store) *PreparedGetObject[T] {
	return &PreparedGetObject[T]{store: s}
}

// WithQuery sets a structured query.
func (p *PreparedGetObject[T]) WithQuery(q storagemodels.Query) *PreparedGetObject[T] {
	p.target.setQuery(q)
	return p
}

// WithRawQuery sets a raw statement.
func (p *PreparedGetObject[T]) WithRawQuery(q storagemodels.RawQuery) *PreparedGetObject[T] {
	p.target.setRaw(q)
	return p
}

// WithResolver overrides the registered get resolver.
func (p *PreparedGetObject[T]) WithResolver(r resolver.GetResolver[T]) *PreparedGetObject[T] {
	p.resolver = r
	return p
}

func (p *PreparedGetObject[T]) prepare() (func(context.Context) (*T, error), error) {
	const op = "get object"
	if err := p.target.check(op); err != nil {
		return nil, err
	}
	r, err := getResolverFor(p.store, op, p.resolver)
	if err != nil {
		return nil, err
	}
	target := p.target
	return func(ctx context.Context) (*T, error) {
		cur, err := openCursor(ctx, p.store, &target, r)
		if err != nil {
			return nil, errors.NewStorageError(op, target.relation(), err)
		}
		defer cur.Close()

		if !cur.Next() {
			if err := cur.Err(); err != nil {
				return nil, errors.NewStorageError(op, target.relation(), err)
			}
			return nil, nil
		}
		v, err := r.MapFromCursor(cur)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}, nil
}

// Execute runs the read once. It returns nil without error when no row
// matches.
func (p *PreparedGetObject[T]) Execute(ctx context.Context) (*T, error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Observe starts a live query over the object. Snapshots carry a nil value
// while no row matches.
func (p *PreparedGetObject[T]) Observe(ctx context.Context, opts ...storagemodels.ObserveOption) (*LiveQuery[*T], error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return startLiveQuery(ctx, p.store, p.target.relations(), run, opts), nil
}

// PreparedGetCursor reads a query as a raw storage cursor. The caller owns
// the returned cursor and must close it.
type PreparedGetCursor struct {
	store    *Store
	target   readTarget
	resolver resolver.GetResolver[storagemodels.Cursor]
}

// GetCursor prepares a cursor read. No type mapping is needed.
func GetCursor(s *Store) *PreparedGetCursor {
	return &PreparedGetCursor{store: s}
}

// WithQuery sets a structured query.
func (p *PreparedGetCursor) WithQuery(q storagemodels.Query) *PreparedGetCursor {
	p.target.setQuery(q)
	return p
}

// WithRawQuery sets a raw statement.
func (p *PreparedGetCursor) WithRawQuery(q storagemodels.RawQuery) *PreparedGetCursor {
	p.target.setRaw(q)
	return p
}

// WithResolver replaces the identity cursor resolver.
func (p *PreparedGetCursor) WithResolver(r resolver.GetResolver[storagemodels.Cursor]) *PreparedGetCursor {
	p.resolver = r
	return p
}

func (p *PreparedGetCursor) prepare() (func(context.Context) (storagemodels.Cursor, error), error) {
	const op = "get cursor"
	if err := p.target.check(op); err != nil {
		return nil, err
	}
	r := p.resolver
	if r == nil {
		r = resolver.NewCursorGetResolver()
	}
	target := p.target
	return func(ctx context.Context) (storagemodels.Cursor, error) {
		cur, err := openCursor(ctx, p.store, &target, r)
		if err != nil {
			return nil, errors.NewStorageError(op, target.relation(), err)
		}
		out, err := r.MapFromCursor(cur)
		if err != nil {
			cur.Close()
			return nil, err
		}
		return out, nil
	}, nil
}

// Execute runs the read once.
func (p *PreparedGetCursor) Execute(ctx context.Context) (storagemodels.Cursor, error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return run(ctx)
}

// Observe starts a live query emitting a fresh cursor per execution.
func (p *PreparedGetCursor) Observe(ctx context.Context, opts ...storagemodels.ObserveOption) (*LiveQuery[storagemodels.Cursor], error) {
	run, err := p.prepare()
	if err != nil {
		return nil, err
	}
	return startLiveQuery(ctx, p.store, p.target.relations(), run, opts), nil
}
