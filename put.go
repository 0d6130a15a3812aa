/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/resolver"
	"github.com/suparena/livestore/storagemodels"
)

type putFunc func(ctx context.Context, ds datastore.DataStore) (storagemodels.PutResult, error)

// putWork pairs obj with the resolver that persists it: the explicit one when
// given, otherwise the mapping registered for obj's dynamic type.
func putWork[T any](s *Store, op string, obj T, explicit resolver.PutResolver[T]) (putFunc, error) {
	if explicit != nil {
		return func(ctx context.Context, ds datastore.DataStore) (storagemodels.PutResult, error) {
			return explicit.PerformPut(ctx, ds, obj)
		}, nil
	}
	entry, ok := s.registry.LookupObject(any(obj))
	if !ok {
		err := errors.NewNoTypeMappingError(op, fmt.Sprintf("%T", obj))
		s.logger.Warn("no resolver for object", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	return func(ctx context.Context, ds datastore.DataStore) (storagemodels.PutResult, error) {
		return entry.PerformPut(ctx, ds, any(obj))
	}, nil
}

func putAffects(res storagemodels.PutResult) bool {
	return res.WasInserted() || res.RowsUpdated > 0
}

// PreparedPutObject persists a single object.
type PreparedPutObject[T any] struct {
	store    *Store
	obj      T
	resolver resolver.PutResolver[T]
}

// PutObject prepares a put of obj.
func PutObject[T any](s *Store, obj T) *PreparedPutObject[T] {
	return &PreparedPutObject[T]{store: s, obj: obj}
}

// WithResolver overrides the registered put resolver.
func (p *PreparedPutObject[T]) WithResolver(r resolver.PutResolver[T]) *PreparedPutObject[T] {
	p.resolver = r
	return p
}

// Execute runs the put and announces the affected relations.
func (p *PreparedPutObject[T]) Execute(ctx context.Context) (storagemodels.PutResult, error) {
	work, err := putWork(p.store, "put object", p.obj, p.resolver)
	if err != nil {
		return storagemodels.PutResult{}, err
	}

	res, err := work(ctx, p.store.ds)
	if err != nil {
		return storagemodels.PutResult{}, errors.NewStorageError("put object", "", err)
	}
	if putAffects(res) {
		p.store.publish(res.AffectedRelations, res.AffectedIDs)
	}
	return res, nil
}

// PreparedPutCollection persists a slice of objects, possibly of different
// dynamic types.
type PreparedPutCollection[T any] struct {
	store    *Store
	objs     []T
	resolver resolver.PutResolver[T]
}

// PutCollection prepares a put of every element of objs.
func PutCollection[T any](s *Store, objs []T) *PreparedPutCollection[T] {
	return &PreparedPutCollection[T]{store: s, objs: objs}
}

// WithResolver uses r for every element instead of registry lookup.
func (p *PreparedPutCollection[T]) WithResolver(r resolver.PutResolver[T]) *PreparedPutCollection[T] {
	p.resolver = r
	return p
}

// Execute resolves every element before writing any of them; one element
// without a resolver fails the call with nothing written. Storage failures
// are recorded on their element and the remaining elements still run. The
// returned error is a *errors.BatchError when any element failed. One change
// event covering all successful writes is published at the end.
func (p *PreparedPutCollection[T]) Execute(ctx context.Context) (*PutResults[T], error) {
	const op = "put collection"

	work := make([]putFunc, len(p.objs))
	for i, obj := range p.objs {
		w, err := putWork(p.store, op, obj, p.resolver)
		if err != nil {
			return nil, err
		}
		work[i] = w
	}

	results := &PutResults[T]{outcomes: make([]Outcome[T, storagemodels.PutResult], len(p.objs))}
	var changes storagemodels.Changes
	var failed map[int]error

	for i, w := range work {
		results.outcomes[i].Object = p.objs[i]
		res, err := w(ctx, p.store.ds)
		if err != nil {
			err = errors.NewStorageError(op, "", err)
			results.outcomes[i].Err = err
			if failed == nil {
				failed = make(map[int]error)
			}
			failed[i] = err
			continue
		}
		results.outcomes[i].Result = res
		if putAffects(res) {
			changes = changes.Merge(storagemodels.Changes{Relations: res.AffectedRelations, AffectedIDs: res.AffectedIDs})
		}
	}

	p.store.publish(changes.Relations, changes.AffectedIDs)

	if failed != nil {
		return results, &errors.BatchError{Op: op, Total: len(p.objs), Failed: failed}
	}
	return results, nil
}
