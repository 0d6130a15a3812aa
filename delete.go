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

type deleteFunc func(ctx context.Context, ds datastore.DataStore) (storagemodels.DeleteResult, error)

func deleteWork[T any](s *Store, op string, obj T, explicit resolver.DeleteResolver[T]) (deleteFunc, error) {
	if explicit != nil {
		return func(ctx context.Context, ds datastore.DataStore) (storagemodels.DeleteResult, error) {
			return explicit.PerformDelete(ctx, ds, obj)
		}, nil
	}
	entry, ok := s.registry.LookupObject(any(obj))
	if !ok {
		err := errors.NewNoTypeMappingError(op, fmt.Sprintf("%T", obj))
		s.logger.Warn("no resolver for object", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}
	return func(ctx context.Context, ds datastore.DataStore) (storagemodels.DeleteResult, error) {
		return entry.PerformDelete(ctx, ds, any(obj))
	}, nil
}

// PreparedDeleteObject deletes a single object.
type PreparedDeleteObject[T any] struct {
	store    *Store
	obj      T
	resolver resolver.DeleteResolver[T]
}

// DeleteObject prepares a delete of obj.
func DeleteObject[T any](s *Store, obj T) *PreparedDeleteObject[T] {
	return &PreparedDeleteObject[T]{store: s, obj: obj}
}

// WithResolver overrides the registered delete resolver.
func (p *PreparedDeleteObject[T]) WithResolver(r resolver.DeleteResolver[T]) *PreparedDeleteObject[T] {
	p.resolver = r
	return p
}

// Execute runs the delete and announces the affected relations when rows were removed.
func (p *PreparedDeleteObject[T]) Execute(ctx context.Context) (storagemodels.DeleteResult, error) {
	work, err := deleteWork(p.store, "delete object", p.obj, p.resolver)
	if err != nil {
		return storagemodels.DeleteResult{}, err
	}

	res, err := work(ctx, p.store.ds)
	if err != nil {
		return storagemodels.DeleteResult{}, errors.NewStorageError("delete object", "", err)
	}
	if res.RowsDeleted > 0 {
		p.store.publish(res.AffectedRelations, res.AffectedIDs)
	}
	return res, nil
}

// PreparedDeleteCollection deletes a slice of objects.
type PreparedDeleteCollection[T any] struct {
	store    *Store
	objs     []T
	resolver resolver.DeleteResolver[T]
}

// DeleteCollection prepares a delete of every element of objs.
func DeleteCollection[T any](s *Store, objs []T) *PreparedDeleteCollection[T] {
	return &PreparedDeleteCollection[T]{store: s, objs: objs}
}

// WithResolver uses r for every element instead of registry lookup.
func (p *PreparedDeleteCollection[T]) WithResolver(r resolver.DeleteResolver[T]) *PreparedDeleteCollection[T] {
	p.resolver = r
	return p
}

// Execute follows the same rules as PreparedPutCollection.Execute.
func (p *PreparedDeleteCollection[T]) Execute(ctx context.Context) (*DeleteResults[T], error) {
	const op = "delete collection"

	work := make([]deleteFunc, len(p.objs))
	for i, obj := range p.objs {
		w, err := deleteWork(p.store, op, obj, p.resolver)
		if err != nil {
			return nil, err
		}
		work[i] = w
	}

	results := &DeleteResults[T]{outcomes: make([]Outcome[T, storagemodels.DeleteResult], len(p.objs))}
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
		if res.RowsDeleted > 0 {
			changes = changes.Merge(storagemodels.Changes{Relations: res.AffectedRelations, AffectedIDs: res.AffectedIDs})
		}
	}

	p.store.publish(changes.Relations, changes.AffectedIDs)

	if failed != nil {
		return results, &errors.BatchError{Op: op, Total: len(p.objs), Failed: failed}
	}
	return results, nil
}

// PreparedDeleteByQuery deletes the rows a DeleteQuery selects.
type PreparedDeleteByQuery struct {
	store *Store
	query storagemodels.DeleteQuery
}

// DeleteByQuery prepares a delete of every row matching q.
func DeleteByQuery(s *Store, q storagemodels.DeleteQuery) *PreparedDeleteByQuery {
	return &PreparedDeleteByQuery{store: s, query: q}
}

// Execute runs the delete and announces q.Relation when rows were removed.
func (p *PreparedDeleteByQuery) Execute(ctx context.Context) (storagemodels.DeleteResult, error) {
	if err := p.query.Validate(); err != nil {
		return storagemodels.DeleteResult{}, errors.NewConfigurationError("delete by query", "", err)
	}

	n, err := p.store.ds.Delete(ctx, p.query)
	if err != nil {
		return storagemodels.DeleteResult{}, errors.NewStorageError("delete by query", p.query.Relation, err)
	}
	res := storagemodels.NewDeleteResult(p.query.Relation, n)
	if n > 0 {
		p.store.publish(res.AffectedRelations, nil)
	}
	return res, nil
}
