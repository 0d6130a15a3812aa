/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resolver

import (
	"context"
	"fmt"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

const defaultKeyColumn = "id"

// DefaultPutResolver updates the row whose key matches the object and inserts
// it when no row was updated. Objects with a nil or empty key are always
// inserted.
type DefaultPutResolver[T any] struct {
	Relation string
	// KeyColumn defaults to "id".
	KeyColumn string
	Key       func(T) any
	ToRow     func(T) (storagemodels.Row, error)
}

func (r DefaultPutResolver[T]) PerformPut(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.PutResult, error) {
	if r.ToRow == nil {
		return storagemodels.PutResult{}, errors.NewValidationError("ToRow", "put resolver has no row mapper")
	}
	row, err := r.ToRow(obj)
	if err != nil {
		return storagemodels.PutResult{}, fmt.Errorf("failed to map object to row: %w", err)
	}

	col := keyColumn(r.KeyColumn)
	if key := r.key(obj); !isZeroKey(key) {
		n, err := ds.Update(ctx, storagemodels.UpdateQuery{
			Relation:  r.Relation,
			Where:     col + " = ?",
			WhereArgs: []any{key},
		}, row)
		if err != nil {
			return storagemodels.PutResult{}, err
		}
		if n > 0 {
			return storagemodels.NewUpdateResult(r.Relation, n, fmt.Sprint(key)), nil
		}
	}

	res, err := ds.Insert(ctx, storagemodels.InsertQuery{Relation: r.Relation}, row)
	if err != nil {
		return storagemodels.PutResult{}, err
	}
	return storagemodels.NewInsertResult(r.Relation, res.ID), nil
}

func (r DefaultPutResolver[T]) key(obj T) any {
	if r.Key == nil {
		return nil
	}
	return r.Key(obj)
}

// DefaultGetResolver delegates reads to the store and maps rows with FromRow.
type DefaultGetResolver[T any] struct {
	FromRow func(storagemodels.Row) (T, error)
}

func (r DefaultGetResolver[T]) PerformGet(ctx context.Context, ds datastore.DataStore, q storagemodels.Query) (storagemodels.Cursor, error) {
	return ds.Query(ctx, q)
}

func (r DefaultGetResolver[T]) PerformRawGet(ctx context.Context, ds datastore.DataStore, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	return ds.RawQuery(ctx, q)
}

func (r DefaultGetResolver[T]) MapFromCursor(cur storagemodels.Cursor) (T, error) {
	if r.FromRow == nil {
		var zero T
		return zero, errors.NewValidationError("FromRow", "get resolver has no row mapper")
	}
	return r.FromRow(cur.Row())
}

// CursorGetResolver hands the cursor itself back to the caller.
type CursorGetResolver struct {
	DefaultGetResolver[storagemodels.Cursor]
}

// NewCursorGetResolver returns the resolver used for cursor reads without an explicit override.
func NewCursorGetResolver() CursorGetResolver {
	return CursorGetResolver{}
}

func (CursorGetResolver) MapFromCursor(cur storagemodels.Cursor) (storagemodels.Cursor, error) {
	return cur, nil
}

// DefaultDeleteResolver deletes the row whose key matches the object.
type DefaultDeleteResolver[T any] struct {
	Relation  string
	KeyColumn string
	Key       func(T) any
}

func (r DefaultDeleteResolver[T]) PerformDelete(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.DeleteResult, error) {
	if r.Key == nil {
		return storagemodels.DeleteResult{}, errors.NewValidationError("Key", "delete resolver has no key function")
	}
	key := r.Key(obj)
	if isZeroKey(key) {
		return storagemodels.DeleteResult{}, errors.NewValidationError(keyColumn(r.KeyColumn), "object has no key")
	}

	n, err := ds.Delete(ctx, storagemodels.DeleteQuery{
		Relation:  r.Relation,
		Where:     keyColumn(r.KeyColumn) + " = ?",
		WhereArgs: []any{key},
	})
	if err != nil {
		return storagemodels.DeleteResult{}, err
	}
	return storagemodels.NewDeleteResult(r.Relation, n, fmt.Sprint(key)), nil
}

func keyColumn(col string) string {
	if col == "" {
		return defaultKeyColumn
	}
	return col
}

func isZeroKey(key any) bool {
	switch k := key.(type) {
	case nil:
		return true
	case string:
		return k == ""
	case *string:
		return k == nil || *k == ""
	}
	return false
}
