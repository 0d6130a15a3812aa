/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resolver

import (
	"context"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/storagemodels"
)

// PutResolver translates an object into the storage writes that persist it.
type PutResolver[T any] interface {
	PerformPut(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.PutResult, error)
}

// GetResolver runs reads and maps the current cursor row to a T.
type GetResolver[T any] interface {
	PerformGet(ctx context.Context, ds datastore.DataStore, q storagemodels.Query) (storagemodels.Cursor, error)
	PerformRawGet(ctx context.Context, ds datastore.DataStore, q storagemodels.RawQuery) (storagemodels.Cursor, error)
	MapFromCursor(cur storagemodels.Cursor) (T, error)
}

// DeleteResolver translates an object into the storage delete that removes it.
type DeleteResolver[T any] interface {
	PerformDelete(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.DeleteResult, error)
}

// PutResolverFunc adapts a function to PutResolver.
type PutResolverFunc[T any] func(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.PutResult, error)

func (f PutResolverFunc[T]) PerformPut(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.PutResult, error) {
	return f(ctx, ds, obj)
}

// DeleteResolverFunc adapts a function to DeleteResolver.
type DeleteResolverFunc[T any] func(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.DeleteResult, error)

func (f DeleteResolverFunc[T]) PerformDelete(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.DeleteResult, error) {
	return f(ctx, ds, obj)
}
