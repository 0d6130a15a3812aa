/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/livestore/storagemodels"
)

// DataStore executes row-level operations against a persistent store.
type DataStore interface {
	Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error)

	RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error)

	Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error)

	// Update rewrites the matching rows with the columns in row and returns the number of rows changed.
	Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error)

	Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error)

	// Exec runs a raw write statement and returns the number of rows affected.
	Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error)
}

// ChangeListener is implemented by stores that keep derived state, such as a
// read cache, and must observe changes before live queries re-execute.
type ChangeListener interface {
	OnChanges(changes storagemodels.Changes)
}
