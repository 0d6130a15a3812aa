/*
Package datastore defines the storage collaborator contract for LiveStore.

The main interface is DataStore, which executes row-level operations:

	type DataStore interface {
	    Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error)
	    RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error)
	    Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error)
	    Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error)
	    Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error)
	    Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error)
	}

Implementations:
  - sqlite: SQLite implementation on modernc.org/sqlite
  - ddb: DynamoDB implementation, one relation per table
  - mock: In-memory mock implementation for testing

Stores never publish change notifications themselves. The resolver layer
reports affected relations and the Store publishes them.
*/
package datastore
