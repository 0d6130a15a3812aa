/*
Package ddb provides a DynamoDB implementation of the DataStore interface.

Each relation maps to a table whose partition key is a single attribute
(default "id"). The Store supports:
  - Structured queries as paginated Scans with a translated filter expression
  - PartiQL for raw reads and writes via ExecuteStatement
  - Conditional inserts that never overwrite an existing key
  - Retry with backoff on throttling errors

Where clauses use SQL-style syntax with positional arguments:

	cur, err := store.Query(ctx, storagemodels.Query{
	    Relation:  "users",
	    Where:     "age >= ? AND begins_with(name, ?)",
	    WhereArgs: []any{18, "A"},
	})

is sent as the filter "#n0 >= :v0 AND begins_with(#n1, :v1)".

Ordering is applied client-side after the scan completes.
*/
package ddb
