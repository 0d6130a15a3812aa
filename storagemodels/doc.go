/*
Package storagemodels defines the data structures used throughout LiveStore.

Key Types:

Query:
A structured read against one relation:

	q := Query{
	    Relation:  "users",
	    Where:     "age > ? AND active = ?",
	    WhereArgs: []any{18, true},
	    OrderBy:   "name",
	    Limit:     50,
	}

RawQuery:
An opaque statement plus the relations it observes or affects:

	rq := RawQuery{
	    Statement:         "SELECT u.* FROM users u JOIN tweets t ON t.author = u.id",
	    ObservesRelations: []string{"users", "tweets"},
	}

Cursor:
Forward-only result set. Collaborators return materialized cursors built with
NewRowsCursor.

Changes:
The event published after a successful write, naming the relations that
changed and optionally the affected row identifiers.

ObserveOptions:
Configuration for live queries:

	opts := []ObserveOption{
	    WithBufferSize(1),
	    WithMaxRetries(2),
	}

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
