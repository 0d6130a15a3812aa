/*
Package resolver defines how typed objects and queries are translated into
storage calls.

Each domain type is served by three capabilities:

	PutResolver[T]    // object -> insert or update
	GetResolver[T]    // query -> cursor -> T
	DeleteResolver[T] // object -> delete

Resolvers are stateless strategy values. The Default* implementations cover
the common case of one relation keyed by a single column:

	put := resolver.DefaultPutResolver[User]{
	    Relation: "users",
	    Key:      func(u User) any { return u.ID },
	    ToRow:    userToRow,
	}

DefaultPutResolver updates by key first and inserts when nothing was
updated. CursorGetResolver returns the raw cursor and backs cursor reads.
*/
package resolver
