/*
Package livestore is a type-safe storage access layer with live queries.

Objects are mapped to relational rows by resolvers registered per Go type.
Every write made through the store announces the relations it touched, and
every live query observing one of those relations re-executes and emits a
fresh snapshot.

The library is organized around three ideas:
  - Preparers: PutObject, PutCollection, GetList, GetObject, GetCursor,
    DeleteObject, DeleteCollection, DeleteByQuery and ExecSQL build an
    operation that runs once with Execute
  - Live queries: Get preparers also offer Observe, which keeps the result
    current until cancelled
  - Backends: any datastore.DataStore; SQLite, DynamoDB and an in-memory
    mock are provided, with an optional read cache in front

Basic Usage:

	ds, _ := sqlite.Open("app.db")
	store := livestore.New(ds)

	livestore.Register(store, registry.TypeMapping[User]{
		Put:    userPut,
		Get:    userGet,
		Delete: userDelete,
	})

	livestore.PutObject(store, User{ID: "u1", Name: "Ada"}).Execute(ctx)

	live, _ := livestore.GetList[User](store).
		WithQuery(storagemodels.Query{Relation: "users"}).
		Observe(ctx)
	defer live.Cancel()

	for snap := range live.Results() {
		fmt.Println(snap.Value, snap.Err)
	}
*/
package livestore
