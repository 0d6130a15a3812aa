/*
Package sqlite implements datastore.DataStore on SQLite using the pure-Go
modernc.org/sqlite driver.

Each relation is a table. Structured queries are rendered to SELECT
statements with quoted identifiers; Where, GroupBy, Having and OrderBy are
passed through and their arguments are bound positionally. Result sets are
read fully before the cursor is returned, so callers never hold a
connection.

	store, err := sqlite.Open("app.db")
	if err != nil {
	    return err
	}
	defer store.Close()

	err = store.Migrate(ctx, `CREATE TABLE IF NOT EXISTS users (id TEXT PRIMARY KEY, name TEXT)`)
*/
package sqlite
