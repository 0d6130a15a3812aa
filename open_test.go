/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/suparena/livestore"
	"github.com/suparena/livestore/cache"
	"github.com/suparena/livestore/config"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS tweets (
	id TEXT PRIMARY KEY,
	body TEXT NOT NULL DEFAULT ''
);
`

func openSQLite(t *testing.T, withCache bool) *livestore.Store {
	t.Helper()
	schema := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(schema, []byte(usersSchema), 0o644); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}

	cfg := config.Default()
	cfg.SQLite.Path = ":memory:"
	cfg.SQLite.Schema = schema
	cfg.Cache.Enabled = withCache

	store, err := livestore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := livestore.Register(store, userMapping()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := livestore.Register(store, tweetMapping()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return store
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = "postgres"
	if _, err := livestore.Open(context.Background(), cfg); !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOpenMemoryWithCache(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = config.DriverMemory
	cfg.Cache.Enabled = true

	store, err := livestore.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.DataStore().(*cache.DataStore); !ok {
		t.Fatalf("expected cached datastore, got %T", store.DataStore())
	}
}

func TestSQLiteLiveRoundTrip(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		name := "plain"
		if withCache {
			name = "cached"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := openSQLite(t, withCache)

			lq, err := livestore.GetList[user](store).
				WithQuery(storagemodels.Query{Relation: "users", OrderBy: "id"}).
				Observe(ctx)
			if err != nil {
				t.Fatalf("Observe failed: %v", err)
			}
			defer lq.Cancel()

			if snap := receive(t, lq); snap.Err != nil || len(snap.Value) != 0 {
				t.Fatalf("unexpected first snapshot %+v", snap)
			}

			if _, err := livestore.PutObject(store, user{ID: "u1", Name: "ada"}).Execute(ctx); err != nil {
				t.Fatalf("PutObject failed: %v", err)
			}
			snap := receive(t, lq)
			if snap.Err != nil || len(snap.Value) != 1 || snap.Value[0].Name != "ada" {
				t.Fatalf("unexpected snapshot after insert %+v", snap)
			}

			res, err := livestore.PutObject(store, user{ID: "u1", Name: "grace"}).Execute(ctx)
			if err != nil || !res.WasUpdated() {
				t.Fatalf("second put should update: res=%+v err=%v", res, err)
			}
			snap = receive(t, lq)
			if len(snap.Value) != 1 || snap.Value[0].Name != "grace" {
				t.Fatalf("unexpected snapshot after update %+v", snap)
			}

			if _, err := livestore.PutObject(store, tweet{ID: "t1", Body: "hi"}).Execute(ctx); err != nil {
				t.Fatalf("PutObject tweet failed: %v", err)
			}
			expectQuiet(t, lq)

			n, err := livestore.ExecSQL(store, storagemodels.RawQuery{
				Statement:        "DELETE FROM users",
				AffectsRelations: []string{"users"},
			}).Execute(ctx)
			if err != nil || n != 1 {
				t.Fatalf("ExecSQL: n=%d err=%v", n, err)
			}
			if snap := receive(t, lq); len(snap.Value) != 0 {
				t.Fatalf("expected empty list after delete, got %+v", snap.Value)
			}
		})
	}
}
