/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/suparena/livestore/datastore/mock"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

func newTestCache(t *testing.T) (*DataStore, *mock.DataStore) {
	t.Helper()
	inner := mock.New()
	inner.SetRows("users", []storagemodels.Row{{"id": "u1", "name": "ada"}})
	inner.SetRows("tweets", []storagemodels.Row{{"id": "t1"}})

	c, err := New(inner, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, inner
}

// rowCounter returns a function that accepts a read's results directly.
func rowCounter(t *testing.T) func(storagemodels.Cursor, error) int {
	return func(cur storagemodels.Cursor, err error) int {
		t.Helper()
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		rows, err := storagemodels.CollectRows(cur)
		if err != nil {
			t.Fatalf("CollectRows failed: %v", err)
		}
		return len(rows)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantErr: true},
		{name: "eviction above 100", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantErr: true},
		{name: "negative interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.NumShards = 0
	if _, err := New(mock.New(), cfg); !errors.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestQueryIsCached(t *testing.T) {
	ctx := context.Background()
	c, inner := newTestCache(t)
	countRows := rowCounter(t)
	q := storagemodels.Query{Relation: "users"}

	for i := 0; i < 3; i++ {
		if n := countRows(c.Query(ctx, q)); n != 1 {
			t.Fatalf("expected 1 row, got %d", n)
		}
	}
	if got := inner.CallCount("query"); got != 1 {
		t.Fatalf("expected one inner query, got %d", got)
	}

	other := storagemodels.Query{Relation: "users", Where: "id = ?", WhereArgs: []any{"u2"}}
	countRows(c.Query(ctx, other))
	if got := inner.CallCount("query"); got != 2 {
		t.Fatalf("different query should miss, got %d inner calls", got)
	}
}

func TestCachedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	q := storagemodels.Query{Relation: "users"}

	cur, _ := c.Query(ctx, q)
	cur.Next()
	cur.Row()["name"] = "mutated"

	cur, _ = c.Query(ctx, q)
	cur.Next()
	if cur.Row()["name"] != "ada" {
		t.Fatal("cached rows must not be shared with callers")
	}
}

func TestWriteInvalidatesRelation(t *testing.T) {
	ctx := context.Background()
	c, inner := newTestCache(t)
	countRows := rowCounter(t)
	users := storagemodels.Query{Relation: "users"}
	tweets := storagemodels.Query{Relation: "tweets"}

	countRows(c.Query(ctx, users))
	countRows(c.Query(ctx, tweets))

	if _, err := c.Insert(ctx, storagemodels.InsertQuery{Relation: "users"}, storagemodels.Row{"id": "u2"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if n := countRows(c.Query(ctx, users)); n != 2 {
		t.Fatalf("expected fresh read with 2 rows, got %d", n)
	}
	countRows(c.Query(ctx, tweets))

	if got := inner.CallCount("query"); got != 3 {
		t.Fatalf("only the users read should be refetched, got %d inner calls", got)
	}

	if n, _ := c.Delete(ctx, storagemodels.DeleteQuery{Relation: "tweets", Where: "id = ?", WhereArgs: []any{"nope"}}); n != 0 {
		t.Fatalf("unexpected delete count %d", n)
	}
	countRows(c.Query(ctx, tweets))
	if got := inner.CallCount("query"); got != 3 {
		t.Fatalf("a delete of no rows must not invalidate, got %d inner calls", got)
	}
}

func TestOnChangesInvalidates(t *testing.T) {
	ctx := context.Background()
	c, inner := newTestCache(t)
	countRows := rowCounter(t)
	q := storagemodels.Query{Relation: "users"}

	countRows(c.Query(ctx, q))
	inner.SetRows("users", nil)
	c.OnChanges(storagemodels.NewChanges([]string{"users"}))

	if n := countRows(c.Query(ctx, q)); n != 0 {
		t.Fatalf("expected external change to be visible, got %d rows", n)
	}
}

func TestRawQueryAndExec(t *testing.T) {
	ctx := context.Background()
	c, inner := newTestCache(t)
	countRows := rowCounter(t)

	observed := storagemodels.RawQuery{Statement: "SELECT * FROM users", ObservesRelations: []string{"users"}}
	countRows(c.RawQuery(ctx, observed))
	countRows(c.RawQuery(ctx, observed))
	if got := inner.CallCount("raw_query"); got != 1 {
		t.Fatalf("observed raw query should be cached, got %d inner calls", got)
	}

	unobserved := storagemodels.RawQuery{Statement: "SELECT 1"}
	c.RawQuery(ctx, unobserved)
	c.RawQuery(ctx, unobserved)
	if got := inner.CallCount("raw_query"); got != 3 {
		t.Fatalf("raw query without relations must bypass the cache, got %d", got)
	}

	if _, err := c.Exec(ctx, storagemodels.RawQuery{Statement: "DELETE FROM users"}); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	countRows(c.RawQuery(ctx, observed))
	if got := inner.CallCount("raw_query"); got != 4 {
		t.Fatalf("exec without relations should drop everything, got %d", got)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := mock.New().WithQueryError(stderrors.New("boom"))
	c, err := New(inner, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	q := storagemodels.Query{Relation: "users"}
	if _, err := c.Query(ctx, q); err == nil {
		t.Fatal("expected error")
	}
	inner.WithQueryError(nil)
	if _, err := c.Query(ctx, q); err != nil {
		t.Fatalf("error should not have been cached: %v", err)
	}
}

func TestWriteDuringFetchIsNotHidden(t *testing.T) {
	ctx := context.Background()
	inner := mock.New()
	inner.SetRows("users", []storagemodels.Row{{"id": "u1"}})

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	inner.WithQueryFunc(func(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error) {
		rows := inner.Rows(q.Relation)
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return storagemodels.NewRowsCursor(nil, rows), nil
	})

	c, err := New(inner, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, storagemodels.Query{Relation: "users"})
		done <- err
	}()

	<-entered
	if _, err := c.Insert(ctx, storagemodels.InsertQuery{Relation: "users"}, storagemodels.Row{"id": "u2"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("concurrent query failed: %v", err)
	}

	countRows := rowCounter(t)
	if got := countRows(c.Query(ctx, storagemodels.Query{Relation: "users"})); got != 2 {
		t.Fatalf("expected 2 rows after insert, got %d", got)
	}
	if got := countRows(c.Query(ctx, storagemodels.Query{Relation: "users"})); got != 2 {
		t.Fatalf("expected 2 rows from cache, got %d", got)
	}
}

func TestInvalidateAllCoversUntrackedRelations(t *testing.T) {
	ctx := context.Background()
	c, inner := newTestCache(t)
	countRows := rowCounter(t)

	if got := countRows(c.Query(ctx, storagemodels.Query{Relation: "users"})); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	inner.SetRows("users", []storagemodels.Row{{"id": "u1"}, {"id": "u2"}})
	if _, err := c.Exec(ctx, storagemodels.RawQuery{Statement: "VACUUM"}); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if got := countRows(c.Query(ctx, storagemodels.Query{Relation: "users"})); got != 2 {
		t.Fatalf("expected 2 rows after exec, got %d", got)
	}
}
