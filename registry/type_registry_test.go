/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"

	"github.com/suparena/livestore/datastore"
	"github.com/suparena/livestore/datastore/mock"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/resolver"
	"github.com/suparena/livestore/storagemodels"
)

type user struct{ ID string }

type tweet struct{ ID string }

type named interface{ Name() string }

// getStub is comparable so resolver identity can be checked with ==.
type getStub[T any] struct{ relation string }

func (g getStub[T]) PerformGet(ctx context.Context, ds datastore.DataStore, q storagemodels.Query) (storagemodels.Cursor, error) {
	return ds.Query(ctx, q)
}

func (g getStub[T]) PerformRawGet(ctx context.Context, ds datastore.DataStore, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	return ds.RawQuery(ctx, q)
}

func (g getStub[T]) MapFromCursor(cur storagemodels.Cursor) (T, error) {
	var zero T
	return zero, nil
}

func mappingFor[T any](relation string) TypeMapping[T] {
	return TypeMapping[T]{
		Put: resolver.PutResolverFunc[T](func(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.PutResult, error) {
			return storagemodels.NewInsertResult(relation, ""), nil
		}),
		Get: getStub[T]{relation: relation},
		Delete: resolver.DeleteResolverFunc[T](func(ctx context.Context, ds datastore.DataStore, obj T) (storagemodels.DeleteResult, error) {
			return storagemodels.NewDeleteResult(relation, 1), nil
		}),
	}
}

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	m := mappingFor[user]("users")

	if err := Register(reg, m); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := Lookup[user](reg)
	if !ok {
		t.Fatal("expected mapping for user")
	}
	if got.Get != m.Get {
		t.Error("get resolver identity not preserved")
	}
	if reflect.ValueOf(got.Put).Pointer() != reflect.ValueOf(m.Put).Pointer() {
		t.Error("put resolver identity not preserved")
	}
	if reflect.ValueOf(got.Delete).Pointer() != reflect.ValueOf(m.Delete).Pointer() {
		t.Error("delete resolver identity not preserved")
	}

	if _, ok := Lookup[*user](reg); ok {
		t.Error("pointer type must not resolve to the value type mapping")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", reg.Len())
	}
}

func TestRegisterPolicy(t *testing.T) {
	reg := New()

	t.Run("duplicate rejected", func(t *testing.T) {
		if err := Register(reg, mappingFor[user]("users")); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		err := Register(reg, mappingFor[user]("people"))
		if !stderrors.Is(err, errors.ErrAlreadyRegistered) {
			t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
		}
	})

	t.Run("replace existing", func(t *testing.T) {
		if err := Replace(reg, mappingFor[user]("people")); err != nil {
			t.Fatalf("Replace failed: %v", err)
		}
		e, _ := reg.LookupObject(user{})
		res, _ := e.PerformPut(context.Background(), mock.New(), user{})
		if res.AffectedRelations[0] != "people" {
			t.Fatalf("replacement not in effect: %v", res.AffectedRelations)
		}
	})

	t.Run("replace missing", func(t *testing.T) {
		err := Replace(reg, mappingFor[tweet]("tweets"))
		if !stderrors.Is(err, errors.ErrNotRegistered) {
			t.Fatalf("expected ErrNotRegistered, got %v", err)
		}
	})

	t.Run("incomplete mapping", func(t *testing.T) {
		err := Register(reg, TypeMapping[tweet]{Get: resolver.DefaultGetResolver[tweet]{}})
		if !errors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("interface type", func(t *testing.T) {
		err := Register(reg, mappingFor[named]("named"))
		if !errors.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unregister", func(t *testing.T) {
		if !Unregister[user](reg) {
			t.Fatal("expected user to be registered")
		}
		if _, ok := Lookup[user](reg); ok {
			t.Fatal("mapping should be gone")
		}
	})
}

func TestEntryDispatch(t *testing.T) {
	reg := New()
	MustRegister(reg, mappingFor[user]("users"))
	MustRegister(reg, mappingFor[tweet]("tweets"))

	ctx := context.Background()
	for _, obj := range []any{user{}, tweet{}} {
		e, ok := reg.LookupObject(obj)
		if !ok {
			t.Fatalf("no entry for %T", obj)
		}
		if e.Type() != reflect.TypeOf(obj) {
			t.Fatalf("entry type %s for %T", e.Type(), obj)
		}
		if _, err := e.PerformDelete(ctx, mock.New(), obj); err != nil {
			t.Fatalf("PerformDelete failed: %v", err)
		}
	}

	e, _ := reg.LookupObject(user{})
	if _, err := e.PerformPut(ctx, mock.New(), tweet{}); err == nil {
		t.Fatal("dispatching a foreign type should fail")
	}

	if _, ok := reg.LookupObject(nil); ok {
		t.Fatal("nil object must not resolve")
	}

	types := reg.Types()
	if len(types) != 2 || types[0].String() != "registry.tweet" {
		t.Fatalf("unexpected types %v", types)
	}
}

func TestConcurrentLookup(t *testing.T) {
	reg := New()
	MustRegister(reg, mappingFor[user]("users"))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := Lookup[user](reg); !ok {
					t.Error("lookup failed")
					return
				}
			}
		}()
	}
	wg.Wait()
}
