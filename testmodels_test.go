/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/livestore"
	"github.com/suparena/livestore/datastore/sqlite"
	"github.com/suparena/livestore/datastore/testmodels"
	"github.com/suparena/livestore/storagemodels"
)

func strPtr(s string) *string { return &s }

func TestRatingSystemOnSQLite(t *testing.T) {
	ctx := context.Background()
	ds, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := ds.Migrate(ctx, testmodels.RatingSystemsSchema); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	store := livestore.New(ds, livestore.WithCloser(ds.Close))
	defer store.Close()

	if err := livestore.Register(store, testmodels.RatingSystemMapping()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	now := strfmt.DateTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	systems := []testmodels.RatingSystem{
		{ID: strPtr("elo"), Name: strPtr("Elo"), CreatedAt: &now, UpdatedAt: &now},
		{ID: strPtr("glicko"), Name: strPtr("Glicko"), Description: strPtr("rating deviation"), CreatedAt: &now, UpdatedAt: &now},
	}
	results, err := livestore.PutCollection(store, systems).Execute(ctx)
	if err != nil {
		t.Fatalf("PutCollection failed: %v", err)
	}
	if results.Succeeded() != 2 {
		t.Fatalf("expected 2 stored systems, got %d", results.Succeeded())
	}

	got, err := livestore.GetObject[testmodels.RatingSystem](store).
		WithQuery(storagemodels.Query{Relation: testmodels.RatingSystemsRelation, Where: "id = ?", WhereArgs: []any{"glicko"}}).
		Execute(ctx)
	if err != nil || got == nil {
		t.Fatalf("GetObject: got=%v err=%v", got, err)
	}
	if *got.Name != "Glicko" || *got.Description != "rating deviation" {
		t.Fatalf("unexpected system %+v", got)
	}
	if !time.Time(*got.CreatedAt).Equal(time.Time(now)) {
		t.Fatalf("timestamp not preserved: %v", got.CreatedAt)
	}

	missingName := testmodels.RatingSystem{ID: strPtr("broken")}
	if _, err := livestore.PutObject(store, missingName).Execute(ctx); err == nil {
		t.Fatal("expected mapping error for incomplete object")
	}

	res, err := livestore.DeleteObject(store, systems[0]).Execute(ctx)
	if err != nil || res.RowsDeleted != 1 {
		t.Fatalf("DeleteObject: res=%+v err=%v", res, err)
	}
	all, err := livestore.GetList[testmodels.RatingSystem](store).
		WithQuery(storagemodels.Query{Relation: testmodels.RatingSystemsRelation}).
		Execute(ctx)
	if err != nil || len(all) != 1 || *all[0].ID != "glicko" {
		t.Fatalf("GetList after delete: %v err=%v", all, err)
	}
}
