/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds generated-style models and their type mappings
// for tests across the module.
package testmodels

import (
	"fmt"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/livestore/registry"
	"github.com/suparena/livestore/resolver"
	"github.com/suparena/livestore/storagemodels"
)

// RatingSystemsRelation is the relation RatingSystem rows live in.
const RatingSystemsRelation = "rating_systems"

// RatingSystemsSchema creates RatingSystemsRelation on SQLite.
const RatingSystemsSchema = `
CREATE TABLE IF NOT EXISTS rating_systems (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	site_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

type RatingSystem struct {

	// Timestamp when the rating system was created.
	// Required: true
	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"CreatedAt"`

	// A description of the rating system.
	// Required: true
	Description *string `json:"Description"`

	// Unique identifier for the rating system.
	// Required: true
	ID *string `json:"Id"`

	// Name of the rating system.
	// Required: true
	Name *string `json:"Name"`

	// site Url
	SiteURL string `json:"SiteUrl,omitempty"`

	// Timestamp when the rating system was last updated.
	// Required: true
	// Format: date-time
	UpdatedAt *strfmt.DateTime `json:"UpdatedAt"`
}

// RatingSystemMapping maps RatingSystem onto RatingSystemsRelation.
func RatingSystemMapping() registry.TypeMapping[RatingSystem] {
	key := func(rs RatingSystem) any { return deref(rs.ID) }
	return registry.TypeMapping[RatingSystem]{
		Put: resolver.DefaultPutResolver[RatingSystem]{
			Relation: RatingSystemsRelation,
			Key:      key,
			ToRow:    ratingSystemToRow,
		},
		Get: resolver.DefaultGetResolver[RatingSystem]{FromRow: ratingSystemFromRow},
		Delete: resolver.DefaultDeleteResolver[RatingSystem]{
			Relation: RatingSystemsRelation,
			Key:      key,
		},
	}
}

func ratingSystemToRow(rs RatingSystem) (storagemodels.Row, error) {
	if rs.Name == nil || rs.CreatedAt == nil || rs.UpdatedAt == nil {
		return nil, fmt.Errorf("rating system is missing required fields")
	}
	row := storagemodels.Row{
		"name":        *rs.Name,
		"description": deref(rs.Description),
		"site_url":    rs.SiteURL,
		"created_at":  rs.CreatedAt.String(),
		"updated_at":  rs.UpdatedAt.String(),
	}
	if rs.ID != nil && *rs.ID != "" {
		row["id"] = *rs.ID
	}
	return row, nil
}

func ratingSystemFromRow(row storagemodels.Row) (RatingSystem, error) {
	var rs RatingSystem
	if v, ok := row["id"]; ok && v != nil {
		id := fmt.Sprint(v)
		rs.ID = &id
	}
	if v, ok := row["name"].(string); ok {
		rs.Name = &v
	}
	if v, ok := row["description"].(string); ok {
		rs.Description = &v
	}
	rs.SiteURL, _ = row["site_url"].(string)

	var err error
	if rs.CreatedAt, err = parseDateTime(row["created_at"]); err != nil {
		return RatingSystem{}, fmt.Errorf("created_at: %w", err)
	}
	if rs.UpdatedAt, err = parseDateTime(row["updated_at"]); err != nil {
		return RatingSystem{}, fmt.Errorf("updated_at: %w", err)
	}
	return rs, nil
}

func parseDateTime(v any) (*strfmt.DateTime, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, nil
	}
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
