/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"sort"
	"time"

	"github.com/go-openapi/strfmt"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Query is a structured read against exactly one relation.
// WhereArgs are bound positionally to "?" placeholders in Where.
type Query struct {
	// Relation is the table (or DynamoDB table) the query reads.
	Relation string
	// Distinct removes duplicate rows.
	Distinct bool
	// Columns restricts the projection. Empty means all columns.
	Columns []string
	// Where is an optional filter expression.
	Where     string
	WhereArgs []any
	GroupBy   string
	Having    string
	OrderBy   string
	// Limit of zero means unlimited.
	Limit  int
	Offset int
}

// Validate checks that the query names a relation and has sane bounds.
func (q Query) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Relation, validation.Required),
		validation.Field(&q.Limit, validation.Min(0)),
		validation.Field(&q.Offset, validation.Min(0)),
		validation.Field(&q.Having, validation.When(q.GroupBy == "", validation.Empty.Error("requires group by"))),
	)
}

// ObservedRelations returns the relation set a live query on q watches.
func (q Query) ObservedRelations() []string {
	if q.Relation == "" {
		return nil
	}
	return []string{q.Relation}
}

// RawQuery is an opaque statement whose touched relations cannot be
// introspected, so the caller names them.
type RawQuery struct {
	Statement string
	Args      []any
	// ObservesRelations is the relation set a live read subscribes to.
	ObservesRelations []string
	// AffectsRelations is the relation set a raw write announces.
	AffectsRelations []string
}

// Validate checks that the raw query carries a statement.
func (q RawQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Statement, validation.Required),
		validation.Field(&q.ObservesRelations, validation.Each(validation.Required)),
		validation.Field(&q.AffectsRelations, validation.Each(validation.Required)),
	)
}

// ObservedRelations returns the deduplicated observed relation set.
func (q RawQuery) ObservedRelations() []string {
	return NormalizeRelations(q.ObservesRelations)
}

// InsertQuery names the relation an insert targets.
type InsertQuery struct {
	Relation string
}

// UpdateQuery selects the rows of Relation that an update rewrites.
type UpdateQuery struct {
	Relation  string
	Where     string
	WhereArgs []any
}

// DeleteQuery selects the rows of Relation that a delete removes.
// An empty Where deletes every row.
type DeleteQuery struct {
	Relation  string
	Where     string
	WhereArgs []any
}

// Validate checks that the delete names a relation.
func (q DeleteQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Relation, validation.Required),
	)
}

// InsertResult is what the storage collaborator reports for an insert.
type InsertResult struct {
	// ID is the identifier of the inserted row, as a string.
	ID string
}

// PutKind tells whether a put inserted a new row or updated existing ones.
type PutKind int

const (
	PutInserted PutKind = iota + 1
	PutUpdated
)

func (k PutKind) String() string {
	switch k {
	case PutInserted:
		return "inserted"
	case PutUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// PutResult records the outcome of a single put.
type PutResult struct {
	Kind PutKind
	// InsertedID is set when Kind is PutInserted.
	InsertedID string
	// RowsUpdated is set when Kind is PutUpdated.
	RowsUpdated int64
	// AffectedRelations drive change notifications.
	AffectedRelations []string
	AffectedIDs       []string
}

// NewInsertResult builds a PutResult for an insert into relation.
func NewInsertResult(relation, id string) PutResult {
	res := PutResult{Kind: PutInserted, InsertedID: id, AffectedRelations: []string{relation}}
	if id != "" {
		res.AffectedIDs = []string{id}
	}
	return res
}

// NewUpdateResult builds a PutResult for an update of relation.
func NewUpdateResult(relation string, rows int64, ids ...string) PutResult {
	return PutResult{Kind: PutUpdated, RowsUpdated: rows, AffectedRelations: []string{relation}, AffectedIDs: ids}
}

// WasInserted reports whether the put created a new row.
func (r PutResult) WasInserted() bool { return r.Kind == PutInserted }

// WasUpdated reports whether the put modified existing rows.
func (r PutResult) WasUpdated() bool { return r.Kind == PutUpdated }

// DeleteResult records the outcome of a single delete.
type DeleteResult struct {
	RowsDeleted       int64
	AffectedRelations []string
	AffectedIDs       []string
}

// NewDeleteResult builds a DeleteResult for relation.
func NewDeleteResult(relation string, rows int64, ids ...string) DeleteResult {
	return DeleteResult{RowsDeleted: rows, AffectedRelations: []string{relation}, AffectedIDs: ids}
}

// Changes announces that one or more relations changed.
type Changes struct {
	// Relations is never empty for a published event.
	Relations []string
	// AffectedIDs is optional.
	AffectedIDs []string
	At          strfmt.DateTime
}

// NewChanges builds a Changes event stamped with the current time.
func NewChanges(relations []string, ids ...string) Changes {
	return Changes{
		Relations:   NormalizeRelations(relations),
		AffectedIDs: ids,
		At:          strfmt.DateTime(time.Now()),
	}
}

// Touches reports whether the event names any relation in set.
func (c Changes) Touches(set map[string]struct{}) bool {
	for _, r := range c.Relations {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// Merge folds other into c, keeping relations deduplicated.
func (c Changes) Merge(other Changes) Changes {
	rels := append(append([]string{}, c.Relations...), other.Relations...)
	ids := append(append([]string{}, c.AffectedIDs...), other.AffectedIDs...)
	at := c.At
	if time.Time(other.At).After(time.Time(at)) {
		at = other.At
	}
	return Changes{Relations: NormalizeRelations(rels), AffectedIDs: ids, At: at}
}

// NormalizeRelations drops blanks and duplicates and sorts the result.
func NormalizeRelations(relations []string) []string {
	if len(relations) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(relations))
	out := make([]string, 0, len(relations))
	for _, r := range relations {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
