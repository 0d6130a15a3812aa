/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides mock implementations of the DataStore interface for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

// Call records one invocation of the mock
type Call struct {
	Op       string
	Relation string
}

// DataStore is an in-memory implementation of datastore.DataStore for testing.
// Rows are kept per relation in insertion order.
type DataStore struct {
	mu        sync.RWMutex
	data      map[string][]storagemodels.Row
	calls     []Call
	nextID    int64
	keyColumn string

	queryFunc   func(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error)
	rawFunc     func(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error)
	queryError  error
	insertError error
	updateError error
	deleteError error
	execError   error
}

// New creates a new mock DataStore
func New() *DataStore {
	return &DataStore{
		data:      make(map[string][]storagemodels.Row),
		keyColumn: "id",
	}
}

// WithKeyColumn sets the column used as row identifier (default "id")
func (m *DataStore) WithKeyColumn(column string) *DataStore {
	m.keyColumn = column
	return m
}

// WithQueryFunc sets a custom query function for testing
func (m *DataStore) WithQueryFunc(f func(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error)) *DataStore {
	m.queryFunc = f
	return m
}

// WithRawQueryFunc sets a custom raw query function for testing
func (m *DataStore) WithRawQueryFunc(f func(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error)) *DataStore {
	m.rawFunc = f
	return m
}

// WithQueryError makes Query and RawQuery return an error
func (m *DataStore) WithQueryError(err error) *DataStore {
	m.mu.Lock()
	m.queryError = err
	m.mu.Unlock()
	return m
}

// WithInsertError makes Insert operations return an error
func (m *DataStore) WithInsertError(err error) *DataStore {
	m.mu.Lock()
	m.insertError = err
	m.mu.Unlock()
	return m
}

// WithUpdateError makes Update operations return an error
func (m *DataStore) WithUpdateError(err error) *DataStore {
	m.mu.Lock()
	m.updateError = err
	m.mu.Unlock()
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore) WithDeleteError(err error) *DataStore {
	m.mu.Lock()
	m.deleteError = err
	m.mu.Unlock()
	return m
}

// WithExecError makes Exec operations return an error
func (m *DataStore) WithExecError(err error) *DataStore {
	m.mu.Lock()
	m.execError = err
	m.mu.Unlock()
	return m
}

// Query returns the rows of q.Relation matching q.Where
func (m *DataStore) Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error) {
	m.record("query", q.Relation)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, q)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queryError != nil {
		return nil, m.queryError
	}

	pred, err := parseWhere(q.Where, q.WhereArgs)
	if err != nil {
		return nil, err
	}

	var rows []storagemodels.Row
	for _, row := range m.data[q.Relation] {
		if pred.match(row) {
			rows = append(rows, project(row, q.Columns))
		}
	}

	if q.OrderBy != "" {
		sortRows(rows, q.OrderBy)
	}
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	return storagemodels.NewRowsCursor(q.Columns, rows), nil
}

// RawQuery is only supported through WithRawQueryFunc; otherwise it returns
// every row of the first observed relation.
func (m *DataStore) RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	relation := ""
	if len(q.ObservesRelations) > 0 {
		relation = q.ObservesRelations[0]
	}
	m.record("raw_query", relation)
	if m.rawFunc != nil {
		return m.rawFunc(ctx, q)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.queryError != nil {
		return nil, m.queryError
	}
	rows := make([]storagemodels.Row, 0, len(m.data[relation]))
	for _, row := range m.data[relation] {
		rows = append(rows, row.Clone())
	}
	return storagemodels.NewRowsCursor(nil, rows), nil
}

// Insert appends row to q.Relation, assigning an id when the key column is absent
func (m *DataStore) Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error) {
	m.record("insert", q.Relation)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertError != nil {
		return storagemodels.InsertResult{}, m.insertError
	}

	stored := row.Clone()
	key, ok := stored[m.keyColumn]
	if !ok || key == nil {
		m.nextID++
		key = m.nextID
		stored[m.keyColumn] = key
	}
	id := fmt.Sprint(key)

	for _, existing := range m.data[q.Relation] {
		if fmt.Sprint(existing[m.keyColumn]) == id {
			return storagemodels.InsertResult{}, errors.NewAlreadyExistsError(q.Relation, id)
		}
	}

	m.data[q.Relation] = append(m.data[q.Relation], stored)
	return storagemodels.InsertResult{ID: id}, nil
}

// Update merges row into every matching row
func (m *DataStore) Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error) {
	m.record("update", q.Relation)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateError != nil {
		return 0, m.updateError
	}

	pred, err := parseWhere(q.Where, q.WhereArgs)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, existing := range m.data[q.Relation] {
		if !pred.match(existing) {
			continue
		}
		for k, v := range row {
			existing[k] = v
		}
		n++
	}
	return n, nil
}

// Delete removes every matching row
func (m *DataStore) Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error) {
	m.record("delete", q.Relation)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteError != nil {
		return 0, m.deleteError
	}

	pred, err := parseWhere(q.Where, q.WhereArgs)
	if err != nil {
		return 0, err
	}

	kept := m.data[q.Relation][:0]
	var n int64
	for _, existing := range m.data[q.Relation] {
		if pred.match(existing) {
			n++
			continue
		}
		kept = append(kept, existing)
	}
	m.data[q.Relation] = kept
	return n, nil
}

// Exec records the call and reports zero affected rows
func (m *DataStore) Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error) {
	relation := ""
	if len(q.AffectsRelations) > 0 {
		relation = q.AffectsRelations[0]
	}
	m.record("exec", relation)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.execError != nil {
		return 0, m.execError
	}
	return 0, nil
}

// Helper methods for testing

// SetRows directly sets the rows of relation (for testing)
func (m *DataStore) SetRows(relation string, rows []storagemodels.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]storagemodels.Row, 0, len(rows))
	for _, r := range rows {
		copied = append(copied, r.Clone())
	}
	m.data[relation] = copied
}

// Rows returns a copy of the rows of relation (for testing)
func (m *DataStore) Rows(relation string) []storagemodels.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]storagemodels.Row, 0, len(m.data[relation]))
	for _, r := range m.data[relation] {
		out = append(out, r.Clone())
	}
	return out
}

// Count returns the number of rows in relation
func (m *DataStore) Count(relation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[relation])
}

// Calls returns every recorded invocation in order
func (m *DataStore) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of recorded invocations of op, or of all ops when op is empty
func (m *DataStore) CallCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if op == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Clear removes all data and recorded calls
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]storagemodels.Row)
	m.calls = nil
}

func (m *DataStore) record(op, relation string) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Relation: relation})
	m.mu.Unlock()
}

func project(row storagemodels.Row, columns []string) storagemodels.Row {
	if len(columns) == 0 {
		return row.Clone()
	}
	out := make(storagemodels.Row, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func sortRows(rows []storagemodels.Row, orderBy string) {
	fields := strings.Fields(orderBy)
	col := fields[0]
	desc := len(fields) > 1 && strings.EqualFold(fields[1], "desc")
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][col], rows[j][col])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// predicate is a conjunction of "column op ?" terms
type predicate []term

type term struct {
	column string
	op     string
	value  any
}

var operators = []string{"<=", ">=", "!=", "<>", "=", "<", ">"}

func parseWhere(where string, args []any) (predicate, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return nil, nil
	}

	parts := splitAnd(where)
	if strings.Count(where, "?") != len(args) {
		return nil, errors.NewValidationError("where", fmt.Sprintf("%d placeholders but %d args", strings.Count(where, "?"), len(args)))
	}

	pred := make(predicate, 0, len(parts))
	argIdx := 0
	for _, part := range parts {
		var t term
		found := false
		for _, op := range operators {
			if i := strings.Index(part, op); i > 0 {
				t.column = strings.TrimSpace(part[:i])
				t.op = op
				rhs := strings.TrimSpace(part[i+len(op):])
				if rhs != "?" {
					return nil, errors.NewValidationError("where", fmt.Sprintf("unsupported term %q", part))
				}
				t.value = args[argIdx]
				argIdx++
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewValidationError("where", fmt.Sprintf("unsupported term %q", part))
		}
		pred = append(pred, t)
	}
	return pred, nil
}

func splitAnd(where string) []string {
	fields := strings.Fields(where)
	var parts []string
	var cur []string
	for _, f := range fields {
		if strings.EqualFold(f, "and") {
			parts = append(parts, strings.Join(cur, " "))
			cur = nil
			continue
		}
		cur = append(cur, f)
	}
	return append(parts, strings.Join(cur, " "))
}

func (p predicate) match(row storagemodels.Row) bool {
	for _, t := range p {
		v, ok := row[t.column]
		if !ok {
			return false
		}
		c := compare(v, t.value)
		switch t.op {
		case "=":
			if c != 0 {
				return false
			}
		case "!=", "<>":
			if c == 0 {
				return false
			}
		case "<":
			if c >= 0 {
				return false
			}
		case ">":
			if c <= 0 {
				return false
			}
		case "<=":
			if c > 0 {
				return false
			}
		case ">=":
			if c < 0 {
				return false
			}
		}
	}
	return true
}

// compare orders numbers numerically and everything else by its string form
func compare(a, b any) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(as, bs)
}
