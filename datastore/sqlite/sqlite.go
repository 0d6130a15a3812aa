/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
	msqlite "modernc.org/sqlite"
)

// Extended result codes for unique violations.
const (
	codeConstraintPrimaryKey = 1555
	codeConstraintUnique     = 2067
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store implements datastore.DataStore on SQLite.
type Store struct {
	db        *sql.DB
	keyColumn string
}

// Open opens the SQLite database at path. ":memory:" opens a private
// in-memory database restricted to one connection.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return New(db), nil
}

// New wraps an already opened database.
func New(db *sql.DB) *Store {
	return &Store{db: db, keyColumn: "id"}
}

// WithKeyColumn sets the column reported as the inserted row identifier.
func (s *Store) WithKeyColumn(column string) *Store {
	s.keyColumn = column
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate executes schema, typically a series of CREATE TABLE IF NOT EXISTS statements.
func (s *Store) Migrate(ctx context.Context, schema string) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query builds and runs a SELECT for q.
func (s *Store) Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error) {
	stmt, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, stmt, q.WhereArgs)
}

// RawQuery runs q.Statement verbatim.
func (s *Store) RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	return s.query(ctx, q.Statement, q.Args)
}

func (s *Store) query(ctx context.Context, stmt string, args []any) (storagemodels.Cursor, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []storagemodels.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(storagemodels.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return storagemodels.NewRowsCursor(columns, out), nil
}

// Insert adds row to q.Relation. The returned ID is the key column value when
// present, otherwise the rowid SQLite assigned.
func (s *Store) Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error) {
	if err := checkIdent(q.Relation); err != nil {
		return storagemodels.InsertResult{}, err
	}

	cols := sortedColumns(row)
	var stmt string
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(q.Relation))
	} else {
		quoted := make([]string, 0, len(cols))
		for _, c := range cols {
			if err := checkIdent(c); err != nil {
				return storagemodels.InsertResult{}, err
			}
			quoted = append(quoted, quote(c))
			args = append(args, row[c])
		}
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(q.Relation), strings.Join(quoted, ", "), placeholders(len(cols)))
	}

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return storagemodels.InsertResult{}, errors.NewAlreadyExistsError(q.Relation, fmt.Sprint(row[s.keyColumn]))
		}
		return storagemodels.InsertResult{}, fmt.Errorf("insert failed: %w", err)
	}

	if v, ok := row[s.keyColumn]; ok && v != nil {
		return storagemodels.InsertResult{ID: fmt.Sprint(v)}, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storagemodels.InsertResult{}, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return storagemodels.InsertResult{ID: strconv.FormatInt(id, 10)}, nil
}

// Update sets the columns of row on every row matching q.
func (s *Store) Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error) {
	if err := checkIdent(q.Relation); err != nil {
		return 0, err
	}
	cols := sortedColumns(row)
	if len(cols) == 0 {
		return 0, errors.NewValidationError("row", "update requires at least one column")
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+len(q.WhereArgs))
	for _, c := range cols {
		if err := checkIdent(c); err != nil {
			return 0, err
		}
		sets = append(sets, quote(c)+" = ?")
		args = append(args, row[c])
	}
	args = append(args, q.WhereArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s", quote(q.Relation), strings.Join(sets, ", "))
	if q.Where != "" {
		stmt += " WHERE " + q.Where
	}

	return s.exec(ctx, "update", stmt, args)
}

// Delete removes every row matching q.
func (s *Store) Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error) {
	if err := checkIdent(q.Relation); err != nil {
		return 0, err
	}
	stmt := "DELETE FROM " + quote(q.Relation)
	if q.Where != "" {
		stmt += " WHERE " + q.Where
	}
	return s.exec(ctx, "delete", stmt, q.WhereArgs)
}

// Exec runs q.Statement verbatim.
func (s *Store) Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error) {
	return s.exec(ctx, "exec", q.Statement, q.Args)
}

func (s *Store) exec(ctx context.Context, op, stmt string, args []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func buildSelect(q storagemodels.Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", errors.NewValidationError("query", err.Error())
	}
	if err := checkIdent(q.Relation); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		cols := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			if identPattern.MatchString(c) {
				cols = append(cols, quote(c))
			} else {
				cols = append(cols, c)
			}
		}
		b.WriteString(strings.Join(cols, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(quote(q.Relation))

	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if q.GroupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(q.GroupBy)
	}
	if q.Having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(q.Having)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
		if q.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", q.Offset)
		}
	} else if q.Offset > 0 {
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", q.Offset)
	}
	return b.String(), nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return errors.NewValidationError("identifier", fmt.Sprintf("invalid identifier %q", name))
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedColumns(row storagemodels.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Code() == codeConstraintPrimaryKey || se.Code() == codeConstraintUnique
}
