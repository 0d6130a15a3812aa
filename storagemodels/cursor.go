/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// Cursor is a forward-only view over a result set.
type Cursor interface {
	// Next advances to the next row and reports whether one exists.
	Next() bool
	// Row returns the current row. Only valid after Next returned true.
	Row() Row
	Columns() []string
	// Len is the total number of rows in the result set.
	Len() int
	Err() error
	Close() error
}

// RowsCursor is a Cursor over rows held in memory.
type RowsCursor struct {
	columns []string
	rows    []Row
	pos     int
	closed  bool
}

// NewRowsCursor returns a cursor positioned before the first row.
func NewRowsCursor(columns []string, rows []Row) *RowsCursor {
	return &RowsCursor{columns: columns, rows: rows, pos: -1}
}

func (c *RowsCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *RowsCursor) Row() Row {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

func (c *RowsCursor) Columns() []string { return c.columns }

func (c *RowsCursor) Len() int { return len(c.rows) }

func (c *RowsCursor) Err() error { return nil }

func (c *RowsCursor) Close() error {
	c.closed = true
	return nil
}

// Rows returns every row of the cursor without advancing it.
func (c *RowsCursor) Rows() []Row { return c.rows }

// CollectRows drains cur into a slice and closes it.
func CollectRows(cur Cursor) ([]Row, error) {
	defer cur.Close()
	rows := make([]Row, 0, cur.Len())
	for cur.Next() {
		rows = append(rows, cur.Row())
	}
	return rows, cur.Err()
}
