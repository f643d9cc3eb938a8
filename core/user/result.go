package user

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Result is a forward-only cursor over the rows of a query. Every Result
// must be closed.
//
// Typed getters choose their conversion from the effective type of the
// fetched value, never from the declared type of the column.
type Result struct {
	conn    *Connection
	table   *Table
	sql     string
	args    []any
	rows    *sql.Rows
	names   []string
	columns []*Column // table column per projected column, nil when not a table column
	current []any
	pos     int
	count   int64
	closed  bool
	err     error
}

func (r *Result) open(ctx context.Context) error {
	rows, err := r.conn.rows(ctx, r.sql, r.args)
	if err != nil {
		return err
	}
	names, err := rows.Columns()
	if err != nil {
		return gerrors.Cleanup(gerrors.NewStorageIO("query", tableName(r.table), err), closeRows(rows))
	}

	r.rows = rows
	r.names = names
	r.columns = make([]*Column, len(names))
	if r.table != nil {
		for i, n := range names {
			if c, ok := r.table.Column(n); ok {
				r.columns[i] = c
			}
		}
	}
	r.current = make([]any, len(names))
	r.pos = -1
	r.closed = false
	r.err = nil
	return nil
}

func tableName(t *Table) string {
	if t == nil {
		return ""
	}
	return t.name
}

// Table returns the table the cursor reads.
func (r *Result) Table() *Table { return r.table }

// SQL returns the originating statement.
func (r *Result) SQL() string { return r.sql }

// Args returns the originating statement arguments.
func (r *Result) Args() []any { return r.args }

// ColumnNames returns the projected column names.
func (r *Result) ColumnNames() []string { return append([]string(nil), r.names...) }

// ColumnCount returns the number of projected columns.
func (r *Result) ColumnCount() int { return len(r.names) }

// ColumnIndex returns the projected position of a column, or -1.
func (r *Result) ColumnIndex(name string) int {
	for i, n := range r.names {
		if lower(n) == lower(name) {
			return i
		}
	}
	return -1
}

// Position returns the 0-based index of the current row, -1 before the first.
func (r *Result) Position() int { return r.pos }

// Next advances to the next row.
func (r *Result) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = gerrors.NewStorageIO("read", tableName(r.table), err)
		}
		return false
	}

	ptrs := make([]any, len(r.current))
	for i := range r.current {
		r.current[i] = nil
		ptrs[i] = &r.current[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = gerrors.NewStorageIO("scan", tableName(r.table), err)
		return false
	}
	for i, v := range r.current {
		r.current[i] = readValue(r.columns[i], v)
	}
	r.pos++
	return true
}

// Err returns the error that stopped iteration, if any.
func (r *Result) Err() error { return r.err }

// Value returns the value at projected position i.
func (r *Result) Value(i int) any { return r.current[i] }

// ValueByName returns the value of the named projected column.
func (r *Result) ValueByName(name string) (any, error) {
	i := r.ColumnIndex(name)
	if i < 0 {
		return nil, gerrors.NewSchema(tableName(r.table), name, "column not in result")
	}
	return r.current[i], nil
}

// Type returns the effective type of the value at i.
func (r *Result) Type(i int) ValueType { return TypeOf(r.current[i]) }

// IsNull reports whether the value at i is NULL.
func (r *Result) IsNull(i int) bool { return r.current[i] == nil }

// Int returns the value at i as an integer.
func (r *Result) Int(i int) int64 {
	return toInt(r.current[i])
}

// Float returns the value at i as a float.
func (r *Result) Float(i int) float64 {
	return toFloat(r.current[i])
}

// Text returns the value at i as text.
func (r *Result) Text(i int) string {
	switch r.Type(i) {
	case ValueNull:
		return ""
	case ValueInteger:
		return strconv.FormatInt(toInt(r.current[i]), 10)
	case ValueFloat:
		return strconv.FormatFloat(toFloat(r.current[i]), 'g', -1, 64)
	case ValueText:
		return r.current[i].(string)
	default:
		if b, ok := r.current[i].([]byte); ok {
			return string(b)
		}
		return fmt.Sprint(r.current[i])
	}
}

// Blob returns the value at i as bytes.
func (r *Result) Blob(i int) []byte {
	switch v := r.current[i].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// Row materializes the current row. Projected columns that belong to the
// table are placed at their table index; the rest of the row is NULL.
func (r *Result) Row() (*Row, error) {
	if r.table == nil {
		return nil, gerrors.NewSchema("", "", "result is not bound to a table")
	}
	if r.pos < 0 {
		return nil, gerrors.NewValidation("cursor", "no current row")
	}
	n := len(r.table.columns)
	types := make([]ValueType, n)
	values := make([]any, n)
	for i, c := range r.columns {
		if c == nil {
			continue
		}
		v := r.current[i]
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		values[c.index] = v
		types[c.index] = TypeOf(v)
	}
	return newMaterializedRow(r.table, types, values), nil
}

// ID returns the primary key of the current row.
func (r *Result) ID() (int64, error) {
	if r.table == nil || !r.table.HasPK() {
		return 0, gerrors.NewNoPrimaryKey(tableName(r.table), "")
	}
	pk := r.table.columns[r.table.pkIndex]
	for i, c := range r.columns {
		if c == pk {
			if r.current[i] == nil {
				return 0, gerrors.NewNoPrimaryKey(r.table.name, "value is null")
			}
			return r.Int(i), nil
		}
	}
	return 0, gerrors.NewNoPrimaryKey(r.table.name, "primary key not projected")
}

// Count returns the number of rows the statement produces. It is computed
// once by a count(*) rewrite of the statement, bounded by any LIMIT and
// OFFSET; -1 means the count is unknown.
func (r *Result) Count(ctx context.Context) (int64, error) {
	if r.count >= 0 {
		return r.count, nil
	}
	countSQL, ok := CountSQL(r.sql)
	if !ok {
		return -1, nil
	}
	total, err := r.conn.QueryInt(ctx, countSQL, r.args...)
	if err != nil {
		return -1, err
	}
	if l, ok := ParseLimit(r.sql); ok && countSQL != trimStatement(r.sql) {
		total -= l.Offset
		if total < 0 {
			total = 0
		}
		if total > l.Count {
			total = l.Count
		}
	}
	r.count = total
	return total, nil
}

// MoveToFirst re-issues the statement, leaving the cursor before the
// first row.
func (r *Result) MoveToFirst(ctx context.Context) error {
	if err := r.Close(); err != nil {
		return err
	}
	return r.open(ctx)
}

// MoveToPosition advances so that row n (0-based) is current, by
// discarding rows. The cursor cannot move backward.
func (r *Result) MoveToPosition(n int) bool {
	if n < r.pos {
		return false
	}
	for r.pos < n {
		if !r.Next() {
			return false
		}
	}
	return true
}

// Close closes the cursor. Closing twice is a no-op.
func (r *Result) Close() error {
	if r.closed || r.rows == nil {
		return nil
	}
	r.closed = true
	return gerrors.NewStorageIO("close cursor", tableName(r.table), r.rows.Close())
}
