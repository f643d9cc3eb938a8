package user

import (
	"fmt"
	"math"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Row is a record of a Table: one effective type and one value per column.
//
// A fresh row (from NewRow) tracks which columns were explicitly set and
// writes only those. A materialized row was read from storage, or has been
// inserted, and writes every non primary key column.
type Row struct {
	table        *Table
	types        []ValueType
	values       []any
	set          []bool
	materialized bool
}

// NewRow returns an empty row for t.
func NewRow(t *Table) *Row {
	n := len(t.columns)
	return &Row{
		table:  t,
		types:  make([]ValueType, n),
		values: make([]any, n),
		set:    make([]bool, n),
	}
}

// newMaterializedRow adopts values read from storage.
func newMaterializedRow(t *Table, types []ValueType, values []any) *Row {
	return &Row{
		table:        t,
		types:        types,
		values:       values,
		set:          make([]bool, len(values)),
		materialized: true,
	}
}

// Table returns the table the row belongs to.
func (r *Row) Table() *Table { return r.table }

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.values) }

// Value returns the value at column index i.
func (r *Row) Value(i int) any { return r.values[i] }

// Cell returns the value at column index i as a tagged Value.
func (r *Row) Cell(i int) Value { return ValueOf(r.values[i]) }

// ValueByName returns the value of the named column.
func (r *Row) ValueByName(name string) (any, error) {
	i, err := r.table.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.values[i], nil
}

// Type returns the effective type of the value at i.
func (r *Row) Type(i int) ValueType { return r.types[i] }

// SetValue sets column i, coercing v by the column's declared type.
func (r *Row) SetValue(i int, v any) error {
	col := r.table.ColumnAt(i)
	n, err := normalize(col.dataType, v)
	if err != nil {
		return gerrors.Wrapf(err, "column %s", col.name)
	}
	if err := col.checkLength(n); err != nil {
		return err
	}
	r.values[i] = n
	r.types[i] = TypeOf(n)
	r.set[i] = true
	return nil
}

// SetValueByName sets the named column.
func (r *Row) SetValueByName(name string, v any) error {
	i, err := r.table.ColumnIndex(name)
	if err != nil {
		return err
	}
	return r.SetValue(i, v)
}

// IsSet reports whether column i was explicitly set on a fresh row.
func (r *Row) IsSet(i int) bool { return r.set[i] }

// IsEmpty reports whether the row is fresh, with no stored identity.
func (r *Row) IsEmpty() bool { return !r.materialized }

// ID returns the primary key value as an integer.
func (r *Row) ID() (int64, error) {
	if !r.table.HasPK() {
		return 0, gerrors.NewNoPrimaryKey(r.table.name, "")
	}
	switch v := r.values[r.table.pkIndex].(type) {
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, gerrors.NewNoPrimaryKey(r.table.name, "value is not finite")
		}
		return int64(v), nil
	case nil:
		return 0, gerrors.NewNoPrimaryKey(r.table.name, "value is null")
	default:
		return 0, gerrors.NewNoPrimaryKey(r.table.name, fmt.Sprintf("value is %s", TypeOf(v)))
	}
}

// SetID sets the primary key value and marks the row materialized.
func (r *Row) SetID(id int64) error {
	if !r.table.HasPK() {
		return gerrors.NewNoPrimaryKey(r.table.name, "")
	}
	r.values[r.table.pkIndex] = id
	r.types[r.table.pkIndex] = ValueInteger
	r.materialized = true
	return nil
}

// ToContentValues returns the write set of the row: the explicitly set
// columns of a fresh row, or every non primary key column of a
// materialized row.
func (r *Row) ToContentValues() ContentValues {
	cv := make(ContentValues, len(r.values))
	for i, c := range r.table.columns {
		if r.materialized {
			if c.primaryKey {
				continue
			}
		} else if !r.set[i] {
			continue
		}
		cv[c.name] = r.values[i]
	}
	return cv
}

// Copy returns a deep copy of the row.
func (r *Row) Copy() *Row {
	cp := &Row{
		table:        r.table,
		types:        append([]ValueType(nil), r.types...),
		values:       make([]any, len(r.values)),
		set:          append([]bool(nil), r.set...),
		materialized: r.materialized,
	}
	for i, v := range r.values {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		cp.values[i] = v
	}
	return cp
}
