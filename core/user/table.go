package user

import (
	"fmt"
	"sort"
	"strings"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Table is the ordered column list of one user table plus the rules of its
// kind. Tables are immutable once constructed.
type Table struct {
	spec          TableSpec
	name          string
	columns       []*Column
	nameIndex     map[string]int
	pkIndex       int
	geometryIndex int
	required      map[string]int
}

func lower(s string) string { return strings.ToLower(s) }

// NewTable builds a table from columns, binding any unbound column to its
// position in the list. Pre-bound columns are ordered by their index; the
// resulting indices must be exactly 0..n-1. When construction fails the
// columns bound here are left unbound again.
func NewTable(spec TableSpec, name string, columns []*Column) (*Table, error) {
	if spec == nil {
		spec = CustomSpec{}
	}
	if name == "" {
		return nil, gerrors.NewSchema("", "", "table name is required")
	}
	if len(columns) == 0 {
		return nil, gerrors.NewSchema(name, "", "table requires at least one column")
	}

	var bound []*Column
	release := func() {
		for _, c := range bound {
			c.index = unbound
		}
	}
	for i, c := range columns {
		if !c.IsBound() {
			if err := c.SetIndex(i); err != nil {
				release()
				return nil, err
			}
			bound = append(bound, c)
		}
	}

	t, err := buildTable(spec, name, columns)
	if err != nil {
		release()
		return nil, err
	}
	return t, nil
}

// buildTable validates bound columns and assembles the table.
func buildTable(spec TableSpec, name string, columns []*Column) (*Table, error) {
	ordered := make([]*Column, len(columns))
	copy(ordered, columns)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].index < ordered[b].index })

	t := &Table{
		spec:          spec,
		name:          name,
		columns:       ordered,
		nameIndex:     make(map[string]int, len(ordered)),
		pkIndex:       -1,
		geometryIndex: -1,
	}

	for i, c := range ordered {
		if c.index != i {
			return nil, gerrors.NewSchema(name, c.name,
				fmt.Sprintf("column index %d out of sequence, expected %d", c.index, i))
		}
		key := lower(c.name)
		if _, dup := t.nameIndex[key]; dup {
			return nil, gerrors.NewSchema(name, c.name, "duplicate column name")
		}
		t.nameIndex[key] = i

		if c.primaryKey {
			if t.pkIndex >= 0 {
				return nil, gerrors.NewSchema(name, c.name, "more than one primary key column")
			}
			t.pkIndex = i
		}
	}

	required, err := RequiredColumnsCheck(name, ordered, spec.Requirements())
	if err != nil {
		return nil, err
	}
	t.required = required

	if err := spec.Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Kind returns the table kind.
func (t *Table) Kind() Kind { return t.spec.Kind() }

// Spec returns the kind rules the table was built with.
func (t *Table) Spec() TableSpec { return t.spec }

// Column looks up a column by name, case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.nameIndex[lower(name)]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the column at index. It panics when out of range.
func (t *Table) ColumnAt(index int) *Column {
	if index < 0 || index >= len(t.columns) {
		panic(fmt.Sprintf("user: column index %d out of range for table %s with %d columns",
			index, t.name, len(t.columns)))
	}
	return t.columns[index]
}

// ColumnIndex returns the index of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	i, ok := t.nameIndex[lower(name)]
	if !ok {
		return -1, gerrors.NewSchema(t.name, name, "no such column")
	}
	return i, nil
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.nameIndex[lower(name)]
	return ok
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// HasPK reports whether the table has a primary key column.
func (t *Table) HasPK() bool { return t.pkIndex >= 0 }

// PKIndex returns the primary key index, or -1.
func (t *Table) PKIndex() int { return t.pkIndex }

// PKColumn returns the primary key column.
func (t *Table) PKColumn() (*Column, error) {
	if t.pkIndex < 0 {
		return nil, gerrors.NewNoPrimaryKey(t.name, "")
	}
	return t.columns[t.pkIndex], nil
}

// GeometryColumn returns the geometry column of a feature table.
func (t *Table) GeometryColumn() (*Column, bool) {
	if t.geometryIndex < 0 {
		return nil, false
	}
	return t.columns[t.geometryIndex], true
}

// RequiredIndex returns the index of a kind-required column.
func (t *Table) RequiredIndex(name string) (int, bool) {
	i, ok := t.required[lower(name)]
	return i, ok
}

// CreateSQL returns the CREATE TABLE statement for the table.
func (t *Table) CreateSQL() string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = c.Definition()
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(Quote(t.name))
	b.WriteString(" (")
	b.WriteString(strings.Join(defs, ", "))
	if t.Kind() == KindTile {
		b.WriteString(", UNIQUE (")
		b.WriteString(QuoteList([]string{ZoomLevelColumn, TileColumnColumn, TileRowColumn}))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}
