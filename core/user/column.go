package user

import (
	"fmt"
	"strconv"
	"strings"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// unbound marks a column that has not been placed in a table yet.
const unbound = -1

// Column describes one column of a user table. A column's index is
// assigned once, when the column is placed in a Table, and never changes.
type Column struct {
	index         int
	name          string
	dataType      DataType
	typeName      string // declared name for geometry subtypes
	max           *int64
	notNull       bool
	defaultValue  any
	primaryKey    bool
	autoincrement bool
}

// ColumnOption configures a Column at construction.
type ColumnOption func(*Column)

// NotNull marks the column NOT NULL.
func NotNull() ColumnOption {
	return func(c *Column) { c.notNull = true }
}

// Default sets the column default value.
func Default(v any) ColumnOption {
	return func(c *Column) { c.defaultValue = v }
}

// Max sets the maximum length of a TEXT or BLOB column.
func Max(n int64) ColumnOption {
	return func(c *Column) { c.max = &n }
}

// PrimaryKey marks the column as the integer primary key.
func PrimaryKey() ColumnOption {
	return func(c *Column) {
		c.primaryKey = true
		c.autoincrement = true
		c.notNull = true
	}
}

// AtIndex pre-binds the column index. Used by the table reader, which
// learns ordinals from the catalog.
func AtIndex(i int) ColumnOption {
	return func(c *Column) { c.index = i }
}

// GeometryType sets the declared geometry type name (POINT, POLYGON, ...).
func GeometryType(name string) ColumnOption {
	return func(c *Column) { c.typeName = strings.ToUpper(name) }
}

// NewColumn creates an unbound column.
func NewColumn(name string, dt DataType, opts ...ColumnOption) *Column {
	c := &Column{index: unbound, name: name, dataType: dt}
	for _, opt := range opts {
		opt(c)
	}
	if dt == DataTypeGeometry && c.typeName == "" {
		c.typeName = "GEOMETRY"
	}
	return c
}

// NewPKColumn creates an INTEGER PRIMARY KEY AUTOINCREMENT column.
func NewPKColumn(name string) *Column {
	return NewColumn(name, DataTypeInteger, PrimaryKey())
}

// NewGeometryColumn creates a geometry column of the given geometry type.
func NewGeometryColumn(name, geometryType string, opts ...ColumnOption) *Column {
	return NewColumn(name, DataTypeGeometry, append([]ColumnOption{GeometryType(geometryType)}, opts...)...)
}

// Index returns the column ordinal, or -1 if unbound.
func (c *Column) Index() int { return c.index }

// IsBound reports whether the column has been placed in a table.
func (c *Column) IsBound() bool { return c.index != unbound }

// SetIndex binds the column to an ordinal. Rebinding to a different
// ordinal fails.
func (c *Column) SetIndex(i int) error {
	if i < 0 {
		return gerrors.NewSchema("", c.name, fmt.Sprintf("invalid column index %d", i))
	}
	if c.index != unbound && c.index != i {
		return gerrors.NewSchema("", c.name,
			fmt.Sprintf("column index already set to %d, cannot change to %d", c.index, i))
	}
	c.index = i
	return nil
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// DataType returns the declared semantic type.
func (c *Column) DataType() DataType { return c.dataType }

// Max returns the declared maximum length.
func (c *Column) Max() (int64, bool) {
	if c.max == nil {
		return 0, false
	}
	return *c.max, true
}

// NotNull reports whether the column is NOT NULL.
func (c *Column) NotNull() bool { return c.notNull }

// DefaultValue returns the column default, or nil.
func (c *Column) DefaultValue() any { return c.defaultValue }

// IsPrimaryKey reports whether the column is the primary key.
func (c *Column) IsPrimaryKey() bool { return c.primaryKey }

// IsGeometry reports whether the column holds geometry blobs.
func (c *Column) IsGeometry() bool { return c.dataType == DataTypeGeometry }

// TypeName returns the declared type as it appears in DDL.
func (c *Column) TypeName() string {
	name := c.dataType.String()
	if c.dataType == DataTypeGeometry {
		name = c.typeName
	}
	if c.max != nil {
		name += "(" + strconv.FormatInt(*c.max, 10) + ")"
	}
	return name
}

// Copy returns an unbound copy of the column.
func (c *Column) Copy() *Column {
	cp := *c
	cp.index = unbound
	if c.max != nil {
		m := *c.max
		cp.max = &m
	}
	return &cp
}

// Definition returns the column definition for CREATE TABLE.
func (c *Column) Definition() string {
	var b strings.Builder
	b.WriteString(Quote(c.name))
	b.WriteByte(' ')
	b.WriteString(c.TypeName())
	if c.primaryKey {
		b.WriteString(" PRIMARY KEY")
		if c.autoincrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if c.notNull {
		b.WriteString(" NOT NULL")
	}
	if c.defaultValue != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(literal(c.defaultValue))
	}
	return b.String()
}

// checkLength enforces the declared maximum on text and blob values.
func (c *Column) checkLength(v any) error {
	if c.max == nil {
		return nil
	}
	var n int
	switch x := v.(type) {
	case string:
		n = len([]rune(x))
	case []byte:
		n = len(x)
	default:
		return nil
	}
	if int64(n) > *c.max {
		return gerrors.NewSchema("", c.name, fmt.Sprintf("value length %d exceeds max %d", n, *c.max))
	}
	return nil
}

// literal renders a default value as a SQL literal.
func literal(v any) string {
	n, err := normalizeAny(v)
	if err != nil {
		return "NULL"
	}
	switch x := n.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case []byte:
		return fmt.Sprintf("X'%X'", x)
	}
	return "NULL"
}
