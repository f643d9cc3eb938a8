// Package user implements the typed table, row and cursor layer shared by
// every GeoPackage user table kind (features, tiles, attributes, mapping
// and custom tables), together with its data-access object.
//
// SQLite types each cell dynamically, so a column's declared DataType is
// used only on the write path. Values read back are classified by their
// effective ValueType, taken from the value the driver returned.
package user

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// ValueType is the storage class of a single cell.
type ValueType int

const (
	// ValueNull is SQL NULL.
	ValueNull ValueType = iota
	// ValueInteger is a 64-bit signed integer.
	ValueInteger
	// ValueFloat is a 64-bit IEEE float.
	ValueFloat
	// ValueText is UTF-8 text.
	ValueText
	// ValueBlob is raw bytes.
	ValueBlob
)

// String returns the SQLite name of the storage class.
func (t ValueType) String() string {
	switch t {
	case ValueNull:
		return "NULL"
	case ValueInteger:
		return "INTEGER"
	case ValueFloat:
		return "REAL"
	case ValueText:
		return "TEXT"
	case ValueBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// TypeOf returns the effective storage class of a value as returned by
// the driver or produced by normalization.
func TypeOf(v any) ValueType {
	switch v.(type) {
	case nil:
		return ValueNull
	case int64, int, int32, int16, int8, uint32, uint16, uint8, bool:
		return ValueInteger
	case float64, float32:
		return ValueFloat
	case string, time.Time:
		return ValueText
	case []byte:
		return ValueBlob
	case Value:
		return v.(Value).Type
	default:
		return ValueBlob
	}
}

// DataType is the semantic type a column is declared with.
type DataType int

const (
	DataTypeBoolean DataType = iota
	DataTypeTinyInt
	DataTypeSmallInt
	DataTypeMediumInt
	DataTypeInt
	DataTypeInteger
	DataTypeFloat
	DataTypeDouble
	DataTypeReal
	DataTypeText
	DataTypeBlob
	DataTypeDate
	DataTypeDateTime
	DataTypeGeometry
)

var dataTypeNames = map[DataType]string{
	DataTypeBoolean:   "BOOLEAN",
	DataTypeTinyInt:   "TINYINT",
	DataTypeSmallInt:  "SMALLINT",
	DataTypeMediumInt: "MEDIUMINT",
	DataTypeInt:       "INT",
	DataTypeInteger:   "INTEGER",
	DataTypeFloat:     "FLOAT",
	DataTypeDouble:    "DOUBLE",
	DataTypeReal:      "REAL",
	DataTypeText:      "TEXT",
	DataTypeBlob:      "BLOB",
	DataTypeDate:      "DATE",
	DataTypeDateTime:  "DATETIME",
	DataTypeGeometry:  "GEOMETRY",
}

// GeometryTypeNames are the declared type names of geometry columns.
var GeometryTypeNames = []string{
	"GEOMETRY", "POINT", "LINESTRING", "POLYGON", "MULTIPOINT",
	"MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION",
	"CIRCULARSTRING", "COMPOUNDCURVE", "CURVEPOLYGON", "MULTICURVE",
	"MULTISURFACE", "CURVE", "SURFACE",
}

// String returns the declared type name.
func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// ValueType returns the storage class values of this type are written as.
func (d DataType) ValueType() ValueType {
	switch d {
	case DataTypeBoolean, DataTypeTinyInt, DataTypeSmallInt, DataTypeMediumInt, DataTypeInt, DataTypeInteger:
		return ValueInteger
	case DataTypeFloat, DataTypeDouble, DataTypeReal:
		return ValueFloat
	case DataTypeText, DataTypeDate, DataTypeDateTime:
		return ValueText
	default:
		return ValueBlob
	}
}

var declaredMaxPattern = regexp.MustCompile(`^\s*([A-Za-z_ ]+?)\s*\(\s*(\d+)\s*\)\s*$`)

// DataTypeFromName parses a declared column type such as "TEXT(50)" or
// "MultiPolygon". Names outside the GeoPackage set fall back to SQLite
// affinity rules. The second result is the declared maximum length, if any.
func DataTypeFromName(decl string) (DataType, *int64) {
	name := strings.TrimSpace(decl)
	var max *int64
	if m := declaredMaxPattern.FindStringSubmatch(name); m != nil {
		name = m[1]
		if n, err := strconv.ParseInt(m[2], 10, 64); err == nil {
			max = &n
		}
	}
	upper := strings.ToUpper(strings.TrimSpace(name))

	for dt, n := range dataTypeNames {
		if n == upper {
			return dt, max
		}
	}
	if IsGeometryTypeName(upper) {
		return DataTypeGeometry, max
	}

	// SQLite column affinity rules.
	switch {
	case strings.Contains(upper, "INT"):
		return DataTypeInteger, max
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return DataTypeText, max
	case upper == "", strings.Contains(upper, "BLOB"):
		return DataTypeBlob, max
	default:
		return DataTypeDouble, max
	}
}

// IsGeometryTypeName reports whether name is a geometry type name.
func IsGeometryTypeName(name string) bool {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range GeometryTypeNames {
		if g == upper {
			return true
		}
	}
	return false
}

// Value is a single cell as a tagged union.
type Value struct {
	Type  ValueType
	Int   int64
	Float float64
	Text  string
	Blob  []byte
}

// NullValue returns SQL NULL.
func NullValue() Value { return Value{Type: ValueNull} }

// IntValue wraps an integer.
func IntValue(i int64) Value { return Value{Type: ValueInteger, Int: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Type: ValueFloat, Float: f} }

// TextValue wraps text.
func TextValue(s string) Value { return Value{Type: ValueText, Text: s} }

// BlobValue wraps bytes.
func BlobValue(b []byte) Value { return Value{Type: ValueBlob, Blob: b} }

// ValueOf classifies a driver value. Unsupported Go types become blobs of
// their fmt representation; use normalize on the write path instead.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case int64:
		return IntValue(x)
	case float64:
		return FloatValue(x)
	case string:
		return TextValue(x)
	case []byte:
		return BlobValue(x)
	case time.Time:
		return TextValue(x.UTC().Format(dateTimeLayout))
	}
	n, err := normalizeAny(v)
	if err != nil {
		return BlobValue([]byte(fmt.Sprint(v)))
	}
	return ValueOf(n)
}

// Any returns the value in the form database/sql accepts as an argument.
func (v Value) Any() any {
	switch v.Type {
	case ValueInteger:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueText:
		return v.Text
	case ValueBlob:
		return v.Blob
	default:
		return nil
	}
}

// IsNull reports whether v is SQL NULL.
func (v Value) IsNull() bool { return v.Type == ValueNull }

// String formats the value for display.
func (v Value) String() string {
	switch v.Type {
	case ValueNull:
		return "NULL"
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueText:
		return v.Text
	default:
		return fmt.Sprintf("<blob %d bytes>", len(v.Blob))
	}
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05.000Z"
)

// normalize converts a Go value into the storage form for a column of
// declared type dt.
func normalize(dt DataType, v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		if dt == DataTypeDate {
			return t.UTC().Format(dateLayout), nil
		}
		return t.UTC().Format(dateTimeLayout), nil
	}
	n, err := normalizeAny(v)
	if err != nil {
		return nil, err
	}
	if dt == DataTypeBoolean {
		if i, ok := n.(int64); ok && i != 0 {
			return int64(1), nil
		}
	}
	return n, nil
}

func normalizeAny(v any) (any, error) {
	switch x := v.(type) {
	case nil, int64, float64, string, []byte:
		return x, nil
	case Value:
		return x.Any(), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, gerrors.NewValidation("value", fmt.Sprintf("%d overflows int64", x))
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, gerrors.NewValidation("value", fmt.Sprintf("%d overflows int64", x))
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case time.Time:
		return x.UTC().Format(dateTimeLayout), nil
	default:
		return nil, gerrors.NewValidation("value", fmt.Sprintf("unsupported type %T", v))
	}
}

// readValue converts a scanned driver value into its stored form. Drivers
// parse DATE and DATETIME columns into time.Time; those are turned back
// into text so the effective type stays TEXT.
func readValue(col *Column, v any) any {
	if t, ok := v.(time.Time); ok {
		if col != nil && col.dataType == DataTypeDate {
			return t.UTC().Format(dateLayout)
		}
		return t.UTC().Format(dateTimeLayout)
	}
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}
