package user

import (
	"fmt"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Kind is the closed set of user table kinds.
type Kind int

const (
	KindFeature Kind = iota
	KindTile
	KindAttributes
	KindUserMapping
	KindUserCustom
)

// String returns the gpkg_contents data type for the kind.
func (k Kind) String() string {
	switch k {
	case KindFeature:
		return "features"
	case KindTile:
		return "tiles"
	case KindAttributes:
		return "attributes"
	case KindUserMapping:
		return "mapping"
	case KindUserCustom:
		return "custom"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Requirement names a column a table kind must have.
type Requirement struct {
	Name       string
	Type       DataType
	PrimaryKey bool
}

// TableSpec supplies the kind-specific rules a Table is checked against.
type TableSpec interface {
	Kind() Kind
	Requirements() []Requirement
	Validate(t *Table) error
}

// Tile table column names.
const (
	TileIDColumn     = "id"
	ZoomLevelColumn  = "zoom_level"
	TileColumnColumn = "tile_column"
	TileRowColumn    = "tile_row"
	TileDataColumn   = "tile_data"
)

// Mapping table column names.
const (
	BaseIDColumn    = "base_id"
	RelatedIDColumn = "related_id"
)

type featureSpec struct{}

func (featureSpec) Kind() Kind                  { return KindFeature }
func (featureSpec) Requirements() []Requirement { return nil }

// Validate requires exactly one geometry column.
func (featureSpec) Validate(t *Table) error {
	var found []string
	for _, c := range t.columns {
		if c.IsGeometry() {
			found = append(found, c.name)
		}
	}
	switch len(found) {
	case 1:
		t.geometryIndex = t.nameIndex[lower(found[0])]
		return nil
	case 0:
		return gerrors.NewSchema(t.name, "", "feature table requires a geometry column")
	default:
		return gerrors.NewSchema(t.name, found[1],
			fmt.Sprintf("feature table has %d geometry columns, expected one", len(found)))
	}
}

type tileSpec struct{}

func (tileSpec) Kind() Kind { return KindTile }
func (tileSpec) Requirements() []Requirement {
	return []Requirement{
		{Name: TileIDColumn, Type: DataTypeInteger, PrimaryKey: true},
		{Name: ZoomLevelColumn, Type: DataTypeInteger},
		{Name: TileColumnColumn, Type: DataTypeInteger},
		{Name: TileRowColumn, Type: DataTypeInteger},
		{Name: TileDataColumn, Type: DataTypeBlob},
	}
}
func (tileSpec) Validate(*Table) error { return nil }

type attributesSpec struct{}

func (attributesSpec) Kind() Kind                  { return KindAttributes }
func (attributesSpec) Requirements() []Requirement { return nil }
func (attributesSpec) Validate(*Table) error       { return nil }

type mappingSpec struct{}

func (mappingSpec) Kind() Kind { return KindUserMapping }
func (mappingSpec) Requirements() []Requirement {
	return []Requirement{
		{Name: BaseIDColumn, Type: DataTypeInteger},
		{Name: RelatedIDColumn, Type: DataTypeInteger},
	}
}
func (mappingSpec) Validate(*Table) error { return nil }

// CustomSpec is a user-defined table kind with optional required columns.
type CustomSpec struct {
	Required []Requirement
}

func (CustomSpec) Kind() Kind                    { return KindUserCustom }
func (s CustomSpec) Requirements() []Requirement { return s.Required }
func (CustomSpec) Validate(*Table) error         { return nil }

// Specs for the built-in kinds.
var (
	FeatureSpec     TableSpec = featureSpec{}
	TileSpec        TableSpec = tileSpec{}
	AttributesSpec  TableSpec = attributesSpec{}
	UserMappingSpec TableSpec = mappingSpec{}
)

// SpecFor returns the built-in spec for a kind.
func SpecFor(k Kind) TableSpec {
	switch k {
	case KindFeature:
		return FeatureSpec
	case KindTile:
		return TileSpec
	case KindAttributes:
		return AttributesSpec
	case KindUserMapping:
		return UserMappingSpec
	default:
		return CustomSpec{}
	}
}

// RequiredColumnsCheck makes a single pass over columns collecting the
// index of each required column. It fails with a SchemaError naming the
// first duplicated, missing or mistyped required column.
func RequiredColumnsCheck(table string, columns []*Column, requirements []Requirement) (map[string]int, error) {
	found := make(map[string]int, len(requirements))
	if len(requirements) == 0 {
		return found, nil
	}

	wanted := make(map[string]Requirement, len(requirements))
	for _, r := range requirements {
		wanted[lower(r.Name)] = r
	}

	for i, c := range columns {
		key := lower(c.name)
		if _, ok := wanted[key]; !ok {
			continue
		}
		if _, dup := found[key]; dup {
			return nil, gerrors.NewSchema(table, c.name, "duplicate required column")
		}
		found[key] = i
	}

	for _, r := range requirements {
		i, ok := found[lower(r.Name)]
		if !ok {
			return nil, gerrors.NewSchema(table, r.Name, "missing required column")
		}
		c := columns[i]
		if c.dataType.ValueType() != r.Type.ValueType() || c.IsGeometry() != (r.Type == DataTypeGeometry) {
			return nil, gerrors.NewSchema(table, r.Name,
				fmt.Sprintf("required column has type %s, expected %s", c.TypeName(), r.Type))
		}
		if r.PrimaryKey && !c.primaryKey {
			return nil, gerrors.NewSchema(table, r.Name, "required column must be the primary key")
		}
	}
	return found, nil
}
