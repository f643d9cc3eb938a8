package user

import (
	"errors"
	"strings"
	"testing"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

func tileColumns(rowName string) []*Column {
	return []*Column{
		NewPKColumn("id"),
		NewColumn("zoom_level", DataTypeInteger, NotNull()),
		NewColumn("tile_column", DataTypeInteger, NotNull()),
		NewColumn(rowName, DataTypeInteger, NotNull()),
		NewColumn("tile_data", DataTypeBlob, NotNull()),
	}
}

func TestTableColumnRoundTrip(t *testing.T) {
	table, err := NewTable(TileSpec, "tiles", tileColumns("tile_row"))
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	for i, name := range table.ColumnNames() {
		c, ok := table.Column(name)
		if !ok {
			t.Fatalf("Column(%q) not found", name)
		}
		if c.Index() != i {
			t.Errorf("Column(%q).Index() = %d, want %d", name, c.Index(), i)
		}
		if table.ColumnAt(i) != c {
			t.Errorf("ColumnAt(%d) != Column(%q)", i, name)
		}
	}

	if c, ok := table.Column("TILE_DATA"); !ok || c.Name() != "tile_data" {
		t.Error("column lookup should be case-insensitive")
	}
	if i, ok := table.RequiredIndex(TileRowColumn); !ok || i != 3 {
		t.Errorf("RequiredIndex(tile_row) = %d, %v; want 3, true", i, ok)
	}
	if table.Kind() != KindTile {
		t.Errorf("Kind() = %v, want tiles", table.Kind())
	}
}

func TestTileTableMissingRequiredColumn(t *testing.T) {
	_, err := NewTable(TileSpec, "tiles", tileColumns("row"))
	if err == nil {
		t.Fatal("expected schema error")
	}

	var schemaErr *gerrors.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error %T is not a SchemaError", err)
	}
	if schemaErr.Column != "tile_row" {
		t.Errorf("SchemaError.Column = %q, want tile_row", schemaErr.Column)
	}
}

func TestRequiredColumnsCheck(t *testing.T) {
	reqs := []Requirement{
		{Name: "base_id", Type: DataTypeInteger},
		{Name: "related_id", Type: DataTypeInteger},
	}

	tests := []struct {
		name       string
		columns    []*Column
		wantColumn string
	}{
		{
			name: "duplicate by name",
			columns: []*Column{
				NewColumn("base_id", DataTypeInteger),
				NewColumn("related_id", DataTypeInteger),
				NewColumn("BASE_ID", DataTypeInteger),
			},
			wantColumn: "BASE_ID",
		},
		{
			name: "wrong type",
			columns: []*Column{
				NewColumn("base_id", DataTypeText),
				NewColumn("related_id", DataTypeInteger),
			},
			wantColumn: "base_id",
		},
		{
			name:       "missing",
			columns:    []*Column{NewColumn("base_id", DataTypeInteger)},
			wantColumn: "related_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RequiredColumnsCheck("mapping", tt.columns, reqs)
			var schemaErr *gerrors.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
			if schemaErr.Column != tt.wantColumn {
				t.Errorf("Column = %q, want %q", schemaErr.Column, tt.wantColumn)
			}
		})
	}

	found, err := RequiredColumnsCheck("mapping", []*Column{
		NewColumn("extra", DataTypeText),
		NewColumn("related_id", DataTypeInteger),
		NewColumn("base_id", DataTypeInteger),
	}, reqs)
	if err != nil {
		t.Fatalf("RequiredColumnsCheck failed: %v", err)
	}
	if found["base_id"] != 2 || found["related_id"] != 1 {
		t.Errorf("found = %v", found)
	}
}

func TestFeatureTableGeometryColumns(t *testing.T) {
	if _, err := NewTable(FeatureSpec, "roads", []*Column{
		NewPKColumn("id"),
		NewColumn("name", DataTypeText),
	}); !errors.Is(err, gerrors.ErrSchema) {
		t.Errorf("no geometry column: got %v, want ErrSchema", err)
	}

	if _, err := NewTable(FeatureSpec, "roads", []*Column{
		NewPKColumn("id"),
		NewGeometryColumn("geom", "LINESTRING"),
		NewGeometryColumn("geom2", "POINT"),
	}); !errors.Is(err, gerrors.ErrSchema) {
		t.Errorf("two geometry columns: got %v, want ErrSchema", err)
	}

	table, err := NewTable(FeatureSpec, "roads", []*Column{
		NewPKColumn("id"),
		NewGeometryColumn("geom", "LINESTRING"),
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if g, ok := table.GeometryColumn(); !ok || g.Name() != "geom" {
		t.Error("GeometryColumn should be geom")
	}
}

func TestTableStructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		columns []*Column
	}{
		{"two primary keys", []*Column{NewPKColumn("a"), NewPKColumn("b")}},
		{"duplicate names", []*Column{NewPKColumn("id"), NewColumn("ID", DataTypeText)}},
		{"index gap", []*Column{NewPKColumn("id"), NewColumn("x", DataTypeText, AtIndex(5))}},
		{"no columns", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(AttributesSpec, "t", tt.columns); !errors.Is(err, gerrors.ErrSchema) {
				t.Errorf("got %v, want ErrSchema", err)
			}
		})
	}
}

func TestTableFromBoundColumns(t *testing.T) {
	// The table reader delivers columns with catalog ordinals, in any order.
	table, err := NewTable(AttributesSpec, "t", []*Column{
		NewColumn("b", DataTypeText, AtIndex(1)),
		NewColumn("id", DataTypeInteger, PrimaryKey(), AtIndex(0)),
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	if got := strings.Join(table.ColumnNames(), ","); got != "id,b" {
		t.Errorf("ColumnNames() = %s, want id,b", got)
	}
}

func TestColumnIndexImmutable(t *testing.T) {
	c := NewColumn("name", DataTypeText)
	if err := c.SetIndex(2); err != nil {
		t.Fatalf("first SetIndex failed: %v", err)
	}
	if err := c.SetIndex(2); err != nil {
		t.Errorf("same index should be accepted: %v", err)
	}
	if err := c.SetIndex(3); !errors.Is(err, gerrors.ErrSchema) {
		t.Errorf("rebinding: got %v, want ErrSchema", err)
	}
	if cp := c.Copy(); cp.IsBound() {
		t.Error("Copy should be unbound")
	}
}

func TestFailedNewTableReleasesColumns(t *testing.T) {
	name := NewColumn("name", DataTypeText)
	if _, err := NewTable(FeatureSpec, "a", []*Column{name}); !errors.Is(err, gerrors.ErrSchema) {
		t.Fatalf("feature table without geometry: got %v, want ErrSchema", err)
	}
	if name.IsBound() {
		t.Fatalf("column left bound at %d after failed construction", name.Index())
	}

	table, err := NewTable(FeatureSpec, "a", []*Column{
		NewPKColumn("id"),
		NewGeometryColumn("geom", "POINT"),
		name,
	})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := name.Index(); got != 2 {
		t.Errorf("name index = %d, want 2", got)
	}
	if table.ColumnCount() != 3 {
		t.Errorf("ColumnCount = %d, want 3", table.ColumnCount())
	}
}

func TestFailedNewTableKeepsPreboundColumns(t *testing.T) {
	id := NewPKColumn("id")
	if err := id.SetIndex(0); err != nil {
		t.Fatal(err)
	}
	other := NewPKColumn("other")
	if _, err := NewTable(AttributesSpec, "a", []*Column{id, other}); !errors.Is(err, gerrors.ErrSchema) {
		t.Fatalf("two primary keys: got %v, want ErrSchema", err)
	}
	if !id.IsBound() || id.Index() != 0 {
		t.Errorf("pre-bound column changed: bound=%v index=%d", id.IsBound(), id.Index())
	}
	if other.IsBound() {
		t.Error("column bound by the failed call should be released")
	}
}

func TestColumnAtPanics(t *testing.T) {
	table, err := NewTable(AttributesSpec, "t", []*Column{NewPKColumn("id")})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("ColumnAt out of range should panic")
		}
	}()
	table.ColumnAt(1)
}

func TestCreateSQL(t *testing.T) {
	table, err := NewTable(TileSpec, "my tiles", tileColumns("tile_row"))
	if err != nil {
		t.Fatal(err)
	}
	got := table.CreateSQL()
	for _, want := range []string{
		`CREATE TABLE "my tiles" (`,
		`"id" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL`,
		`"tile_data" BLOB NOT NULL`,
		`UNIQUE ("zoom_level", "tile_column", "tile_row")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CreateSQL() = %s\nmissing %s", got, want)
		}
	}

	c := NewColumn("label", DataTypeText, Max(10), Default("it's"))
	if def := c.Definition(); def != `"label" TEXT(10) DEFAULT 'it''s'` {
		t.Errorf("Definition() = %s", def)
	}
}

func TestDataTypeFromName(t *testing.T) {
	tests := []struct {
		decl    string
		want    DataType
		wantMax int64
	}{
		{"INTEGER", DataTypeInteger, 0},
		{"text(50)", DataTypeText, 50},
		{"MultiPolygon", DataTypeGeometry, 0},
		{"DATETIME", DataTypeDateTime, 0},
		{"VARCHAR(12)", DataTypeText, 12},
		{"BIGINT", DataTypeInteger, 0},
		{"", DataTypeBlob, 0},
		{"NUMERIC", DataTypeDouble, 0},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			got, max := DataTypeFromName(tt.decl)
			if got != tt.want {
				t.Errorf("DataTypeFromName(%q) = %v, want %v", tt.decl, got, tt.want)
			}
			var gotMax int64
			if max != nil {
				gotMax = *max
			}
			if gotMax != tt.wantMax {
				t.Errorf("max = %d, want %d", gotMax, tt.wantMax)
			}
		})
	}
}

func TestDataTypeStorageClass(t *testing.T) {
	tests := map[DataType]ValueType{
		DataTypeBoolean:   ValueInteger,
		DataTypeMediumInt: ValueInteger,
		DataTypeDouble:    ValueFloat,
		DataTypeDate:      ValueText,
		DataTypeGeometry:  ValueBlob,
	}
	for dt, want := range tests {
		if got := dt.ValueType(); got != want {
			t.Errorf("%v.ValueType() = %v, want %v", dt, got, want)
		}
	}
}
