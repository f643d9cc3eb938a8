package geopackage

import (
	"context"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/proj"
)

// Contents is a gpkg_contents row.
type Contents struct {
	TableName   string         `json:"table_name"`
	DataType    string         `json:"data_type"`
	Identifier  string         `json:"identifier,omitempty"`
	Description string         `json:"description,omitempty"`
	LastChange  string         `json:"last_change"`
	Bounds      *geom.Envelope `json:"bounds,omitempty"`
	SRSID       *int32         `json:"srs_id,omitempty"`
}

// GeometryColumn is a gpkg_geometry_columns row.
type GeometryColumn struct {
	TableName    string `json:"table_name"`
	ColumnName   string `json:"column_name"`
	GeometryType string `json:"geometry_type_name"`
	SRSID        int32  `json:"srs_id"`
	Z            int8   `json:"z"`
	M            int8   `json:"m"`
}

const contentsColumns = `"table_name", "data_type", "identifier", "description", "last_change",
	"min_x", "min_y", "max_x", "max_y", "srs_id"`

// Contents returns every gpkg_contents row ordered by table name.
func (g *GeoPackage) Contents(ctx context.Context) ([]Contents, error) {
	return g.queryContents(ctx, "", nil)
}

// ContentsOf returns the gpkg_contents row of a table.
func (g *GeoPackage) ContentsOf(ctx context.Context, table string) (Contents, error) {
	rows, err := g.queryContents(ctx, `"table_name" = ?`, []any{table})
	if err != nil {
		return Contents{}, err
	}
	if len(rows) == 0 {
		return Contents{}, gerrors.NewNotFound("contents", table)
	}
	return rows[0], nil
}

func (g *GeoPackage) queryContents(ctx context.Context, where string, args []any) ([]Contents, error) {
	query := `SELECT ` + contentsColumns + ` FROM "gpkg_contents"`
	if where != "" {
		query += " WHERE " + where
	}
	query += ` ORDER BY "table_name"`

	rows, err := g.conn.QueryResults(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Contents, 0, len(rows))
	for _, r := range rows {
		c := Contents{
			TableName:   text(r[0]),
			DataType:    text(r[1]),
			Identifier:  text(r[2]),
			Description: text(r[3]),
			LastChange:  text(r[4]),
		}
		if r[5] != nil && r[6] != nil && r[7] != nil && r[8] != nil {
			c.Bounds = &geom.Envelope{MinX: float(r[5]), MinY: float(r[6]), MaxX: float(r[7]), MaxY: float(r[8])}
		}
		if r[9] != nil {
			id := int32(integer(r[9]))
			c.SRSID = &id
		}
		out = append(out, c)
	}
	return out, nil
}

// Tables returns the names of the user tables of a contents data type, or
// of every type when dataType is empty.
func (g *GeoPackage) Tables(ctx context.Context, dataType string) ([]string, error) {
	contents, err := g.Contents(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, c := range contents {
		if dataType == "" || c.DataType == dataType {
			names = append(names, c.TableName)
		}
	}
	return names, nil
}

// FeatureTables returns the feature table names.
func (g *GeoPackage) FeatureTables(ctx context.Context) ([]string, error) {
	return g.Tables(ctx, DataTypeFeatures)
}

// TileTables returns the tile table names.
func (g *GeoPackage) TileTables(ctx context.Context) ([]string, error) {
	return g.Tables(ctx, DataTypeTiles)
}

// AttributesTables returns the attributes table names.
func (g *GeoPackage) AttributesTables(ctx context.Context) ([]string, error) {
	return g.Tables(ctx, DataTypeAttributes)
}

// GeometryColumnOf returns the gpkg_geometry_columns row of a feature table.
func (g *GeoPackage) GeometryColumnOf(ctx context.Context, table string) (GeometryColumn, error) {
	rows, err := g.conn.QueryResults(ctx, `SELECT "table_name", "column_name", "geometry_type_name", "srs_id", "z", "m"
		FROM "gpkg_geometry_columns" WHERE "table_name" = ?`, table)
	if err != nil {
		return GeometryColumn{}, err
	}
	if len(rows) == 0 {
		return GeometryColumn{}, gerrors.NewNotFound("geometry column", table)
	}
	r := rows[0]
	return GeometryColumn{
		TableName:    text(r[0]),
		ColumnName:   text(r[1]),
		GeometryType: text(r[2]),
		SRSID:        int32(integer(r[3])),
		Z:            int8(integer(r[4])),
		M:            int8(integer(r[5])),
	}, nil
}

// SpatialReference returns a gpkg_spatial_ref_sys row.
func (g *GeoPackage) SpatialReference(ctx context.Context, srsID int32) (SpatialReference, error) {
	rows, err := g.conn.QueryResults(ctx, `SELECT "srs_id", "srs_name", "organization", "organization_coordsys_id",
		"definition", "description" FROM "gpkg_spatial_ref_sys" WHERE "srs_id" = ?`, srsID)
	if err != nil {
		return SpatialReference{}, err
	}
	if len(rows) == 0 {
		return SpatialReference{}, gerrors.NewNotFound("spatial reference system", itoa(int64(srsID)))
	}
	r := rows[0]
	return SpatialReference{
		ID:           int32(integer(r[0])),
		Name:         text(r[1]),
		Organization: text(r[2]),
		OrgCoordsys:  integer(r[3]),
		Definition:   text(r[4]),
		Description:  text(r[5]),
	}, nil
}

// AddSpatialReference inserts a spatial reference system unless its id is
// already present.
func (g *GeoPackage) AddSpatialReference(ctx context.Context, srs SpatialReference) error {
	return g.addSpatialReference(ctx, srs)
}

func (g *GeoPackage) addSpatialReference(ctx context.Context, srs SpatialReference) error {
	var description any
	if srs.Description != "" {
		description = srs.Description
	}
	_, err := g.conn.Exec(ctx, `INSERT OR IGNORE INTO "gpkg_spatial_ref_sys"
		("srs_name", "srs_id", "organization", "organization_coordsys_id", "definition", "description")
		VALUES (?, ?, ?, ?, ?, ?)`,
		srs.Name, srs.ID, srs.Organization, srs.OrgCoordsys, srs.Definition, description)
	return err
}

// Projection returns the projection of a spatial reference system.
func (g *GeoPackage) Projection(ctx context.Context, srsID int32) (proj.Projection, error) {
	srs, err := g.SpatialReference(ctx, srsID)
	if err != nil {
		return proj.Projection{}, err
	}
	return proj.New(srs.Organization, srs.OrgCoordsys), nil
}

// UpdateBounds recomputes the gpkg_contents bounds of a feature table from
// its geometries.
func (g *GeoPackage) UpdateBounds(ctx context.Context, table string) (geom.Envelope, bool, error) {
	dao, err := g.FeatureDao(ctx, table)
	if err != nil {
		return geom.Envelope{}, false, err
	}
	env, ok, err := dao.Bounds(ctx)
	if err != nil {
		return geom.Envelope{}, false, err
	}
	if !ok {
		_, err = g.conn.Exec(ctx, `UPDATE "gpkg_contents" SET "min_x" = NULL, "min_y" = NULL, "max_x" = NULL, "max_y" = NULL,
			"last_change" = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE "table_name" = ?`, table)
		return geom.Envelope{}, false, err
	}
	_, err = g.conn.Exec(ctx, `UPDATE "gpkg_contents" SET "min_x" = ?, "min_y" = ?, "max_x" = ?, "max_y" = ?,
		"last_change" = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE "table_name" = ?`,
		env.MinX, env.MinY, env.MaxX, env.MaxY, table)
	return env, true, err
}
