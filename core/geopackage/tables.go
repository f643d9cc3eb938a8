package geopackage

import (
	"context"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/extensions"
	"github.com/FocuswithJustin/geopackage/core/extensions/rtree"
	"github.com/FocuswithJustin/geopackage/core/features"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/tiles"
	"github.com/FocuswithJustin/geopackage/core/user"
	"github.com/FocuswithJustin/geopackage/internal/validation"
)

// FeatureTableOptions describes a new feature table.
type FeatureTableOptions struct {
	Name           string
	GeometryColumn string // default "geom"
	GeometryType   string // default "GEOMETRY"
	SRSID          int32
	IDColumn       string // default "id"
	Columns        []*user.Column
	Identifier     string
	Description    string
}

// TileMatrixSet is the gpkg_tile_matrix_set extent of a tile table.
type TileMatrixSet struct {
	SRSID  int32
	Bounds geom.Envelope
}

// TileMatrix is one gpkg_tile_matrix zoom level.
type TileMatrix struct {
	ZoomLevel    int64
	MatrixWidth  int64
	MatrixHeight int64
	TileWidth    int64
	TileHeight   int64
	PixelXSize   float64
	PixelYSize   float64
}

// CreateFeatureTable creates a feature table and registers it in
// gpkg_contents and gpkg_geometry_columns.
func (g *GeoPackage) CreateFeatureTable(ctx context.Context, opts FeatureTableOptions) (*user.Table, error) {
	if opts.GeometryColumn == "" {
		opts.GeometryColumn = "geom"
	}
	if opts.GeometryType == "" {
		opts.GeometryType = "GEOMETRY"
	}
	if opts.IDColumn == "" {
		opts.IDColumn = "id"
	}
	if !user.IsGeometryTypeName(opts.GeometryType) {
		return nil, gerrors.NewValidation("geometry_type", "unknown geometry type "+opts.GeometryType)
	}
	if _, err := g.SpatialReference(ctx, opts.SRSID); err != nil {
		return nil, err
	}

	columns := []*user.Column{
		user.NewPKColumn(opts.IDColumn),
		user.NewGeometryColumn(opts.GeometryColumn, opts.GeometryType),
	}
	columns = append(columns, copyColumns(opts.Columns)...)
	table, err := g.newTable(user.FeatureSpec, opts.Name, columns)
	if err != nil {
		return nil, err
	}

	err = g.transaction(ctx, func(ctx context.Context) error {
		if _, err := g.conn.Exec(ctx, table.CreateSQL()); err != nil {
			return err
		}
		if err := g.insertContents(ctx, opts.Name, DataTypeFeatures, opts.Identifier, opts.Description, &opts.SRSID); err != nil {
			return err
		}
		_, err := g.conn.Exec(ctx, `INSERT INTO "gpkg_geometry_columns"
			("table_name", "column_name", "geometry_type_name", "srs_id", "z", "m") VALUES (?, ?, ?, ?, 0, 0)`,
			opts.Name, opts.GeometryColumn, table.ColumnAt(1).TypeName(), opts.SRSID)
		return err
	})
	if err != nil {
		return nil, err
	}
	g.forget(opts.Name)
	g.logger.Info("table_created", "table", opts.Name, "kind", table.Kind().String())
	return table, nil
}

// CreateTileTable creates a tile table with its matrix set and zoom levels.
func (g *GeoPackage) CreateTileTable(ctx context.Context, name string, set TileMatrixSet, matrices []TileMatrix) (*user.Table, error) {
	if _, err := g.SpatialReference(ctx, set.SRSID); err != nil {
		return nil, err
	}
	table, err := g.newTable(user.TileSpec, name, []*user.Column{
		user.NewPKColumn(user.TileIDColumn),
		user.NewColumn(user.ZoomLevelColumn, user.DataTypeInteger, user.NotNull()),
		user.NewColumn(user.TileColumnColumn, user.DataTypeInteger, user.NotNull()),
		user.NewColumn(user.TileRowColumn, user.DataTypeInteger, user.NotNull()),
		user.NewColumn(user.TileDataColumn, user.DataTypeBlob, user.NotNull()),
	})
	if err != nil {
		return nil, err
	}

	err = g.transaction(ctx, func(ctx context.Context) error {
		if _, err := g.conn.Exec(ctx, table.CreateSQL()); err != nil {
			return err
		}
		if err := g.insertContents(ctx, name, DataTypeTiles, "", "", &set.SRSID); err != nil {
			return err
		}
		b := set.Bounds
		if _, err := g.conn.Exec(ctx, `INSERT INTO "gpkg_tile_matrix_set"
			("table_name", "srs_id", "min_x", "min_y", "max_x", "max_y") VALUES (?, ?, ?, ?, ?, ?)`,
			name, set.SRSID, b.MinX, b.MinY, b.MaxX, b.MaxY); err != nil {
			return err
		}
		for _, m := range matrices {
			if _, err := g.conn.Exec(ctx, `INSERT INTO "gpkg_tile_matrix"
				("table_name", "zoom_level", "matrix_width", "matrix_height", "tile_width", "tile_height",
				"pixel_x_size", "pixel_y_size") VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				name, m.ZoomLevel, m.MatrixWidth, m.MatrixHeight, m.TileWidth, m.TileHeight,
				m.PixelXSize, m.PixelYSize); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.forget(name)
	g.logger.Info("table_created", "table", name, "kind", table.Kind().String())
	return table, nil
}

// CreateAttributesTable creates a non-spatial attributes table. An id
// primary key is added unless columns declare one.
func (g *GeoPackage) CreateAttributesTable(ctx context.Context, name string, columns []*user.Column) (*user.Table, error) {
	cols := copyColumns(columns)
	hasPK := false
	for _, c := range cols {
		hasPK = hasPK || c.IsPrimaryKey()
	}
	if !hasPK {
		cols = append([]*user.Column{user.NewPKColumn("id")}, cols...)
	}
	table, err := g.newTable(user.AttributesSpec, name, cols)
	if err != nil {
		return nil, err
	}

	err = g.transaction(ctx, func(ctx context.Context) error {
		if _, err := g.conn.Exec(ctx, table.CreateSQL()); err != nil {
			return err
		}
		return g.insertContents(ctx, name, DataTypeAttributes, "", "", nil)
	})
	if err != nil {
		return nil, err
	}
	g.forget(name)
	g.logger.Info("table_created", "table", name, "kind", table.Kind().String())
	return table, nil
}

// DeleteTable drops a user table, its spatial index and its registry rows.
func (g *GeoPackage) DeleteTable(ctx context.Context, name string) error {
	contents, err := g.ContentsOf(ctx, name)
	if err != nil {
		return err
	}
	if contents.DataType == DataTypeFeatures {
		idx, err := g.SpatialIndex(ctx, name)
		if err != nil {
			return err
		}
		if idx.State() == rtree.Ready {
			if err := idx.Delete(ctx); err != nil {
				return err
			}
		}
	}

	err = g.transaction(ctx, func(ctx context.Context) error {
		stmts := []string{
			`DELETE FROM "gpkg_geometry_columns" WHERE "table_name" = ?`,
			`DELETE FROM "gpkg_tile_matrix" WHERE "table_name" = ?`,
			`DELETE FROM "gpkg_tile_matrix_set" WHERE "table_name" = ?`,
			`DELETE FROM "gpkg_extensions" WHERE "table_name" = ?`,
			`DELETE FROM "gpkg_contents" WHERE "table_name" = ?`,
		}
		for _, stmt := range stmts {
			if _, err := g.conn.Exec(ctx, stmt, name); err != nil {
				return err
			}
		}
		_, err := g.conn.Exec(ctx, "DROP TABLE IF EXISTS "+user.Quote(name))
		return err
	})
	if err != nil {
		return err
	}
	g.forget(name)
	g.logger.Info("table_deleted", "table", name)
	return nil
}

func (g *GeoPackage) newTable(spec user.TableSpec, name string, columns []*user.Column) (*user.Table, error) {
	if err := validation.ValidateUserTableName(name); err != nil {
		return nil, gerrors.NewValidation("table", err.Error())
	}
	for _, c := range columns {
		if err := validation.ValidateIdentifier(c.Name()); err != nil {
			return nil, gerrors.NewValidation("column", err.Error())
		}
	}
	return user.NewTable(spec, name, columns)
}

func (g *GeoPackage) insertContents(ctx context.Context, name, dataType, identifier, description string, srsID *int32) error {
	if identifier == "" {
		identifier = name
	}
	var srs any
	if srsID != nil {
		srs = *srsID
	}
	_, err := g.conn.Exec(ctx, `INSERT INTO "gpkg_contents"
		("table_name", "data_type", "identifier", "description", "srs_id") VALUES (?, ?, ?, ?, ?)`,
		name, dataType, identifier, description, srs)
	return err
}

// copyColumns returns unbound copies so caller columns are never bound.
func copyColumns(columns []*user.Column) []*user.Column {
	out := make([]*user.Column, len(columns))
	for i, c := range columns {
		out[i] = c.Copy()
	}
	return out
}

// UserDao returns a Dao for any user table.
func (g *GeoPackage) UserDao(ctx context.Context, name string) (*user.Dao, error) {
	table, err := g.ReadTable(ctx, name)
	if err != nil {
		return nil, err
	}
	return user.NewDao(g.conn, table, g.logger), nil
}

// AttributesDao returns a Dao for an attributes table.
func (g *GeoPackage) AttributesDao(ctx context.Context, name string) (*user.Dao, error) {
	dao, err := g.UserDao(ctx, name)
	if err != nil {
		return nil, err
	}
	if k := dao.Table().Kind(); k != user.KindAttributes {
		return nil, gerrors.NewSchema(name, "", "not an attributes table: "+k.String())
	}
	return dao, nil
}

// FeatureDao returns the Dao of a feature table. The Dao, and so its row
// cache, is shared by every caller of this GeoPackage.
func (g *GeoPackage) FeatureDao(ctx context.Context, name string) (*features.Dao, error) {
	if dao, ok := g.features[name]; ok {
		return dao, nil
	}
	base, err := g.UserDao(ctx, name)
	if err != nil {
		return nil, err
	}
	gc, err := g.GeometryColumnOf(ctx, name)
	if err != nil {
		return nil, err
	}
	projection, err := g.Projection(ctx, gc.SRSID)
	if err != nil {
		return nil, err
	}
	dao, err := features.NewDao(base, features.Options{
		SRSID:      gc.SRSID,
		Projection: projection,
		CacheSize:  g.cfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	g.features[name] = dao
	return dao, nil
}

// TileDao returns the Dao of a tile table.
func (g *GeoPackage) TileDao(ctx context.Context, name string) (*tiles.Dao, error) {
	base, err := g.UserDao(ctx, name)
	if err != nil {
		return nil, err
	}
	return tiles.NewDao(base, tiles.Options{CacheBytes: g.cfg.TileCacheBytes})
}

// SpatialIndex returns the R-tree index of a feature table, in whatever
// state it is in.
func (g *GeoPackage) SpatialIndex(ctx context.Context, name string) (*rtree.Index, error) {
	if idx, ok := g.indexes[name]; ok {
		return idx, nil
	}
	dao, err := g.FeatureDao(ctx, name)
	if err != nil {
		return nil, err
	}
	idx, err := rtree.New(ctx, dao, rtree.Options{Tolerance: g.cfg.Tolerance, Logger: g.logger})
	if err != nil {
		return nil, err
	}
	g.indexes[name] = idx
	return idx, nil
}

// Extensions returns the extensions registered for table, or every
// extension when table is empty.
func (g *GeoPackage) Extensions(ctx context.Context, table string) ([]extensions.Extension, error) {
	return extensions.List(ctx, g.conn, table)
}

// HasExtension reports whether an extension is registered for a table
// column. Empty table and column match container-wide extensions.
func (g *GeoPackage) HasExtension(ctx context.Context, table, column, name string) (bool, error) {
	return extensions.Has(ctx, g.conn, table, column, name)
}
