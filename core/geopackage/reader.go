package geopackage

import (
	"context"
	"strconv"
	"strings"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// ReadTable introspects a user table into a user.Table. The table kind
// comes from gpkg_contents; tables missing from it are read as custom
// tables. Results are cached for Config.MetadataTTL.
func (g *GeoPackage) ReadTable(ctx context.Context, name string) (*user.Table, error) {
	return g.tables.GetOrLoad(name, func() (*user.Table, error) {
		return g.readTable(ctx, name)
	})
}

func (g *GeoPackage) readTable(ctx context.Context, name string) (*user.Table, error) {
	rows, err := g.conn.QueryResults(ctx, "PRAGMA table_info("+user.Quote(name)+")")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gerrors.NewNotFound("table", name)
	}

	spec := user.TableSpec(user.CustomSpec{})
	contents, err := g.ContentsOf(ctx, name)
	switch {
	case err == nil:
		spec = specFor(contents.DataType)
	case !gerrors.Is(err, gerrors.ErrNotFound):
		return nil, err
	}

	// PRAGMA table_info columns: cid, name, type, notnull, dflt_value, pk.
	columns := make([]*user.Column, 0, len(rows))
	for _, r := range rows {
		columns = append(columns, columnFromInfo(r))
	}
	table, err := user.NewTable(spec, name, columns)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("table_read", "table", name, "kind", table.Kind().String(), "columns", table.ColumnCount())
	return table, nil
}

func columnFromInfo(r []any) *user.Column {
	decl := text(r[2])
	dt, max := user.DataTypeFromName(decl)

	opts := []user.ColumnOption{user.AtIndex(int(integer(r[0])))}
	if max != nil {
		opts = append(opts, user.Max(*max))
	}
	if dt == user.DataTypeGeometry {
		opts = append(opts, user.GeometryType(strings.TrimSpace(decl)))
	}
	if integer(r[5]) > 0 {
		opts = append(opts, user.PrimaryKey())
	}
	if integer(r[3]) != 0 {
		opts = append(opts, user.NotNull())
	}
	if r[4] != nil {
		if v := parseDefault(text(r[4])); v != nil {
			opts = append(opts, user.Default(v))
		}
	}
	return user.NewColumn(text(r[1]), dt, opts...)
}

// parseDefault turns a default value SQL literal back into a value.
// Expressions are not evaluated and yield nil.
func parseDefault(lit string) any {
	lit = strings.TrimSpace(lit)
	switch {
	case lit == "" || strings.EqualFold(lit, "NULL"):
		return nil
	case len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'':
		return strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f
	}
	return nil
}

func specFor(dataType string) user.TableSpec {
	switch dataType {
	case DataTypeFeatures:
		return user.FeatureSpec
	case DataTypeTiles:
		return user.TileSpec
	case DataTypeAttributes:
		return user.AttributesSpec
	}
	return user.CustomSpec{}
}

// forget drops cached state for a table after a schema change.
func (g *GeoPackage) forget(name string) {
	g.tables.Delete(name)
	delete(g.features, name)
	delete(g.indexes, name)
}
