// Package tiles provides the data-access object for tile pyramid tables.
package tiles

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/geopackage/core/cache"
	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// DefaultCacheBytes bounds the tile data cache.
const DefaultCacheBytes = 16 << 20

// Key addresses one tile of the pyramid.
type Key struct {
	Zoom   int64
	Column int64
	Row    int64
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%d", k.Zoom, k.Column, k.Row)
}

// Options configures a tile Dao.
type Options struct {
	CacheBytes int64 // 0 uses DefaultCacheBytes, negative disables the cache
}

// Dao reads and writes a tile table.
type Dao struct {
	*user.Dao
	data *cache.BoundedCache[Key, []byte]
}

// NewDao wraps a user Dao whose table is a tile table.
func NewDao(dao *user.Dao, opts Options) (*Dao, error) {
	table := dao.Table()
	if table.Kind() != user.KindTile {
		return nil, gerrors.NewSchema(table.Name(), "", "not a tile table: "+table.Kind().String())
	}
	d := &Dao{Dao: dao}
	limit := opts.CacheBytes
	if limit == 0 {
		limit = DefaultCacheBytes
	}
	if limit > 0 {
		d.data = cache.NewBoundedCache[Key, []byte](cache.Config{}, limit, func(b []byte) int64 {
			return int64(len(b))
		})
	}
	return d, nil
}

// NewTileRow returns a row populated with a tile.
func (d *Dao) NewTileRow(k Key, data []byte) (*user.Row, error) {
	row := d.NewRow()
	for name, v := range map[string]any{
		user.ZoomLevelColumn:  k.Zoom,
		user.TileColumnColumn: k.Column,
		user.TileRowColumn:    k.Row,
		user.TileDataColumn:   data,
	} {
		if err := row.SetValueByName(name, v); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// Put inserts or replaces a tile.
func (d *Dao) Put(ctx context.Context, k Key, data []byte) (int64, error) {
	if _, err := d.Delete(ctx, keyWhere, keyArgs(k)); err != nil {
		return -1, err
	}
	row, err := d.NewTileRow(k, data)
	if err != nil {
		return -1, err
	}
	id, err := d.InsertOrFail(ctx, row)
	if err != nil {
		return -1, err
	}
	if d.data != nil {
		d.data.Put(k, data)
	}
	return id, nil
}

const keyWhere = `"zoom_level" = ? AND "tile_column" = ? AND "tile_row" = ?`

func keyArgs(k Key) []any { return []any{k.Zoom, k.Column, k.Row} }

// QueryForTile returns the tile row at k, or a NotFoundError.
func (d *Dao) QueryForTile(ctx context.Context, k Key) (*user.Row, error) {
	res, err := d.QueryWhere(ctx, keyWhere, keyArgs(k))
	if err != nil {
		return nil, err
	}
	var row *user.Row
	if res.Next() {
		row, err = res.Row()
	} else if err = res.Err(); err == nil {
		err = gerrors.NewNotFound("tile", k.String())
	}
	return row, gerrors.Cleanup(err, res.Close())
}

// TileData returns the image bytes of the tile at k, from the cache when
// possible.
func (d *Dao) TileData(ctx context.Context, k Key) ([]byte, error) {
	if d.data != nil {
		if b, ok := d.data.Get(k); ok {
			return b, nil
		}
	}
	row, err := d.QueryForTile(ctx, k)
	if err != nil {
		return nil, err
	}
	i, _ := d.Table().RequiredIndex(user.TileDataColumn)
	b, _ := row.Value(i).([]byte)
	if d.data != nil {
		d.data.Put(k, b)
	}
	return b, nil
}

// QueryForTiles selects every tile at a zoom level, ordered by column and row.
func (d *Dao) QueryForTiles(ctx context.Context, zoom int64) (*user.Result, error) {
	return d.Query(ctx, user.Query{
		Where:   `"zoom_level" = ?`,
		Args:    []any{zoom},
		OrderBy: `"tile_column", "tile_row"`,
	})
}

// CountAtZoom counts the tiles at a zoom level.
func (d *Dao) CountAtZoom(ctx context.Context, zoom int64) (int64, error) {
	return d.Count(ctx, `"zoom_level" = ?`, []any{zoom})
}

// MinZoom returns the lowest zoom level present. The boolean is false for
// an empty table.
func (d *Dao) MinZoom(ctx context.Context) (int64, bool, error) {
	return d.zoom(ctx, d.Min)
}

// MaxZoom returns the highest zoom level present.
func (d *Dao) MaxZoom(ctx context.Context) (int64, bool, error) {
	return d.zoom(ctx, d.Max)
}

func (d *Dao) zoom(ctx context.Context, agg func(context.Context, string, string, []any) (any, bool, error)) (int64, bool, error) {
	v, ok, err := agg(ctx, user.ZoomLevelColumn, "", nil)
	if err != nil || !ok {
		return 0, false, err
	}
	z, isInt := v.(int64)
	if !isInt {
		return 0, false, gerrors.NewValidation(user.ZoomLevelColumn, "zoom level is "+user.TypeOf(v).String())
	}
	return z, true, nil
}

// DeleteTile removes the tile at k.
func (d *Dao) DeleteTile(ctx context.Context, k Key) (int64, error) {
	if d.data != nil {
		d.data.Remove(k)
	}
	return d.Delete(ctx, keyWhere, keyArgs(k))
}

// CacheStats returns tile cache statistics.
func (d *Dao) CacheStats() cache.Stats {
	if d.data == nil {
		return cache.Stats{}
	}
	return d.data.Stats()
}
