// Package features provides the data-access object for feature tables:
// user tables with exactly one geometry column.
package features

import (
	"context"

	"github.com/paulmach/orb"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/proj"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// Options configures a feature Dao.
type Options struct {
	SRSID      int32
	Projection proj.Projection
	CacheSize  int // 0 uses user.DefaultCacheSize
}

// Dao reads and writes a feature table. Rows read by id are cached, and
// concurrent reads of the same id are coalesced.
type Dao struct {
	*user.Dao
	geometry   *user.Column
	srsID      int32
	projection proj.Projection
	cache      *user.RowCache
	sync       user.RowSync
}

// NewDao wraps a user Dao whose table is a feature table.
func NewDao(dao *user.Dao, opts Options) (*Dao, error) {
	table := dao.Table()
	if table.Kind() != user.KindFeature {
		return nil, gerrors.NewSchema(table.Name(), "", "not a feature table: "+table.Kind().String())
	}
	g, ok := table.GeometryColumn()
	if !ok {
		return nil, gerrors.NewSchema(table.Name(), "", "feature table requires a geometry column")
	}
	return &Dao{
		Dao:        dao,
		geometry:   g,
		srsID:      opts.SRSID,
		projection: opts.Projection,
		cache:      user.NewRowCache(opts.CacheSize),
	}, nil
}

// GeometryColumn returns the geometry column.
func (d *Dao) GeometryColumn() *user.Column { return d.geometry }

// GeometryColumnName returns the geometry column name.
func (d *Dao) GeometryColumnName() string { return d.geometry.Name() }

// SRSID returns the spatial reference system id of the geometry column.
func (d *Dao) SRSID() int32 { return d.srsID }

// Projection returns the projection of the geometry column.
func (d *Dao) Projection() proj.Projection { return d.projection }

// Cache returns the row cache.
func (d *Dao) Cache() *user.RowCache { return d.cache }

// ReadGeometry decodes the geometry of row. It returns nil for NULL.
func (d *Dao) ReadGeometry(row *user.Row) (*geom.Binary, error) {
	v := row.Value(d.geometry.Index())
	if v == nil {
		return nil, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, gerrors.NewValidation(d.geometry.Name(), "geometry value is "+user.TypeOf(v).String())
	}
	return geom.Decode(data)
}

// SetGeometry encodes g with the column srs id and sets it on row. A nil
// geometry sets NULL.
func (d *Dao) SetGeometry(row *user.Row, g orb.Geometry) error {
	if g == nil {
		return row.SetValue(d.geometry.Index(), nil)
	}
	data, err := geom.Encode(d.srsID, g)
	if err != nil {
		return err
	}
	return row.SetValue(d.geometry.Index(), data)
}

// Envelope returns the envelope of the geometry of row. The boolean is
// false for NULL and empty geometries.
func (d *Dao) Envelope(row *user.Row) (geom.Envelope, bool, error) {
	data, _ := row.Value(d.geometry.Index()).([]byte)
	return geom.EnvelopeOf(data)
}

// QueryForIDCached returns a copy of the row with id, serving it from the
// cache when possible. Rows read inside an open transaction are not cached.
func (d *Dao) QueryForIDCached(ctx context.Context, id int64) (*user.Row, error) {
	if row, ok := d.cache.Get(id); ok {
		return row.Copy(), nil
	}
	row, err := d.sync.Read(id, func() (*user.Row, error) {
		row, err := d.QueryForID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !d.InTransaction() {
			d.cache.PutID(id, row)
		}
		return row, nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// End closes the open transaction. A rollback empties the cache.
func (d *Dao) End(ctx context.Context, success bool) error {
	if !success {
		defer d.cache.Clear()
	}
	return d.Dao.End(ctx, success)
}

// Rollback rolls back the open transaction and empties the cache.
func (d *Dao) Rollback(ctx context.Context) error { return d.End(ctx, false) }

// Transaction runs fn inside a transaction. The cache is emptied unless the
// transaction commits.
func (d *Dao) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	committed := false
	defer func() {
		if !committed {
			d.cache.Clear()
		}
	}()
	err := d.Dao.Transaction(ctx, fn)
	committed = err == nil
	return err
}

// Update writes row and refreshes its cache entry.
func (d *Dao) Update(ctx context.Context, row *user.Row) (int64, error) {
	n, err := d.Dao.Update(ctx, row)
	if err == nil {
		if id, idErr := row.ID(); idErr == nil {
			d.cache.Remove(id)
		}
	}
	return n, err
}

// UpdateValues applies a bulk update and empties the cache.
func (d *Dao) UpdateValues(ctx context.Context, values user.ContentValues, where string, args []any) (int64, error) {
	defer d.cache.Clear()
	return d.Dao.UpdateValues(ctx, values, where, args)
}

// Delete removes matching rows and empties the cache.
func (d *Dao) Delete(ctx context.Context, where string, args []any) (int64, error) {
	defer d.cache.Clear()
	return d.Dao.Delete(ctx, where, args)
}

// DeleteByID removes one row and its cache entry.
func (d *Dao) DeleteByID(ctx context.Context, id int64) (int64, error) {
	defer d.cache.Remove(id)
	return d.Dao.DeleteByID(ctx, id)
}

// DeleteRow removes row and its cache entry.
func (d *Dao) DeleteRow(ctx context.Context, row *user.Row) (int64, error) {
	id, err := row.ID()
	if err != nil {
		return 0, err
	}
	return d.DeleteByID(ctx, id)
}

// Bounds returns the union of every geometry envelope in the table, by a
// full scan. The boolean is false when no row has a geometry.
func (d *Dao) Bounds(ctx context.Context) (geom.Envelope, bool, error) {
	res, err := d.QueryColumns(ctx, []string{d.geometry.Name()}, "", nil)
	if err != nil {
		return geom.Envelope{}, false, err
	}

	var total geom.Envelope
	found := false
	for res.Next() {
		env, ok, err := geom.EnvelopeOf(res.Blob(0))
		if err != nil {
			return geom.Envelope{}, false, gerrors.Cleanup(err, res.Close())
		}
		if !ok {
			continue
		}
		if found {
			total = total.Union(env)
		} else {
			total, found = env, true
		}
	}
	if err := res.Err(); err != nil {
		return geom.Envelope{}, false, gerrors.Cleanup(err, res.Close())
	}
	return total, found, res.Close()
}
