// Package rtree implements the GeoPackage R-tree spatial index extension.
//
// An index is an rtree virtual table named rtree_<table>_<column> holding
// one envelope per feature row. It is loaded by a full scan when created
// and kept current by triggers on the feature table that call the
// ST_MinX, ST_MaxX, ST_MinY, ST_MaxY and ST_IsEmpty scalar functions.
package rtree

import (
	"context"
	"fmt"
	"log/slog"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/extensions"
	"github.com/FocuswithJustin/geopackage/core/features"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/user"
	"github.com/FocuswithJustin/geopackage/internal/logging"
)

// Extension registry values.
const (
	ExtensionName = "gpkg_rtree_index"
	Definition    = "http://www.geopackage.org/spec120/#extension_rtree"
	Scope         = extensions.ScopeWriteOnly

	TablePrefix = "rtree_"

	DefaultTolerance = 1e-14
)

// State is the lifecycle of an index.
type State int

const (
	Absent State = iota
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Building:
		return "building"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IndexRow is one entry of the index.
type IndexRow struct {
	ID   int64   `json:"id"`
	MinX float64 `json:"minx"`
	MaxX float64 `json:"maxx"`
	MinY float64 `json:"miny"`
	MaxY float64 `json:"maxy"`
}

// Envelope returns the indexed envelope.
func (r IndexRow) Envelope() geom.Envelope {
	return geom.Envelope{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY}
}

// Options configures an index.
type Options struct {
	Tolerance float64 // 0 uses DefaultTolerance
	Logger    *slog.Logger
}

// IndexTableName returns the virtual table name for a feature table column.
func IndexTableName(table, column string) string {
	return TablePrefix + table + "_" + column
}

// Index is the spatial index of one feature table. Like the Dao it sits
// beside, it is not safe for concurrent use.
type Index struct {
	dao       *features.Dao
	conn      *user.Connection
	table     string
	column    string
	pk        string
	name      string
	tolerance float64
	state     State
	bound     bool
	logger    *slog.Logger
}

// New returns the index for a feature Dao. An index already present in the
// container starts Ready.
func New(ctx context.Context, dao *features.Dao, opts Options) (*Index, error) {
	pk, err := dao.Table().PKColumn()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = dao.Connection().Logger()
	}
	tolerance := opts.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	idx := &Index{
		dao:       dao,
		conn:      dao.Connection(),
		table:     dao.TableName(),
		column:    dao.GeometryColumnName(),
		pk:        pk.Name(),
		name:      IndexTableName(dao.TableName(), dao.GeometryColumnName()),
		tolerance: tolerance,
		logger:    logger,
	}
	exists, err := idx.exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		if err := idx.bind(); err != nil {
			return nil, err
		}
		idx.state = Ready
	}
	return idx, nil
}

// TableName returns the feature table name.
func (x *Index) TableName() string { return x.table }

// ColumnName returns the geometry column name.
func (x *Index) ColumnName() string { return x.column }

// IndexTableName returns the virtual table name.
func (x *Index) IndexTableName() string { return x.name }

// State returns the lifecycle state.
func (x *Index) State() State { return x.state }

// Tolerance returns the query tolerance.
func (x *Index) Tolerance() float64 { return x.tolerance }

// SetTolerance changes the query tolerance.
func (x *Index) SetTolerance(t float64) { x.tolerance = t }

// Has reports whether the index is Ready, re-checking the container so an
// index dropped elsewhere reads as Absent.
func (x *Index) Has(ctx context.Context) (bool, error) {
	if x.state != Ready {
		return false, nil
	}
	exists, err := x.exists(ctx)
	if err != nil {
		return false, err
	}
	if !exists {
		x.unbind()
		x.state = Absent
	}
	return exists, nil
}

// Create builds the index: the virtual table, a full load from the feature
// table, the maintenance triggers and the registry row, in one
// transaction. Creating a Ready index fails.
func (x *Index) Create(ctx context.Context) error {
	if x.state == Ready {
		return gerrors.NewSchema(x.table, x.column, "spatial index already exists")
	}
	if err := x.bind(); err != nil {
		return err
	}

	x.state = Building
	logging.IndexEvent(x.logger, "build_started", x.table, x.column, "index", x.name)
	err := x.transaction(ctx, func(ctx context.Context) error {
		for _, stmt := range x.createStatements() {
			if _, err := x.conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return extensions.Register(ctx, x.conn, extensions.Extension{
			Table:      x.table,
			Column:     x.column,
			Name:       ExtensionName,
			Definition: Definition,
			Scope:      Scope,
		})
	})
	if err != nil {
		x.unbind()
		x.state = Absent
		logging.StorageError(x.logger, "create spatial index", x.table, err)
		return err
	}

	x.state = Ready
	n, err := x.Count(ctx)
	if err != nil {
		return err
	}
	logging.IndexEvent(x.logger, "build_finished", x.table, x.column, "rows", n)
	return nil
}

// GetOrCreate creates the index unless it is already Ready.
func (x *Index) GetOrCreate(ctx context.Context) error {
	if x.state == Ready {
		return nil
	}
	exists, err := x.exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if err := x.bind(); err != nil {
			return err
		}
		x.state = Ready
		return nil
	}
	return x.Create(ctx)
}

// Delete drops the triggers, the virtual table and the registry row, and
// drops this index from the connection's function count. The scalar
// functions stay installed on the connection. The index returns to Absent.
func (x *Index) Delete(ctx context.Context) error {
	err := x.transaction(ctx, func(ctx context.Context) error {
		for _, stmt := range x.dropStatements() {
			if _, err := x.conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return extensions.Unregister(ctx, x.conn, x.table, x.column, ExtensionName)
	})
	if err != nil {
		return err
	}
	x.unbind()
	x.state = Absent
	logging.IndexEvent(x.logger, "deleted", x.table, x.column, "index", x.name)
	return nil
}

func (x *Index) bind() error {
	if x.bound {
		return nil
	}
	first, err := bind(x.conn)
	if err != nil {
		return err
	}
	x.bound = true
	if first {
		logging.IndexEvent(x.logger, "functions_bound", x.table, x.column, "connection", x.conn.ID())
	}
	return nil
}

func (x *Index) unbind() {
	if x.bound {
		unbind(x.conn)
		x.bound = false
	}
}

// transaction runs fn in a new transaction, or in the caller's when one is
// already open.
func (x *Index) transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if x.conn.InTransaction() {
		return fn(ctx)
	}
	return x.dao.Transaction(ctx, fn)
}

func (x *Index) exists(ctx context.Context) (bool, error) {
	registered, err := extensions.Has(ctx, x.conn, x.table, x.column, ExtensionName)
	if err != nil || !registered {
		return false, err
	}
	n, err := x.conn.QueryInt(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, x.name)
	return n > 0, err
}
