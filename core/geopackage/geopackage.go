// Package geopackage opens and creates GeoPackage containers and hands out
// data-access objects for their user tables.
package geopackage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/extensions"
	"github.com/FocuswithJustin/geopackage/core/extensions/rtree"
	"github.com/FocuswithJustin/geopackage/core/features"
	"github.com/FocuswithJustin/geopackage/core/sqlite"
	"github.com/FocuswithJustin/geopackage/core/user"
	"github.com/FocuswithJustin/geopackage/internal/cache"
	"github.com/FocuswithJustin/geopackage/internal/logging"
	"github.com/FocuswithJustin/geopackage/internal/validation"
)

// MemoryPath opens a private in-memory container.
const MemoryPath = ":memory:"

// GeoPackage is an open container. It holds one dedicated connection and,
// like that connection, is not safe for concurrent use.
type GeoPackage struct {
	path   string
	cfg    Config
	logger *slog.Logger
	db     *sql.DB
	conn   *user.Connection

	tables   *cache.TTLCache[string, *user.Table]
	features map[string]*features.Dao
	indexes  map[string]*rtree.Index
}

// Create creates a new container at path and initializes the core tables.
// An existing file is an error.
func Create(ctx context.Context, path string, cfg Config) (*GeoPackage, error) {
	if err := validation.ValidateGeoPackagePath(path); err != nil {
		return nil, gerrors.NewValidation("path", err.Error())
	}
	if path != MemoryPath {
		if _, err := os.Stat(path); err == nil {
			return nil, gerrors.NewValidation("path", "file already exists: "+path)
		}
	}
	cfg.ReadOnly = false

	g, err := open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	if err := g.initialize(ctx); err != nil {
		return nil, gerrors.Cleanup(err, g.Close())
	}
	g.logger.Info("geopackage_created", "path", path)
	return g, nil
}

// Open opens an existing container.
func Open(ctx context.Context, path string, cfg Config) (*GeoPackage, error) {
	if err := validation.ValidateGeoPackagePath(path); err != nil {
		return nil, gerrors.NewValidation("path", err.Error())
	}
	if path != MemoryPath {
		if err := checkHeader(path); err != nil {
			return nil, err
		}
	}

	g, err := open(ctx, path, cfg)
	if err != nil {
		return nil, err
	}
	n, err := g.conn.QueryInt(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'gpkg_contents'`)
	if err == nil && n == 0 {
		err = gerrors.NewValidation("path", "not a geopackage: missing gpkg_contents")
	}
	if err != nil {
		return nil, gerrors.Cleanup(err, g.Close())
	}
	g.logger.Debug("geopackage_opened", "path", path, "read_only", cfg.ReadOnly)
	return g, nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return gerrors.NewNotFound("geopackage", path)
		}
		return gerrors.NewStorageIO("open", path, err)
	}
	defer f.Close()
	if err := validation.CheckSQLiteHeader(f); err != nil {
		return gerrors.NewValidation("path", err.Error())
	}
	return nil
}

func open(ctx context.Context, path string, cfg Config) (*GeoPackage, error) {
	cfg = cfg.withDefaults()
	logger := logging.OrDiscard(cfg.Logger).With("geopackage", path)

	var (
		db  *sql.DB
		err error
	)
	if cfg.ReadOnly && path != MemoryPath {
		db, err = sqlite.OpenReadOnly(path)
	} else {
		db, err = sqlite.Open(path)
	}
	if err != nil {
		return nil, gerrors.NewStorageIO("open", path, err)
	}
	conn, err := user.NewConnection(ctx, db, logger)
	if err != nil {
		return nil, gerrors.Cleanup(err, db.Close())
	}
	return &GeoPackage{
		path:     path,
		cfg:      cfg,
		logger:   logger,
		db:       db,
		conn:     conn,
		tables:   cache.New[string, *user.Table](cfg.MetadataTTL),
		features: make(map[string]*features.Dao),
		indexes:  make(map[string]*rtree.Index),
	}, nil
}

func (g *GeoPackage) initialize(ctx context.Context) error {
	return g.transaction(ctx, func(ctx context.Context) error {
		stmts := append([]string{
			fmt.Sprintf("PRAGMA application_id = %d", ApplicationID),
			fmt.Sprintf("PRAGMA user_version = %d", UserVersion),
		}, coreTables...)
		stmts = append(stmts, extensions.CreateTableSQL)
		for _, stmt := range stmts {
			if _, err := g.conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		for _, srs := range DefaultSpatialReferences {
			if err := g.addSpatialReference(ctx, srs); err != nil {
				return err
			}
		}
		return nil
	})
}

// transaction runs fn in a transaction on the container connection.
func (g *GeoPackage) transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := g.conn.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = g.conn.End(ctx, false)
			panic(p)
		}
	}()
	if err := fn(ctx); err != nil {
		return gerrors.Cleanup(err, g.conn.End(ctx, false))
	}
	return g.conn.End(ctx, true)
}

// Path returns the container path.
func (g *GeoPackage) Path() string { return g.path }

// Config returns the effective configuration.
func (g *GeoPackage) Config() Config { return g.cfg }

// Connection returns the container connection.
func (g *GeoPackage) Connection() *user.Connection { return g.conn }

// Logger returns the container logger.
func (g *GeoPackage) Logger() *slog.Logger { return g.logger }

// ApplicationID returns the application_id pragma.
func (g *GeoPackage) ApplicationID(ctx context.Context) (int64, error) {
	return g.conn.QueryInt(ctx, "PRAGMA application_id")
}

// UserVersion returns the user_version pragma.
func (g *GeoPackage) UserVersion(ctx context.Context) (int64, error) {
	return g.conn.QueryInt(ctx, "PRAGMA user_version")
}

// Close releases the connection and the database handle.
func (g *GeoPackage) Close() error {
	connErr := g.conn.Close()
	return gerrors.Cleanup(connErr, gerrors.NewStorageIO("close", g.path, g.db.Close()))
}
