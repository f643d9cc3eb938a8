package geopackage

import (
	"log/slog"
	"time"

	"github.com/FocuswithJustin/geopackage/core/extensions/rtree"
	"github.com/FocuswithJustin/geopackage/core/tiles"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// Config configures an open GeoPackage.
type Config struct {
	// Logger receives structured logs. Nil discards them.
	Logger *slog.Logger

	// CacheSize is the row cache capacity of each feature Dao.
	CacheSize int

	// TileCacheBytes bounds the tile data cache of each tile Dao.
	// Negative disables it.
	TileCacheBytes int64

	// Tolerance expands spatial index query boxes on every side.
	Tolerance float64

	// ChunkSize is the page size of full-table scans.
	ChunkSize int

	// ReadOnly opens the container without write access.
	ReadOnly bool

	// MetadataTTL is how long introspected table schemas stay cached.
	// Zero or less caches them until a schema change through this handle.
	MetadataTTL time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheSize:      user.DefaultCacheSize,
		TileCacheBytes: tiles.DefaultCacheBytes,
		Tolerance:      rtree.DefaultTolerance,
		ChunkSize:      1000,
		MetadataTTL:    5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.TileCacheBytes == 0 {
		c.TileCacheBytes = d.TileCacheBytes
	}
	if c.Tolerance == 0 {
		c.Tolerance = d.Tolerance
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	return c
}
