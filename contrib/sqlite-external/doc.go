// Package sqliteexternal provides optional external SQLite drivers.
//
// This package is part of the main github.com/FocuswithJustin/geopackage module
// and provides a CGO-based SQLite driver for performance-critical applications.
//
// # CGO SQLite Driver
//
// To use the CGO driver (github.com/mattn/go-sqlite3):
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite
//
// The driver is registered under DriverName with a connect hook that
// installs every scalar function passed to RegisterFunction, so functions
// such as ST_MinX are available to triggers on every new connection.
//
// # Default Pure Go Driver
//
// By default the library uses modernc.org/sqlite, which requires no CGO.
// See github.com/FocuswithJustin/geopackage/core/sqlite for details.
package sqliteexternal
