//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// This is used when the cgo_sqlite build tag is set.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
//
// The actual driver implementation is in contrib/sqlite-external
// to clearly separate optional external dependencies from core functionality.
package sqlite

import (
	"database/sql/driver"

	sqliteexternal "github.com/FocuswithJustin/geopackage/contrib/sqlite-external"
)

const (
	driverName    = sqliteexternal.DriverName
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3 (via contrib/sqlite-external)"
)

func registerDriverFunction(fn Function) error {
	return sqliteexternal.RegisterFunction(fn.Name, fn.NumArgs, fn.Deterministic, func(args []interface{}) (interface{}, error) {
		values := make([]driver.Value, len(args))
		for i, a := range args {
			values[i] = a
		}
		return fn.Fn(values)
	})
}
