//go:build cgo_sqlite

// Package sqliteexternal provides a CGO-based SQLite driver using mattn/go-sqlite3.
// This is an optional external dependency for performance-critical applications.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqliteexternal

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3" // CGO SQLite driver
)

const (
	// DriverName is the SQL driver name to use with database/sql.
	DriverName = "sqlite3_geopackage"

	// DriverType identifies this as the CGO implementation.
	DriverType = "cgo"

	// DriverPackage is the import path of the underlying driver.
	DriverPackage = "github.com/mattn/go-sqlite3"
)

type function struct {
	name string
	impl interface{}
	pure bool
}

var (
	functionsMu sync.RWMutex
	functions   []function
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: connectHook,
	})
}

// connectHook installs the registered functions on a new connection.
func connectHook(conn *sqlite3.SQLiteConn) error {
	functionsMu.RLock()
	defer functionsMu.RUnlock()

	for _, f := range functions {
		if err := conn.RegisterFunc(f.name, f.impl, f.pure); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}

// RegisterFunction records a scalar function for installation on every
// connection opened afterwards.
func RegisterFunction(name string, nArgs int, pure bool, fn func(args []interface{}) (interface{}, error)) error {
	var impl interface{}
	switch nArgs {
	case 0:
		impl = func() (interface{}, error) { return fn(nil) }
	case 1:
		impl = func(a interface{}) (interface{}, error) { return fn([]interface{}{a}) }
	case 2:
		impl = func(a, b interface{}) (interface{}, error) { return fn([]interface{}{a, b}) }
	case -1:
		impl = func(args ...interface{}) (interface{}, error) { return fn(args) }
	default:
		return fmt.Errorf("unsupported argument count %d", nArgs)
	}

	functionsMu.Lock()
	defer functionsMu.Unlock()
	functions = append(functions, function{name: name, impl: impl, pure: pure})
	return nil
}
