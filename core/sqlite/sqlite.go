// Package sqlite provides a unified SQLite interface supporting both
// pure Go (modernc.org/sqlite) and CGO (mattn/go-sqlite3) implementations.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3 via contrib/sqlite-external
//
// Both drivers ship the R*Tree module required by the GeoPackage spatial
// index extension. Scalar functions registered with RegisterScalar are
// available on every connection opened after registration.
//
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ScalarFunc implements a SQL scalar function. Arguments arrive as the
// driver delivers them (nil, int64, float64, string, []byte); returning a
// nil value yields SQL NULL.
type ScalarFunc func(args []driver.Value) (driver.Value, error)

// Function describes a scalar function to install on connections.
type Function struct {
	Name          string
	NumArgs       int // -1 for variadic
	Deterministic bool
	Fn            ScalarFunc
}

var (
	functionsMu sync.Mutex
	functions   = make(map[string]Function)
)

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the appropriate driver.
// This is the preferred way to open SQLite databases.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?mode=ro"
	return Open(dsn)
}

// MustOpen opens a SQLite database and panics on error.
// This is intended for use in tests or initialization code where
// database access failure is unrecoverable.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open %s: %v", dataSourceName, err))
	}
	return db
}

// RegisterScalar installs fn on the active driver. Registering the same
// name twice is a no-op, so callers may register lazily.
func RegisterScalar(fn Function) error {
	if fn.Name == "" || fn.Fn == nil {
		return fmt.Errorf("sqlite: scalar function requires a name and an implementation")
	}

	key := strings.ToLower(fn.Name)

	functionsMu.Lock()
	defer functionsMu.Unlock()

	if _, ok := functions[key]; ok {
		return nil
	}
	if err := registerDriverFunction(fn); err != nil {
		return fmt.Errorf("sqlite: register function %s: %w", fn.Name, err)
	}
	functions[key] = fn
	return nil
}

// HasFunction reports whether a scalar function has been registered.
func HasFunction(name string) bool {
	functionsMu.Lock()
	defer functionsMu.Unlock()
	_, ok := functions[strings.ToLower(name)]
	return ok
}

// Functions returns the names of registered scalar functions, sorted.
func Functions() []string {
	functionsMu.Lock()
	defer functionsMu.Unlock()

	names := make([]string, 0, len(functions))
	for _, fn := range functions {
		names = append(names, fn.Name)
	}
	sort.Strings(names)
	return names
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string   `json:"driver_name"`
	DriverType string   `json:"driver_type"`
	IsCGO      bool     `json:"is_cgo"`
	Package    string   `json:"package"`
	Functions  []string `json:"functions,omitempty"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
		Functions:  Functions(),
	}
}
