//go:build !cgo_sqlite

package sqlite

import (
	"database/sql/driver"

	msqlite "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

func registerDriverFunction(fn Function) error {
	impl := func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		return fn.Fn(args)
	}
	if fn.Deterministic {
		return msqlite.RegisterDeterministicScalarFunction(fn.Name, int32(fn.NumArgs), impl)
	}
	return msqlite.RegisterScalarFunction(fn.Name, int32(fn.NumArgs), impl)
}
