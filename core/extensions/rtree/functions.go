package rtree

import (
	"database/sql/driver"
	"sync"

	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/sqlite"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// Scalar function names used by the index triggers.
const (
	FuncMinX    = "ST_MinX"
	FuncMaxX    = "ST_MaxX"
	FuncMinY    = "ST_MinY"
	FuncMaxY    = "ST_MaxY"
	FuncIsEmpty = "ST_IsEmpty"
)

var (
	registerOnce sync.Once
	registerErr  error

	bindMu sync.Mutex
	bound  = make(map[string]int)
)

// Drivers install registered functions only on connections opened
// afterwards, so registration happens before any container is opened.
func init() {
	_ = registerFunctions()
}

func registerFunctions() error {
	registerOnce.Do(func() {
		fns := []sqlite.Function{
			{Name: FuncMinX, NumArgs: 1, Deterministic: true, Fn: envelopeFunc(func(e geom.Envelope) float64 { return e.MinX })},
			{Name: FuncMaxX, NumArgs: 1, Deterministic: true, Fn: envelopeFunc(func(e geom.Envelope) float64 { return e.MaxX })},
			{Name: FuncMinY, NumArgs: 1, Deterministic: true, Fn: envelopeFunc(func(e geom.Envelope) float64 { return e.MinY })},
			{Name: FuncMaxY, NumArgs: 1, Deterministic: true, Fn: envelopeFunc(func(e geom.Envelope) float64 { return e.MaxY })},
			{Name: FuncIsEmpty, NumArgs: 1, Deterministic: true, Fn: isEmpty},
		}
		for _, fn := range fns {
			if err := sqlite.RegisterScalar(fn); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// envelopeFunc returns NULL for NULL, empty and unparseable geometries so
// the index skips those rows.
func envelopeFunc(pick func(geom.Envelope) float64) sqlite.ScalarFunc {
	return func(args []driver.Value) (driver.Value, error) {
		data, ok := blobArg(args)
		if !ok {
			return nil, nil
		}
		env, ok, err := geom.EnvelopeOf(data)
		if err != nil || !ok {
			return nil, nil
		}
		return pick(env), nil
	}
}

func isEmpty(args []driver.Value) (driver.Value, error) {
	data, ok := blobArg(args)
	if !ok {
		return nil, nil
	}
	_, ok, err := geom.EnvelopeOf(data)
	if err != nil {
		return nil, nil
	}
	if ok {
		return int64(0), nil
	}
	return int64(1), nil
}

func blobArg(args []driver.Value) ([]byte, bool) {
	if len(args) != 1 {
		return nil, false
	}
	data, ok := args[0].([]byte)
	return data, ok && len(data) > 0
}

// bind records that an index on conn depends on the scalar functions and
// reports whether this was the first such index. The functions themselves
// are installed by the driver on every connection and are never removed;
// bind and unbind only keep the per-connection count.
func bind(conn *user.Connection) (bool, error) {
	if err := registerFunctions(); err != nil {
		return false, err
	}
	bindMu.Lock()
	defer bindMu.Unlock()
	bound[conn.ID()]++
	return bound[conn.ID()] == 1, nil
}

func unbind(conn *user.Connection) {
	bindMu.Lock()
	defer bindMu.Unlock()
	if n := bound[conn.ID()]; n > 1 {
		bound[conn.ID()] = n - 1
	} else {
		delete(bound, conn.ID())
	}
}

// FunctionsBound reports whether any Ready index on conn depends on the
// scalar functions. It is bookkeeping only: the functions stay callable on
// conn either way.
func FunctionsBound(conn *user.Connection) bool {
	bindMu.Lock()
	defer bindMu.Unlock()
	return bound[conn.ID()] > 0
}
