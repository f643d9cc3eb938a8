// Package extensions manages the gpkg_extensions registry table.
package extensions

import (
	"context"
	"database/sql"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// TableName is the registry table.
const TableName = "gpkg_extensions"

// Extension scopes.
const (
	ScopeReadWrite = "read-write"
	ScopeWriteOnly = "write-only"
)

// CreateTableSQL creates the registry table when missing.
const CreateTableSQL = `CREATE TABLE IF NOT EXISTS "gpkg_extensions" (
	"table_name" TEXT,
	"column_name" TEXT,
	"extension_name" TEXT NOT NULL,
	"definition" TEXT NOT NULL,
	"scope" TEXT NOT NULL,
	CONSTRAINT ge_tce UNIQUE ("table_name", "column_name", "extension_name"))`

// Extension is one registry row. Table and Column are empty for
// container-wide extensions.
type Extension struct {
	Table      string `json:"table_name,omitempty"`
	Column     string `json:"column_name,omitempty"`
	Name       string `json:"extension_name"`
	Definition string `json:"definition"`
	Scope      string `json:"scope"`
}

// execer is satisfied by *user.Connection.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryResults(ctx context.Context, query string, args ...any) ([][]any, error)
	QueryInt(ctx context.Context, query string, args ...any) (int64, error)
}

var _ execer = (*user.Connection)(nil)

// EnsureTable creates the registry table when missing.
func EnsureTable(ctx context.Context, conn execer) error {
	_, err := conn.Exec(ctx, CreateTableSQL)
	return err
}

// Register records e, replacing an existing row for the same table, column
// and name.
func Register(ctx context.Context, conn execer, e Extension) error {
	if e.Name == "" {
		return gerrors.NewValidation("extension_name", "must not be empty")
	}
	if err := EnsureTable(ctx, conn); err != nil {
		return err
	}
	_, err := conn.Exec(ctx, `INSERT OR REPLACE INTO "gpkg_extensions"
		("table_name", "column_name", "extension_name", "definition", "scope") VALUES (?, ?, ?, ?, ?)`,
		nullable(e.Table), nullable(e.Column), e.Name, e.Definition, e.Scope)
	return err
}

// Unregister deletes the row for table, column and name.
func Unregister(ctx context.Context, conn execer, table, column, name string) error {
	exists, err := tableExists(ctx, conn)
	if err != nil || !exists {
		return err
	}
	_, err = conn.Exec(ctx, `DELETE FROM "gpkg_extensions" WHERE `+match, nullable(table), nullable(column), name)
	return err
}

// Has reports whether the row for table, column and name exists.
func Has(ctx context.Context, conn execer, table, column, name string) (bool, error) {
	exists, err := tableExists(ctx, conn)
	if err != nil || !exists {
		return false, err
	}
	n, err := conn.QueryInt(ctx, `SELECT count(*) FROM "gpkg_extensions" WHERE `+match, nullable(table), nullable(column), name)
	return n > 0, err
}

// List returns the extensions registered for table, or every extension
// when table is empty.
func List(ctx context.Context, conn execer, table string) ([]Extension, error) {
	exists, err := tableExists(ctx, conn)
	if err != nil || !exists {
		return nil, err
	}
	query := `SELECT "table_name", "column_name", "extension_name", "definition", "scope" FROM "gpkg_extensions"`
	var args []any
	if table != "" {
		query += ` WHERE "table_name" = ?`
		args = append(args, table)
	}
	query += ` ORDER BY "extension_name", "table_name", "column_name"`

	rows, err := conn.QueryResults(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Extension, 0, len(rows))
	for _, r := range rows {
		out = append(out, Extension{
			Table:      text(r[0]),
			Column:     text(r[1]),
			Name:       text(r[2]),
			Definition: text(r[3]),
			Scope:      text(r[4]),
		})
	}
	return out, nil
}

// NULL-safe comparison of table and column.
const match = `"table_name" IS ? AND "column_name" IS ? AND "extension_name" = ?`

func tableExists(ctx context.Context, conn execer) (bool, error) {
	n, err := conn.QueryInt(ctx, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, TableName)
	return n > 0, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}
