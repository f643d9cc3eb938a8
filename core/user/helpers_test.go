package user

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/geopackage/core/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.gpkg"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestConnection(t *testing.T) *Connection {
	t.Helper()
	db := openTestDB(t)
	conn, err := NewConnection(context.Background(), db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// recordsTable is an attributes table exercising every storage class.
func recordsTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(AttributesSpec, "records", []*Column{
		NewPKColumn("id"),
		NewColumn("name", DataTypeText, Max(20)),
		NewColumn("score", DataTypeReal),
		NewColumn("rank", DataTypeInteger),
		NewColumn("active", DataTypeBoolean),
		NewColumn("payload", DataTypeBlob),
		NewColumn("born", DataTypeDate),
		NewColumn("required", DataTypeText, NotNull(), Default("x")),
	})
	require.NoError(t, err)
	return table
}

func newRecordsDao(t *testing.T) *Dao {
	t.Helper()
	conn := newTestConnection(t)
	table := recordsTable(t)
	_, err := conn.Exec(context.Background(), table.CreateSQL())
	require.NoError(t, err)
	return NewDao(conn, table, nil)
}

func insertRecord(t *testing.T, dao *Dao, name string, rank int64) int64 {
	t.Helper()
	row := dao.NewRow()
	require.NoError(t, row.SetValueByName("name", name))
	require.NoError(t, row.SetValueByName("rank", rank))
	id, err := dao.InsertOrFail(context.Background(), row)
	require.NoError(t, err)
	return id
}
