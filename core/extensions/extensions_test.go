package extensions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/sqlite"
	"github.com/FocuswithJustin/geopackage/core/user"
)

func newConnection(t *testing.T) *user.Connection {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ext.gpkg"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn, err := user.NewConnection(context.Background(), db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRegistryWithoutTable(t *testing.T) {
	ctx := context.Background()
	conn := newConnection(t)

	ok, err := Has(ctx, conn, "roads", "geom", "gpkg_rtree_index")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := List(ctx, conn, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, Unregister(ctx, conn, "roads", "geom", "gpkg_rtree_index"))
}

func TestRegisterAndUnregister(t *testing.T) {
	ctx := context.Background()
	conn := newConnection(t)

	rtree := Extension{Table: "roads", Column: "geom", Name: "gpkg_rtree_index", Definition: "rtree", Scope: ScopeWriteOnly}
	require.NoError(t, Register(ctx, conn, rtree))
	require.NoError(t, Register(ctx, conn, rtree), "registering twice replaces the row")
	require.NoError(t, Register(ctx, conn, Extension{Name: "gpkg_crs_wkt", Definition: "wkt", Scope: ScopeReadWrite}))

	ok, err := Has(ctx, conn, "roads", "geom", "gpkg_rtree_index")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Has(ctx, conn, "", "", "gpkg_crs_wkt")
	require.NoError(t, err)
	assert.True(t, ok, "container-wide extensions match NULL table and column")

	list, err := List(ctx, conn, "roads")
	require.NoError(t, err)
	assert.Equal(t, []Extension{rtree}, list)

	all, err := List(ctx, conn, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, Unregister(ctx, conn, "roads", "geom", "gpkg_rtree_index"))
	ok, err = Has(ctx, conn, "roads", "geom", "gpkg_rtree_index")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterRequiresName(t *testing.T) {
	err := Register(context.Background(), newConnection(t), Extension{Table: "roads"})
	assert.ErrorIs(t, err, gerrors.ErrInvalidInput)
}
