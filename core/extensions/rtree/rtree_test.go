package rtree

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/extensions"
	"github.com/FocuswithJustin/geopackage/core/features"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/proj"
	"github.com/FocuswithJustin/geopackage/core/sqlite"
	"github.com/FocuswithJustin/geopackage/core/user"
)

func newPlacesDao(t *testing.T) *features.Dao {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "places.gpkg"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn, err := user.NewConnection(ctx, db, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	table, err := user.NewTable(user.FeatureSpec, "places", []*user.Column{
		user.NewPKColumn("id"),
		user.NewGeometryColumn("geom", "GEOMETRY"),
		user.NewColumn("name", user.DataTypeText),
	})
	require.NoError(t, err)
	_, err = conn.Exec(ctx, table.CreateSQL())
	require.NoError(t, err)

	dao, err := features.NewDao(user.NewDao(conn, table, nil), features.Options{SRSID: 4326, Projection: proj.WGS84})
	require.NoError(t, err)
	return dao
}

// box returns a diagonal line whose envelope is the given box.
func box(minX, minY, maxX, maxY float64) orb.Geometry {
	return orb.LineString{{minX, minY}, {maxX, maxY}}
}

func insertPlace(t *testing.T, dao *features.Dao, g orb.Geometry) int64 {
	t.Helper()
	row := dao.NewRow()
	require.NoError(t, dao.SetGeometry(row, g))
	id, err := dao.InsertOrFail(context.Background(), row)
	require.NoError(t, err)
	return id
}

// threePlaces inserts the envelopes (0,0,1,1), (5,5,6,6) and (2,2,3,3).
func threePlaces(t *testing.T, dao *features.Dao) {
	t.Helper()
	insertPlace(t, dao, box(0, 0, 1, 1))
	insertPlace(t, dao, box(5, 5, 6, 6))
	insertPlace(t, dao, box(2, 2, 3, 3))
}

func newReadyIndex(t *testing.T, dao *features.Dao) *Index {
	t.Helper()
	idx, err := New(context.Background(), dao, Options{})
	require.NoError(t, err)
	require.NoError(t, idx.Create(context.Background()))
	return idx
}

func ids(rows []IndexRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func resultIDs(t *testing.T, res *user.Result) []int64 {
	t.Helper()
	var out []int64
	for res.Next() {
		id, err := res.ID()
		require.NoError(t, err)
		out = append(out, id)
	}
	require.NoError(t, res.Err())
	require.NoError(t, res.Close())
	return out
}

func TestQueryScenario(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	idx := newReadyIndex(t, dao)

	assert.Equal(t, Ready, idx.State())
	assert.Equal(t, "rtree_places_geom", idx.IndexTableName())

	rows, err := idx.QueryBounds(ctx, 0.5, 0.5, 2.5, 2.5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(rows))

	res, err := idx.QueryFeatures(ctx, geom.Envelope{MinX: 0.5, MinY: 0.5, MaxX: 2.5, MaxY: 2.5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, resultIDs(t, res))

	n, err := idx.CountFeatures(ctx, geom.Envelope{MinX: 0.5, MinY: 0.5, MaxX: 2.5, MaxY: 2.5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	bounds, ok, err := idx.Bounds(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0, bounds.MinX, 1e-6)
	assert.InDelta(t, 6, bounds.MaxY, 1e-6)
}

func TestOverlapLaw(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	envs := []geom.Envelope{
		{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
		{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6},
		{MinX: -3.25, MinY: 10.5, MaxX: -1, MaxY: 12.75},
	}
	for _, e := range envs {
		insertPlace(t, dao, box(e.MinX, e.MinY, e.MaxX, e.MaxY))
	}
	idx := newReadyIndex(t, dao)

	for i, e := range envs {
		id := int64(i + 1)

		rows, err := idx.Query(ctx, e)
		require.NoError(t, err)
		assert.Contains(t, ids(rows), id, "own envelope must match feature %d", id)

		// A box strictly to the right of the feature never matches.
		right := geom.Envelope{MinX: e.MaxX + 0.01, MinY: e.MinY, MaxX: e.MaxX + 0.5, MaxY: e.MaxY}
		rows, err = idx.Query(ctx, right)
		require.NoError(t, err)
		assert.NotContains(t, ids(rows), id, "disjoint box matched feature %d", id)
	}

	// Touching edges overlap.
	rows, err := idx.QueryBounds(ctx, 1, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(rows))
}

func TestNarrowGapBeyondStoredPrecision(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	id := insertPlace(t, dao, box(0.1, 0.1, 0.2, 0.2))
	idx := newReadyIndex(t, dao)

	stored, err := idx.Query(ctx, geom.Envelope{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Greater(t, stored[0].MaxX, 0.2, "index bounds are rounded outward")

	// Disjoint by 1e-9: inside the stored rounding, far beyond the tolerance.
	gap := geom.Envelope{MinX: 0.2 + 1e-9, MinY: 0.1, MaxX: 0.3, MaxY: 0.2}

	rows, err := idx.Query(ctx, gap)
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := idx.CountEnvelope(ctx, gap)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := idx.QueryFeatures(ctx, gap)
	require.NoError(t, err)
	assert.Empty(t, resultIDs(t, res))

	n, err = idx.CountFeatures(ctx, gap)
	require.NoError(t, err)
	assert.Zero(t, n)

	idx.SetTolerance(1e-8)
	rows, err = idx.Query(ctx, gap)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids(rows), "a tolerance wider than the gap matches")
}

func TestNotReady(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	idx, err := New(ctx, dao, Options{})
	require.NoError(t, err)
	assert.Equal(t, Absent, idx.State())

	has, err := idx.Has(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	env := geom.Envelope{MaxX: 1, MaxY: 1}
	_, err = idx.Query(ctx, env)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
	_, err = idx.QueryFeatures(ctx, env)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
	_, err = idx.CountFeatures(ctx, env)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
	_, err = idx.Count(ctx)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
	_, _, err = idx.Bounds(ctx)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
	_, err = idx.QueryFeaturesChunk(ctx, env, 10, 0)
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)
}

func TestCreateTwiceFails(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	idx := newReadyIndex(t, dao)

	err := idx.Create(ctx)
	assert.ErrorIs(t, err, gerrors.ErrSchema)
	assert.Equal(t, Ready, idx.State())
	require.NoError(t, idx.GetOrCreate(ctx))
}

func TestTriggersMaintainIndex(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	idx := newReadyIndex(t, dao)

	// Insert.
	id := insertPlace(t, dao, box(10, 10, 11, 11))
	rows, err := idx.QueryBounds(ctx, 10.5, 10.5, 10.6, 10.6)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids(rows))

	// A NULL geometry is not indexed.
	insertPlace(t, dao, nil)
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Update moves the entry.
	row, err := dao.QueryForID(ctx, id)
	require.NoError(t, err)
	require.NoError(t, dao.SetGeometry(row, box(20, 20, 21, 21)))
	_, err = dao.Update(ctx, row)
	require.NoError(t, err)
	rows, err = idx.QueryBounds(ctx, 10.5, 10.5, 10.6, 10.6)
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = idx.QueryBounds(ctx, 20, 20, 21, 21)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids(rows))

	// Updating to NULL removes it.
	_, err = dao.UpdateValues(ctx, user.ContentValues{"geom": nil}, `"id" = ?`, []any{id})
	require.NoError(t, err)
	rows, err = idx.QueryBounds(ctx, 20, 20, 21, 21)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Delete removes it.
	_, err = dao.DeleteByID(ctx, 1)
	require.NoError(t, err)
	rows, err = idx.QueryBounds(ctx, 0, 0, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDeleteIndex(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	idx := newReadyIndex(t, dao)
	conn := dao.Connection()

	assert.True(t, FunctionsBound(conn))
	registered, err := extensions.Has(ctx, conn, "places", "geom", ExtensionName)
	require.NoError(t, err)
	assert.True(t, registered)

	require.NoError(t, idx.Delete(ctx))
	assert.Equal(t, Absent, idx.State())
	assert.False(t, FunctionsBound(conn))

	// The driver keeps the functions on the connection.
	line, err := geom.Encode(4326, box(1, 2, 3, 4))
	require.NoError(t, err)
	v, ok, err := conn.QuerySingleResult(ctx, "SELECT "+FuncMinX+"(?)", line)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	registered, err = extensions.Has(ctx, conn, "places", "geom", ExtensionName)
	require.NoError(t, err)
	assert.False(t, registered)

	n, err := conn.QueryInt(ctx, `SELECT count(*) FROM sqlite_master WHERE name LIKE 'rtree_places_geom%'`)
	require.NoError(t, err)
	assert.Zero(t, n, "virtual table and triggers should be gone")

	// Writes keep working without the triggers.
	insertPlace(t, dao, box(1, 1, 2, 2))

	_, err = idx.Query(ctx, geom.Envelope{})
	assert.ErrorIs(t, err, gerrors.ErrIndexNotReady)

	// And the index can be rebuilt.
	require.NoError(t, idx.Create(ctx))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestExistingIndexStartsReady(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	newReadyIndex(t, dao)

	again, err := New(ctx, dao, Options{Tolerance: 0.5})
	require.NoError(t, err)
	assert.Equal(t, Ready, again.State())
	assert.Equal(t, 0.5, again.Tolerance())

	has, err := again.Has(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	// With a wide tolerance the gap between features 1 and 3 is bridged.
	rows, err := again.QueryBounds(ctx, 1.25, 1.25, 1.75, 1.75)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(rows))
}

func TestCreateInsideCallerTransaction(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	idx, err := New(ctx, dao, Options{})
	require.NoError(t, err)

	require.NoError(t, dao.Begin(ctx))
	require.NoError(t, idx.Create(ctx))
	require.NoError(t, dao.Rollback(ctx))

	has, err := idx.Has(ctx)
	require.NoError(t, err)
	assert.False(t, has, "rolled back index should read as absent")
	assert.Equal(t, Absent, idx.State())
}

func TestPagedFeatureQueries(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	for i := 0; i < 7; i++ {
		f := float64(i)
		insertPlace(t, dao, box(f, f, f+0.5, f+0.5))
	}
	idx := newReadyIndex(t, dao)
	all := geom.Envelope{MinX: -1, MinY: -1, MaxX: 10, MaxY: 10}

	res, err := idx.QueryFeaturesChunk(ctx, all, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6}, resultIDs(t, res))

	_, err = idx.QueryFeaturesChunk(ctx, all, 0, 0)
	assert.ErrorIs(t, err, gerrors.ErrQueryConstruction)

	pages, err := idx.PaginateFeatures(ctx, all, 2)
	require.NoError(t, err)
	var got []int64
	for pages.Next() {
		row, err := pages.Row()
		require.NoError(t, err)
		id, err := row.ID()
		require.NoError(t, err)
		got = append(got, id)
	}
	require.NoError(t, pages.Err())
	require.NoError(t, pages.Close())
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, got)

	res, err = idx.QueryFeaturesWhere(ctx, all, `"id" > ?`, []any{5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{6, 7}, resultIDs(t, res))
}

func TestQueryProjected(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	threePlaces(t, dao)
	idx := newReadyIndex(t, dao)

	query := geom.Envelope{MinX: 0.5, MinY: 0.5, MaxX: 2.5, MaxY: 2.5}
	mercator, err := proj.TransformEnvelope(query, proj.WGS84, proj.WebMercator)
	require.NoError(t, err)

	rows, err := idx.QueryProjected(ctx, mercator, proj.WebMercator)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(rows))

	res, err := idx.QueryFeaturesProjected(ctx, mercator, proj.WebMercator)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, resultIDs(t, res))
}

func TestScalarFunctions(t *testing.T) {
	ctx := context.Background()
	dao := newPlacesDao(t)
	conn := dao.Connection()

	line, err := geom.Encode(4326, box(1, 2, 3, 4))
	require.NoError(t, err)

	tests := []struct {
		fn   string
		arg  any
		want any
	}{
		{FuncMinX, line, 1.0},
		{FuncMaxX, line, 3.0},
		{FuncMinY, line, 2.0},
		{FuncMaxY, line, 4.0},
		{FuncIsEmpty, line, int64(0)},
		{FuncIsEmpty, geom.EncodeEmpty(4326), int64(1)},
		{FuncMinX, geom.EncodeEmpty(4326), nil},
		{FuncMinX, nil, nil},
		{FuncIsEmpty, nil, nil},
	}
	for _, tt := range tests {
		v, ok, err := conn.QuerySingleResult(ctx, "SELECT "+tt.fn+"(?)", tt.arg)
		require.NoError(t, err, tt.fn)
		require.True(t, ok)
		assert.Equal(t, tt.want, v, "%s(%v)", tt.fn, tt.arg)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "building", Building.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "State(9)", State(9).String())
}
