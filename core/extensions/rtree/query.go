package rtree

import (
	"context"
	"fmt"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/proj"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// overlap is the rectangle-overlap test against a query box already
// expanded by the tolerance. Bound in order maxX, maxY, minX, minY.
const overlap = `r."minx" <= ? AND r."miny" <= ? AND r."maxx" >= ? AND r."maxy" >= ?`

func (x *Index) ready() error {
	if x.state != Ready {
		return gerrors.NewIndexNotReady(x.table, x.state.String())
	}
	return nil
}

// overlapArgs binds the index test and then the exact envelope test.
func (x *Index) overlapArgs(env geom.Envelope) []any {
	e := env.Expand(x.tolerance)
	return []any{e.MaxX, e.MaxY, e.MinX, e.MinY, e.MaxX, e.MaxY, e.MinX, e.MinY}
}

// matchSQL selects projection over the index rows overlapping the query
// box. The rtree keeps 32-bit bounds rounded outward, so every candidate is
// tested again against the exact envelope of its geometry.
func (x *Index) matchSQL(projection string) string {
	col := "f." + user.Quote(x.column)
	return fmt.Sprintf(`SELECT %s FROM %s AS r JOIN %s AS f ON f.%s = r."id" WHERE %s`+
		` AND %s(%s) <= ? AND %s(%s) <= ? AND %s(%s) >= ? AND %s(%s) >= ?`,
		projection, user.Quote(x.name), user.Quote(x.table), user.Quote(x.pk), overlap,
		FuncMinX, col, FuncMinY, col, FuncMaxX, col, FuncMaxY, col)
}

// idSubquery selects the ids of the features overlapping env.
func (x *Index) idSubquery(env geom.Envelope) (string, []any) {
	return x.matchSQL(`r."id"`), x.overlapArgs(env)
}

// Count returns the number of index rows.
func (x *Index) Count(ctx context.Context) (int64, error) {
	if err := x.ready(); err != nil {
		return 0, err
	}
	return x.conn.QueryInt(ctx, "SELECT count(*) FROM "+user.Quote(x.name))
}

// CountEnvelope returns the number of index rows overlapping env.
func (x *Index) CountEnvelope(ctx context.Context, env geom.Envelope) (int64, error) {
	if err := x.ready(); err != nil {
		return 0, err
	}
	return x.conn.QueryInt(ctx, x.matchSQL("count(*)"), x.overlapArgs(env)...)
}

// Bounds returns the union of all indexed envelopes. The boolean is false
// for an empty index.
func (x *Index) Bounds(ctx context.Context) (geom.Envelope, bool, error) {
	if err := x.ready(); err != nil {
		return geom.Envelope{}, false, err
	}
	rows, err := x.conn.QueryResults(ctx, fmt.Sprintf(
		`SELECT min("minx"), min("miny"), max("maxx"), max("maxy") FROM %s`, user.Quote(x.name)))
	if err != nil {
		return geom.Envelope{}, false, err
	}
	if len(rows) == 0 || rows[0][0] == nil {
		return geom.Envelope{}, false, nil
	}
	r := rows[0]
	return geom.Envelope{MinX: float(r[0]), MinY: float(r[1]), MaxX: float(r[2]), MaxY: float(r[3])}, true, nil
}

// Query returns the index rows whose envelopes overlap env, expanded by
// the tolerance, ordered by id.
func (x *Index) Query(ctx context.Context, env geom.Envelope) ([]IndexRow, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	rows, err := x.conn.QueryResults(ctx,
		x.matchSQL(`r."id", r."minx", r."maxx", r."miny", r."maxy"`)+` ORDER BY r."id"`,
		x.overlapArgs(env)...)
	if err != nil {
		return nil, err
	}
	out := make([]IndexRow, len(rows))
	for i, r := range rows {
		out[i] = IndexRow{ID: integer(r[0]), MinX: float(r[1]), MaxX: float(r[2]), MinY: float(r[3]), MaxY: float(r[4])}
	}
	return out, nil
}

// QueryBounds is Query over an explicit box.
func (x *Index) QueryBounds(ctx context.Context, minX, minY, maxX, maxY float64) ([]IndexRow, error) {
	return x.Query(ctx, geom.Envelope{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
}

// QueryFeatures returns the feature rows whose indexed envelopes overlap
// env. The index query is embedded as an id IN subquery.
func (x *Index) QueryFeatures(ctx context.Context, env geom.Envelope) (*user.Result, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	sub, args := x.idSubquery(env)
	return x.dao.QueryIn(ctx, sub, args, "", nil)
}

// QueryFeaturesWhere is QueryFeatures further filtered by where.
func (x *Index) QueryFeaturesWhere(ctx context.Context, env geom.Envelope, where string, args []any) (*user.Result, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	sub, subArgs := x.idSubquery(env)
	return x.dao.QueryIn(ctx, sub, subArgs, where, args)
}

// CountFeatures counts the feature rows QueryFeatures would return.
func (x *Index) CountFeatures(ctx context.Context, env geom.Envelope) (int64, error) {
	if err := x.ready(); err != nil {
		return 0, err
	}
	sub, args := x.idSubquery(env)
	return x.dao.CountIn(ctx, sub, args, "", nil)
}

// QueryFeaturesChunk returns one page of QueryFeatures ordered by primary
// key.
func (x *Index) QueryFeaturesChunk(ctx context.Context, env geom.Envelope, limit, offset int) (*user.Result, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || offset < 0 {
		return nil, gerrors.NewQueryConstruction("LIMIT", fmt.Sprintf("invalid page limit %d offset %d", limit, offset))
	}
	return x.dao.Query(ctx, x.featuresQuery(env, fmt.Sprintf("%d, %d", offset, limit)))
}

// PaginateFeatures iterates QueryFeatures in chunks of chunk rows.
func (x *Index) PaginateFeatures(ctx context.Context, env geom.Envelope, chunk int) (*user.PaginatedResults, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	return x.dao.Paginate(ctx, x.featuresQuery(env, ""), chunk)
}

func (x *Index) featuresQuery(env geom.Envelope, limit string) user.Query {
	sub, args := x.idSubquery(env)
	return user.Query{
		Where:   user.Quote(x.pk) + " IN (" + sub + ")",
		Args:    args,
		OrderBy: user.Quote(x.pk),
		Limit:   limit,
	}
}

// QueryProjected is Query with env given in another projection; it is
// translated into the feature table projection first.
func (x *Index) QueryProjected(ctx context.Context, env geom.Envelope, from proj.Projection) ([]IndexRow, error) {
	local, err := x.toLocal(env, from)
	if err != nil {
		return nil, err
	}
	return x.Query(ctx, local)
}

// QueryFeaturesProjected is QueryFeatures with env given in another
// projection.
func (x *Index) QueryFeaturesProjected(ctx context.Context, env geom.Envelope, from proj.Projection) (*user.Result, error) {
	local, err := x.toLocal(env, from)
	if err != nil {
		return nil, err
	}
	return x.QueryFeatures(ctx, local)
}

func (x *Index) toLocal(env geom.Envelope, from proj.Projection) (geom.Envelope, error) {
	to := x.dao.Projection()
	if to == (proj.Projection{}) {
		return env, nil
	}
	return proj.TransformEnvelope(env, from, to)
}

func integer(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
