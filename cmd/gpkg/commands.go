package main

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/geopackage/core/extensions"
	"github.com/FocuswithJustin/geopackage/core/extensions/rtree"
	"github.com/FocuswithJustin/geopackage/core/features"
	"github.com/FocuswithJustin/geopackage/core/geom"
	"github.com/FocuswithJustin/geopackage/core/geopackage"
	"github.com/FocuswithJustin/geopackage/core/proj"
	"github.com/FocuswithJustin/geopackage/core/sqlite"
	"github.com/FocuswithJustin/geopackage/core/user"
)

// InfoCmd prints container metadata as JSON.
type InfoCmd struct {
	Path string `arg:"" help:"GeoPackage file" type:"existingfile"`
}

type infoOutput struct {
	Path          string                `json:"path"`
	ApplicationID string                `json:"application_id"`
	UserVersion   int64                 `json:"user_version"`
	Driver        sqlite.Info           `json:"driver"`
	Contents      []geopackage.Contents `json:"contents"`
	Extensions    []extensions.Extension `json:"extensions"`
}

func (c *InfoCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	appID, err := gp.ApplicationID(app.Ctx)
	if err != nil {
		return err
	}
	version, err := gp.UserVersion(app.Ctx)
	if err != nil {
		return err
	}
	contents, err := gp.Contents(app.Ctx)
	if err != nil {
		return err
	}
	exts, err := gp.Extensions(app.Ctx, "")
	if err != nil {
		return err
	}

	enc := json.NewEncoder(app.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(infoOutput{
		Path:          c.Path,
		ApplicationID: fmt.Sprintf("0x%08X", appID),
		UserVersion:   version,
		Driver:        sqlite.GetInfo(),
		Contents:      contents,
		Extensions:    exts,
	})
}

// TablesCmd lists user tables, optionally filtered by data type.
type TablesCmd struct {
	Path string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Type string `help:"Data type filter (features, tiles, attributes)"`
}

func (c *TablesCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	names, err := gp.Tables(app.Ctx, c.Type)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(app.Out, name)
	}
	return nil
}

// CountCmd counts the rows of a table.
type CountCmd struct {
	Path  string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string `arg:"" help:"Table name"`
	Where string `help:"SQL WHERE clause"`
}

func (c *CountCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	dao, err := gp.UserDao(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	n, err := dao.Count(app.Ctx, c.Where, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, n)
	return nil
}

// IndexCreateCmd builds the R-tree index of a feature table.
type IndexCreateCmd struct {
	Path  string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string `arg:"" help:"Feature table name"`
}

func (c *IndexCreateCmd) Run(app *App) error {
	gp, err := app.open(c.Path, false)
	if err != nil {
		return err
	}
	defer gp.Close()

	idx, err := gp.SpatialIndex(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	if err := idx.GetOrCreate(app.Ctx); err != nil {
		return err
	}
	n, err := idx.Count(app.Ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: %d entries\n", idx.IndexTableName(), n)
	return nil
}

// IndexDeleteCmd drops the R-tree index of a feature table.
type IndexDeleteCmd struct {
	Path  string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string `arg:"" help:"Feature table name"`
}

func (c *IndexDeleteCmd) Run(app *App) error {
	gp, err := app.open(c.Path, false)
	if err != nil {
		return err
	}
	defer gp.Close()

	idx, err := gp.SpatialIndex(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	if err := idx.Delete(app.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s: deleted\n", idx.IndexTableName())
	return nil
}

// IndexStatusCmd reports the state of a feature table's R-tree index.
type IndexStatusCmd struct {
	Path  string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string `arg:"" help:"Feature table name"`
}

type indexStatus struct {
	Table   string         `json:"table"`
	Column  string         `json:"column"`
	Index   string         `json:"index"`
	State   string         `json:"state"`
	Entries int64          `json:"entries"`
	Bounds  *geom.Envelope `json:"bounds,omitempty"`
}

func (c *IndexStatusCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	idx, err := gp.SpatialIndex(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	if _, err := idx.Has(app.Ctx); err != nil {
		return err
	}

	st := indexStatus{
		Table:  idx.TableName(),
		Column: idx.ColumnName(),
		Index:  idx.IndexTableName(),
		State:  idx.State().String(),
	}
	if idx.State() == rtree.Ready {
		if st.Entries, err = idx.Count(app.Ctx); err != nil {
			return err
		}
		env, ok, err := idx.Bounds(app.Ctx)
		if err != nil {
			return err
		}
		if ok {
			st.Bounds = &env
		}
	}
	return json.NewEncoder(app.Out).Encode(st)
}

// QueryBBoxCmd prints the features whose envelopes overlap a bounding box.
type QueryBBoxCmd struct {
	Path  string  `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string  `arg:"" help:"Feature table name"`
	MinX  float64 `arg:"" name:"minx" help:"Minimum x"`
	MinY  float64 `arg:"" name:"miny" help:"Minimum y"`
	MaxX  float64 `arg:"" name:"maxx" help:"Maximum x"`
	MaxY  float64 `arg:"" name:"maxy" help:"Maximum y"`
	SRS   int64   `name:"srs" help:"EPSG code of the bounding box (defaults to the table's system)"`
}

func (c *QueryBBoxCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	idx, err := gp.SpatialIndex(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	dao, err := gp.FeatureDao(app.Ctx, c.Table)
	if err != nil {
		return err
	}

	env := geom.NewEnvelope(c.MinX, c.MinY, c.MaxX, c.MaxY)
	var res *user.Result
	if c.SRS != 0 {
		res, err = idx.QueryFeaturesProjected(app.Ctx, env, proj.New(proj.AuthorityEPSG, c.SRS))
	} else {
		res, err = idx.QueryFeatures(app.Ctx, env)
	}
	if err != nil {
		return err
	}
	defer res.Close()

	enc := json.NewEncoder(app.Out)
	for res.Next() {
		row, err := res.Row()
		if err != nil {
			return err
		}
		rec, err := record(dao, row)
		if err != nil {
			return err
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return res.Err()
}

// ChecksumCmd prints a BLAKE3 digest over a table's rows in primary key order.
type ChecksumCmd struct {
	Path  string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table string `arg:"" help:"Table name"`
}

func (c *ChecksumCmd) Run(app *App) error {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	dao, err := gp.UserDao(app.Ctx, c.Table)
	if err != nil {
		return err
	}
	sum, rows, err := checksum(app, dao)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "%s  %s (%d rows)\n", sum, c.Table, rows)
	return nil
}

func checksum(app *App, dao *user.Dao) (string, int64, error) {
	q := user.Query{}
	if pk, err := dao.Table().PKColumn(); err == nil {
		q.OrderBy = user.Quote(pk.Name())
	}
	pages, err := dao.Paginate(app.Ctx, q, app.Config.ChunkSize)
	if err != nil {
		return "", 0, err
	}
	defer pages.Close()

	h := blake3.New()
	var rows int64
	for pages.Next() {
		res := pages.Result()
		for i := 0; i < res.ColumnCount(); i++ {
			hashValue(h, res.Value(i))
		}
		rows++
	}
	if err := pages.Err(); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), rows, nil
}

// hashValue writes a type tag followed by a fixed encoding of v.
func hashValue(w io.Writer, v any) {
	var buf [9]byte
	switch x := v.(type) {
	case nil:
		buf[0] = 0
		w.Write(buf[:1])
	case int64:
		buf[0] = 1
		binary.BigEndian.PutUint64(buf[1:], uint64(x))
		w.Write(buf[:])
	case float64:
		buf[0] = 2
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(x))
		w.Write(buf[:])
	case string:
		buf[0] = 3
		binary.BigEndian.PutUint64(buf[1:], uint64(len(x)))
		w.Write(buf[:])
		io.WriteString(w, x)
	case []byte:
		buf[0] = 4
		binary.BigEndian.PutUint64(buf[1:], uint64(len(x)))
		w.Write(buf[:])
		w.Write(x)
	default:
		hashValue(w, fmt.Sprint(x))
	}
}

// DumpCmd writes every row of a table as one JSON object per line.
type DumpCmd struct {
	Path   string `arg:"" help:"GeoPackage file" type:"existingfile"`
	Table  string `arg:"" help:"Table name"`
	Output string `short:"o" help:"Output file (default stdout)" type:"path"`
	XZ     bool   `name:"xz" help:"Compress output with xz"`
}

func (c *DumpCmd) Run(app *App) (err error) {
	gp, err := app.open(c.Path, true)
	if err != nil {
		return err
	}
	defer gp.Close()

	var out io.Writer = app.Out
	if c.Output != "" {
		f, ferr := os.Create(c.Output)
		if ferr != nil {
			return fmt.Errorf("failed to create output: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		out = f
	}
	if c.XZ {
		xw, xerr := xz.NewWriter(out)
		if xerr != nil {
			return fmt.Errorf("failed to create xz writer: %w", xerr)
		}
		defer func() {
			if cerr := xw.Close(); err == nil {
				err = cerr
			}
		}()
		out = xw
	}

	var fdao *features.Dao
	contents, err := gp.ContentsOf(app.Ctx, c.Table)
	if err == nil && contents.DataType == geopackage.DataTypeFeatures {
		if fdao, err = gp.FeatureDao(app.Ctx, c.Table); err != nil {
			return err
		}
	}
	dao, err := gp.UserDao(app.Ctx, c.Table)
	if err != nil {
		return err
	}

	q := user.Query{}
	if pk, err := dao.Table().PKColumn(); err == nil {
		q.OrderBy = user.Quote(pk.Name())
	}
	pages, err := dao.Paginate(app.Ctx, q, app.Config.ChunkSize)
	if err != nil {
		return err
	}
	defer pages.Close()

	enc := json.NewEncoder(out)
	var n int64
	for pages.Next() {
		row, err := pages.Row()
		if err != nil {
			return err
		}
		rec, err := record(fdao, row)
		if err != nil {
			return err
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
		n++
	}
	if err := pages.Err(); err != nil {
		return err
	}
	app.Logger.Info("dump complete", "table", c.Table, "rows", n, "xz", c.XZ)
	return nil
}

// record converts a row into a JSON-friendly map. When dao is non-nil the
// geometry column is rendered as a GeoJSON geometry.
func record(dao *features.Dao, row *user.Row) (map[string]any, error) {
	t := row.Table()
	rec := make(map[string]any, row.Len())
	for i := 0; i < row.Len(); i++ {
		col := t.ColumnAt(i)
		v := row.Value(i)
		if dao != nil && col.Name() == dao.GeometryColumnName() && v != nil {
			b, err := dao.ReadGeometry(row)
			if err != nil {
				return nil, err
			}
			if b == nil || b.Geometry == nil {
				v = nil
			} else {
				v = geojson.NewGeometry(b.Geometry)
			}
		}
		rec[col.Name()] = v
	}
	return rec, nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(app.Out, "gpkg version %s (sqlite driver %s, %s)\n", version, info.DriverName, info.DriverType)
	return nil
}
