package user

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/internal/logging"
)

// Dao is the data-access object of one user table. Like its Connection it
// performs no locking of its own.
type Dao struct {
	conn   *Connection
	table  *Table
	logger *slog.Logger
}

// NewDao binds a table to a connection.
func NewDao(conn *Connection, table *Table, logger *slog.Logger) *Dao {
	if logger == nil {
		logger = conn.logger
	}
	return &Dao{conn: conn, table: table, logger: logger.With("table", table.name)}
}

// Table returns the table.
func (d *Dao) Table() *Table { return d.table }

// TableName returns the table name.
func (d *Dao) TableName() string { return d.table.name }

// Connection returns the underlying connection.
func (d *Dao) Connection() *Connection { return d.conn }

// NewRow returns an empty row for the table.
func (d *Dao) NewRow() *Row { return NewRow(d.table) }

// Insert writes row and returns its new id. A storage failure is logged and
// reported as id -1 with a nil error; schema, validation and empty-write
// errors are returned. Use InsertOrFail to receive storage errors too.
func (d *Dao) Insert(ctx context.Context, row *Row) (int64, error) {
	id, err := d.InsertOrFail(ctx, row)
	if err == nil {
		return id, nil
	}
	var storageErr *gerrors.StorageIOError
	if gerrors.As(err, &storageErr) {
		logging.StorageError(d.logger, "insert", d.table.name, err)
		return -1, nil
	}
	return -1, err
}

// InsertOrFail writes row and returns its new id. When the table has a
// primary key the id is set on the row.
func (d *Dao) InsertOrFail(ctx context.Context, row *Row) (int64, error) {
	id, err := d.InsertValues(ctx, row.ToContentValues())
	if err != nil {
		return -1, err
	}
	if d.table.HasPK() {
		if err := row.SetID(id); err != nil {
			return -1, err
		}
	}
	return id, nil
}

// InsertValues inserts a write set and returns the new rowid.
func (d *Dao) InsertValues(ctx context.Context, values ContentValues) (int64, error) {
	if values.Len() == 0 {
		return -1, fmt.Errorf("insert into %s: %w", d.table.name, gerrors.ErrEmptyWrite)
	}
	cols, args, err := d.bind(values)
	if err != nil {
		return -1, err
	}
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = placeholder(i)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Quote(d.table.name), QuoteList(cols), strings.Join(ph, ", "))

	res, err := d.conn.Exec(ctx, query, args...)
	if err != nil {
		return -1, d.storageErr("insert into", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1, d.storageErr("insert into", err)
	}
	return id, nil
}

// Update writes every non primary key column of row, keyed on its id.
func (d *Dao) Update(ctx context.Context, row *Row) (int64, error) {
	id, err := row.ID()
	if err != nil {
		return 0, err
	}
	pk := d.table.columns[d.table.pkIndex]
	values := row.ToContentValues()
	values.Remove(pk.name)
	return d.UpdateValues(ctx, values, Quote(pk.name)+" = ?", []any{id})
}

// UpdateValues applies a write set to the rows matching where.
func (d *Dao) UpdateValues(ctx context.Context, values ContentValues, where string, args []any) (int64, error) {
	if values.Len() == 0 {
		return 0, fmt.Errorf("update %s: %w", d.table.name, gerrors.ErrEmptyWrite)
	}
	cols, setArgs, err := d.bind(values)
	if err != nil {
		return 0, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = Quote(c) + " = " + placeholder(i)
	}
	query := fmt.Sprintf("UPDATE %s SET %s", Quote(d.table.name), strings.Join(sets, ", "))
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}

	// Unnumbered ? parameters in the WHERE clause continue after the
	// highest numbered SET parameter.
	res, err := d.conn.Exec(ctx, query, append(setArgs, args...)...)
	if err != nil {
		return 0, d.storageErr("update", err)
	}
	return rowsAffected(res)
}

// Delete removes the rows matching where. An empty where deletes every row.
func (d *Dao) Delete(ctx context.Context, where string, args []any) (int64, error) {
	query := "DELETE FROM " + Quote(d.table.name)
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}
	res, err := d.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, d.storageErr("delete from", err)
	}
	return rowsAffected(res)
}

// DeleteByID removes the row with the given id.
func (d *Dao) DeleteByID(ctx context.Context, id int64) (int64, error) {
	where, err := d.pkWhere()
	if err != nil {
		return 0, err
	}
	return d.Delete(ctx, where, []any{id})
}

// DeleteRow removes row by its id.
func (d *Dao) DeleteRow(ctx context.Context, row *Row) (int64, error) {
	id, err := row.ID()
	if err != nil {
		return 0, err
	}
	return d.DeleteByID(ctx, id)
}

// QueryForID reads the row with the given id.
func (d *Dao) QueryForID(ctx context.Context, id int64) (*Row, error) {
	where, err := d.pkWhere()
	if err != nil {
		return nil, err
	}
	res, err := d.QueryWhere(ctx, where, []any{id})
	if err != nil {
		return nil, err
	}

	var row *Row
	if res.Next() {
		row, err = res.Row()
	} else if err = res.Err(); err == nil {
		err = gerrors.NewNotFound(d.table.name, fmt.Sprint(id))
	}
	return row, gerrors.Cleanup(err, res.Close())
}

// QueryForAll selects every row.
func (d *Dao) QueryForAll(ctx context.Context) (*Result, error) {
	return d.Query(ctx, Query{})
}

// QueryWhere selects the rows matching where.
func (d *Dao) QueryWhere(ctx context.Context, where string, args []any) (*Result, error) {
	return d.Query(ctx, Query{Where: where, Args: args})
}

// QueryForEq selects the rows whose column equals value; a nil value
// matches NULL.
func (d *Dao) QueryForEq(ctx context.Context, column string, value any) (*Result, error) {
	if value == nil {
		return d.QueryWhere(ctx, Quote(column)+" IS NULL", nil)
	}
	return d.QueryWhere(ctx, Quote(column)+" = ?", []any{value})
}

// QueryIn selects the rows whose primary key is in the ids produced by
// inSQL, further filtered by where.
func (d *Dao) QueryIn(ctx context.Context, inSQL string, inArgs []any, where string, args []any) (*Result, error) {
	q, qArgs, err := d.inWhere(inSQL, inArgs, where, args)
	if err != nil {
		return nil, err
	}
	return d.QueryWhere(ctx, q, qArgs)
}

// CountIn counts the rows QueryIn would select.
func (d *Dao) CountIn(ctx context.Context, inSQL string, inArgs []any, where string, args []any) (int64, error) {
	q, qArgs, err := d.inWhere(inSQL, inArgs, where, args)
	if err != nil {
		return 0, err
	}
	return d.Count(ctx, q, qArgs)
}

func (d *Dao) inWhere(inSQL string, inArgs []any, where string, args []any) (string, []any, error) {
	pk, err := d.table.PKColumn()
	if err != nil {
		return "", nil, err
	}
	q := Quote(pk.name) + " IN (" + inSQL + ")"
	if strings.TrimSpace(where) != "" {
		q += " AND (" + where + ")"
	}
	return q, append(append([]any{}, inArgs...), args...), nil
}

// QueryColumns selects the given columns of the rows matching where.
func (d *Dao) QueryColumns(ctx context.Context, columns []string, where string, args []any) (*Result, error) {
	return d.Query(ctx, Query{Columns: columns, Where: where, Args: args})
}

// Query runs a structured query. Tables defaults to the Dao table.
func (d *Dao) Query(ctx context.Context, q Query) (*Result, error) {
	if len(q.Tables) == 0 {
		q.Tables = []string{d.table.name}
	}
	return d.conn.Query(ctx, d.table, q)
}

// RawQuery runs arbitrary SQL, reading rows as this table's rows.
func (d *Dao) RawQuery(ctx context.Context, query string, args []any) (*Result, error) {
	return d.conn.RawQuery(ctx, d.table, query, args, false)
}

// Exec runs a raw statement.
func (d *Dao) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.conn.Exec(ctx, query, args...)
}

// Count counts the rows matching where.
func (d *Dao) Count(ctx context.Context, where string, args []any) (int64, error) {
	return d.CountColumn(ctx, "", false, where, args)
}

// CountColumn counts the non-null values of column, or rows when column is
// empty, optionally counting distinct values only.
func (d *Dao) CountColumn(ctx context.Context, column string, distinct bool, where string, args []any) (int64, error) {
	expr := "*"
	if column != "" {
		expr = Quote(column)
		if distinct {
			expr = "DISTINCT " + expr
		}
	}
	query := fmt.Sprintf("SELECT count(%s) FROM %s", expr, Quote(d.table.name))
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}
	return d.conn.QueryInt(ctx, query, args...)
}

// Min returns the minimum of column over the rows matching where. The
// boolean is false, and no aggregate query is issued, when no row matches.
func (d *Dao) Min(ctx context.Context, column, where string, args []any) (any, bool, error) {
	return d.aggregate(ctx, "min", column, where, args)
}

// Max returns the maximum of column over the rows matching where, with the
// same no-result rule as Min.
func (d *Dao) Max(ctx context.Context, column, where string, args []any) (any, bool, error) {
	return d.aggregate(ctx, "max", column, where, args)
}

func (d *Dao) aggregate(ctx context.Context, fn, column, where string, args []any) (any, bool, error) {
	n, err := d.Count(ctx, where, args)
	if err != nil || n == 0 {
		return nil, false, err
	}
	query := fmt.Sprintf("SELECT %s(%s) FROM %s", fn, Quote(column), Quote(d.table.name))
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}
	v, _, err := d.conn.QuerySingleResult(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// IDs returns every primary key in ascending order.
func (d *Dao) IDs(ctx context.Context) ([]int64, error) {
	pk, err := d.table.PKColumn()
	if err != nil {
		return nil, err
	}
	rows, err := d.conn.QueryResults(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		Quote(pk.name), Quote(d.table.name), Quote(pk.name)))
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = toInt(r[0])
	}
	return ids, nil
}

// Paginate runs q in chunks of chunk rows.
func (d *Dao) Paginate(ctx context.Context, q Query, chunk int) (*PaginatedResults, error) {
	if chunk <= 0 {
		return nil, gerrors.NewQueryConstruction("LIMIT", "chunk size must be positive")
	}
	q.Limit = fmt.Sprint(chunk)
	res, err := d.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	p, err := NewPaginatedResults(ctx, res)
	if err != nil {
		return nil, gerrors.Cleanup(err, res.Close())
	}
	return p, nil
}

// Begin starts a transaction on the connection.
func (d *Dao) Begin(ctx context.Context) error { return d.conn.Begin(ctx) }

// End commits or rolls back the open transaction.
func (d *Dao) End(ctx context.Context, success bool) error { return d.conn.End(ctx, success) }

// Commit ends the open transaction successfully.
func (d *Dao) Commit(ctx context.Context) error { return d.conn.End(ctx, true) }

// Rollback ends the open transaction unsuccessfully.
func (d *Dao) Rollback(ctx context.Context) error { return d.conn.End(ctx, false) }

// InTransaction reports whether a transaction is open.
func (d *Dao) InTransaction() bool { return d.conn.InTransaction() }

// Transaction runs fn inside a transaction. It commits when fn returns nil
// and rolls back exactly once when fn fails or panics.
func (d *Dao) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := d.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = d.End(ctx, false)
			panic(p)
		}
	}()
	if err := fn(ctx); err != nil {
		return gerrors.Cleanup(err, d.End(ctx, false))
	}
	return d.End(ctx, true)
}

// bind resolves a write set against the table, in sorted key order.
func (d *Dao) bind(values ContentValues) ([]string, []any, error) {
	keys := values.Keys()
	cols := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		c, ok := d.table.Column(k)
		if !ok {
			return nil, nil, gerrors.NewSchema(d.table.name, k, "no such column")
		}
		v, err := normalize(c.dataType, values[k])
		if err != nil {
			return nil, nil, gerrors.Wrapf(err, "column %s", c.name)
		}
		if err := c.checkLength(v); err != nil {
			return nil, nil, err
		}
		cols[i] = c.name
		args[i] = v
	}
	return cols, args, nil
}

func (d *Dao) pkWhere() (string, error) {
	pk, err := d.table.PKColumn()
	if err != nil {
		return "", err
	}
	return Quote(pk.name) + " = ?", nil
}

func (d *Dao) storageErr(op string, err error) error {
	var sio *gerrors.StorageIOError
	if gerrors.As(err, &sio) {
		sio.Table = d.table.name
		sio.Operation = op
		return sio
	}
	return gerrors.NewStorageIO(op, d.table.name, err)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, gerrors.NewStorageIO("rows affected", "", err)
	}
	return n, nil
}
