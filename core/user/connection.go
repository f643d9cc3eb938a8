package user

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
	"github.com/FocuswithJustin/geopackage/internal/logging"
)

// execer is satisfied by both *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connection is a typed facade over one dedicated database connection.
// It is not safe for concurrent use; callers serialize access.
type Connection struct {
	id     uuid.UUID
	conn   *sql.Conn
	logger *slog.Logger

	tx              *sql.Tx
	autocommit      bool
	savedAutocommit bool
	observersMu     sync.Mutex
	observers       []func(query string)
}

// NewConnection reserves a dedicated connection from db.
func NewConnection(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Connection, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, gerrors.NewStorageIO("open connection", "", err)
	}
	return &Connection{
		id:         uuid.New(),
		conn:       conn,
		logger:     logging.OrDiscard(logger),
		autocommit: true,
	}, nil
}

// ID returns the connection identity.
func (c *Connection) ID() string { return c.id.String() }

// Logger returns the connection logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// Observe registers fn to be called with every statement before it runs.
func (c *Connection) Observe(fn func(query string)) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Connection) db() execer {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

func (c *Connection) trace(query string) {
	c.observersMu.Lock()
	observers := c.observers
	c.observersMu.Unlock()
	for _, fn := range observers {
		fn(query)
	}
}

// Exec executes a statement that returns no rows.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.trace(query)
	logging.Statement(c.logger, "exec", "", query)
	res, err := c.db().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.NewStorageIO("execute", "", fmt.Errorf("%s: %w", query, err))
	}
	return res, nil
}

// Query builds and runs a structured query against table.
func (c *Connection) Query(ctx context.Context, table *Table, q Query) (*Result, error) {
	query, err := BuildQuery(q)
	if err != nil {
		return nil, err
	}
	return c.RawQuery(ctx, table, query, q.Args, false)
}

// RawQuery runs arbitrary SQL and wraps the cursor in a Result. With
// withCount the row count is computed up front; it is -1 when the
// statement cannot be rewritten into a count.
func (c *Connection) RawQuery(ctx context.Context, table *Table, query string, args []any, withCount bool) (*Result, error) {
	r := &Result{
		conn:  c,
		table: table,
		sql:   query,
		args:  args,
		count: -1,
		pos:   -1,
	}
	if withCount {
		if _, err := r.Count(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.open(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Connection) rows(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	c.trace(query)
	logging.Statement(c.logger, "query", "", query)
	rows, err := c.db().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.NewStorageIO("query", "", fmt.Errorf("%s: %w", query, err))
	}
	return rows, nil
}

// QuerySingleResult returns the first column of the first row. The
// boolean is false when the statement returned no rows.
func (c *Connection) QuerySingleResult(ctx context.Context, query string, args ...any) (any, bool, error) {
	rows, err := c.rows(ctx, query, args)
	if err != nil {
		return nil, false, err
	}
	var v any
	found := false
	if rows.Next() {
		if err := rows.Scan(&v); err != nil {
			return nil, false, gerrors.Cleanup(gerrors.NewStorageIO("scan", "", err), closeRows(rows))
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, false, gerrors.Cleanup(gerrors.NewStorageIO("query", "", err), closeRows(rows))
	}
	if err := closeRows(rows); err != nil {
		return nil, false, err
	}
	return readValue(nil, v), found, nil
}

// QueryInt is QuerySingleResult coerced to an integer; NULL and no rows
// both yield zero.
func (c *Connection) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	v, _, err := c.QuerySingleResult(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return toInt(v), nil
}

// QueryResults returns every row of a statement as raw values.
func (c *Connection) QueryResults(ctx context.Context, query string, args ...any) ([][]any, error) {
	rows, err := c.rows(ctx, query, args)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, gerrors.Cleanup(gerrors.NewStorageIO("query", "", err), closeRows(rows))
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, gerrors.Cleanup(gerrors.NewStorageIO("scan", "", err), closeRows(rows))
		}
		for i := range vals {
			vals[i] = readValue(nil, vals[i])
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Cleanup(gerrors.NewStorageIO("query", "", err), closeRows(rows))
	}
	return out, closeRows(rows)
}

// Begin starts a transaction, saving the autocommit mode and disabling
// it. Beginning while a transaction is open is an error.
func (c *Connection) Begin(ctx context.Context) error {
	if c.tx != nil {
		return gerrors.NewTransactionState("transaction already open")
	}
	c.trace("BEGIN")
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return gerrors.NewStorageIO("begin transaction", "", err)
	}
	c.tx = tx
	c.savedAutocommit = c.autocommit
	c.autocommit = false
	logging.Transaction(c.logger, "begin", "connection", c.ID())
	return nil
}

// End commits when success is true and rolls back otherwise, then restores
// the autocommit mode saved by Begin.
func (c *Connection) End(ctx context.Context, success bool) error {
	if c.tx == nil {
		return gerrors.NewTransactionState("no transaction open")
	}
	tx := c.tx
	c.tx = nil
	c.autocommit = c.savedAutocommit

	if success {
		c.trace("COMMIT")
		logging.Transaction(c.logger, "commit", "connection", c.ID())
		if err := tx.Commit(); err != nil {
			return gerrors.NewStorageIO("commit", "", err)
		}
		return nil
	}
	c.trace("ROLLBACK")
	logging.Transaction(c.logger, "rollback", "connection", c.ID())
	if err := tx.Rollback(); err != nil {
		return gerrors.NewStorageIO("rollback", "", err)
	}
	return nil
}

// InTransaction reports whether a transaction is open.
func (c *Connection) InTransaction() bool { return c.tx != nil }

// Autocommit reports the current autocommit mode.
func (c *Connection) Autocommit() bool { return c.autocommit }

// Close releases the connection. An open transaction is rolled back.
func (c *Connection) Close() error {
	var rbErr error
	if c.tx != nil {
		rbErr = c.End(context.Background(), false)
	}
	return gerrors.Cleanup(gerrors.NewStorageIO("close connection", "", c.conn.Close()), rbErr)
}

func closeRows(rows *sql.Rows) error {
	return gerrors.NewStorageIO("close cursor", "", rows.Close())
}

// toInt coerces a stored value to an integer.
func toInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return int64(f)
		}
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

// toFloat coerces a stored value to a float.
func toFloat(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return 0
}

// Placeholders are numbered from 1 in SQLite; these two functions are the
// only place the offset from 0-based column positions is applied.
func toEngineIndex(i int) int { return i + 1 }

func fromEngineIndex(i int) int { return i - 1 }

// placeholder returns the numbered parameter for the 0-based position i.
func placeholder(i int) string { return "?" + strconv.Itoa(toEngineIndex(i)) }
