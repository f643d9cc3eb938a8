package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Limit is the pagination token of a statement: its trailing LIMIT clause.
type Limit struct {
	Count  int64
	Offset int64
	start  int // byte offset of the LIMIT keyword in the statement
}

// limitGrammar accepts "LIMIT n", "LIMIT n OFFSET m" and "LIMIT m, n".
type limitGrammar struct {
	First  int64  `parser:"Limit @Int"`
	Offset *int64 `parser:"( Offset @Int )?"`
	Second *int64 `parser:"( \",\" @Int )?"`
}

var limitLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Limit", Pattern: `(?i)limit\b`},
	{Name: "Offset", Pattern: `(?i)offset\b`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var limitParser = participle.MustBuild[limitGrammar](
	participle.Lexer(limitLexer),
	participle.Elide("Whitespace"),
)

// ParseLimit extracts the trailing LIMIT clause of a statement. The
// boolean is false when the statement has no recognizable LIMIT clause.
func ParseLimit(query string) (Limit, bool) {
	s := trimStatement(query)
	i := lastKeyword(s, "LIMIT")
	if i < 0 {
		return Limit{}, false
	}

	g, err := limitParser.ParseString("", s[i:])
	if err != nil {
		return Limit{}, false
	}
	if g.Offset != nil && g.Second != nil {
		return Limit{}, false
	}

	l := Limit{Count: g.First, start: i}
	switch {
	case g.Offset != nil:
		l.Offset = *g.Offset
	case g.Second != nil:
		l.Offset = g.First
		l.Count = *g.Second
	}
	return l, true
}

// String renders the clause in LIMIT/OFFSET form.
func (l Limit) String() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", l.Count, l.Offset)
}

// withLimit replaces the trailing LIMIT clause of query.
func withLimit(query string, l Limit) string {
	s := trimStatement(query)
	return strings.TrimSpace(s[:l.start]) + " " + l.String()
}

// IsPaginated reports whether the statement behind r has a LIMIT clause.
func IsPaginated(r *Result) bool {
	_, ok := ParseLimit(r.sql)
	return ok
}

// PaginatedResults iterates a paginated statement chunk by chunk. Each
// chunk re-executes the statement with the offset advanced by the chunk
// size; iteration stops once a chunk returns fewer rows than its size.
type PaginatedResults struct {
	ctx    context.Context
	conn   *Connection
	table  *Table
	query  string
	args   []any
	limit  Limit
	result *Result
	inPage int64
	done   bool
	err    error
}

// NewPaginatedResults takes ownership of r, which must be paginated.
func NewPaginatedResults(ctx context.Context, r *Result) (*PaginatedResults, error) {
	l, ok := ParseLimit(r.sql)
	if !ok {
		return nil, gerrors.NewQueryConstruction("LIMIT", "result is not paginated")
	}
	if l.Count <= 0 {
		return nil, gerrors.NewQueryConstruction("LIMIT", "chunk size must be positive")
	}
	return &PaginatedResults{
		ctx:    ctx,
		conn:   r.conn,
		table:  r.table,
		query:  r.sql,
		args:   r.args,
		limit:  l,
		result: r,
	}, nil
}

// Next advances to the next row, fetching the next chunk when needed.
func (p *PaginatedResults) Next() bool {
	for {
		if p.done || p.err != nil {
			return false
		}
		if p.result.Next() {
			p.inPage++
			return true
		}
		if err := p.result.Err(); err != nil {
			p.err = err
			return false
		}
		if err := p.result.Close(); err != nil {
			p.err = err
			return false
		}
		if p.inPage < p.limit.Count {
			p.done = true
			return false
		}

		p.limit.Offset += p.limit.Count
		p.query = withLimit(p.query, p.limit)
		p.limit, _ = ParseLimit(p.query)
		next, err := p.conn.RawQuery(p.ctx, p.table, p.query, p.args, false)
		if err != nil {
			p.err = err
			return false
		}
		p.result = next
		p.inPage = 0
	}
}

// Result returns the cursor of the current chunk.
func (p *PaginatedResults) Result() *Result { return p.result }

// Row materializes the current row.
func (p *PaginatedResults) Row() (*Row, error) { return p.result.Row() }

// Limit returns the token of the current chunk.
func (p *PaginatedResults) Limit() Limit { return p.limit }

// Err returns the first error encountered.
func (p *PaginatedResults) Err() error { return p.err }

// Close closes the current chunk.
func (p *PaginatedResults) Close() error {
	p.done = true
	return p.result.Close()
}
