package user

import (
	"regexp"
	"strings"
	"unicode"

	gerrors "github.com/FocuswithJustin/geopackage/core/errors"
)

// Query is the structured form of a SELECT statement.
type Query struct {
	Distinct bool
	Tables   []string
	Columns  []string // nil or empty selects *
	Where    string
	Args     []any
	GroupBy  string
	Having   string
	OrderBy  string
	Limit    string // "n" or "offset,n"
}

var limitPattern = regexp.MustCompile(`^\s*\d+\s*(,\s*\d+\s*)?$`)

// BuildQuery renders q as SQL. HAVING without GROUP BY and a malformed
// LIMIT are rejected with a QueryConstructionError.
func BuildQuery(q Query) (string, error) {
	if strings.TrimSpace(q.GroupBy) == "" && strings.TrimSpace(q.Having) != "" {
		return "", gerrors.NewQueryConstruction("HAVING", "HAVING clauses are only permitted when using a GROUP BY clause")
	}
	if q.Limit != "" && !limitPattern.MatchString(q.Limit) {
		return "", gerrors.NewQueryConstruction("LIMIT", "invalid LIMIT clause: "+q.Limit)
	}
	if len(q.Tables) == 0 {
		return "", gerrors.NewQueryConstruction("FROM", "at least one table is required")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(QuoteList(q.Columns))
	}
	b.WriteString(" FROM ")
	b.WriteString(QuoteList(q.Tables))
	appendClause(&b, " WHERE ", q.Where)
	appendClause(&b, " GROUP BY ", q.GroupBy)
	appendClause(&b, " HAVING ", q.Having)
	appendClause(&b, " ORDER BY ", q.OrderBy)
	appendClause(&b, " LIMIT ", q.Limit)
	return b.String(), nil
}

func appendClause(b *strings.Builder, name, clause string) {
	if strings.TrimSpace(clause) != "" {
		b.WriteString(name)
		b.WriteString(strings.TrimSpace(clause))
	}
}

// Quote wraps an identifier in double quotes, doubling embedded quotes.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteList quotes each identifier and joins them with ", ".
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}

// CountSQL rewrites a SELECT statement into one that counts its rows, by
// replacing the projection with count(*) and dropping a trailing ORDER BY
// and LIMIT. Statements that already project count(*) are returned as is.
// The boolean is false when the statement cannot be rewritten safely.
func CountSQL(query string) (string, bool) {
	s := trimStatement(query)
	if !hasKeywordAt(s, 0, "SELECT") {
		return "", false
	}

	from := findKeyword(s, "FROM", 0)
	if from < 0 {
		return "", false
	}
	projection := strings.TrimSpace(s[len("SELECT"):from])
	if isCountProjection(projection) {
		return s, true
	}
	if hasKeywordAt(projection, 0, "DISTINCT") {
		return "", false
	}
	for _, kw := range []string{"GROUP", "UNION", "INTERSECT", "EXCEPT"} {
		if findKeyword(s, kw, from) >= 0 {
			return "", false
		}
	}

	rest := s[from:]
	if i := findKeyword(rest, "ORDER", 0); i >= 0 {
		rest = rest[:i]
	} else if i := findKeyword(rest, "LIMIT", 0); i >= 0 {
		rest = rest[:i]
	}
	return "SELECT count(*) " + strings.TrimSpace(rest), true
}

func isCountProjection(p string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(p), ""))
	return compact == "count(*)"
}

func trimStatement(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "; \t\n")
}

// findKeyword returns the byte offset of the first occurrence of keyword
// at or after start that is outside quotes and parentheses and is a whole
// word. It returns -1 when there is none.
func findKeyword(s, keyword string, start int) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
			continue
		case '[':
			quote = ']'
			continue
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if i >= start && depth == 0 && hasKeywordAt(s, i, keyword) {
			return i
		}
	}
	return -1
}

// lastKeyword is findKeyword returning the last top-level occurrence.
func lastKeyword(s, keyword string) int {
	last := -1
	for i := findKeyword(s, keyword, 0); i >= 0; i = findKeyword(s, keyword, i+len(keyword)) {
		last = i
	}
	return last
}

func hasKeywordAt(s string, i int, keyword string) bool {
	if i+len(keyword) > len(s) || !strings.EqualFold(s[i:i+len(keyword)], keyword) {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	end := i + len(keyword)
	return end == len(s) || !isWordByte(s[end])
}

func isWordByte(b byte) bool {
	return b == '_' || b > unicode.MaxASCII || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
