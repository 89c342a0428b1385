package sql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/rowmap/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ValidIdentifier reports whether s can be interpolated into a statement as
// a table or column name.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Quote quotes the identifier for the dialect: double quotes for PostgreSQL,
// backticks otherwise.
func Quote(d, ident string) string {
	if d == dialect.Postgres {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// QuoteList quotes every identifier and joins them with commas.
func QuoteList(d string, idents []string) string {
	quoted := make([]string, len(idents))
	for i, s := range idents {
		quoted[i] = Quote(d, s)
	}
	return strings.Join(quoted, ",")
}

// Placeholders returns n comma separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// SupportsReturning reports whether INSERT statements of the dialect may
// carry a RETURNING clause that is read back as a result row.
func SupportsReturning(d string) bool {
	return d == dialect.Postgres
}

// Rebind rewrites "?" placeholders into the dialect's bind syntax. Only
// PostgreSQL ($1, $2, ...) needs rewriting; question marks inside quoted
// strings and identifiers are left untouched.
func Rebind(d, query string) string {
	if d != dialect.Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
