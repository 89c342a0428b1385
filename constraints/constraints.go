package constraints

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/catalog"
	"github.com/syssam/rowmap/dialect"
	"github.com/syssam/rowmap/dialect/sql"
)

// ReservedCandidate is the self reference convention that CreateConstraints
// never turns into a foreign key.
const ReservedCandidate = "parent"

// Conn is the part of the connection facade an Inspector needs.
type Conn interface {
	catalog.Conn
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithPrimaryKeyColumn sets the primary key name used by the naming
// convention. Defaults to "id".
func WithPrimaryKeyColumn(name string) Option {
	return func(i *Inspector) {
		i.pk = name
	}
}

// WithCatalog reads columns through a caching catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(i *Inspector) {
		i.catalog = c
	}
}

// WithExactSuffix only accepts columns ending in "_<pk>" and strips exactly
// that suffix. Without it any column containing "_<pk>" is a candidate and
// its last three characters are dropped, which is only right for "_id".
func WithExactSuffix() Option {
	return func(i *Inspector) {
		i.exact = true
	}
}

// WithPluralTables makes candidates reference the plural table name, so
// that org_id references orgs(id).
func WithPluralTables() Option {
	return func(i *Inspector) {
		i.plural = true
	}
}

// WithLogger sets the logger. Defaults to the connection's logger when it
// has one, slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// Inspector infers foreign keys of one table from column names and adds
// the missing ones.
type Inspector struct {
	conn    Conn
	table   string
	pk      string
	catalog *catalog.Catalog
	exact   bool
	plural  bool
	logger  *slog.Logger
}

// New returns an Inspector for table.
func New(conn Conn, table string, opts ...Option) (*Inspector, error) {
	if !sql.ValidIdentifier(table) {
		return nil, rowmap.NewConfigurationError("table", table, "invalid table name")
	}
	i := &Inspector{conn: conn, table: table, pk: catalog.DefaultPrimaryKey}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		if l, ok := conn.(interface{ Logger() *slog.Logger }); ok {
			i.logger = l.Logger()
		} else {
			i.logger = slog.Default()
		}
	}
	i.logger = i.logger.With("table", table)
	return i, nil
}

// Table returns the inspected table.
func (i *Inspector) Table() string {
	return i.table
}

// PrimaryKeyColumn returns the primary key name used by the convention.
func (i *Inspector) PrimaryKeyColumn() string {
	return i.pk
}

// SetPrimaryKeyColumn overrides the primary key name.
func (i *Inspector) SetPrimaryKeyColumn(name string) {
	i.pk = name
}

// ReferencedTable returns the table a candidate refers to.
func (i *Inspector) ReferencedTable(candidate string) string {
	if i.plural {
		return inflect.Pluralize(candidate)
	}
	return candidate
}

// DiscoverCandidates returns the tables the columns of the inspected table
// appear to reference, in column order.
func (i *Inspector) DiscoverCandidates(ctx context.Context) ([]string, error) {
	var (
		cols *catalog.Columns
		err  error
	)
	if i.catalog != nil {
		cols, err = i.catalog.Columns(ctx, i.table)
	} else {
		cols, err = catalog.Discover(ctx, i.conn, i.table)
	}
	if err != nil {
		return nil, err
	}
	suffix := "_" + i.pk
	var candidates []string
	for _, name := range cols.Names {
		switch {
		case i.exact:
			if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
				candidates = append(candidates, name[:len(name)-len(suffix)])
			}
		case strings.Contains(name, suffix) && len(name) > 3:
			candidates = append(candidates, name[:len(name)-3])
		}
	}
	return candidates, nil
}

// CreateConstraints adds a foreign key for every candidate that lacks one.
// Statement failures are recorded in the report and do not stop the
// remaining candidates; only errors while checking existing constraints
// are returned.
func (i *Inspector) CreateConstraints(ctx context.Context, candidates []string) (*Report, error) {
	report := &Report{Table: i.table}
	for _, cand := range candidates {
		res := Result{
			Candidate:       cand,
			Column:          cand + "_" + i.pk,
			ReferencedTable: i.ReferencedTable(cand),
		}
		exists, err := i.HasConstraint(ctx, cand)
		if err != nil {
			return report, err
		}
		switch {
		case exists:
			res.Outcome = SkippedExisting
			i.logger.DebugContext(ctx, "foreign key already exists, skipping", "column", res.Column)
		case cand == ReservedCandidate:
			res.Outcome = SkippedReserved
			i.logger.DebugContext(ctx, "skipping self reference", "column", res.Column)
		default:
			if err := i.addForeignKey(ctx, res); err != nil {
				res.Outcome, res.Err = Failed, err
				i.logger.WarnContext(ctx, "adding foreign key failed", "column", res.Column, "references", res.ReferencedTable, "error", err)
				break
			}
			res.Outcome = Created
			i.logger.InfoContext(ctx, "foreign key added", "column", res.Column, "references", res.ReferencedTable)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (i *Inspector) addForeignKey(ctx context.Context, res Result) error {
	if i.conn.Properties().Server == dialect.SQLite {
		return rowmap.NewConfigurationError("CreateConstraints", dialect.SQLite,
			"foreign keys can only be declared when the table is created")
	}
	if !sql.ValidIdentifier(res.Column) || !sql.ValidIdentifier(res.ReferencedTable) {
		return rowmap.NewConfigurationError("candidate", res.Candidate, "invalid identifier")
	}
	query := fmt.Sprintf("ALTER TABLE %s ADD FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE RESTRICT ON UPDATE RESTRICT",
		i.table, res.Column, res.ReferencedTable, i.pk)
	_, err := i.conn.Exec(ctx, query)
	return err
}

// HasConstraint reports whether the inspected table already has a foreign
// key from "<candidate>_<pk>" to the candidate's primary key.
func (i *Inspector) HasConstraint(ctx context.Context, candidate string) (bool, error) {
	ref := i.ReferencedTable(candidate)
	fks, err := i.foreignKeys(ctx, ref)
	if err != nil {
		return false, err
	}
	column := candidate + "_" + i.pk
	for _, fk := range fks {
		if fk.ReferencedTable == ref && fk.ReferencedColumn == i.pk && fk.Column == column {
			return true, nil
		}
	}
	return false, nil
}

// ForeignKeys returns the foreign keys declared on the inspected table.
func (i *Inspector) ForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	return i.foreignKeys(ctx, "")
}

// References returns the columns of other tables that reference the
// inspected table.
func (i *Inspector) References(ctx context.Context) ([]Reference, error) {
	props := i.conn.Properties()
	var (
		query string
		args  []any
	)
	switch props.Server {
	case dialect.Postgres:
		query, args = postgresReferencesQuery, []any{i.table, props.Schema}
	case dialect.SQLite:
		query, args = sqliteReferencesQuery, []any{i.table}
	default:
		query, args = mysqlReferencesQuery, []any{i.table}
	}
	rs, err := i.conn.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var refs []Reference
	for row := range rs.Records() {
		v := row.Values()
		refs = append(refs, Reference{Column: str(v[0]), Table: str(v[1])})
	}
	return refs, rs.Err()
}

// ListReferences returns "table.column" for every column referencing the
// inspected table.
func (i *Inspector) ListReferences(ctx context.Context) ([]string, error) {
	refs, err := i.References(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(refs))
	for n, r := range refs {
		out[n] = r.String()
	}
	return out, nil
}

// foreignKeys lists the outgoing foreign keys of the table, restricted to
// ref when it is not empty.
func (i *Inspector) foreignKeys(ctx context.Context, ref string) ([]ForeignKey, error) {
	props := i.conn.Properties()
	var (
		query string
		args  []any
	)
	switch props.Server {
	case dialect.Postgres:
		query, args = postgresForeignKeysQuery, []any{i.table, props.Schema}
		if ref != "" {
			query += " AND ccu.table_name = ?"
			args = append(args, ref)
		}
	case dialect.SQLite:
		query, args = sqliteForeignKeysQuery, []any{i.table}
		if ref != "" {
			query += ` WHERE "table" = ?`
			args = append(args, ref)
		}
	default:
		query, args = mysqlForeignKeysQuery, []any{i.table}
		if ref != "" {
			query += " AND REFERENCED_TABLE_NAME = ?"
			args = append(args, ref)
		} else {
			query += " AND TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL"
			args = append(args, props.Schema)
		}
	}
	rs, err := i.conn.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var fks []ForeignKey
	for row := range rs.Records() {
		v := row.Values()
		fk := ForeignKey{
			Table:            i.table,
			Column:           str(v[0]),
			Name:             str(v[1]),
			ReferencedColumn: str(v[2]),
			ReferencedTable:  str(v[3]),
		}
		// SQLite leaves "to" empty when the parent's primary key is implied.
		if fk.ReferencedColumn == "" {
			fk.ReferencedColumn = i.pk
		}
		fks = append(fks, fk)
	}
	return fks, rs.Err()
}

func str(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
