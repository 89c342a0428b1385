package db

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/dialect"
	"github.com/syssam/rowmap/dialect/sql"
)

// Properties is the read-only identity of an open connection.
type Properties struct {
	// Server is the dialect name: mysql, postgres or sqlite.
	Server   string
	Host     string
	User     string
	Database string
	// Schema is the catalog schema tables are looked up in. It defaults to
	// the database name on MySQL, "public" on PostgreSQL and "main" on SQLite.
	Schema string
}

// DB is the connection facade. It runs statements, tracks nested
// transactions with a depth counter and remembers the last generated id.
//
// A DB is bound to a single connection and is not safe for concurrent use.
type DB struct {
	drv    dialect.Driver
	stats  *sql.StatsDriver
	props  Properties
	logger *slog.Logger
	sess   string

	tx     dialect.Tx
	depth  int
	lastID int64
	hasID  bool
}

// Open validates cfg, opens the connection, pings it and runs the optional
// init query.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}
	props, err := cfg.Properties()
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	drv, err := sql.Open(props.Server, dsn)
	if err != nil {
		return nil, rowmap.NewConnectionError("open", err)
	}
	if o.maxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(o.maxOpenConns)
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		_ = drv.Close()
		return nil, rowmap.NewConnectionError("ping", err)
	}
	d := New(drv, props, opts...)
	if q := strings.TrimSpace(cfg.InitQuery); q != "" {
		if _, err := d.Exec(ctx, q); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	d.logger.DebugContext(ctx, "connection opened", "server", props.Server, "database", props.Database)
	return d, nil
}

// New wraps an already opened driver. It is used by Open and by tests that
// work against sqlmock.
func New(drv dialect.Driver, props Properties, opts ...Option) *DB {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.session == "" {
		o.session = uuid.NewString()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", o.session)
	if props.Server == "" {
		props.Server = drv.Dialect()
	}
	if props.Schema == "" {
		props.Schema = defaultSchema(props.Server, props.Database)
	}
	var wrapped dialect.Driver = drv
	if o.debug {
		wrapped = sql.NewDebugDriver(wrapped, logger)
	}
	stats := sql.NewStatsDriver(wrapped,
		sql.WithSlowThreshold(o.slowThreshold),
		sql.WithSlowQueryLog(logger),
	)
	return &DB{
		drv:    stats,
		stats:  stats,
		props:  props,
		logger: logger,
		sess:   o.session,
	}
}

// Dialect returns the dialect name of the connection.
func (d *DB) Dialect() string {
	return d.props.Server
}

// Properties returns the connection identity.
func (d *DB) Properties() Properties {
	return d.props
}

// Session returns the id attached to every log line of this facade.
func (d *DB) Session() string {
	return d.sess
}

// Logger returns the session scoped logger.
func (d *DB) Logger() *slog.Logger {
	return d.logger
}

// Stats returns a snapshot of the statement statistics.
func (d *DB) Stats() sql.StatsSnapshot {
	return d.stats.QueryStats().Snapshot()
}

// ResetStats zeroes the statement statistics, QueryCount included.
func (d *DB) ResetStats() {
	d.stats.QueryStats().Reset()
}

// SlowThreshold returns the duration above which statements are logged as
// slow queries.
func (d *DB) SlowThreshold() time.Duration {
	return d.stats.SlowThreshold()
}

// SetSlowThreshold changes the slow query threshold of the facade.
func (d *DB) SetSlowThreshold(threshold time.Duration) {
	d.stats.SetSlowThreshold(threshold)
}

// QueryCount returns the number of statements executed so far.
func (d *DB) QueryCount() int64 {
	return d.Stats().Total()
}

// Prepare returns a statement for query. Placeholders are written as "?"
// for every dialect.
func (d *DB) Prepare(query string) (*Stmt, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rowmap.NewConfigurationError("query", nil, "empty SQL query can't be executed")
	}
	return &Stmt{db: d, query: query}, nil
}

// Execute runs query and returns its result set. The result set must be
// closed before the next statement is issued.
func (d *DB) Execute(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	stmt, err := d.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Bind(args...).Query(ctx)
}

// Exec runs a statement that returns no rows and reports the number of
// affected rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	stmt, err := d.Prepare(query)
	if err != nil {
		return 0, err
	}
	return stmt.Bind(args...).Exec(ctx)
}

// LastInsertID returns the id generated by the most recent INSERT on this
// connection. PostgreSQL has no such notion; use RETURNING instead.
func (d *DB) LastInsertID() (int64, error) {
	if d.Dialect() == dialect.Postgres {
		return 0, rowmap.NewConfigurationError("LastInsertID", d.Dialect(),
			"not supported, read the key with INSERT ... RETURNING")
	}
	if !d.hasID {
		return 0, rowmap.NewProgrammingError("unable to retrieve identifier for last insert query")
	}
	return d.lastID, nil
}

// Begin starts a transaction, or joins the one already open by increasing
// the nesting depth.
func (d *DB) Begin(ctx context.Context) error {
	if d.depth == 0 {
		tx, err := d.drv.Tx(ctx)
		if err != nil {
			return rowmap.NewConnectionError("begin", err)
		}
		d.tx = tx
	}
	d.depth++
	d.logger.DebugContext(ctx, "transaction begin", "depth", d.depth)
	return nil
}

// Commit ends one nesting level. The engine transaction is committed when
// the outermost level ends. Committing without a transaction is a no-op.
func (d *DB) Commit(ctx context.Context) error {
	switch {
	case d.depth < 1:
		return nil
	case d.depth > 1:
		d.depth--
		return nil
	}
	tx := d.tx
	d.tx, d.depth = nil, 0
	if err := tx.Commit(); err != nil {
		return rowmap.NewConnectionError("commit", err)
	}
	d.logger.DebugContext(ctx, "transaction committed")
	return nil
}

// Rollback aborts the whole transaction regardless of nesting depth.
func (d *DB) Rollback(ctx context.Context) error {
	if d.depth < 1 {
		return rowmap.NewProgrammingError("attempted to roll back a transaction without starting one")
	}
	tx := d.tx
	d.tx, d.depth = nil, 0
	if err := tx.Rollback(); err != nil {
		return rowmap.NewConnectionError("rollback", err)
	}
	d.logger.DebugContext(ctx, "transaction rolled back")
	return nil
}

// End commits when commit is true and rolls back otherwise. It does nothing
// when no transaction is open.
func (d *DB) End(ctx context.Context, commit bool) error {
	if d.depth < 1 {
		return nil
	}
	if commit {
		return d.Commit(ctx)
	}
	return d.Rollback(ctx)
}

// TxDepth returns the transaction nesting depth.
func (d *DB) TxDepth() int {
	return d.depth
}

// InTx reports whether a transaction is open.
func (d *DB) InTx() bool {
	return d.depth > 0
}

// Close rolls back an open transaction and closes the connection.
func (d *DB) Close() error {
	var errs []error
	if d.tx != nil {
		errs = append(errs, rowmap.NewConnectionError("rollback", d.tx.Rollback()))
		d.tx, d.depth = nil, 0
	}
	errs = append(errs, rowmap.NewConnectionError("close", d.drv.Close()))
	return rowmap.NewAggregateError(errs...)
}

// conn returns the target of the next statement: the open transaction or
// the driver.
func (d *DB) conn() dialect.ExecQuerier {
	if d.tx != nil {
		return d.tx
	}
	return d.drv
}

func (d *DB) exec(ctx context.Context, query string, args []any) (int64, error) {
	var res sql.Result
	if err := d.conn().Exec(ctx, sql.Rebind(d.Dialect(), query), args, &res); err != nil {
		return 0, rowmap.NewConnectionError("exec", err)
	}
	if d.Dialect() != dialect.Postgres {
		// MySQL reports 0 for statements that generated no id; keep the
		// previous one like LAST_INSERT_ID() does.
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			d.lastID, d.hasID = id, true
		}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, rowmap.NewConnectionError("exec", err)
	}
	return n, nil
}

func (d *DB) query(ctx context.Context, query string, args []any) (*ResultSet, error) {
	rows := &sql.Rows{}
	if err := d.conn().Query(ctx, sql.Rebind(d.Dialect(), query), args, rows); err != nil {
		return nil, rowmap.NewConnectionError("query", err)
	}
	return newResultSet(rows)
}
