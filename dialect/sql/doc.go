// Package sql provides the database/sql backed implementation of
// dialect.Driver, along with the small set of SQL helpers rowmap needs.
//
// # Driver
//
// Driver wraps a *sql.DB and exposes Exec/Query with args passed as []any
// and results scanned into *sql.Result or *Rows:
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//	rows := &sql.Rows{}
//	err = drv.Query(ctx, "SELECT id FROM users WHERE name = ?", []any{"Athos"}, rows)
//
// # Wrappers
//
// StatsDriver counts statements, errors and slow queries; DebugDriver logs
// every statement. Both wrap any dialect.Driver and can be stacked.
//
// # Helpers
//
//   - Rebind rewrites "?" markers into "$n" for PostgreSQL.
//   - Quote and QuoteList quote identifiers per dialect.
//   - ValidIdentifier guards table and column names interpolated into SQL.
//   - IsForeignKeyConstraintError and friends classify constraint violations
//     reported by MySQL, PostgreSQL and SQLite drivers.
package sql
