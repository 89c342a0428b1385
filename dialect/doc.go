// Package dialect provides database dialect abstraction for rowmap.
//
// This package defines the interfaces used for database-specific
// operations. Every dialect-dependent behavior in rowmap (catalog queries,
// placeholder syntax, identifier quoting, RETURNING support) is selected by a
// single switch on the dialect name returned by Driver.Dialect.
//
// # Supported Dialects
//
//   - MySQL: MySQL/MariaDB (information_schema catalog)
//   - Postgres: PostgreSQL (information_schema catalog, RETURNING)
//   - SQLite: SQLite (pragma table-valued functions)
//
// Adding a dialect means adding a constant here and a case to the switches in
// the catalog and constraints packages.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql backed driver, statistics and debug wrappers
package dialect
