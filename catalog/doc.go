// Package catalog discovers the column set and primary key of a table from
// the database's own metadata: information_schema on MySQL and PostgreSQL,
// pragma_table_info on SQLite.
//
// Discover always queries the database. A Catalog adds a cache in front of
// it so that repeated lookups of the same table cost nothing.
package catalog
