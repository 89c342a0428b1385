package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/db"
	"github.com/syssam/rowmap/dialect"
)

// DefaultPrimaryKey is the primary key column assumed when the catalog marks
// none.
const DefaultPrimaryKey = "id"

// Metadata queries. Every statement returns three columns: name, data type
// and a key marker that is "PRI" for primary key columns.
const (
	mysqlColumnsQuery = "SELECT column_name, data_type, column_key FROM information_schema.columns WHERE table_name = ? AND table_schema = ?"

	postgresColumnsQuery = "SELECT c.column_name, c.data_type, " +
		"CASE WHEN EXISTS (SELECT 1 FROM information_schema.table_constraints tc " +
		"JOIN information_schema.key_column_usage k ON k.constraint_name = tc.constraint_name " +
		"AND k.table_schema = tc.table_schema AND k.table_name = tc.table_name " +
		"WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = c.table_name " +
		"AND tc.table_schema = c.table_schema AND k.column_name = c.column_name) " +
		"THEN 'PRI' ELSE '' END AS column_key " +
		"FROM information_schema.columns c WHERE c.table_name = ? AND c.table_schema = ? " +
		"ORDER BY c.ordinal_position"

	sqliteColumnsQuery = "SELECT name, type, CASE WHEN pk > 0 THEN 'PRI' ELSE '' END FROM pragma_table_info(?) ORDER BY cid"
)

// primaryKeyMarker is the column_key value of primary key columns.
const primaryKeyMarker = "PRI"

// Columns is the ordered column set of one table.
type Columns struct {
	Table string `msgpack:"table"`
	// Names holds the column names in catalog order.
	Names []string `msgpack:"names"`
	// Types maps a column to its catalog data type.
	Types map[string]string `msgpack:"types"`
	// PrimaryKey is the primary key column, DefaultPrimaryKey if the catalog
	// marks none. With several marked columns the last one wins.
	PrimaryKey string `msgpack:"pk"`
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	return len(c.Names)
}

// Has reports whether the table has the column.
func (c *Columns) Has(name string) bool {
	return slices.Contains(c.Names, name)
}

// Fields returns a fresh field set with every column set to nil.
func (c *Columns) Fields() *rowmap.Fields {
	return rowmap.NewFields(c.Names...)
}

// Clone returns a deep copy of c.
func (c *Columns) Clone() *Columns {
	cp := &Columns{
		Table:      c.Table,
		Names:      slices.Clone(c.Names),
		Types:      make(map[string]string, len(c.Types)),
		PrimaryKey: c.PrimaryKey,
	}
	for k, v := range c.Types {
		cp.Types[k] = v
	}
	return cp
}

// Conn is the part of the connection facade the catalog needs.
type Conn interface {
	Properties() db.Properties
	Execute(ctx context.Context, query string, args ...any) (*db.ResultSet, error)
}

// Discover reads the column set of table from the database catalog. A table
// without columns (or a missing table) yields an empty set, not an error.
func Discover(ctx context.Context, conn Conn, table string) (*Columns, error) {
	props := conn.Properties()
	var (
		query string
		args  []any
	)
	switch props.Server {
	case dialect.Postgres:
		query, args = postgresColumnsQuery, []any{table, props.Schema}
	case dialect.SQLite:
		query, args = sqliteColumnsQuery, []any{table}
	default:
		query, args = mysqlColumnsQuery, []any{table, props.Schema}
	}
	rs, err := conn.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols := &Columns{
		Table:      table,
		Types:      make(map[string]string),
		PrimaryKey: DefaultPrimaryKey,
	}
	for row := range rs.Records() {
		// MySQL 8 returns information_schema labels in upper case; read by
		// position.
		values := row.Values()
		if len(values) < 3 {
			_ = rs.Close()
			return nil, fmt.Errorf("catalog: unexpected column metadata row %s", row)
		}
		name := asString(values[0])
		if !slices.Contains(cols.Names, name) {
			cols.Names = append(cols.Names, name)
		}
		cols.Types[name] = asString(values[1])
		if asString(values[2]) == primaryKeyMarker {
			cols.PrimaryKey = name
		}
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

func asString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
