package constraints

import "fmt"

// Key usage queries. Foreign key rows are (column, constraint name,
// referenced column, referenced table); reference rows are (column, table).
const (
	mysqlForeignKeysQuery = "SELECT COLUMN_NAME, CONSTRAINT_NAME, REFERENCED_COLUMN_NAME, REFERENCED_TABLE_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_NAME = ?"

	mysqlReferencesQuery = "SELECT COLUMN_NAME, TABLE_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE REFERENCED_TABLE_NAME = ?"

	postgresForeignKeysQuery = "SELECT kcu.column_name, kcu.constraint_name, ccu.column_name AS referenced_column, ccu.table_name AS referenced_table " +
		"FROM information_schema.key_column_usage kcu " +
		"JOIN information_schema.referential_constraints rc ON rc.constraint_name = kcu.constraint_name AND rc.constraint_schema = kcu.constraint_schema " +
		"JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = rc.unique_constraint_name AND ccu.constraint_schema = rc.unique_constraint_schema " +
		"WHERE kcu.table_name = ? AND kcu.table_schema = ?"

	postgresReferencesQuery = "SELECT kcu.column_name, kcu.table_name " +
		"FROM information_schema.key_column_usage kcu " +
		"JOIN information_schema.referential_constraints rc ON rc.constraint_name = kcu.constraint_name AND rc.constraint_schema = kcu.constraint_schema " +
		"JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = rc.unique_constraint_name AND ccu.constraint_schema = rc.unique_constraint_schema " +
		"WHERE ccu.table_name = ? AND ccu.table_schema = ?"

	sqliteForeignKeysQuery = `SELECT "from", id, "to", "table" FROM pragma_foreign_key_list(?)`

	sqliteReferencesQuery = `SELECT fk."from", m.name FROM sqlite_master m JOIN pragma_foreign_key_list(m.name) fk WHERE m.type = 'table' AND fk."table" = ? ORDER BY m.name, fk.seq`
)

// ForeignKey is a declared foreign key of a table.
type ForeignKey struct {
	Table            string
	Column           string
	Name             string
	ReferencedTable  string
	ReferencedColumn string
}

// String formats the key as "table.column -> referenced(column)".
func (fk ForeignKey) String() string {
	return fmt.Sprintf("%s.%s -> %s(%s)", fk.Table, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
}

// Reference is a column of another table that points at the inspected
// table.
type Reference struct {
	Table  string
	Column string
}

// String returns "table.column".
func (r Reference) String() string {
	return r.Table + "." + r.Column
}
