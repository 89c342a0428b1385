package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintErrors(t *testing.T) {
	tests := []struct {
		name                      string
		err                       error
		unique, foreignKey, check bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: errors.New("connection reset")},
		{name: "mysql_duplicate", err: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, unique: true},
		{name: "mysql_parent_row", err: &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}, foreignKey: true},
		{name: "mysql_child_row", err: &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, foreignKey: true},
		{name: "mysql_check", err: &mysql.MySQLError{Number: 3819, Message: "Check constraint violated"}, check: true},
		{name: "pq_unique", err: &pq.Error{Code: "23505", Message: "duplicate key"}, unique: true},
		{name: "pq_foreign_key", err: &pq.Error{Code: "23503", Message: "update or delete on table"}, foreignKey: true},
		{name: "pq_check", err: &pq.Error{Code: "23514", Message: "new row"}, check: true},
		{name: "sqlite_unique", err: errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), unique: true},
		{name: "sqlite_foreign_key", err: errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), foreignKey: true},
		{name: "sqlite_check", err: errors.New("CHECK constraint failed: age"), check: true},
		{name: "wrapped", err: fmt.Errorf("dialect/sql: exec: %w", &mysql.MySQLError{Number: 1451}), foreignKey: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.foreignKey, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.foreignKey || tt.check, IsConstraintError(tt.err))
		})
	}
}
