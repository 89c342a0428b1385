package db

import (
	"context"

	"github.com/syssam/rowmap"
)

// Stmt is a query with its bound values. Values are bound positionally to
// "?" markers in the order Bind is called.
type Stmt struct {
	db    *DB
	query string
	args  []any
}

// Bind appends values to the statement arguments.
func (s *Stmt) Bind(values ...any) *Stmt {
	s.args = append(s.args, values...)
	return s
}

// SQL returns the statement text as written by the caller.
func (s *Stmt) SQL() string {
	return s.query
}

// Args returns the bound values.
func (s *Stmt) Args() []any {
	return s.args
}

// Query runs the statement and returns its result set.
func (s *Stmt) Query(ctx context.Context) (*ResultSet, error) {
	return s.db.query(ctx, s.query, s.args)
}

// Exec runs the statement and returns the number of affected rows.
func (s *Stmt) Exec(ctx context.Context) (int64, error) {
	return s.db.exec(ctx, s.query, s.args)
}

// FetchOne returns the first row. ok is false when the statement returned
// no rows.
func (s *Stmt) FetchOne(ctx context.Context) (row *rowmap.Fields, ok bool, err error) {
	rs, err := s.Query(ctx)
	if err != nil {
		return nil, false, err
	}
	return rs.FetchOne()
}

// FetchScalar returns the first column of the first row.
func (s *Stmt) FetchScalar(ctx context.Context) (v any, ok bool, err error) {
	rs, err := s.Query(ctx)
	if err != nil {
		return nil, false, err
	}
	return rs.FetchScalar()
}

// FetchAll returns every row.
func (s *Stmt) FetchAll(ctx context.Context) ([]*rowmap.Fields, error) {
	rs, err := s.Query(ctx)
	if err != nil {
		return nil, err
	}
	return rs.All()
}
