package db

import (
	"iter"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/dialect/sql"
)

// ResultSet iterates over the rows of a query. Each row is exposed as an
// ordered Fields keyed by column name. Byte slices returned by the driver
// are converted to strings.
type ResultSet struct {
	rows    *sql.Rows
	columns []string
	current *rowmap.Fields
	err     error
	closed  bool
}

func newResultSet(rows *sql.Rows) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, rowmap.NewConnectionError("columns", err)
	}
	return &ResultSet{rows: rows, columns: columns}, nil
}

// Columns returns the column names of the result.
func (r *ResultSet) Columns() []string {
	return r.columns
}

// Next advances to the next row. It returns false when the rows are
// exhausted or an error occurred; check Err afterwards.
func (r *ResultSet) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = rowmap.NewConnectionError("next", err)
		}
		_ = r.Close()
		return false
	}
	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = rowmap.NewConnectionError("scan", err)
		_ = r.Close()
		return false
	}
	row := &rowmap.Fields{}
	for i, c := range r.columns {
		row.Set(c, normalize(values[i]))
	}
	r.current = row
	return true
}

// Record returns the current row.
func (r *ResultSet) Record() *rowmap.Fields {
	return r.current
}

// Err returns the error encountered during iteration.
func (r *ResultSet) Err() error {
	return r.err
}

// Close releases the underlying rows. It is safe to call more than once.
func (r *ResultSet) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}

// Records yields every row. Err reports the iteration error once the loop
// is done.
func (r *ResultSet) Records() iter.Seq[*rowmap.Fields] {
	return func(yield func(*rowmap.Fields) bool) {
		defer r.Close()
		for r.Next() {
			if !yield(r.current) {
				return
			}
		}
	}
}

// All reads every remaining row and closes the result set.
func (r *ResultSet) All() ([]*rowmap.Fields, error) {
	var out []*rowmap.Fields
	for row := range r.Records() {
		out = append(out, row)
	}
	return out, r.err
}

// FetchOne reads the first row and closes the result set.
func (r *ResultSet) FetchOne() (*rowmap.Fields, bool, error) {
	defer r.Close()
	if !r.Next() {
		return nil, false, r.err
	}
	return r.current, true, nil
}

// FetchScalar reads the first column of the first row and closes the
// result set.
func (r *ResultSet) FetchScalar() (any, bool, error) {
	row, ok, err := r.FetchOne()
	if !ok || err != nil || row.Len() == 0 {
		return nil, false, err
	}
	return row.Get(row.Keys()[0]), true, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
