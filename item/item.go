package item

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/syssam/rowmap"
	"github.com/syssam/rowmap/catalog"
	"github.com/syssam/rowmap/db"
	"github.com/syssam/rowmap/dialect/sql"
)

// NotPersisted is returned by Save when there was nothing to write.
const NotPersisted int64 = -1

// PrimaryKeyAlias is the reserved field name that Get resolves to the name
// of the primary key column.
const PrimaryKeyAlias = "primaryKey"

// State is the lifecycle state of an Item.
type State int

// Item states.
const (
	StateEmpty State = iota
	StateLoaded
	StateModified
	StateDeleted
)

var stateNames = [...]string{"empty", "loaded", "modified", "deleted"}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Conn is the part of the connection facade an Item needs.
type Conn interface {
	catalog.Conn
	Prepare(query string) (*db.Stmt, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	LastInsertID() (int64, error)
}

// Option configures New.
type Option func(*options)

type options struct {
	id      int64
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// WithID loads the row with the given id after the columns are known.
// Non-positive ids are ignored.
func WithID(id int64) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithCatalog reads the column set through a caching catalog instead of
// querying the database directly.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) {
		o.catalog = c
	}
}

// WithLogger sets the logger. Defaults to the connection's logger when it
// has one, slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Item is a mutable record bound to one table. Its fields mirror the table
// columns; Set tracks changes and Save writes them back.
type Item struct {
	conn     Conn
	table    string
	pk       string
	fields   *rowmap.Fields
	modified bool
	deleted  bool
	state    State
	logger   *slog.Logger
}

// New returns an empty Item shaped after the columns of table, or the row
// identified by WithID.
func New(ctx context.Context, conn Conn, table string, opts ...Option) (*Item, error) {
	if !sql.ValidIdentifier(table) {
		return nil, rowmap.NewConfigurationError("table", table, "invalid table name")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		if l, ok := conn.(interface{ Logger() *slog.Logger }); ok {
			o.logger = l.Logger()
		} else {
			o.logger = slog.Default()
		}
	}
	var (
		cols *catalog.Columns
		err  error
	)
	if o.catalog != nil {
		cols, err = o.catalog.Columns(ctx, table)
	} else {
		cols, err = catalog.Discover(ctx, conn, table)
	}
	if err != nil {
		return nil, err
	}
	it := &Item{
		conn:   conn,
		table:  table,
		pk:     cols.PrimaryKey,
		fields: cols.Fields(),
		state:  StateEmpty,
		logger: o.logger.With("table", table),
	}
	if o.id > 0 {
		if _, err := it.LoadByID(ctx, o.id); err != nil {
			return nil, err
		}
	}
	return it, nil
}

// Table returns the table name.
func (it *Item) Table() string {
	return it.table
}

// PrimaryKeyColumn returns the name of the primary key column.
func (it *Item) PrimaryKeyColumn() string {
	return it.pk
}

// State returns the lifecycle state.
func (it *Item) State() State {
	return it.state
}

// Modified reports whether the item has unsaved changes.
func (it *Item) Modified() bool {
	return it.modified
}

// Fields returns a copy of the current fields.
func (it *Item) Fields() *rowmap.Fields {
	return it.fields.Clone()
}

// LoadByID replaces the fields with the row whose primary key equals id.
func (it *Item) LoadByID(ctx context.Context, id int64) (int64, error) {
	stmt, err := it.conn.Prepare(fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", it.table, it.pk))
	if err != nil {
		return 0, err
	}
	row, ok, err := stmt.Bind(id).FetchOne(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, rowmap.NewNotFoundError(it.table, id)
	}
	it.fields = row
	it.modified = false
	it.deleted = false
	it.state = StateLoaded
	return id, nil
}

// Get returns the value of field, or nil if the field does not exist.
// PrimaryKeyAlias returns the primary key column name.
func (it *Item) Get(field string) any {
	if field == PrimaryKeyAlias {
		return it.pk
	}
	return it.fields.Get(field)
}

// Set stores value in field and reports whether the item changed. The
// primary key cannot be set and unknown fields are ignored. Values are
// compared by type and value: the string "1" differs from the integer 1.
func (it *Item) Set(field string, value any) bool {
	if field == it.pk {
		return false
	}
	cur, ok := it.fields.Lookup(field)
	if !ok {
		it.logger.Debug("ignoring unknown field", "field", field)
		return false
	}
	if reflect.DeepEqual(cur, value) {
		return false
	}
	it.fields.Set(field, value)
	it.modified = true
	if !it.deleted {
		it.state = StateModified
	}
	return true
}

// Save writes the item when it has changes. Items without a numeric primary
// key are inserted, the others updated. It returns the primary key, or
// NotPersisted when there was nothing to write.
func (it *Item) Save(ctx context.Context) (int64, error) {
	if !it.modified {
		return NotPersisted, nil
	}
	if it.deleted {
		it.logger.WarnContext(ctx, "saving a deleted row inserts it again", "table", it.table)
	}
	if !it.fields.Has(it.pk) {
		it.fields.Set(it.pk, nil)
	}
	var (
		id  int64
		err error
	)
	if cur, ok := numericID(it.fields.Get(it.pk)); ok {
		id, err = it.update(ctx, cur)
	} else {
		id, err = it.insert(ctx)
	}
	if err != nil {
		return 0, err
	}
	it.fields.Set(it.pk, id)
	it.modified = false
	it.deleted = false
	it.state = StateLoaded
	return id, nil
}

func (it *Item) insert(ctx context.Context) (int64, error) {
	d := it.conn.Properties().Server
	keys, values := it.fields.Keys(), it.fields.Values()
	if !sql.SupportsReturning(d) {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", it.table, sql.QuoteList(d, keys), sql.Placeholders(len(keys)))
		if _, err := it.conn.Exec(ctx, query, values...); err != nil {
			return 0, err
		}
		return it.conn.LastInsertID()
	}
	// The engine assigns the key when the column is left out.
	cols, args := keys[:0:0], values[:0:0]
	for i, k := range keys {
		if k == it.pk && values[i] == nil {
			continue
		}
		cols, args = append(cols, k), append(args, values[i])
	}
	query := fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", it.table, it.pk)
	if len(cols) > 0 {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s", it.table, sql.QuoteList(d, cols), sql.Placeholders(len(cols)), it.pk)
	}
	stmt, err := it.conn.Prepare(query)
	if err != nil {
		return 0, err
	}
	v, ok, err := stmt.Bind(args...).FetchScalar(ctx)
	if err != nil {
		return 0, err
	}
	id, isNum := numericID(v)
	if !ok || !isNum {
		return 0, fmt.Errorf("item: insert into %s returned no %s", it.table, it.pk)
	}
	return id, nil
}

func (it *Item) update(ctx context.Context, id int64) (int64, error) {
	d := it.conn.Properties().Server
	keys := it.fields.Keys()
	set := make([]string, len(keys))
	for i, k := range keys {
		set[i] = sql.Quote(d, k) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", it.table, strings.Join(set, ","), it.pk)
	args := append(it.fields.Values(), id)
	if _, err := it.conn.Exec(ctx, query, args...); err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes the row. It does nothing when the primary key is not
// numeric. Rows still referenced under ON DELETE RESTRICT fail with the
// driver error; sql.IsForeignKeyConstraintError classifies it.
//
// The item keeps its other fields and stays deleted through Set calls. A
// later Save inserts it again and logs a warning.
func (it *Item) Delete(ctx context.Context) error {
	id, ok := numericID(it.fields.Get(it.pk))
	if !ok {
		return nil
	}
	if _, err := it.conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", it.table, it.pk), id); err != nil {
		return err
	}
	it.fields.Set(it.pk, nil)
	it.modified = true
	it.deleted = true
	it.state = StateDeleted
	return nil
}
