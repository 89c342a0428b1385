package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/rowmap"
)

// operationColumns is the CacheKey operation of column lookups.
const operationColumns = "columns"

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache sets the cache backing the catalog. Defaults to a
// rowmap.MemoryCache whose entries live for the catalog TTL.
func WithCache(cache rowmap.Cache) Option {
	return func(c *Catalog) {
		c.cache = cache
	}
}

// WithTTL sets how long discovered column sets are kept. Zero (the
// default) keeps them until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		c.ttl = ttl
	}
}

// WithLogger sets the logger for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// Catalog memoizes column discovery per table. It is safe for concurrent
// use; concurrent misses for the same table run a single query.
type Catalog struct {
	conn   Conn
	cache  rowmap.Cache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// New returns a Catalog reading metadata through conn.
func New(conn Conn, opts ...Option) *Catalog {
	c := &Catalog{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = rowmap.NewMemoryCache(rowmap.WithMaxAge(c.ttl))
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Columns returns the column set of table. The result is owned by the
// caller.
func (c *Catalog) Columns(ctx context.Context, table string) (*Columns, error) {
	key := c.key(table).String()
	if cols, ok := c.lookup(ctx, key); ok {
		return cols, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		cols, err := Discover(ctx, c.conn, table)
		if err != nil {
			return nil, err
		}
		// A missing table is not remembered: it may be created later.
		if cols.Len() > 0 {
			c.store(ctx, key, cols)
		}
		return cols, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Columns).Clone(), nil
}

// Invalidate drops every cached entry of table.
func (c *Catalog) Invalidate(ctx context.Context, table string) error {
	return c.cache.DeletePrefix(ctx, c.key(table).Prefix())
}

func (c *Catalog) key(table string) rowmap.CacheKey {
	props := c.conn.Properties()
	return rowmap.CacheKey{
		Server:    props.Server,
		Schema:    props.Schema,
		Table:     table,
		Operation: operationColumns,
	}
}

func (c *Catalog) lookup(ctx context.Context, key string) (*Columns, bool) {
	b, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
		return nil, false
	}
	if b == nil {
		return nil, false
	}
	var cols Columns
	if err := msgpack.Unmarshal(b, &cols); err != nil {
		c.logger.WarnContext(ctx, "catalog cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &cols, true
}

func (c *Catalog) store(ctx context.Context, key string, cols *Columns) {
	b, err := msgpack.Marshal(cols)
	if err == nil {
		err = c.cache.Set(ctx, key, b, c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
}
