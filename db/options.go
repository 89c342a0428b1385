package db

import (
	"log/slog"
	"time"

	"github.com/syssam/rowmap/dialect/sql"
)

// Option configures a DB.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	debug         bool
	slowThreshold time.Duration
	session       string
	maxOpenConns  int
}

func defaultOptions() options {
	return options{
		slowThreshold: sql.DefaultSlowThreshold,
		maxOpenConns:  1,
	}
}

// WithLogger sets the logger used for debug statements, slow queries and
// transaction events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebug logs every statement at debug level.
func WithDebug() Option {
	return func(o *options) {
		o.debug = true
	}
}

// WithSlowThreshold sets the duration above which statements are logged
// as slow queries. Default is 100ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(o *options) {
		o.slowThreshold = d
	}
}

// WithSessionID sets the session id attached to log lines. A random UUID is
// used when unset.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.session = id
	}
}

// WithMaxOpenConns overrides the pool size used by Open. The facade
// assumes a single connection (the default): transactions and
// LastInsertID are tracked per facade, not per pooled connection.
func WithMaxOpenConns(n int) Option {
	return func(o *options) {
		o.maxOpenConns = n
	}
}
