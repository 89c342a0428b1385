package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/rowmap/dialect"
)

// DefaultSlowThreshold is the slow statement threshold of NewStatsDriver.
const DefaultSlowThreshold = 100 * time.Millisecond

// QueryStats counts the statements run through a StatsDriver.
type QueryStats struct {
	queries   atomic.Int64
	execs     atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
	slow      atomic.Int64
	errors    atomic.Int64
	elapsed   atomic.Int64 // nanoseconds
}

// Snapshot returns the current counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:   s.queries.Load(),
		Execs:     s.execs.Load(),
		Commits:   s.commits.Load(),
		Rollbacks: s.rollbacks.Load(),
		Slow:      s.slow.Load(),
		Errors:    s.errors.Load(),
		Elapsed:   time.Duration(s.elapsed.Load()),
	}
}

// Reset zeroes every counter.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.queries, &s.execs, &s.commits, &s.rollbacks, &s.slow, &s.errors, &s.elapsed} {
		c.Store(0)
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	Queries   int64
	Execs     int64
	Commits   int64
	Rollbacks int64
	Slow      int64
	Errors    int64
	Elapsed   time.Duration
}

// Total returns the number of statements executed, queries and execs.
func (s StatsSnapshot) Total() int64 {
	return s.Queries + s.Execs
}

// Avg returns the mean statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	if n := s.Total(); n > 0 {
		return s.Elapsed / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d commits=%d rollbacks=%d slow=%d errors=%d elapsed=%s avg=%s",
		s.Queries, s.Execs, s.Commits, s.Rollbacks, s.Slow, s.Errors, s.Elapsed, s.Avg())
}

// SlowQueryHook is called for every statement slower than the threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, took time.Duration)

// StatsDriver counts statements and transaction outcomes of the wrapped
// driver and reports slow statements.
type StatsDriver struct {
	dialect.Driver
	stats     QueryStats
	threshold atomic.Int64
	hook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// A negative threshold marks every statement slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the callback for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level, on slog.Default()
// when logger is nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, took time.Duration) {
		logger.WarnContext(ctx, "slow query detected", "duration", took, "query", query, "args", args)
	})
}

// NewStatsDriver wraps drv with statement statistics.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the live counters.
func (d *StatsDriver) QueryStats() *QueryStats {
	return &d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold. It is safe to call
// while statements run.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query implements dialect.ExecQuerier.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.observe(ctx, &d.stats.queries, query, args, start, err)
	return err
}

// Exec implements dialect.ExecQuerier.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.observe(ctx, &d.stats.execs, query, args, start, err)
	return err
}

func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, start time.Time, err error) {
	took := time.Since(start)
	counter.Add(1)
	d.stats.elapsed.Add(int64(took))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if took <= d.SlowThreshold() {
		return
	}
	d.stats.slow.Add(1)
	if d.hook != nil {
		list, _ := args.([]any)
		d.hook(ctx, query, list, took)
	}
}

// Tx starts a transaction whose statements and outcome are counted.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, drv: d}, nil
}

type statsTx struct {
	dialect.Tx
	drv *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.stats.queries, query, args, start, err)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.drv.observe(ctx, &tx.drv.stats.execs, query, args, start, err)
	return err
}

func (tx *statsTx) Commit() error {
	err := tx.Tx.Commit()
	if err == nil {
		tx.drv.stats.commits.Add(1)
	}
	return err
}

func (tx *statsTx) Rollback() error {
	err := tx.Tx.Rollback()
	if err == nil {
		tx.drv.stats.rollbacks.Add(1)
	}
	return err
}

// DebugDriver logs every statement and transaction boundary of the wrapped
// driver at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// NewDebugDriver wraps drv with statement logging on logger, or on
// slog.Default() when logger is nil.
func NewDebugDriver(drv dialect.Driver, logger *slog.Logger) *DebugDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: drv, logger: logger}
}

// Query implements dialect.ExecQuerier.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "query", "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements dialect.ExecQuerier.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "exec", "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx starts a transaction whose statements are logged with tx=true.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logger.DebugContext(ctx, "begin transaction")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, logger: d.logger.With("tx", true)}, nil
}

type debugTx struct {
	dialect.Tx
	logger *slog.Logger
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "query", "sql", query, "args", args)
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.logger.DebugContext(ctx, "exec", "sql", query, "args", args)
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.logger.Debug("commit transaction")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.logger.Debug("rollback transaction")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)
