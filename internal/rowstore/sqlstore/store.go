// Package sqlstore implements rowstore.Store over database/sql for PostgreSQL
// (pgx or lib/pq) and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"projects/internal/platform/metrics"
	"projects/internal/rowstore"
	"projects/pkg/platform/sentinel"
	"projects/pkg/platform/tx"
)

const tracerName = "projects/internal/rowstore/sqlstore"

// Store is a rowstore.Store backed by a *sql.DB. Statements join a transaction
// carried in the context by pkg/platform/tx.
type Store struct {
	db      *sql.DB
	dialect Dialect
	metrics *metrics.RowStore
	tracer  trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records statement latency and failures.
func WithMetrics(m *metrics.RowStore) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open connects with the named driver ("pgx", "postgres" or "sqlite") and pings the database.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect == SQLite {
		// one connection keeps ":memory:" databases and writer locks coherent
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", driver, sentinel.ErrUnavailable, err)
	}
	return New(db, dialect, opts...), nil
}

// DB exposes the underlying pool, e.g. for tx.Run.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Store) SelectOne(ctx context.Context, table, column string, value any) (row rowstore.Row, err error) {
	ctx, done := s.observe(ctx, "select_one", table, column)
	defer func() { done(err) }()

	rows, err := s.execer(ctx).QueryContext(ctx, s.dialect.selectWhere(table, column, true), value)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("select %s: %w", table, err)
		}
		return nil, fmt.Errorf("select %s where %s: %w", table, column, rowstore.ErrNoSuchRow)
	}
	values, err := scan(rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return values, nil
}

func (s *Store) SelectAll(ctx context.Context, table, column string, value any) (cur rowstore.Cursor, err error) {
	ctx, done := s.observe(ctx, "select_all", table, column)
	defer func() { done(err) }()

	rows, err := s.execer(ctx).QueryContext(ctx, s.dialect.selectWhere(table, column, false), value)
	if err != nil {
		return nil, fmt.Errorf("select all %s: %w", table, err)
	}
	return &cursor{rows: rows}, nil
}

func (s *Store) Insert(ctx context.Context, table string, values []rowstore.Pair) (err error) {
	ctx, done := s.observe(ctx, "insert", table, "")
	defer func() { done(err) }()

	if len(values) == 0 {
		return fmt.Errorf("insert %s: no columns: %w", table, sentinel.ErrInvalidState)
	}
	if _, err := s.execer(ctx).ExecContext(ctx, s.dialect.insert(table, rowstore.Columns(values)), args(values)...); err != nil {
		return fmt.Errorf("insert %s: %w", table, classify(err))
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table, keyColumn string, keyValue any, values []rowstore.Pair) (err error) {
	ctx, done := s.observe(ctx, "update", table, keyColumn)
	defer func() { done(err) }()

	if len(values) == 0 {
		return nil
	}
	res, err := s.execer(ctx).ExecContext(ctx, s.dialect.update(table, keyColumn, rowstore.Columns(values)), append(args(values), keyValue)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: rows affected: %w", table, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s where %s: %w", table, keyColumn, rowstore.ErrNoSuchRow)
	}
	return nil
}

func (s *Store) ValueExists(ctx context.Context, table, column string, value any) (exists bool, err error) {
	ctx, done := s.observe(ctx, "value_exists", table, column)
	defer func() { done(err) }()

	if err := s.execer(ctx).QueryRowContext(ctx, s.dialect.exists(table, column), value).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s.%s: %w", table, column, err)
	}
	return exists, nil
}

func (s *Store) MaxInt(ctx context.Context, table, column string) (highest int64, ok bool, err error) {
	ctx, done := s.observe(ctx, "max", table, column)
	defer func() { done(err) }()

	var n sql.NullInt64
	if err := s.execer(ctx).QueryRowContext(ctx, s.dialect.max(table, column)).Scan(&n); err != nil {
		return 0, false, fmt.Errorf("max %s.%s: %w", table, column, err)
	}
	return n.Int64, n.Valid, nil
}

// Apply executes semicolon separated DDL, one statement at a time.
func (s *Store) Apply(ctx context.Context, ddl string) error {
	for _, stmt := range strings.Split(ddl, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.execer(ctx).ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) observe(ctx context.Context, op, table, column string) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("db.system", s.dialect.String()),
		attribute.String("db.sql.table", table),
	}
	if column != "" {
		attrs = append(attrs, attribute.String("db.column", column))
	}
	ctx, span := s.tracer.Start(ctx, "rowstore."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		s.metrics.ObserveStatement(op, table, start)
		if err != nil && !errors.Is(err, rowstore.ErrNoSuchRow) {
			s.metrics.IncrementFailure(op, table)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func args(values []rowstore.Pair) []any {
	out := make([]any, len(values))
	for i, p := range values {
		out[i] = p.Value
	}
	return out
}

func scan(rows *sql.Rows) (rowstore.Values, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	values := make(rowstore.Values, len(cols))
	for i, c := range cols {
		values[c] = raw[i]
	}
	return values, nil
}

type cursor struct {
	rows *sql.Rows
	cur  rowstore.Values
	err  error
}

func (c *cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.cur, c.err = scan(c.rows)
	return c.err == nil
}

func (c *cursor) Row() rowstore.Row {
	if c.cur == nil {
		return nil
	}
	return c.cur
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *cursor) Close() error { return c.rows.Close() }
