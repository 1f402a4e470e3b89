package rowstore

import (
	"context"
	"errors"
	"log/slog"

	"projects/pkg/platform/circuit"
	"projects/pkg/platform/sentinel"
)

// Guarded wraps a Store with a circuit breaker. Every call still reaches the
// store; consecutive infrastructure failures mark it degraded until enough
// calls succeed again. Missing rows and conflicts are answers, not failures.
type Guarded struct {
	Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(store Store, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guarded{Store: store, breaker: breaker, logger: logger}
}

// Degraded reports whether the breaker is open.
func (g *Guarded) Degraded() bool { return g.breaker.IsOpen() }

func (g *Guarded) SelectOne(ctx context.Context, table, column string, value any) (Row, error) {
	row, err := g.Store.SelectOne(ctx, table, column, value)
	g.record(ctx, err)
	return row, err
}

func (g *Guarded) SelectAll(ctx context.Context, table, column string, value any) (Cursor, error) {
	cur, err := g.Store.SelectAll(ctx, table, column, value)
	g.record(ctx, err)
	return cur, err
}

func (g *Guarded) Insert(ctx context.Context, table string, values []Pair) error {
	err := g.Store.Insert(ctx, table, values)
	g.record(ctx, err)
	return err
}

func (g *Guarded) Update(ctx context.Context, table, keyColumn string, keyValue any, values []Pair) error {
	err := g.Store.Update(ctx, table, keyColumn, keyValue, values)
	g.record(ctx, err)
	return err
}

func (g *Guarded) ValueExists(ctx context.Context, table, column string, value any) (bool, error) {
	ok, err := g.Store.ValueExists(ctx, table, column, value)
	g.record(ctx, err)
	return ok, err
}

// MaxInt forwards to the wrapped store when it can allocate ids.
func (g *Guarded) MaxInt(ctx context.Context, table, column string) (int64, bool, error) {
	mf, ok := g.Store.(MaxFinder)
	if !ok {
		return 0, false, errors.New("max: wrapped store cannot find maxima")
	}
	highest, found, err := mf.MaxInt(ctx, table, column)
	g.record(ctx, err)
	return highest, found, err
}

// Ping reports ErrUnavailable while degraded, otherwise asks the wrapped store.
func (g *Guarded) Ping(ctx context.Context) error {
	if p, ok := g.Store.(Pinger); ok {
		err := p.Ping(ctx)
		g.record(ctx, err)
		if err != nil {
			return err
		}
	}
	if g.Degraded() {
		return sentinel.ErrUnavailable
	}
	return nil
}

func (g *Guarded) record(ctx context.Context, err error) {
	if err == nil || errors.Is(err, ErrNoSuchRow) || errors.Is(err, sentinel.ErrConflict) {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "row store recovered", "breaker", g.breaker.Name())
		}
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.logger.WarnContext(ctx, "row store degraded", "breaker", g.breaker.Name(), "error", err)
	}
}
