package serdes

import (
	"context"
	"log/slog"
	"sync"

	"projects/internal/platform/metrics"
	"projects/internal/rowstore"
)

// Engine owns a schema registry and the row store every schema on it reads
// and writes. Schemas built against different engines never see each other.
type Engine struct {
	store      rowstore.Store
	registry   *Registry
	logger     *slog.Logger
	metrics    *metrics.SerDes
	observer   Observer
	cacheLimit int

	// commitMu orders session commits so cache publication is all or nothing per session.
	commitMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for protocol tracing at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records cache and deserialization counters.
func WithMetrics(m *metrics.SerDes) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithObserver receives every protocol event.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithCacheLimit bounds each schema's identity cache to n entries with LRU
// eviction. Zero, the default, keeps every materialized entity until Evict or Purge.
func WithCacheLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.cacheLimit = n
		}
	}
}

// NewEngine creates an engine over store.
func NewEngine(store rowstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: newRegistry(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *Engine) Registry() *Registry      { return e.registry }
func (e *Engine) Store() rowstore.Store    { return e.store }
func (e *Engine) Logger() *slog.Logger     { return e.logger }
func (e *Engine) Metrics() *metrics.SerDes { return e.metrics }

// Purge empties the identity cache of every registered schema.
func (e *Engine) Purge() {
	e.registry.purge()
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	e.logger.DebugContext(ctx, "serdes "+ev.Kind.String(),
		"session_id", ev.Session,
		"entity", ev.Entity,
		"field", ev.Field,
		"target", ev.Target,
	)
	if e.observer != nil {
		e.observer.Observe(ev)
	}
}
