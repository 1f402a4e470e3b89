package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"projects/internal/platform/config"
	"projects/internal/platform/metrics"
	platformredis "projects/internal/platform/redis"
	"projects/internal/rowstore"
	"projects/internal/rowstore/redisstore"
	"projects/internal/rowstore/sqlstore"
	"projects/internal/serdes"
	"projects/internal/staff/models"
	"projects/internal/staff/service"
	"projects/pkg/platform/circuit"
)

// app holds the opened row store and the directory built on it.
type app struct {
	store     rowstore.Store
	sql       *sqlstore.Store
	directory *service.Directory
	closers   []func() error
}

func open(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{}
	unique := models.UniqueColumns()

	switch cfg.Store.Driver {
	case config.DriverMemory:
		var opts []rowstore.MemoryOption
		for table, cols := range unique {
			opts = append(opts, rowstore.WithUnique(table, cols...))
		}
		a.store = rowstore.NewMemory(opts...)
	case config.DriverSQLite, config.DriverPgx, config.DriverPostgres:
		s, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN,
			sqlstore.WithMetrics(metrics.NewRowStore(reg)),
			sqlstore.WithTracerProvider(otel.GetTracerProvider()),
		)
		if err != nil {
			return nil, err
		}
		a.store, a.sql = s, s
		a.closers = append(a.closers, s.Close)
	case config.DriverRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		opts := []redisstore.Option{redisstore.WithPrefix(cfg.Redis.Prefix)}
		for table, cols := range unique {
			opts = append(opts, redisstore.WithUnique(table, cols...))
		}
		a.store = redisstore.New(client.Client, opts...)
		a.closers = append(a.closers, client.Close)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Driver != config.DriverMemory {
		a.store = rowstore.NewGuarded(a.store, circuit.New(cfg.Store.Driver), log)
	}

	engine := serdes.NewEngine(a.store,
		serdes.WithLogger(log),
		serdes.WithMetrics(metrics.NewSerDes(reg)),
		serdes.WithCacheLimit(cfg.Cache.Limit),
	)
	d, err := service.New(engine,
		service.WithLogger(log),
		service.WithMetrics(metrics.NewDirectory(reg)),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.directory = d
	return a, nil
}

// initialize creates the directory tables. Only SQL stores have a schema.
func (a *app) initialize(ctx context.Context) error {
	if a.sql == nil {
		return nil
	}
	return a.sql.Apply(ctx, models.SchemaSQL)
}

func (a *app) health(ctx context.Context) error {
	if p, ok := a.store.(rowstore.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
