// Package app wires configuration into the running service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/radiusdt/metasync/internal/cache"
	"github.com/radiusdt/metasync/internal/config"
	"github.com/radiusdt/metasync/internal/database"
	"github.com/radiusdt/metasync/internal/httpserver"
	"github.com/radiusdt/metasync/internal/insights"
	"github.com/radiusdt/metasync/internal/meta"
	"github.com/radiusdt/metasync/internal/metrics"
	"github.com/radiusdt/metasync/internal/storage"
	"go.uber.org/zap"
)

// App holds the wired service components.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store        storage.DayMetricsStore
	Settings     *storage.SettingsProvider
	Orchestrator *insights.Orchestrator
	SyncJob      *insights.SyncJob
	Gaps         *insights.GapDetector
	Cache        cache.ResponseCache

	health  map[string]httpserver.HealthCheck
	closers []func()
}

// New connects the configured backends and builds the services on top.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	clk := clock.WallClock

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.NewMetrics(cfg.Metrics.Namespace, reg),
		health:   make(map[string]httpserver.HealthCheck),
	}

	if err := a.initStore(ctx, clk); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initCache(ctx, clk); err != nil {
		a.Close()
		return nil, err
	}

	client := meta.NewClient(cfg.Meta, clk, logger.Named("meta"), a.Metrics)
	throttle := insights.NewThrottle(clk, cfg.Sync.Delay)

	a.Orchestrator = insights.NewOrchestrator(a.Store, a.Settings, client, clk, logger.Named("orchestrator"), a.Metrics)
	a.SyncJob = insights.NewSyncJob(a.Store, a.Settings, client, throttle, cfg.Sync.MaxDays, clk, logger.Named("sync"), a.Metrics)
	a.Gaps = insights.NewGapDetector(a.Store)

	return a, nil
}

func (a *App) initStore(ctx context.Context, clk clock.Clock) error {
	var (
		store    storage.DayMetricsStore
		settings storage.SettingsRepo
	)

	switch a.Config.Store.Backend {
	case "memory":
		a.Logger.Warn("using in-memory store, cached metrics are lost on restart")
		store = storage.NewInMemoryDayStore(clk)
		settings = storage.NewInMemorySettingsRepo()

	case "postgres", "clickhouse":
		pools := database.NewTenantPools(a.Config.Database, a.Logger.Named("tenants"), clk, storage.EnsurePostgresSchema)
		a.closers = append(a.closers, pools.Close)
		resolver := &gaugedPools{pools: pools, metrics: a.Metrics}
		settings = storage.NewPostgresSettingsRepo(resolver)
		store = storage.NewPostgresDayStore(resolver, clk)

		if a.Config.Store.Backend == "clickhouse" {
			ch, err := database.NewClickHouseDB(ctx, a.Config.ClickHouse, a.Logger)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, func() { _ = ch.Close() })
			a.health["clickhouse"] = ch.Health

			chStore := storage.NewClickHouseDayStore(ch.Conn, clk)
			if err := chStore.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to ensure clickhouse schema: %w", err)
			}
			store = chStore
		}
	}

	a.Store = storage.WithTimeout(store, a.Config.Store.Timeout)
	a.Settings = storage.NewSettingsProvider(settings, clk)
	a.Logger.Info("day metrics store ready", zap.String("backend", a.Config.Store.Backend))
	return nil
}

func (a *App) initCache(ctx context.Context, clk clock.Clock) error {
	switch a.Config.ResponseCache.Backend {
	case "none":
		a.Cache = cache.Noop{}
	case "memory":
		a.Cache = cache.NewMemory(clk)
	case "redis":
		rdb, err := database.NewRedisDB(ctx, a.Config.Redis, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.health["redis"] = rdb.Health
		a.Cache = cache.NewRedis(rdb.Client, "metasync:resp:")
	}
	return nil
}

// Handler builds the HTTP API over the wired services.
func (a *App) Handler() http.Handler {
	return httpserver.NewServer(&httpserver.Dependencies{
		Config:       a.Config,
		Logger:       a.Logger,
		Metrics:      a.Metrics,
		Gatherer:     a.Registry,
		Orchestrator: a.Orchestrator,
		SyncJob:      a.SyncJob,
		Gaps:         a.Gaps,
		Cache:        a.Cache,
		HealthChecks: a.health,
		Clock:        clock.WallClock,
	})
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// gaugedPools reports the number of open tenant pools after each lookup.
type gaugedPools struct {
	pools   *database.TenantPools
	metrics *metrics.Metrics
}

func (g *gaugedPools) Pool(ctx context.Context, tenant string) (*pgxpool.Pool, func(), error) {
	pool, release, err := g.pools.Pool(ctx, tenant)
	g.metrics.SetTenantPools(g.pools.Len())
	return pool, release, err
}
