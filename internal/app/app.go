package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/streamhub/internal/config"
	"github.com/riskibarqy/streamhub/internal/domain/viewer"
	"github.com/riskibarqy/streamhub/internal/interfaces/httpapi"
	"github.com/riskibarqy/streamhub/internal/observability"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/resolver"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

const minPruneInterval = 30 * time.Second

// App is the assembled service: the HTTP server plus the background loops
// that keep the catalog and the heartbeat store fresh.
type App struct {
	Server  *http.Server
	Metrics *observability.Metrics

	aggregator    *usecase.Aggregator
	viewers       *usecase.ViewerService
	db            *sqlx.DB
	logger        *logging.Logger
	pruneInterval time.Duration
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	providers, err := newProviders(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	now := time.Now
	classifier := classifierFromTuning(cfg.Tuning)
	aggregator := usecase.NewAggregator(providers.primary, providers.livescores, providers.channels, usecase.AggregatorConfig{
		Interval:   cfg.AggregationInterval,
		Classifier: classifier,
		Weights:    weightsFromTuning(cfg.Tuning),
		Threshold:  cfg.Tuning.MatchThreshold,
		Logger:     logger,
		Now:        now,
		OnCycle: func(d time.Duration, catalog usecase.Catalog) {
			metrics.ObserveCycle(d, len(catalog.Matches), catalog.Stale)
			for _, p := range catalog.Providers {
				metrics.ObserveProvider(p.Name, p.OK, p.Duration)
			}
		},
	})

	res := resolver.New(providers.resolverChain, resolver.Config{
		MaxDepth:    &cfg.ResolverMaxDepth,
		Concurrency: cfg.ResolverConcurrency,
		MaxFanout:   cfg.ResolverMaxFanout,
		Timeout:     cfg.ResolverTimeout,
		CacheTTL:    cfg.ResolverCacheTTL,
		Logger:      logger,
		Now:         now,
		OnOutcome:   metrics.ObserveResolution,
	})

	repo, db, err := newViewerRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	probe := usecase.NewViewerProbe(providers.primary, usecase.ViewerProbeConfig{
		Timeout:     cfg.ViewerTimeout,
		CacheTTL:    cfg.ViewerCacheTTL,
		Concurrency: cfg.ViewerConcurrency,
		Logger:      logger,
		Now:         now,
		OnResult:    metrics.ObserveProbe,
	})
	viewers := usecase.NewViewerService(probe, repo, aggregator, usecase.ViewerServiceConfig{
		HeartbeatWindow: cfg.ViewerHeartbeatWindow,
		Logger:          logger,
		Now:             now,
	})

	handler := httpapi.NewHandler(httpapi.HandlerDeps{
		Catalog:   usecase.NewCatalogService(aggregator, providers.primary, classifier, now),
		Streams:   usecase.NewStreamService(providers.primary, res, aggregator, cfg.StreamConcurrency, logger),
		Viewers:   viewers,
		Probe:     probe,
		Refresher: aggregator,
		Breakers:  providers.breakers,
		Logger:    logger,
		Now:       now,

		MatchStreamsTimeout: cfg.MatchStreamsTimeout,
	})

	routerCfg := httpapi.RouterConfig{
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalToken:      cfg.InternalJobToken,
	}
	if metrics != nil {
		routerCfg.Metrics = metrics.Handler()
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, routerCfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server:        server,
		Metrics:       metrics,
		aggregator:    aggregator,
		viewers:       viewers,
		db:            db,
		logger:        logger.Named("app"),
		pruneInterval: max(cfg.ViewerHeartbeatWindow, minPruneInterval),
	}, nil
}

// RunBackground blocks until ctx is done, running the aggregation loop and
// the heartbeat pruner.
func (a *App) RunBackground(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { a.aggregator.Run(ctx) })
	wg.Go(func() { a.pruneHeartbeats(ctx) })
	wg.Wait()
}

func (a *App) pruneHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(a.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.viewers.PruneHeartbeats(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "prune heartbeats failed", "error", err)
				continue
			}
			if removed > 0 {
				a.logger.DebugContext(ctx, "heartbeats pruned", "removed", removed)
			}
		}
	}
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newViewerRepository(ctx context.Context, cfg config.Config, logger *logging.Logger) (viewer.Repository, *sqlx.DB, error) {
	if cfg.ViewerStore != config.ViewerStorePostgres {
		logger.Info("viewer heartbeats stored in memory")
		return memoryViewerRepository(), nil, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("viewer heartbeats stored in postgres", "db_name", dbNameFromURL(cfg.DBURL))
	return postgresViewerRepository(db), db, nil
}
