package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"

	"xetra_etl/internal/app/router"
	"xetra_etl/internal/feature/report/adapters"
	reporthandler "xetra_etl/internal/feature/report/transport/handler"
	"xetra_etl/internal/feature/report/usecase"
	"xetra_etl/internal/platform/cache"
	"xetra_etl/internal/platform/config"
	platformhandler "xetra_etl/internal/platform/http/handler"
	"xetra_etl/internal/platform/lock"
	"xetra_etl/internal/platform/metrics"
	infraredis "xetra_etl/internal/platform/redis"
	"xetra_etl/internal/platform/tabular"
	"xetra_etl/internal/shared/ratelimiter"
)

// App is the wired report service shared by the CLI and the HTTP server.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Source  *adapters.Bucket
	Target  *adapters.Bucket
	Ledger  *usecase.LedgerUsecase
	Report  *usecase.ReportUsecase
	Metrics *metrics.Registry
	// Redis is nil when REDIS_HOST is unset or unreachable and no lock is required.
	Redis *redisv9.Client

	closers []io.Closer
}

// Build wires the application from a validated configuration. Redis is
// optional unless lock.enabled is set; without it runs are not serialised
// and watermark lookups are not cached.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	if log == nil {
		log = slog.Default()
	}
	app := &App{Config: cfg, Log: log, Metrics: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	srcStore, closer, err := NewObjectStore(ctx, cfg.Storage.Source, cfg.Env.DBPassword)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}
	app.closers = append(app.closers, closer)
	trgStore, closer, err := NewObjectStore(ctx, cfg.Storage.Target, cfg.Env.DBPassword)
	if err != nil {
		return nil, fmt.Errorf("open target store: %w", err)
	}
	app.closers = append(app.closers, closer)
	app.Source = adapters.NewBucket("source", srcStore)
	app.Target = adapters.NewBucket("target", trgStore)

	if cfg.Env.RedisAddr() != "" {
		rdb, rerr := infraredis.NewRedisClient(ctx, cfg.Env)
		switch {
		case rerr == nil:
			app.Redis = rdb
			app.closers = append(app.closers, rdb)
		case cfg.Lock.Enabled:
			return nil, fmt.Errorf("run lock requires redis: %w", rerr)
		default:
			log.Warn("Redis unavailable. Running without lock and cache.", "error", rerr)
		}
	}

	app.Ledger = usecase.NewLedgerUsecase(app.Target, cfg.Meta.Key, cfg.Source.FirstExtract(), log)
	deps := usecase.PipelineDeps{
		Source:     app.Source,
		Target:     app.Target,
		Ledger:     app.Ledger,
		Aggregator: NewAggregator(cfg, log),
		Limiter: ratelimiter.NewRateLimiter("source",
			cfg.Storage.Source.RequestsPerSecond, cfg.Storage.Source.Burst),
		Log: log,
	}
	pcfg := usecase.PipelineConfig{
		TargetKey:     cfg.Target.Key,
		KeyDateFormat: cfg.Target.KeyDateFormat,
		Format:        tabular.Format(cfg.Target.Format),
	}

	opts := []usecase.Option{
		usecase.WithMetrics(app.Metrics),
		usecase.WithLock(NewRunLock(cfg.Lock, app.Redis), cfg.Meta.Key),
	}
	if app.Redis != nil {
		c := cache.NewCachingWatermark(app.Redis, app.Ledger, "", cfg.Meta.Key)
		c.OnLookup = app.Metrics.WatermarkLookup
		opts = append(opts, usecase.WithWatermarkCache(c))
	}
	app.Report = usecase.NewReportUsecase(deps, pcfg, opts...)
	return app, nil
}

// NewAggregator builds the aggregator from the configured column names.
func NewAggregator(cfg *config.Config, log *slog.Logger) *usecase.Aggregator {
	src := usecase.SourceColumns{
		Columns:      cfg.Source.Columns,
		Date:         cfg.Source.ColDate,
		ISIN:         cfg.Source.ColISIN,
		Time:         cfg.Source.ColTime,
		StartPrice:   cfg.Source.ColStartPrice,
		MinPrice:     cfg.Source.ColMinPrice,
		MaxPrice:     cfg.Source.ColMaxPrice,
		TradedVolume: cfg.Source.ColTradedVol,
	}
	dst := usecase.TargetColumns{
		ISIN:               cfg.Target.ColISIN,
		Date:               cfg.Target.ColDate,
		OpeningPrice:       cfg.Target.ColOpPrice,
		ClosingPrice:       cfg.Target.ColClosPrice,
		MinPrice:           cfg.Target.ColMinPrice,
		MaxPrice:           cfg.Target.ColMaxPrice,
		DailyTradedVolume:  cfg.Target.ColDailTradVol,
		PctChangePrevClose: cfg.Target.ColChPrevClos,
	}
	return usecase.NewAggregator(src, dst, log)
}

// NewRunLock returns a Redis lock when enabled and Redis is available.
// Otherwise, it returns a lock that always succeeds.
func NewRunLock(cfg config.LockConfig, rdb *redisv9.Client) usecase.RunLock {
	if cfg.Enabled && rdb != nil {
		return lock.NewRedisLock(rdb, cfg.Prefix, cfg.TTL)
	}
	return lock.Noop{}
}

// Probes returns the dependency checks served by /healthz.
func (a *App) Probes() []platformhandler.Probe {
	probes := []platformhandler.Probe{
		{Name: "source", Check: a.Source.Ping},
		{Name: "target", Check: a.Target.Ping},
	}
	if a.Redis != nil {
		probes = append(probes, platformhandler.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
		})
	}
	return probes
}

// Router builds the HTTP router over the report usecase.
func (a *App) Router() *gin.Engine {
	return router.NewRouter(router.Deps{
		Report:      reporthandler.NewReportHandler(a.Report),
		Metrics:     a.Metrics.Handler(),
		Probes:      a.Probes(),
		JWTSecret:   a.Config.Env.JWTSecret,
		CORSOrigins: a.Config.Server.CORSOrigins,
		Log:         a.Log,
	})
}

// Close releases stores and the Redis client, in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
