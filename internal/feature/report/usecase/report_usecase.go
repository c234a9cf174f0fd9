package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/logger"
)

// RunLock serialises runs against the same ledger.
type RunLock interface {
	Acquire(ctx context.Context, name, token string) (bool, error)
	Release(ctx context.Context, name, token string) error
}

// RunMetrics records run outcomes. *metrics.Registry implements it.
type RunMetrics interface {
	Observer
	ObserveRun(state string, d time.Duration, rows, recorded int, finishedAt time.Time)
}

// WatermarkCache serves read-only watermark lookups.
type WatermarkCache interface {
	Plan(ctx context.Context) (entity.Watermark, error)
	Invalidate(ctx context.Context) error
}

// RunResult summarises one run.
type RunResult struct {
	RunID         string
	State         State
	Watermark     entity.Watermark
	ReportKey     string
	Rows          int
	RecordedDates []time.Time
	Duration      time.Duration
}

// ReportUsecase はロック・メトリクス付きでパイプラインを1回実行するユースケースです。
type ReportUsecase struct {
	deps     PipelineDeps
	cfg      PipelineConfig
	lock     RunLock
	lockName string
	metrics  RunMetrics
	cache    WatermarkCache
	newID    func() string
	log      *slog.Logger
}

// Option configures a ReportUsecase.
type Option func(*ReportUsecase)

// WithLock guards runs with l under name (normally the meta key).
func WithLock(l RunLock, name string) Option {
	return func(u *ReportUsecase) {
		u.lock = l
		u.lockName = name
	}
}

// WithMetrics records run and stage metrics.
func WithMetrics(m RunMetrics) Option {
	return func(u *ReportUsecase) { u.metrics = m }
}

// WithWatermarkCache serves Plan from c and invalidates it after successful runs.
func WithWatermarkCache(c WatermarkCache) Option {
	return func(u *ReportUsecase) { u.cache = c }
}

// NewReportUsecase creates the report service. Without WithLock runs are not
// serialised, which is only safe when a single scheduler starts them.
func NewReportUsecase(deps PipelineDeps, cfg PipelineConfig, opts ...Option) *ReportUsecase {
	u := &ReportUsecase{
		deps:  deps,
		cfg:   cfg,
		lock:  noopLock{},
		newID: uuid.NewString,
		log:   deps.Log,
	}
	if u.log == nil {
		u.log = slog.Default()
	}
	for _, o := range opts {
		o(u)
	}
	if u.metrics != nil && u.deps.Observer == nil {
		u.deps.Observer = u.metrics
	}
	return u
}

// Plan は現在の抽出範囲を返します。副作用はありません。
func (u *ReportUsecase) Plan(ctx context.Context) (entity.Watermark, error) {
	if u.cache != nil {
		return u.cache.Plan(ctx)
	}
	return u.deps.Ledger.Plan(ctx)
}

// Run はロックを取得してパイプラインを1回実行します。
// 別の実行がロックを保持している場合は domain.ErrRunInProgress を返します。
func (u *ReportUsecase) Run(ctx context.Context) (*RunResult, error) {
	runID := u.newID()
	ctx = logger.WithRunID(ctx, runID)
	res := &RunResult{RunID: runID, State: StateInitialized}

	ok, err := u.lock.Acquire(ctx, u.lockName, runID)
	if err != nil {
		return res, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		u.log.WarnContext(ctx, "run skipped, lock held by another run", "lock", u.lockName)
		return res, domain.ErrRunInProgress
	}
	defer func() {
		// Release even if ctx was cancelled mid-run.
		if err := u.lock.Release(context.WithoutCancel(ctx), u.lockName, runID); err != nil {
			u.log.WarnContext(ctx, "failed to release run lock", "lock", u.lockName, "error", err)
		}
	}()

	start := time.Now()
	u.log.InfoContext(ctx, "run started")

	p, err := NewPipeline(ctx, u.deps, u.cfg)
	if err == nil {
		err = p.Run(ctx)
	}
	if p != nil {
		res.State = p.State()
		res.Watermark = p.Watermark()
		res.ReportKey = p.ReportKey()
		res.Rows = p.Rows()
		res.RecordedDates = p.Recorded()
	}
	res.Duration = time.Since(start)

	if u.metrics != nil {
		u.metrics.ObserveRun(string(res.State), res.Duration, res.Rows, len(res.RecordedDates), time.Now())
	}
	if err != nil {
		return res, err
	}

	if u.cache != nil && len(res.RecordedDates) > 0 {
		if err := u.cache.Invalidate(ctx); err != nil {
			u.log.WarnContext(ctx, "failed to invalidate watermark cache", "error", err)
		}
	}
	u.log.InfoContext(ctx, "run finished", "state", res.State, "duration", res.Duration)
	return res, nil
}

// IsClientError reports whether err stems from the run's own inputs (ledger
// shape, source columns, format) rather than from storage or infrastructure.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrLedgerSchema) ||
		errors.Is(err, domain.ErrMissingColumn) ||
		errors.Is(err, domain.ErrUnsupportedFormat)
}

type noopLock struct{}

func (noopLock) Acquire(context.Context, string, string) (bool, error) { return true, nil }
func (noopLock) Release(context.Context, string, string) error        { return nil }
