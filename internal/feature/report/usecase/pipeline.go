package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/tabular"
	"xetra_etl/internal/shared/ratelimiter"
)

// State is a pipeline lifecycle state.
type State string

const (
	StateInitialized  State = "INITIALIZED"
	StateExtracting   State = "EXTRACTING"
	StateTransforming State = "TRANSFORMING"
	StateLoading      State = "LOADING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Stage labels used for instrumentation.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

// PipelineConfig is the target side of one run.
type PipelineConfig struct {
	// TargetKey is the report key prefix; the run timestamp and extension are appended.
	TargetKey string
	// KeyDateFormat is the Go layout of the run timestamp in the key.
	KeyDateFormat string
	Format        tabular.Format
}

// PipelineDeps wires the collaborators of a pipeline. Limiter, Observer,
// Now and Log are optional.
type PipelineDeps struct {
	Source     StorageGateway
	Target     StorageGateway
	Ledger     Ledger
	Aggregator *Aggregator
	Limiter    ratelimiter.RateLimiterInterface
	Observer   Observer
	Now        func() time.Time
	Log        *slog.Logger
}

// Pipeline は抽出→集計→書き込み→台帳更新を1つの作業単位として実行します。
// 抽出範囲（ウォーターマーク）は生成時に確定し、Run は1回だけ実行できます。
type Pipeline struct {
	deps PipelineDeps
	cfg  PipelineConfig

	state     State
	ran       bool
	watermark entity.Watermark
	reportKey string
	rows      int
	recorded  []time.Time
}

// NewPipeline creates a pipeline and immediately asks the ledger for the
// extraction range. With nothing to extract the pipeline is DONE and Run is a
// no-op. On a ledger error the returned pipeline is FAILED and the error is
// returned alongside it.
func NewPipeline(ctx context.Context, deps PipelineDeps, cfg PipelineConfig) (*Pipeline, error) {
	if deps.Limiter == nil {
		deps.Limiter = ratelimiter.Unlimited()
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	deps.Log = deps.Log.With("component", "pipeline")

	p := &Pipeline{deps: deps, cfg: cfg, state: StateInitialized}

	wm, err := deps.Ledger.Plan(ctx)
	if err != nil {
		p.state = StateFailed
		return p, fmt.Errorf("plan extraction: %w", err)
	}
	p.watermark = wm

	if !wm.Pending() {
		p.state = StateDone
		deps.Log.InfoContext(ctx, "ledger is up to date, nothing to extract")
		return p, nil
	}
	deps.Log.InfoContext(ctx, "extraction planned",
		"from", entity.FormatDate(wm.Dates[0]),
		"to", entity.FormatDate(wm.Dates[len(wm.Dates)-1]),
		"effective_start", entity.FormatDate(wm.EffectiveStart),
	)
	return p, nil
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// Watermark returns the extraction plan fixed at construction.
func (p *Pipeline) Watermark() entity.Watermark { return p.watermark }

// ReportKey returns the key of the written report, or "" if none was written.
func (p *Pipeline) ReportKey() string { return p.reportKey }

// Rows returns the number of report rows written.
func (p *Pipeline) Rows() int { return p.rows }

// Recorded returns the dates appended to the ledger by Run.
func (p *Pipeline) Recorded() []time.Time { return p.recorded }

// Run executes the pipeline once. The ledger is only updated after the report
// was written; any failure leaves the pipeline FAILED. A second call returns
// domain.ErrPipelineFinished.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.ran || p.state == StateFailed {
		return domain.ErrPipelineFinished
	}
	p.ran = true
	if p.state == StateDone {
		return nil
	}

	if err := p.run(ctx); err != nil {
		p.deps.Log.ErrorContext(ctx, "pipeline failed", "state", p.state, "error", err)
		p.state = StateFailed
		return err
	}
	p.state = StateDone
	p.deps.Log.InfoContext(ctx, "pipeline done",
		"report_key", p.reportKey,
		"rows", p.rows,
		"recorded_dates", len(p.recorded),
	)
	return nil
}

func (p *Pipeline) run(ctx context.Context) error {
	p.state = StateExtracting
	start := time.Now()
	raw, err := p.extract(ctx)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	p.deps.Observer.ObserveStage(StageExtract, time.Since(start))

	p.state = StateTransforming
	start = time.Now()
	rows, err := p.deps.Aggregator.Transform(ctx, raw, p.watermark.EffectiveStart)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	p.deps.Observer.ObserveStage(StageTransform, time.Since(start))

	p.state = StateLoading
	start = time.Now()
	key := p.cfg.TargetKey + p.deps.Now().Format(p.cfg.KeyDateFormat) + "." + string(p.cfg.Format)
	if err := p.deps.Target.WriteTable(ctx, p.deps.Aggregator.ReportTable(rows), key, p.cfg.Format); err != nil {
		return fmt.Errorf("load report %q: %w", key, err)
	}
	p.reportKey = key
	p.rows = len(rows)

	// The report is stored; the ledger must follow even if the caller went away.
	covered := p.watermark.CoveredDates()
	if err := p.deps.Ledger.Record(context.WithoutCancel(ctx), covered); err != nil {
		return fmt.Errorf("record ledger: %w", err)
	}
	p.recorded = covered
	p.deps.Observer.ObserveStage(StageLoad, time.Since(start))
	return nil
}

// extract reads every object listed under each planned date and stacks them.
func (p *Pipeline) extract(ctx context.Context) (tabular.Table, error) {
	var tables []tabular.Table
	for _, d := range p.watermark.Dates {
		prefix := entity.FormatDate(d)
		keys, err := p.deps.Source.List(ctx, prefix)
		if err != nil {
			return tabular.Table{}, fmt.Errorf("list %q: %w", prefix, err)
		}
		for _, key := range keys {
			if err := p.deps.Limiter.Wait(ctx); err != nil {
				return tabular.Table{}, err
			}
			t, err := p.deps.Source.ReadTable(ctx, key)
			if err != nil {
				return tabular.Table{}, fmt.Errorf("read %q: %w", key, err)
			}
			p.deps.Observer.SourceObjectRead()
			tables = append(tables, t)
		}
		p.deps.Log.DebugContext(ctx, "extracted date", "date", prefix, "objects", len(keys))
	}
	out := tabular.Concat(tables...)
	p.deps.Log.InfoContext(ctx, "extraction finished", "objects", len(tables), "rows", out.Len())
	return out, nil
}
