package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/tabular"
)

// Ledger columns. A stored ledger must have exactly these two columns, in any order.
const (
	LedgerColSourceDate  = "source_date"
	LedgerColProcessedOn = "processed_on"
)

// ProcessedOnLayout is the textual form of LedgerEntry.ProcessedOn.
const ProcessedOnLayout = "20060102"

// ComputeWatermark decides which dates a run must extract.
//
// The candidate range starts one day before firstExtract (the seed day, only
// needed for the previous-day comparison) and ends at today. With an empty
// ledger every candidate is extracted. Otherwise extraction restarts one day
// before the earliest candidate (seed day excluded) missing from processed, or
// returns no dates and the NothingToDo sentinel when nothing is missing.
func ComputeWatermark(firstExtract, today time.Time, processed []time.Time) entity.Watermark {
	first := entity.DateOf(firstExtract)
	candidates := entity.DateRange(first.AddDate(0, 0, -1), today)

	if len(processed) == 0 {
		return entity.Watermark{EffectiveStart: first, Dates: candidates}
	}

	done := make(map[time.Time]struct{}, len(processed))
	for _, d := range processed {
		done[entity.DateOf(d)] = struct{}{}
	}

	// candidates are ascending, so the first miss is the earliest gap.
	for i := 1; i < len(candidates); i++ {
		if _, ok := done[candidates[i]]; !ok {
			return entity.Watermark{EffectiveStart: candidates[i], Dates: candidates[i-1:]}
		}
	}
	return entity.Watermark{EffectiveStart: entity.NothingToDo, Dates: []time.Time{}}
}

// LedgerUsecase は台帳オブジェクトの読み込み・追記を行います。
// 台帳は常にCSVで、毎回オブジェクト全体を読み込み・マージ・書き戻します。
// 同じ台帳への同時実行は想定していません（ReportUsecase のロックで排他します）。
type LedgerUsecase struct {
	store        StorageGateway
	metaKey      string
	firstExtract time.Time
	now          func() time.Time
	log          *slog.Logger
}

// NewLedgerUsecase creates a ledger stored under metaKey in store.
func NewLedgerUsecase(store StorageGateway, metaKey string, firstExtract time.Time, log *slog.Logger) *LedgerUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &LedgerUsecase{
		store:        store,
		metaKey:      metaKey,
		firstExtract: entity.DateOf(firstExtract),
		now:          time.Now,
		log:          log.With("component", "ledger", "meta_key", metaKey),
	}
}

// Plan は台帳を読み込み、今回の抽出範囲を計算します。台帳がなければ初回実行として扱います。
func (l *LedgerUsecase) Plan(ctx context.Context) (entity.Watermark, error) {
	entries, _, err := l.load(ctx)
	if err != nil {
		return entity.Watermark{}, err
	}

	processed := make([]time.Time, len(entries))
	for i, e := range entries {
		processed[i] = e.SourceDate
	}

	wm := ComputeWatermark(l.firstExtract, entity.DateOf(l.now()), processed)
	l.log.InfoContext(ctx, "watermark computed",
		"ledger_entries", len(entries),
		"effective_start", entity.FormatDate(wm.EffectiveStart),
		"dates", len(wm.Dates),
	)
	return wm, nil
}

// Entries returns the ledger history in stored order. A missing ledger yields no entries.
func (l *LedgerUsecase) Entries(ctx context.Context) ([]entity.LedgerEntry, error) {
	entries, _, err := l.load(ctx)
	return entries, err
}

// Record は dates を今日の processed_on で台帳に追記します。既存の行はそのまま残します。
// 台帳がなければ新規作成します。
func (l *LedgerUsecase) Record(ctx context.Context, dates []time.Time) error {
	_, existing, err := l.load(ctx)
	if err != nil {
		return err
	}

	processedOn := l.now().Format(ProcessedOnLayout)
	rows := make([][]string, 0, len(existing)+len(dates))
	rows = append(rows, existing...)
	for _, d := range dates {
		rows = append(rows, []string{entity.FormatDate(d), processedOn})
	}

	t := tabular.Table{
		Columns: []string{LedgerColSourceDate, LedgerColProcessedOn},
		Kinds:   []tabular.Kind{tabular.String, tabular.String},
		Rows:    rows,
	}
	if err := l.store.WriteTable(ctx, t, l.metaKey, tabular.CSV); err != nil {
		return fmt.Errorf("write ledger %q: %w", l.metaKey, err)
	}

	l.log.InfoContext(ctx, "ledger updated", "recorded", len(dates), "total_entries", len(rows))
	return nil
}

// load reads the ledger. It returns parsed entries and the raw rows in
// canonical column order; both are empty when the ledger does not exist.
func (l *LedgerUsecase) load(ctx context.Context) ([]entity.LedgerEntry, [][]string, error) {
	t, err := l.store.ReadTable(ctx, l.metaKey)
	if errors.Is(err, domain.ErrNotFound) {
		l.log.InfoContext(ctx, "no ledger yet, treating as first run")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read ledger %q: %w", l.metaKey, err)
	}

	if !isLedgerHeader(t.Columns) {
		return nil, nil, fmt.Errorf("%w: %q has columns %v", domain.ErrLedgerSchema, l.metaKey, t.Columns)
	}
	di, pi := t.Index(LedgerColSourceDate), t.Index(LedgerColProcessedOn)

	entries := make([]entity.LedgerEntry, 0, len(t.Rows))
	raw := make([][]string, 0, len(t.Rows))
	for n, r := range t.Rows {
		src, err := entity.ParseDate(r[di])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q row %d: %v", domain.ErrLedgerSchema, l.metaKey, n+1, err)
		}
		// processed_on is informational; keep the entry even if it does not parse.
		on, err := time.Parse(ProcessedOnLayout, r[pi])
		if err != nil {
			l.log.DebugContext(ctx, "unparsable processed_on kept as zero time",
				"row", n+1, "processed_on", r[pi], "error", err)
		}
		entries = append(entries, entity.LedgerEntry{SourceDate: src, ProcessedOn: on})
		raw = append(raw, []string{r[di], r[pi]})
	}
	return entries, raw, nil
}

func isLedgerHeader(cols []string) bool {
	if len(cols) != 2 {
		return false
	}
	got := slices.Clone(cols)
	slices.Sort(got)
	return got[0] == LedgerColProcessedOn && got[1] == LedgerColSourceDate
}
