package usecase

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/tabular"
)

// SourceColumns names the columns of the raw trade exports.
type SourceColumns struct {
	// Columns is the projection applied before aggregation.
	Columns      []string
	Date         string
	ISIN         string
	Time         string
	StartPrice   string
	MinPrice     string
	MaxPrice     string
	TradedVolume string
}

// TargetColumns names the columns of the report.
type TargetColumns struct {
	ISIN               string
	Date               string
	OpeningPrice       string
	ClosingPrice       string
	MinPrice           string
	MaxPrice           string
	DailyTradedVolume  string
	PctChangePrevClose string
}

// Aggregator は生のティックデータを (isin, 日付) ごとの日次レポート行に集計します。
type Aggregator struct {
	src SourceColumns
	dst TargetColumns
	log *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(src SourceColumns, dst TargetColumns, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{src: src, dst: dst, log: log.With("component", "aggregator")}
}

type groupKey struct {
	isin string
	date time.Time
}

// Transform aggregates raw rows into report rows dated on or after effectiveStart,
// ordered by (isin, date).
//
// Rows with an empty or unparsable cell in any projected column are dropped.
// Opening and closing prices are the first and last start price by trade time
// within each (isin, date); ties keep input order. The change versus the
// previous day compares opening prices of consecutive trading days of the
// same isin in this batch. Prices and changes are rounded to 2 decimals, half
// away from zero.
func (a *Aggregator) Transform(ctx context.Context, t tabular.Table, effectiveStart time.Time) ([]entity.ReportRow, error) {
	if t.Empty() {
		a.log.InfoContext(ctx, "no source rows, report will be empty")
		return []entity.ReportRow{}, nil
	}

	trades, dropped, err := a.parse(t)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		a.log.DebugContext(ctx, "dropped incomplete source rows", "dropped", dropped, "kept", len(trades))
	}

	// Group ticks, keeping input order inside each group.
	groups := make(map[groupKey][]entity.Trade)
	var keys []groupKey
	for _, tr := range trades {
		k := groupKey{isin: tr.ISIN, date: tr.TradeDate}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], tr)
	}

	rows := make([]entity.ReportRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, reduceGroup(k, groups[k]))
	}

	slices.SortFunc(rows, func(x, y entity.ReportRow) int {
		if c := cmp.Compare(x.ISIN, y.ISIN); c != 0 {
			return c
		}
		return x.TradeDate.Compare(y.TradeDate)
	})

	// Lag the opening price by one trading day per isin.
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], &rows[i]
		if prev.ISIN != cur.ISIN || prev.OpeningPrice == 0 {
			continue
		}
		pct := (cur.OpeningPrice - prev.OpeningPrice) / prev.OpeningPrice * 100
		cur.PctChangePrevClose = &pct
	}

	start := entity.DateOf(effectiveStart)
	out := make([]entity.ReportRow, 0, len(rows))
	for _, r := range rows {
		if r.TradeDate.Before(start) {
			continue
		}
		out = append(out, roundRow(r))
	}

	a.log.InfoContext(ctx, "aggregated source rows",
		"source_rows", t.Len(),
		"groups", len(rows),
		"report_rows", len(out),
	)
	return out, nil
}

// reduceGroup sorts one (isin, date) group by trade time and reduces it.
func reduceGroup(k groupKey, ticks []entity.Trade) entity.ReportRow {
	slices.SortStableFunc(ticks, func(x, y entity.Trade) int {
		return cmp.Compare(x.TradeTime, y.TradeTime)
	})
	opening := ticks[0].StartPrice
	closing := ticks[len(ticks)-1].StartPrice

	row := entity.ReportRow{
		ISIN:         k.isin,
		TradeDate:    k.date,
		OpeningPrice: math.Inf(1),
		ClosingPrice: math.Inf(1),
		MinPrice:     math.Inf(1),
		MaxPrice:     math.Inf(-1),
	}
	// Every tick carries the group's opening and closing price; reduce them with min.
	for _, tick := range ticks {
		row.OpeningPrice = math.Min(row.OpeningPrice, opening)
		row.ClosingPrice = math.Min(row.ClosingPrice, closing)
		row.MinPrice = math.Min(row.MinPrice, tick.MinPrice)
		row.MaxPrice = math.Max(row.MaxPrice, tick.MaxPrice)
		row.DailyTradedVolume += tick.TradedVolume
	}
	return row
}

// parse projects t to the configured columns and converts complete rows to trades.
func (a *Aggregator) parse(t tabular.Table) ([]entity.Trade, int, error) {
	projected := make([]int, len(a.src.Columns))
	for i, c := range a.src.Columns {
		if projected[i] = t.Index(c); projected[i] < 0 {
			return nil, 0, fmt.Errorf("%w: %q", domain.ErrMissingColumn, c)
		}
	}

	idx := func(name string) (int, error) {
		if !slices.Contains(a.src.Columns, name) {
			return -1, fmt.Errorf("%w: %q is not projected", domain.ErrMissingColumn, name)
		}
		return t.Index(name), nil
	}
	var (
		cols [7]int
		err  error
	)
	for i, name := range []string{
		a.src.ISIN, a.src.Date, a.src.Time, a.src.StartPrice,
		a.src.MinPrice, a.src.MaxPrice, a.src.TradedVolume,
	} {
		if cols[i], err = idx(name); err != nil {
			return nil, 0, err
		}
	}

	trades := make([]entity.Trade, 0, t.Len())
	dropped := 0
rows:
	for _, r := range t.Rows {
		// only truly empty cells are missing; whitespace is a value
		for _, i := range projected {
			if r[i] == "" {
				dropped++
				continue rows
			}
		}
		tr, ok := parseTrade(r, cols)
		if !ok {
			dropped++
			continue
		}
		trades = append(trades, tr)
	}
	return trades, dropped, nil
}

func parseTrade(r []string, c [7]int) (entity.Trade, bool) {
	date, err := entity.ParseDate(strings.TrimSpace(r[c[1]]))
	if err != nil {
		return entity.Trade{}, false
	}
	var prices [3]float64
	for i, col := range []int{c[3], c[4], c[5]} {
		v, err := strconv.ParseFloat(strings.TrimSpace(r[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return entity.Trade{}, false
		}
		prices[i] = v
	}
	vol, ok := parseVolume(strings.TrimSpace(r[c[6]]))
	if !ok {
		return entity.Trade{}, false
	}
	return entity.Trade{
		ISIN:         strings.TrimSpace(r[c[0]]),
		TradeDate:    date,
		TradeTime:    strings.TrimSpace(r[c[2]]),
		StartPrice:   prices[0],
		MinPrice:     prices[1],
		MaxPrice:     prices[2],
		TradedVolume: vol,
	}, true
}

// parseVolume accepts integers and integral floats ("1200.0").
func parseVolume(s string) (int64, bool) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// round2 rounds half away from zero to 2 decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundRow(r entity.ReportRow) entity.ReportRow {
	r.OpeningPrice = round2(r.OpeningPrice)
	r.ClosingPrice = round2(r.ClosingPrice)
	r.MinPrice = round2(r.MinPrice)
	r.MaxPrice = round2(r.MaxPrice)
	if r.PctChangePrevClose != nil {
		pct := round2(*r.PctChangePrevClose)
		r.PctChangePrevClose = &pct
	}
	return r
}

// ReportTable renders rows with the target column names, typed for columnar output.
func (a *Aggregator) ReportTable(rows []entity.ReportRow) tabular.Table {
	t := tabular.Table{
		Columns: []string{
			a.dst.ISIN, a.dst.Date, a.dst.OpeningPrice, a.dst.ClosingPrice,
			a.dst.MinPrice, a.dst.MaxPrice, a.dst.DailyTradedVolume, a.dst.PctChangePrevClose,
		},
		Kinds: []tabular.Kind{
			tabular.String, tabular.String, tabular.Float, tabular.Float,
			tabular.Float, tabular.Float, tabular.Int, tabular.Float,
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		pct := ""
		if r.PctChangePrevClose != nil {
			pct = formatFloat(*r.PctChangePrevClose)
		}
		t.Rows = append(t.Rows, []string{
			r.ISIN,
			entity.FormatDate(r.TradeDate),
			formatFloat(r.OpeningPrice),
			formatFloat(r.ClosingPrice),
			formatFloat(r.MinPrice),
			formatFloat(r.MaxPrice),
			strconv.FormatInt(r.DailyTradedVolume, 10),
			pct,
		})
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
