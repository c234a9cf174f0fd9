package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/platform/tabular"
)

// memStore is an in-memory StorageGateway.
type memStore struct {
	mu      sync.Mutex
	tables  map[string]tabular.Table
	formats map[string]tabular.Format

	listFn    func(prefix string) error
	readFn    func(key string) error
	writeFn   func(key string) error
	listCalls []string
	reads     []string
	writes    []string
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]tabular.Table{}, formats: map[string]tabular.Format{}}
}

func (m *memStore) put(key string, t tabular.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[key] = t
}

func (m *memStore) get(key string) (tabular.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[key]
	return t, ok
}

func (m *memStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, prefix)
	if m.listFn != nil {
		if err := m.listFn(prefix); err != nil {
			return nil, err
		}
	}
	keys := []string{}
	for k := range m.tables {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) ReadTable(_ context.Context, key string) (tabular.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, key)
	if m.readFn != nil {
		if err := m.readFn(key); err != nil {
			return tabular.Table{}, err
		}
	}
	t, ok := m.tables[key]
	if !ok {
		return tabular.Table{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return t, nil
}

func (m *memStore) WriteTable(_ context.Context, t tabular.Table, key string, format tabular.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if format != tabular.CSV && format != tabular.Parquet {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	if m.writeFn != nil {
		if err := m.writeFn(key); err != nil {
			return err
		}
	}
	m.writes = append(m.writes, key)
	m.tables[key] = t
	m.formats[key] = format
	return nil
}

// day builds a calendar date.
func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		out[i] = day(s)
	}
	return out
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ledgerTable(rows ...[]string) tabular.Table {
	return tabular.Table{Columns: []string{LedgerColSourceDate, LedgerColProcessedOn}, Rows: rows}
}

var testSourceColumns = SourceColumns{
	Columns:      []string{"ISIN", "Date", "Time", "StartPrice", "MaxPrice", "MinPrice", "EndPrice", "TradedVolume"},
	Date:         "Date",
	ISIN:         "ISIN",
	Time:         "Time",
	StartPrice:   "StartPrice",
	MinPrice:     "MinPrice",
	MaxPrice:     "MaxPrice",
	TradedVolume: "TradedVolume",
}

var testTargetColumns = TargetColumns{
	ISIN:               "isin",
	Date:               "date",
	OpeningPrice:       "opening_price_eur",
	ClosingPrice:       "closing_price_eur",
	MinPrice:           "minimum_price_eur",
	MaxPrice:           "maximum_price_eur",
	DailyTradedVolume:  "daily_traded_volume",
	PctChangePrevClose: "change_prev_closing_%",
}

// tick is one raw source row in test fixtures.
type tick struct {
	isin, date, time          string
	start, max, min, end, vol string
}

// rawTable renders ticks with the Xetra export header plus an unprojected column.
func rawTable(ticks ...tick) tabular.Table {
	t := tabular.Table{Columns: []string{
		"ISIN", "Mnemonic", "Date", "Time", "StartPrice", "MaxPrice", "MinPrice", "EndPrice", "TradedVolume",
	}}
	for _, k := range ticks {
		t.Rows = append(t.Rows, []string{k.isin, "MNE", k.date, k.time, k.start, k.max, k.min, k.end, k.vol})
	}
	return t
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	return NewAggregator(testSourceColumns, testTargetColumns, discardLogger())
}
