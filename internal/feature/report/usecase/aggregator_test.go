package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xetra_etl/internal/feature/report/domain"
	"xetra_etl/internal/feature/report/domain/entity"
	"xetra_etl/internal/platform/tabular"
)

func ptr(v float64) *float64 { return &v }

func TestAggregator_OpeningAndClosingByTradeTime(t *testing.T) {
	t.Parallel()

	// input deliberately out of time order
	raw := rawTable(
		tick{"X", "2021-04-01", "12:00", "12", "13", "11.5", "12.2", "200"},
		tick{"X", "2021-04-01", "09:00", "10", "10.5", "9.5", "10.1", "100"},
		tick{"X", "2021-04-01", "17:00", "11", "11.2", "10.8", "11", "50"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, entity.ReportRow{
		ISIN:              "X",
		TradeDate:         day("2021-04-01"),
		OpeningPrice:      10,
		ClosingPrice:      11,
		MinPrice:          9.5,
		MaxPrice:          13,
		DailyTradedVolume: 350,
	}, rows[0])
}

func TestAggregator_EqualTradeTimesKeepInputOrder(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-01", "09:00", "20", "20", "20", "20", "1"},
		tick{"X", "2021-04-01", "09:00", "21", "21", "21", "21", "1"},
		tick{"X", "2021-04-01", "09:00", "19", "19", "19", "19", "1"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, rows[0].OpeningPrice)
	assert.Equal(t, 19.0, rows[0].ClosingPrice)
}

func TestAggregator_PctChangeVersusPreviousDay(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-02", "09:00", "110", "111", "109", "110", "10"},
		tick{"X", "2021-04-01", "09:00", "100", "101", "99", "100", "10"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, day("2021-04-01"), rows[0].TradeDate)
	assert.Nil(t, rows[0].PctChangePrevClose)
	assert.Equal(t, day("2021-04-02"), rows[1].TradeDate)
	require.NotNil(t, rows[1].PctChangePrevClose)
	assert.InDelta(t, 10.0, *rows[1].PctChangePrevClose, 1e-9)
}

func TestAggregator_SeedDayFeedsPctButIsDropped(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		// seed day
		tick{"X", "2021-03-31", "09:00", "50", "50", "50", "50", "1"},
		tick{"ONLYSEED", "2021-03-31", "09:00", "7", "7", "7", "7", "1"},
		// effective days
		tick{"X", "2021-04-01", "09:00", "40", "40", "40", "40", "1"},
		tick{"Y", "2021-04-01", "09:00", "5", "5", "5", "5", "1"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "X", rows[0].ISIN)
	assert.Equal(t, ptr(-20), rows[0].PctChangePrevClose)
	assert.Equal(t, "Y", rows[1].ISIN)
	assert.Nil(t, rows[1].PctChangePrevClose)
}

func TestAggregator_DeterministicOrder(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"B", "2021-04-02", "09:00", "1", "1", "1", "1", "1"},
		tick{"A", "2021-04-02", "09:00", "1", "1", "1", "1", "1"},
		tick{"B", "2021-04-01", "09:00", "1", "1", "1", "1", "1"},
		tick{"A", "2021-04-01", "09:00", "1", "1", "1", "1", "1"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)

	var got []string
	for _, r := range rows {
		got = append(got, r.ISIN+" "+entity.FormatDate(r.TradeDate))
	}
	assert.Equal(t, []string{"A 2021-04-01", "A 2021-04-02", "B 2021-04-01", "B 2021-04-02"}, got)
}

func TestAggregator_DropsIncompleteRows(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-01", "09:00", "10", "10", "10", "10", "100"},
		tick{"X", "2021-04-01", "10:00", "", "99", "1", "10", "100"},          // missing start price
		tick{"X", "2021-04-01", "11:00", "10", "10", "10", "", "100"},         // missing projected EndPrice
		tick{"X", "2021-04-01", "12:00", "abc", "99", "1", "10", "100"},       // unparsable price
		tick{"X", "2021-04-01", "13:00", "10", "99", "1", "10", "1.5"},        // fractional volume
		tick{"X", "not-a-date", "14:00", "10", "99", "1", "10", "100"},        // unparsable date
		tick{"X", "2021-04-01", "15:00", "12", "12", "12", "12", "50.0"},      // integral float volume is fine
		tick{"", "2021-04-01", "16:00", "12", "12", "12", "12", "50"},         // empty isin
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].OpeningPrice)
	assert.Equal(t, 12.0, rows[0].ClosingPrice)
	assert.Equal(t, 10.0, rows[0].MinPrice)
	assert.Equal(t, 12.0, rows[0].MaxPrice)
	assert.Equal(t, int64(150), rows[0].DailyTradedVolume)
}

func TestAggregator_UnprojectedColumnsMayBeEmpty(t *testing.T) {
	t.Parallel()

	raw := rawTable(tick{"X", "2021-04-01", "09:00", "10", "10", "10", "10", "100"})
	raw.Rows[0][1] = "" // Mnemonic is not projected

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAggregator_WhitespaceCellIsNotMissing(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-01", "09:00", "10", "11", "9", "  ", "100"}, // EndPrice is projected but unused
		tick{"X", "2021-04-01", "10:00", "12", "12", "12", "\t", "50"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].OpeningPrice)
	assert.Equal(t, 12.0, rows[0].ClosingPrice)
	assert.Equal(t, int64(150), rows[0].DailyTradedVolume)
}

func TestAggregator_MissingColumn(t *testing.T) {
	t.Parallel()

	raw := tabular.Table{
		Columns: []string{"ISIN", "Date", "Time", "StartPrice"},
		Rows:    [][]string{{"X", "2021-04-01", "09:00", "10"}},
	}

	_, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.ErrorIs(t, err, domain.ErrMissingColumn)
	assert.Contains(t, err.Error(), "MaxPrice")
}

func TestAggregator_NamedColumnOutsideProjection(t *testing.T) {
	t.Parallel()

	src := testSourceColumns
	src.Columns = []string{"ISIN", "Date", "Time", "StartPrice", "MaxPrice", "MinPrice"}
	agg := NewAggregator(src, testTargetColumns, discardLogger())

	_, err := agg.Transform(context.Background(), rawTable(tick{"X", "2021-04-01", "09:00", "1", "1", "1", "1", "1"}), day("2021-04-01"))
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestAggregator_EmptyInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		table tabular.Table
	}{
		{"no objects extracted", tabular.Table{}},
		{"header only", rawTable()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows, err := newTestAggregator(t).Transform(context.Background(), tt.table, day("2021-04-01"))
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestAggregator_ZeroPreviousOpening(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-01", "09:00", "0", "0", "0", "0", "1"},
		tick{"X", "2021-04-02", "09:00", "5", "5", "5", "5", "1"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[1].PctChangePrevClose)
}

func TestAggregator_Rounding(t *testing.T) {
	t.Parallel()

	raw := rawTable(
		tick{"X", "2021-04-01", "09:00", "10.125", "11.4449", "-0.375", "10", "1"},
		tick{"X", "2021-04-02", "09:00", "12.15", "12.15", "12.15", "12.15", "1"},
	)

	rows, err := newTestAggregator(t).Transform(context.Background(), raw, day("2021-04-01"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 10.13, rows[0].OpeningPrice)
	assert.Equal(t, 11.44, rows[0].MaxPrice)
	assert.Equal(t, -0.38, rows[0].MinPrice)
	// (12.15 - 10.125) / 10.125 * 100 = 20.0
	require.NotNil(t, rows[1].PctChangePrevClose)
	assert.Equal(t, 20.0, *rows[1].PctChangePrevClose)
}

func TestRound2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float64
	}{
		{1.234, 1.23},
		{10.125, 10.13},
		{-10.125, -10.13},
		{2.5, 2.5},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round2(tt.in), "round2(%v)", tt.in)
	}
}

func TestAggregator_ReportTable(t *testing.T) {
	t.Parallel()

	rows := []entity.ReportRow{
		{ISIN: "X", TradeDate: day("2021-04-01"), OpeningPrice: 10, ClosingPrice: 11.5, MinPrice: 9.25, MaxPrice: 12, DailyTradedVolume: 350},
		{ISIN: "X", TradeDate: day("2021-04-02"), OpeningPrice: 11, ClosingPrice: 11, MinPrice: 11, MaxPrice: 11, DailyTradedVolume: 1, PctChangePrevClose: ptr(10)},
	}

	got := newTestAggregator(t).ReportTable(rows)

	assert.Equal(t, []string{
		"isin", "date", "opening_price_eur", "closing_price_eur",
		"minimum_price_eur", "maximum_price_eur", "daily_traded_volume", "change_prev_closing_%",
	}, got.Columns)
	assert.Equal(t, []tabular.Kind{
		tabular.String, tabular.String, tabular.Float, tabular.Float,
		tabular.Float, tabular.Float, tabular.Int, tabular.Float,
	}, got.Kinds)
	assert.Equal(t, [][]string{
		{"X", "2021-04-01", "10", "11.5", "9.25", "12", "350", ""},
		{"X", "2021-04-02", "11", "11", "11", "11", "1", "10"},
	}, got.Rows)
	assert.NoError(t, got.Validate())
}

func TestAggregator_ReportTableEmpty(t *testing.T) {
	t.Parallel()

	got := newTestAggregator(t).ReportTable(nil)
	assert.Len(t, got.Columns, 8)
	assert.Empty(t, got.Rows)
}
