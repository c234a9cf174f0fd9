package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcat_UnionsColumnsInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	a := Table{Columns: []string{"ISIN", "Price"}, Rows: [][]string{{"X", "1"}}}
	b := Table{Columns: []string{"Price", "Volume", "ISIN"}, Rows: [][]string{{"2", "10", "Y"}}}

	got := Concat(a, b)

	assert.Equal(t, []string{"ISIN", "Price", "Volume"}, got.Columns)
	assert.Equal(t, [][]string{{"X", "1", ""}, {"Y", "2", "10"}}, got.Rows)
}

func TestConcat_NoTables(t *testing.T) {
	t.Parallel()

	got := Concat()
	assert.True(t, got.Empty())
	assert.Empty(t, got.Columns)
}

func TestTable_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{name: "ok", table: Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}},
		{name: "duplicate column", table: Table{Columns: []string{"a", "a"}}, wantErr: true},
		{name: "ragged row", table: Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}, wantErr: true},
		{name: "kinds mismatch", table: Table{Columns: []string{"a"}, Kinds: []Kind{String, Int}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = ParseFormat("parquet")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)

	_, err = ParseFormat("xlsx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFormatOfKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		want    Format
		wantErr bool
	}{
		{key: "2021-04-01/2021-04-01_BINS_XETR08.csv", want: CSV},
		{key: "report/xetra_daily_report_20210401_120000.parquet", want: Parquet},
		{key: "meta/ledger", want: CSV},
		{key: "source/book.xlsx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := FormatOfKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Encode(Table{Columns: []string{"a"}}, Format("json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Decode([]byte("a\n1\n"), Format("json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
