package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV_EncodeDecode(t *testing.T) {
	t.Parallel()

	in := Table{
		Columns: []string{"source_date", "processed_on"},
		Rows: [][]string{
			{"2021-04-01", "20210402"},
			{"2021-04-02", ""},
		},
	}

	data, err := Encode(in, CSV)
	require.NoError(t, err)
	assert.Equal(t, "source_date,processed_on\n2021-04-01,20210402\n2021-04-02,\n", string(data))

	out, err := Decode(data, CSV)
	require.NoError(t, err)
	assert.Equal(t, in.Columns, out.Columns)
	assert.Equal(t, in.Rows, out.Rows)
}

func TestCSV_DecodeEdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		data        string
		wantColumns []string
		wantRows    [][]string
	}{
		{
			name: "empty file",
			data: "",
		},
		{
			name:        "header only",
			data:        "ISIN,Date\n",
			wantColumns: []string{"ISIN", "Date"},
		},
		{
			name:        "byte order mark is stripped",
			data:        "\ufeffISIN,Date\nX,2021-04-01\n",
			wantColumns: []string{"ISIN", "Date"},
			wantRows:    [][]string{{"X", "2021-04-01"}},
		},
		{
			name:        "short row is padded",
			data:        "ISIN,Date,Time\nX,2021-04-01\n",
			wantColumns: []string{"ISIN", "Date", "Time"},
			wantRows:    [][]string{{"X", "2021-04-01", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data), CSV)
			require.NoError(t, err)
			assert.Equal(t, tt.wantColumns, got.Columns)
			assert.Equal(t, tt.wantRows, got.Rows)
		})
	}
}
