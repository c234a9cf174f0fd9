package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const parquetReadBatch = 256

// columnOrderKey names the footer metadata entry holding the declared column
// order, which the name-sorted parquet schema does not keep.
const columnOrderKey = "tabular.columns"

// parquetSchema builds a flat schema with one optional leaf per column.
// Parquet groups order their fields by name, so the returned map gives the
// leaf index of every column. The declared order travels in the footer.
func parquetSchema(t Table) (*parquet.Schema, map[string]int) {
	group := parquet.Group{}
	for i, c := range t.Columns {
		var leaf parquet.Node
		switch t.KindOf(i) {
		case Float:
			leaf = parquet.Leaf(parquet.DoubleType)
		case Int:
			leaf = parquet.Int(64)
		default:
			leaf = parquet.String()
		}
		group[c] = parquet.Optional(leaf)
	}
	schema := parquet.NewSchema("table", group)

	index := make(map[string]int, len(t.Columns))
	for i, path := range schema.Columns() {
		index[strings.Join(path, ".")] = i
	}
	return schema, index
}

func encodeParquet(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, errors.New("parquet requires at least one column")
	}
	schema, index := parquetSchema(t)

	rows := make([]parquet.Row, 0, len(t.Rows))
	for n, r := range t.Rows {
		row := make(parquet.Row, len(t.Columns))
		for i, cell := range r {
			col := index[t.Columns[i]]
			v, err := parquetValue(cell, t.KindOf(i))
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n, t.Columns[i], err)
			}
			if v.IsNull() {
				row[col] = v.Level(0, 0, col)
			} else {
				row[col] = v.Level(0, 1, col)
			}
		}
		rows = append(rows, row)
	}

	order, err := json.Marshal(t.Columns)
	if err != nil {
		return nil, fmt.Errorf("encode column order: %w", err)
	}

	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, schema, parquet.KeyValueMetadata(columnOrderKey, string(order)))
	if _, err := w.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func parquetValue(cell string, k Kind) (parquet.Value, error) {
	if cell == "" {
		return parquet.NullValue(), nil
	}
	switch k {
	case Float:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.DoubleValue(f), nil
	case Int:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.Int64Value(n), nil
	default:
		return parquet.ByteArrayValue([]byte(cell)), nil
	}
}

func decodeParquet(data []byte) (Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Table{}, fmt.Errorf("open parquet: %w", err)
	}

	schema := f.Schema()
	paths := schema.Columns()
	t := Table{
		Columns: make([]string, len(paths)),
		Kinds:   make([]Kind, len(paths)),
	}
	for i, path := range paths {
		t.Columns[i] = strings.Join(path, ".")
	}
	for i, field := range schema.Fields() {
		if i >= len(t.Kinds) {
			break
		}
		switch field.Type().Kind() {
		case parquet.Double, parquet.Float:
			t.Kinds[i] = Float
		case parquet.Int32, parquet.Int64:
			t.Kinds[i] = Int
		default:
			t.Kinds[i] = String
		}
	}

	buf := make([]parquet.Row, parquetReadBatch)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg.Rows(), buf, &t); err != nil {
			return Table{}, err
		}
	}
	if v, ok := f.Lookup(columnOrderKey); ok {
		var order []string
		if err := json.Unmarshal([]byte(v), &order); err == nil {
			t = reorderColumns(t, order)
		}
	}
	return t, nil
}

// reorderColumns moves columns into the given order. The table is returned
// unchanged unless order names exactly its columns.
func reorderColumns(t Table, order []string) Table {
	if len(order) != len(t.Columns) {
		return t
	}
	perm := make([]int, len(order))
	seen := make(map[int]bool, len(order))
	for i, name := range order {
		j := t.Index(name)
		if j < 0 || seen[j] {
			return t
		}
		seen[j] = true
		perm[i] = j
	}

	out := Table{Columns: order, Kinds: make([]Kind, len(order))}
	for i, j := range perm {
		out.Kinds[i] = t.KindOf(j)
	}
	for _, r := range t.Rows {
		row := make([]string, len(perm))
		for i, j := range perm {
			row[i] = r[j]
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func readRowGroup(rows parquet.Rows, buf []parquet.Row, t *Table) (err error) {
	defer func() {
		if cerr := rows.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close parquet rows: %w", cerr)
		}
	}()
	for {
		n, rerr := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			out := make([]string, len(t.Columns))
			for _, v := range row {
				if c := v.Column(); c >= 0 && c < len(out) {
					out[c] = formatParquetValue(v)
				}
			}
			t.Rows = append(t.Rows, out)
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("read parquet rows: %w", rerr)
		}
	}
}

func formatParquetValue(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	default:
		return string(v.ByteArray())
	}
}
