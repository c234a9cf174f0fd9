// Package tabular provides the in-memory table exchanged with object storage
// and its file encodings (CSV and Parquet).
package tabular

import "fmt"

// Kind types a column for columnar encodings. CSV ignores it.
type Kind int

const (
	// String columns are stored as UTF-8 byte arrays.
	String Kind = iota
	// Float columns are stored as doubles.
	Float
	// Int columns are stored as 64-bit integers.
	Int
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	default:
		return "string"
	}
}

// Table is a rectangular set of string cells with a header.
// An empty cell is a missing value.
type Table struct {
	Columns []string
	// Kinds is optional; when set it has one entry per column.
	Kinds []Kind
	Rows  [][]string
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Index returns the position of column name, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// KindOf returns the kind of column i, String when Kinds is unset.
func (t Table) KindOf(i int) Kind {
	if i < len(t.Kinds) {
		return t.Kinds[i]
	}
	return String
}

// Validate checks that the header has no duplicates and every row is as wide as the header.
func (t Table) Validate() error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	if t.Kinds != nil && len(t.Kinds) != len(t.Columns) {
		return fmt.Errorf("kinds has %d entries for %d columns", len(t.Kinds), len(t.Columns))
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(t.Columns))
		}
	}
	return nil
}

// Concat stacks tables vertically. The result header is the union of all
// headers in first-seen order; cells of columns a table lacks are left empty.
func Concat(tables ...Table) Table {
	var out Table
	pos := map[string]int{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := pos[c]; !ok {
				pos[c] = len(out.Columns)
				out.Columns = append(out.Columns, c)
			}
		}
	}
	for _, t := range tables {
		for _, r := range t.Rows {
			row := make([]string, len(out.Columns))
			for i, c := range t.Columns {
				if i < len(r) {
					row[pos[c]] = r[i]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
