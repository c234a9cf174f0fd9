package tabular

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedFormat is returned for any format other than CSV or Parquet.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format is a file encoding for a Table.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Parquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatOfKey infers the format from a key's extension. Keys without an
// extension are CSV, which is how source exports are commonly named.
func FormatOfKey(key string) (Format, error) {
	ext := path.Ext(key)
	if ext == "" {
		return CSV, nil
	}
	return ParseFormat(strings.TrimPrefix(ext, "."))
}

// Encode serialises t in format f.
func Encode(t Table, f Format) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	switch f {
	case CSV:
		return encodeCSV(t)
	case Parquet:
		return encodeParquet(t)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Decode parses data in format f.
func Decode(data []byte, f Format) (Table, error) {
	switch f {
	case CSV:
		return decodeCSV(data)
	case Parquet:
		return decodeParquet(data)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
