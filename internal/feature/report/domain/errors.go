// Package domain defines domain-level errors for the report feature.
package domain

import "errors"

// Domain errors for the daily report ETL.
// Upper layers match them with errors.Is; lower layers wrap them with context.
var (
	// ErrLedgerSchema indicates that an existing ledger artifact does not have the
	// expected (source_date, processed_on) shape. The ledger is treated as corrupt
	// and is never coerced.
	ErrLedgerSchema = errors.New("ledger has unexpected schema")

	// ErrNotFound indicates that no object exists under the requested key.
	ErrNotFound = errors.New("object not found")

	// ErrUnsupportedFormat indicates a read or write format outside {csv, parquet}.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMissingColumn indicates that a configured source column is absent from the extracted data.
	ErrMissingColumn = errors.New("missing source column")

	// ErrRunInProgress indicates that another run holds the lock for the same ledger.
	ErrRunInProgress = errors.New("another run is in progress")

	// ErrPipelineFinished indicates that Run was called on a pipeline that already ran.
	ErrPipelineFinished = errors.New("pipeline already finished")
)
