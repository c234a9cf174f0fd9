package entity

import "time"

// LedgerEntry records that a source date was processed.
// Entries are append-only; several entries may share a SourceDate.
type LedgerEntry struct {
	SourceDate  time.Time
	ProcessedOn time.Time
}

// Watermark is the extraction plan of one run. It is derived from the ledger on
// every run and never stored.
type Watermark struct {
	// EffectiveStart is the first date whose report rows are emitted and recorded.
	// It is NothingToDo when Dates is empty because the ledger is complete.
	EffectiveStart time.Time
	// Dates is every date to extract, ascending and unique. It may start one day
	// before EffectiveStart (the seed day for the previous-day comparison).
	Dates []time.Time
}

// Pending reports whether the watermark has dates to extract.
func (w Watermark) Pending() bool {
	return len(w.Dates) > 0
}

// CoveredDates returns the dates on or after EffectiveStart. These are the
// dates recorded in the ledger after a successful load.
func (w Watermark) CoveredDates() []time.Time {
	out := make([]time.Time, 0, len(w.Dates))
	for _, d := range w.Dates {
		if !d.Before(w.EffectiveStart) {
			out = append(out, d)
		}
	}
	return out
}
