// Package entity defines the domain models for the report feature.
package entity

import (
	"fmt"
	"time"
)

// DateLayout is the textual form of a calendar date throughout the pipeline.
const DateLayout = "2006-01-02"

// NothingToDo is the effective start date returned when the ledger already covers every candidate date.
var NothingToDo = time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateOf truncates t to its calendar date (00:00 UTC) in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date. It accepts DateLayout and, for ledgers
// written by older tooling, compact (20060102) and slash (2006/01/02) forms.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "20060102", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid calendar date %q", s)
}

// FormatDate renders a calendar date using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange returns every calendar date from `from` to `to` inclusive, ascending.
// It returns nil when to is before from.
func DateRange(from, to time.Time) []time.Time {
	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil
	}
	out := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
