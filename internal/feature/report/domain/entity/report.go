package entity

import "time"

// ReportRow is one row of the daily report: one instrument on one trading day.
type ReportRow struct {
	ISIN              string
	TradeDate         time.Time
	OpeningPrice      float64
	ClosingPrice      float64
	MinPrice          float64
	MaxPrice          float64
	DailyTradedVolume int64
	// PctChangePrevClose is nil on the first day of an instrument in the batch.
	PctChangePrevClose *float64
}
