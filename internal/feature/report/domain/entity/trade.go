package entity

import "time"

// Trade is one raw trade tick after projection and parsing of a source row.
type Trade struct {
	ISIN         string    // Instrument key (e.g., "DE0005140008")
	TradeDate    time.Time // Calendar date of the tick
	TradeTime    string    // Time of day as found in the source (e.g., "09:00"); sorts lexically
	StartPrice   float64   // Price at the start of the tick interval
	MinPrice     float64   // Lowest price within the tick interval
	MaxPrice     float64   // Highest price within the tick interval
	TradedVolume int64     // Units traded within the tick interval
}
