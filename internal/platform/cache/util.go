package cache

import (
	"time"
)

// TimeUntilNextMidnight は now のロケーションで次の午前0時までの期間を返します。
func TimeUntilNextMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
