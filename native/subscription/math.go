package subscription

import "math"

// periodsElapsed floors toward negative infinity so timestamps before the
// curve start land in negative periods.
func periodsElapsed(ts, start int64) int64 {
	delta := ts - start
	periods := delta / SecondsPerPeriod
	if delta%SecondsPerPeriod != 0 && delta < 0 {
		periods--
	}
	return periods
}

func bpsOf(amount float64, bps uint32) float64 {
	return amount * float64(bps) / BasisPointsDenom
}

func validDays(days float64) bool {
	return !math.IsNaN(days) && !math.IsInf(days, 0) && days > 0
}

// expiry converts a length in days to an absolute expiry timestamp. Partial
// seconds are truncated.
func expiry(start int64, days float64) int64 {
	return start + int64(days*SecondsPerDay)
}
