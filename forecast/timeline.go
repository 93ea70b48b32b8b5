package forecast

import "time"

// =============================================================================
// TIMELINE BUILDER - Consecutive month buckets from the current month
// =============================================================================

// DefaultHorizonMonths is the standard projection horizon: the current
// month plus a full year ahead.
const DefaultHorizonMonths = 13

// BuildTimeline produces horizonMonths consecutive month buckets starting
// at the calendar month containing today. horizonMonths >= 1 is a
// precondition; smaller values yield an empty timeline.
func BuildTimeline(today time.Time, horizonMonths int) []MonthBucket {
	if horizonMonths < 1 {
		return nil
	}

	buckets := make([]MonthBucket, 0, horizonMonths)
	year, month := today.Year(), today.Month()
	for i := 0; i < horizonMonths; i++ {
		buckets = append(buckets, MonthBucket{
			Index: i,
			Year:  year,
			Month: month,
			Label: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006"),
		})
		year, month = AddMonths(year, month, 1)
	}
	return buckets
}
