package forecast

import "time"

// =============================================================================
// CALENDAR HELPERS - Month arithmetic with day clamping
// =============================================================================
//
// All engine dates are UTC at day granularity. The one genuinely tricky
// piece of calendar arithmetic here is day clamping: a rule anchored at
// day 31 must land on Feb 28 (29 in leap years), Apr 30, and so on.
// time.Date normalizes overflow (Feb 31 -> Mar 2/3), which is exactly the
// wrong behavior for anchored recurrences, so clamping is explicit.

// DayOf truncates a time to midnight UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date in the given month with the day-of-month
// clamped to the month's last valid day.
func ClampedDate(year int, month time.Month, day int) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// linearMonth maps a (year, month) pair onto a single month axis so that
// distances between months are plain integer subtraction.
func linearMonth(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// MonthsBetween returns the signed linear month distance from (fromYear,
// fromMonth) to (toYear, toMonth). Same month = 0, next month = 1.
func MonthsBetween(fromYear int, fromMonth time.Month, toYear int, toMonth time.Month) int {
	return linearMonth(toYear, toMonth) - linearMonth(fromYear, fromMonth)
}

// AddMonths steps a (year, month) pair forward by n months, carrying year
// rollover. It never touches a day component, so no clamping is involved.
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	lm := linearMonth(year, month) + n
	y := lm / 12
	m := lm % 12
	if m < 0 { // Go's % keeps the dividend's sign
		m += 12
		y--
	}
	return y, time.Month(m + 1)
}

// monthAfter reports whether (aYear, aMonth) is strictly after
// (bYear, bMonth) on the calendar.
func monthAfter(aYear int, aMonth time.Month, bYear int, bMonth time.Month) bool {
	return linearMonth(aYear, aMonth) > linearMonth(bYear, bMonth)
}

// DaysUntil returns the integer ceiling of (target - from) in days.
// Both arguments are normalized to midnight first, so for day-granularity
// inputs this is an exact day count.
func DaysUntil(from, target time.Time) int {
	d := DayOf(target).Sub(DayOf(from))
	days := int(d.Hours() / 24)
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
