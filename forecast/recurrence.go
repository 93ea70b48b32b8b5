/*
recurrence.go - Recurrence rule evaluation

PURPOSE:
  Answers the two questions everything else builds on:
  - OccursInMonth: does rule R fire at all in calendar month M?
  - NextOccurrence: what is rule R's next concrete date after today?

MONTH-GRANULARITY SEMANTICS:
  OccursInMonth deliberately works at month granularity. Weekly and
  biweekly rules answer "true" for every eligible month without counting
  how many occurrences land inside it; the projector then emits a single
  event per bucket for them. This understates sub-monthly cash flow and
  is preserved as-is (see the package doc in project.go).

CONSISTENCY CONTRACT:
  Any date returned by NextOccurrence falls in a month for which
  OccursInMonth is true. For quarterly and annual rules this means
  candidate months are aligned to the start date's month phase before
  stepping, not naively started at the current month.

SEE ALSO:
  - time.go:    clamping and month arithmetic
  - project.go: expands OccursInMonth across the whole timeline
*/
package forecast

import "time"

// =============================================================================
// OCCURS-IN-MONTH
// =============================================================================

// OccursInMonth reports whether the rule fires in the given calendar
// month. Months before the rule's start month are never eligible. The
// rule's end date, paused and active flags are NOT considered here; the
// projector applies those bounds itself.
func (r RecurringRule) OccursInMonth(year int, month time.Month) bool {
	dist := MonthsBetween(r.StartDate.Year(), r.StartDate.Month(), year, month)
	if dist < 0 {
		return false
	}

	switch r.Frequency {
	case FreqAnnual:
		return month == r.StartDate.Month()
	case FreqQuarterly:
		return dist%3 == 0
	case FreqMonthly, FreqWeekly, FreqBiweekly:
		return true
	default:
		return false
	}
}

// =============================================================================
// NEXT OCCURRENCE
// =============================================================================

// Occurrence is a concrete upcoming date for a rule.
type Occurrence struct {
	Date     time.Time
	DaysLeft int
}

// NextOccurrence computes the rule's next concrete date strictly after
// today. Returns false when the rule is paused or inactive, or when the
// next computed date would fall after the rule's end date.
func (r RecurringRule) NextOccurrence(today time.Time) (Occurrence, bool) {
	if !r.Projectable() {
		return Occurrence{}, false
	}

	today = DayOf(today)

	var candidate time.Time
	switch r.Frequency {
	case FreqWeekly, FreqBiweekly:
		candidate = r.nextByDays(today)
	default:
		candidate = r.nextByMonths(today)
	}

	if r.EndDate != nil && candidate.After(DayOf(*r.EndDate)) {
		return Occurrence{}, false
	}

	return Occurrence{Date: candidate, DaysLeft: DaysUntil(today, candidate)}, true
}

// nextByDays walks forward from the start date in 7- or 14-day strides.
func (r RecurringRule) nextByDays(today time.Time) time.Time {
	stride := 7
	if r.Frequency == FreqBiweekly {
		stride = 14
	}

	candidate := DayOf(r.StartDate)
	for !candidate.After(today) {
		candidate = candidate.AddDate(0, 0, stride)
	}
	return candidate
}

// nextByMonths finds the first eligible month at or after today's month,
// clamps the anchor day into it, and steps by the frequency's month
// stride until the candidate is strictly after today.
func (r RecurringRule) nextByMonths(today time.Time) time.Time {
	step := r.Frequency.MonthStep()
	if step == 0 {
		step = 1
	}

	year, month := today.Year(), today.Month()
	dist := MonthsBetween(r.StartDate.Year(), r.StartDate.Month(), year, month)
	switch {
	case dist < 0:
		// Rule has not started yet; first eligible month is the start month.
		year, month = r.StartDate.Year(), r.StartDate.Month()
	case dist%step != 0:
		// Align to the start month's phase so the result agrees with
		// OccursInMonth for quarterly/annual rules.
		year, month = AddMonths(year, month, step-dist%step)
	}

	candidate := ClampedDate(year, month, r.Anchor())
	for !candidate.After(today) {
		year, month = AddMonths(year, month, step)
		candidate = ClampedDate(year, month, r.Anchor())
	}
	return candidate
}
