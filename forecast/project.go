/*
project.go - Event projection across the timeline

PURPOSE:
  Expands every projectable recurring rule against every month bucket and
  merges in one-off planned events, producing the flat list of signed,
  dated cash events the balance simulator consumes.

SCENARIO ASYMMETRY (deliberate):
  Scenario multipliers apply only to recurring-rule-derived events.
  Planned events represent amounts the user has explicitly committed to,
  so they pass through unscaled under every scenario. This is a documented
  product decision, not an oversight.

SUB-MONTHLY GRANULARITY (deliberate):
  A weekly or biweekly rule emits exactly ONE event per month bucket,
  dated at the rule's anchor day, regardless of how many true occurrences
  land inside the month. This understates sub-monthly cash flow; changing
  it would change every projected total, so it stays until product says
  otherwise.

ORDERING:
  Event order within the result is not guaranteed. Consumers that need a
  display order must sort explicitly; the simulator only groups by bucket
  index and is order-independent.

SEE ALSO:
  - recurrence.go: OccursInMonth
  - simulate.go:   consumes the projected events
*/
package forecast

// Project expands rules and planned events against the timeline buckets.
//
// Recurring rules emit one event per eligible bucket, dated at the
// clamped anchor day, with the scenario-adjusted signed amount. Planned
// events emit one event at their exact date when it falls inside a
// bucket's month; events outside the horizon are dropped. Every emitted
// event carries a run-unique ID derived from its source and bucket.
func Project(rules []RecurringRule, planned []PlannedEvent, buckets []MonthBucket, scenario Scenario) []ProjectedEvent {
	var events []ProjectedEvent

	for _, rule := range rules {
		if !rule.Projectable() {
			continue
		}
		for _, bucket := range buckets {
			if !rule.OccursInMonth(bucket.Year, bucket.Month) {
				continue
			}
			if rule.EndDate != nil && monthAfter(bucket.Year, bucket.Month, rule.EndDate.Year(), rule.EndDate.Month()) {
				continue
			}
			events = append(events, ProjectedEvent{
				ID:          projectedEventID(string(rule.ID), bucket.Index),
				Source:      SourceRecurring,
				SourceID:    string(rule.ID),
				Name:        rule.Name,
				Date:        ClampedDate(bucket.Year, bucket.Month, rule.Anchor()),
				BucketIndex: bucket.Index,
				Band:        rule.Kind,
				Amount:      scenario.Adjust(rule.Kind, rule.Amount).Mul(rule.Kind.Sign()),
			})
		}
	}

	for _, pe := range planned {
		for _, bucket := range buckets {
			if !bucket.Contains(pe.Date) {
				continue
			}
			events = append(events, ProjectedEvent{
				ID:          projectedEventID(string(pe.ID), bucket.Index),
				Source:      SourcePlanned,
				SourceID:    string(pe.ID),
				Name:        pe.Name,
				Date:        DayOf(pe.Date),
				BucketIndex: bucket.Index,
				Band:        pe.Kind,
				Amount:      pe.Amount.Mul(pe.Kind.Sign()),
			})
			break // a date falls in exactly one bucket
		}
	}

	return events
}
