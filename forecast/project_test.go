package forecast_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lifeplan/cashflow-engine/forecast"
)

func incomeRule(id string, amt int64, anchor int, start time.Time) forecast.RecurringRule {
	return forecast.RecurringRule{
		ID:        forecast.RuleID(id),
		Name:      id,
		Kind:      forecast.KindIncome,
		Amount:    amount(amt),
		Frequency: forecast.FreqMonthly,
		AnchorDay: anchor,
		StartDate: start,
		Active:    true,
	}
}

func expenseRule(id string, amt int64, anchor int, start time.Time) forecast.RecurringRule {
	r := incomeRule(id, amt, anchor, start)
	r.Kind = forecast.KindExpense
	return r
}

func TestProject_MonthlyRule_OneEventPerBucket(t *testing.T) {
	// GIVEN: One monthly income rule and a 3-month timeline
	// THEN: Three events, one per bucket, signed positive, anchored and
	//       carrying unique IDs
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 3)
	rules := []forecast.RecurringRule{incomeRule("salary", 3000, 25, date(2025, time.January, 1))}

	events := forecast.Project(rules, nil, buckets, forecast.ScenarioRealistic)

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	seen := make(map[string]bool)
	for i, e := range events {
		if e.BucketIndex != i {
			t.Errorf("event %d in bucket %d", i, e.BucketIndex)
		}
		if !e.Amount.Equal(amount(3000)) {
			t.Errorf("expected +3000, got %s", e.Amount)
		}
		if e.Date.Day() != 25 {
			t.Errorf("expected anchor day 25, got %v", e.Date)
		}
		if e.Source != forecast.SourceRecurring || e.SourceID != "salary" {
			t.Errorf("unexpected source fields on %+v", e)
		}
		if seen[e.ID] {
			t.Errorf("duplicate event ID %s", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestProject_ExpenseIsNegative(t *testing.T) {
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 1)
	rules := []forecast.RecurringRule{expenseRule("rent", 1200, 1, date(2025, time.January, 1))}

	events := forecast.Project(rules, nil, buckets, forecast.ScenarioRealistic)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Amount.Equal(amount(-1200)) {
		t.Errorf("expected -1200, got %s", events[0].Amount)
	}
	if events[0].Band != forecast.KindExpense {
		t.Errorf("expected expense band, got %s", events[0].Band)
	}
}

func TestProject_ScenarioScalesRecurringOnly(t *testing.T) {
	// GIVEN: A recurring income, a recurring expense, and a planned expense
	// WHEN: Projecting under the pessimistic scenario
	// THEN: Recurring income shrinks to 0.7x, recurring expense grows to
	//       1.3x, and the planned event passes through unscaled
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 1)
	rules := []forecast.RecurringRule{
		incomeRule("salary", 1000, 5, date(2025, time.January, 1)),
		expenseRule("rent", 1000, 1, date(2025, time.January, 1)),
	}
	planned := []forecast.PlannedEvent{{
		ID:     "trip",
		Name:   "Trip",
		Kind:   forecast.KindExpense,
		Amount: amount(500),
		Date:   date(2025, time.June, 20),
	}}

	events := forecast.Project(rules, planned, buckets, forecast.ScenarioPessimistic)

	byID := make(map[string]forecast.ProjectedEvent)
	for _, e := range events {
		byID[e.SourceID] = e
	}
	if got := byID["salary"].Amount; !got.Equal(amount(700)) {
		t.Errorf("pessimistic income: expected 700, got %s", got)
	}
	if got := byID["rent"].Amount; !got.Equal(amount(-1300)) {
		t.Errorf("pessimistic expense: expected -1300, got %s", got)
	}
	if got := byID["trip"].Amount; !got.Equal(amount(-500)) {
		t.Errorf("planned event should be unscaled, got %s", got)
	}
}

func TestProject_OptimisticMirrorsPessimistic(t *testing.T) {
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 1)
	rules := []forecast.RecurringRule{
		incomeRule("salary", 1000, 5, date(2025, time.January, 1)),
		expenseRule("rent", 1000, 1, date(2025, time.January, 1)),
	}

	events := forecast.Project(rules, nil, buckets, forecast.ScenarioOptimistic)

	byID := make(map[string]decimal.Decimal)
	for _, e := range events {
		byID[e.SourceID] = e.Amount
	}
	if !byID["salary"].Equal(amount(1300)) {
		t.Errorf("optimistic income: expected 1300, got %s", byID["salary"])
	}
	if !byID["rent"].Equal(amount(-700)) {
		t.Errorf("optimistic expense: expected -700, got %s", byID["rent"])
	}
}

func TestProject_SkipsPausedAndInactive(t *testing.T) {
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 3)

	paused := incomeRule("paused", 100, 1, date(2025, time.January, 1))
	paused.Paused = true
	inactive := incomeRule("inactive", 100, 1, date(2025, time.January, 1))
	inactive.Active = false

	events := forecast.Project([]forecast.RecurringRule{paused, inactive}, nil, buckets, forecast.ScenarioRealistic)
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestProject_EndDateBoundsRecurringEvents(t *testing.T) {
	// GIVEN: A monthly rule ending in July, projected June through August
	// THEN: Events in June and July only
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 3)
	rule := expenseRule("gym", 45, 5, date(2025, time.January, 1))
	end := date(2025, time.July, 31)
	rule.EndDate = &end

	events := forecast.Project([]forecast.RecurringRule{rule}, nil, buckets, forecast.ScenarioRealistic)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.Date.Month() == time.August {
			t.Errorf("event past end date: %v", e.Date)
		}
	}
}

func TestProject_PlannedEventOutsideHorizonDropped(t *testing.T) {
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 2)
	planned := []forecast.PlannedEvent{
		{ID: "in", Kind: forecast.KindExpense, Amount: amount(10), Date: date(2025, time.July, 1)},
		{ID: "out", Kind: forecast.KindExpense, Amount: amount(10), Date: date(2025, time.September, 1)},
		{ID: "past", Kind: forecast.KindExpense, Amount: amount(10), Date: date(2025, time.April, 1)},
	}

	events := forecast.Project(nil, planned, buckets, forecast.ScenarioRealistic)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].SourceID != "in" || events[0].BucketIndex != 1 {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestProject_WeeklyRule_SingleEventPerBucket(t *testing.T) {
	// Weekly rules emit exactly one event per month bucket at the anchor
	// day, not one per true calendar occurrence.
	buckets := forecast.BuildTimeline(date(2025, time.June, 10), 2)
	rule := incomeRule("tips", 80, 1, date(2025, time.January, 6))
	rule.Frequency = forecast.FreqWeekly

	events := forecast.Project([]forecast.RecurringRule{rule}, nil, buckets, forecast.ScenarioRealistic)

	if len(events) != 2 {
		t.Fatalf("expected 2 events (one per bucket), got %d", len(events))
	}
}
