/*
Package forecast provides the cash-flow projection engine.

PURPOSE:
  This package contains the types and algorithms for turning a user's
  recurring income/expense rules and one-off planned events into a
  multi-month picture of their finances: which rules fire in which month,
  a timeline of signed cash events, a simulated running balance, and the
  months where that balance deteriorates sharply.

KEY CONCEPTS IN THIS FILE (types.go):
  - RecurringRule: A standing instruction to generate periodic cash events
  - PlannedEvent:  A single dated, non-repeating cash event
  - MonthBucket:   One calendar-month slot of the projection timeline
  - ProjectedEvent: A concrete, dated, signed cash event in one bucket
  - Scenario:      A named multiplier profile (pessimistic/realistic/optimistic)
  - BalancePoint / CriticalPoint: Simulator and detector outputs

DESIGN PRINCIPLES:
  1. Purity: every computation is a total function over in-memory inputs;
     nothing here touches storage or mutates its arguments
  2. Precision: uses decimal.Decimal to avoid floating-point errors
  3. Full recomputation: inputs number in the tens per user, so the whole
     pipeline is re-run on any change rather than incrementally patched

USAGE:
  buckets := forecast.BuildTimeline(today, forecast.DefaultHorizonMonths)
  events := forecast.Project(rules, planned, buckets, forecast.ScenarioRealistic)
  points := forecast.Simulate(startingBalance, events, buckets)
  critical, flagged := forecast.DetectCriticalPoints(points, events)

SEE ALSO:
  - recurrence.go: OccursInMonth / NextOccurrence
  - timeline.go:   BuildTimeline
  - project.go:    Project
  - simulate.go:   Simulate / DetectCriticalPoints
*/
package forecast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RuleID string
type EventID string

// =============================================================================
// CASH KIND - Direction of a cash event
// =============================================================================

type CashKind string

const (
	KindIncome  CashKind = "income"
	KindExpense CashKind = "expense"
)

// Sign returns +1 for income and -1 for expense.
func (k CashKind) Sign() decimal.Decimal {
	if k == KindExpense {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// =============================================================================
// FREQUENCY - How often a recurring rule fires
// =============================================================================

type Frequency string

const (
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnual    Frequency = "annual"
)

// MonthStep returns the month stride for month-granularity frequencies,
// or 0 for weekly/biweekly (which step in days, not months).
func (f Frequency) MonthStep() int {
	switch f {
	case FreqMonthly:
		return 1
	case FreqQuarterly:
		return 3
	case FreqAnnual:
		return 12
	default:
		return 0
	}
}

// =============================================================================
// SCENARIO - Named multiplier profile applied to recurring amounts
// =============================================================================

type Scenario string

const (
	ScenarioPessimistic Scenario = "pessimistic"
	ScenarioRealistic   Scenario = "realistic"
	ScenarioOptimistic  Scenario = "optimistic"
)

var (
	factorLow  = decimal.NewFromFloat(0.7)
	factorOne  = decimal.NewFromInt(1)
	factorHigh = decimal.NewFromFloat(1.3)
)

// Factors returns the (incomeFactor, expenseFactor) pair for the scenario.
// Unknown scenarios fall back to realistic.
func (s Scenario) Factors() (income, expense decimal.Decimal) {
	switch s {
	case ScenarioPessimistic:
		return factorLow, factorHigh
	case ScenarioOptimistic:
		return factorHigh, factorLow
	default:
		return factorOne, factorOne
	}
}

// Adjust applies the scenario factor for the given kind to a base amount.
// Only recurring-rule amounts are scenario-adjusted; planned events pass
// through Project unscaled.
func (s Scenario) Adjust(kind CashKind, amount decimal.Decimal) decimal.Decimal {
	income, expense := s.Factors()
	if kind == KindExpense {
		return amount.Mul(expense)
	}
	return amount.Mul(income)
}

// Valid reports whether s is one of the three named scenarios.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioPessimistic, ScenarioRealistic, ScenarioOptimistic:
		return true
	}
	return false
}

// =============================================================================
// RECURRING RULE - Standing instruction to generate cash events
// =============================================================================

// RecurringRule describes a periodic income or expense.
//
// Amount is always stored positive; the sign is applied only when the rule
// is projected into an event. A paused or inactive rule never produces
// events. EndDate, when present, bounds the last eligible occurrence
// (inclusive). AnchorDay is meaningful only for monthly/quarterly/annual
// frequencies and is clamped to the last valid day of short months.
type RecurringRule struct {
	ID        RuleID
	Name      string
	Kind      CashKind
	Amount    decimal.Decimal
	Frequency Frequency
	AnchorDay int // 1-31; 0 means unset and defaults to 1
	StartDate time.Time
	EndDate   *time.Time
	Active    bool
	Paused    bool
}

// Anchor returns the rule's anchor day-of-month, defaulting to 1 when unset.
func (r RecurringRule) Anchor() int {
	if r.AnchorDay < 1 {
		return 1
	}
	return r.AnchorDay
}

// Projectable reports whether the rule may produce events at all.
func (r RecurringRule) Projectable() bool {
	return r.Active && !r.Paused
}

// =============================================================================
// PLANNED EVENT - One-off dated cash event
// =============================================================================

// PlannedEvent is a single future cash event not governed by a rule.
// Confirmed is advisory only and has no effect on projection math.
type PlannedEvent struct {
	ID         EventID
	Name       string
	Kind       CashKind
	Amount     decimal.Decimal
	Date       time.Time
	Confirmed  bool
	CategoryID string
	Notes      string
}

// =============================================================================
// MONTH BUCKET - One step of the projection timeline
// =============================================================================

// MonthBucket identifies one calendar month of the projection, with a
// zero-based index from the month containing "today". Index order defines
// evaluation order for the balance simulator.
type MonthBucket struct {
	Index int
	Year  int
	Month time.Month
	Label string // e.g. "Jan 2026"
}

// Contains reports whether the given date falls inside this bucket's month.
func (b MonthBucket) Contains(t time.Time) bool {
	return t.Year() == b.Year && t.Month() == b.Month
}

// =============================================================================
// PROJECTED EVENT - Expansion output
// =============================================================================

type EventSource string

const (
	SourceRecurring EventSource = "recurring"
	SourcePlanned   EventSource = "planned"
)

// ProjectedEvent is one concrete signed cash event inside one bucket.
//
// Amount is signed (positive income, negative expense) and, for
// recurring-sourced events, already reflects the active scenario's
// multiplier. Band always agrees with the sign.
//
// ProjectedEvent is immutable once emitted; the critical-point detector
// reports attributed causes through its own flagged-ID set instead of
// marking events in place.
type ProjectedEvent struct {
	ID          string
	Source      EventSource
	SourceID    string
	Name        string
	Date        time.Time
	BucketIndex int
	Band        CashKind
	Amount      decimal.Decimal
}

// projectedEventID derives a run-unique identifier from source + bucket.
func projectedEventID(sourceID string, bucketIndex int) string {
	return fmt.Sprintf("%s-%d", sourceID, bucketIndex)
}

// =============================================================================
// SIMULATOR / DETECTOR OUTPUTS
// =============================================================================

// BalancePoint is the running balance at the end of one month bucket.
// The point for index 0 already includes that month's net.
type BalancePoint struct {
	BucketIndex int
	Balance     decimal.Decimal
}

// CriticalPoint marks a month whose balance dropped more than the
// threshold relative to the prior month. CauseEventID/CauseName name the
// largest-magnitude expense of that month, when one exists.
type CriticalPoint struct {
	BucketIndex  int
	Balance      decimal.Decimal
	CauseEventID string
	CauseName    string
}
