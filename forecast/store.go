/*
store.go - Persistence interface for rules, planned events and balance

PURPOSE:
  Defines the interface between the engine and the database. The engine
  itself only ever reads a consistent snapshot per computation and never
  mutates stored records; all writes go through the planner's mutation
  boundary, which validates shape before calling into the Store.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:  Production SQLite
  - forecast/store/memory.go: In-memory for testing/dev

SEE ALSO:
  - planner/planner.go: fetches snapshots and triggers recomputation
*/
package forecast

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Persistence for projection inputs
// =============================================================================

// Store persists the three projection inputs: recurring rules, planned
// events, and the starting-balance snapshot.
type Store interface {
	// ListRules returns all rules for the user, active or not.
	ListRules(ctx context.Context) ([]RecurringRule, error)

	// GetRule returns ErrRuleNotFound when the ID is unknown.
	GetRule(ctx context.Context, id RuleID) (RecurringRule, error)

	// SaveRule inserts or replaces a rule.
	SaveRule(ctx context.Context, rule RecurringRule) error

	// DeleteRule returns ErrRuleNotFound when the ID is unknown.
	DeleteRule(ctx context.Context, id RuleID) error

	// ListPlannedEvents returns events dated on or after from,
	// ordered by date. Past events are excluded by passing today.
	ListPlannedEvents(ctx context.Context, from time.Time) ([]PlannedEvent, error)

	// GetPlannedEvent returns ErrEventNotFound when the ID is unknown.
	GetPlannedEvent(ctx context.Context, id EventID) (PlannedEvent, error)

	// SavePlannedEvent inserts or replaces a planned event.
	SavePlannedEvent(ctx context.Context, event PlannedEvent) error

	// DeletePlannedEvent returns ErrEventNotFound when the ID is unknown.
	DeletePlannedEvent(ctx context.Context, id EventID) error

	// StartingBalance returns the current account balance snapshot.
	// A store with no recorded balance returns zero.
	StartingBalance(ctx context.Context) (decimal.Decimal, error)

	// SetStartingBalance replaces the balance snapshot.
	SetStartingBalance(ctx context.Context, balance decimal.Decimal) error
}
