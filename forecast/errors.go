/*
errors.go - Centralized error types for the forecast engine

PURPOSE:
  All error values in one place for consistency and discoverability.
  The pure computation functions (OccursInMonth, Project, Simulate, ...)
  never return errors; everything here belongs to the persistence
  boundary and to input-shape validation at the mutation boundary.

SEE ALSO:
  - store.go: persistence interface returning these errors
*/
package forecast

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRuleNotFound is returned when a referenced recurring rule doesn't exist.
	ErrRuleNotFound = errors.New("recurring rule not found")

	// ErrEventNotFound is returned when a referenced planned event doesn't exist.
	ErrEventNotFound = errors.New("planned event not found")

	// ErrInvalidAmount is returned at the mutation boundary for zero or
	// negative amounts. Amounts are stored positive; sign comes from kind.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidKind is returned for a kind other than income/expense.
	ErrInvalidKind = errors.New("kind must be income or expense")

	// ErrInvalidFrequency is returned for an unknown recurrence frequency.
	ErrInvalidFrequency = errors.New("unknown frequency")

	// ErrInvalidScenario is returned for a scenario outside the named three.
	ErrInvalidScenario = errors.New("unknown scenario")

	// ErrInvalidDate is returned for a missing or unparsable date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidHorizon is returned for a projection horizon below one month.
	ErrInvalidHorizon = errors.New("horizon must be at least one month")

	// ErrMissingName is returned when a rule or event has no display name.
	ErrMissingName = errors.New("name is required")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidScenario) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidHorizon) ||
		errors.Is(err, ErrMissingName)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound) || errors.Is(err, ErrEventNotFound)
}
