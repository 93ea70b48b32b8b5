/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Amounts cross
  the boundary as float64 for chart-friendly JSON; inside the engine they
  are always decimal.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Shape validation lives at the planner's mutation boundary, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lifeplan/cashflow-engine/forecast"
	"github.com/lifeplan/cashflow-engine/planner"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RuleDTO represents a recurring rule in API responses.
type RuleDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
	AnchorDay int     `json:"anchor_day"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Active    bool    `json:"active"`
	Paused    bool    `json:"paused"`
}

// RuleRequest is the request to create or replace a rule.
type RuleRequest struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
	AnchorDay int     `json:"anchor_day"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
}

// EventDTO represents a planned event in API responses.
type EventDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	Confirmed  bool    `json:"confirmed"`
	CategoryID string  `json:"category_id,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// CreateEventRequest is the request to create a planned event.
type CreateEventRequest struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date"`
	CategoryID string  `json:"category_id,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// UpdateEventRequest is a partial update; nil fields are left unchanged.
type UpdateEventRequest struct {
	Name       *string  `json:"name,omitempty"`
	Kind       *string  `json:"kind,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
	Date       *string  `json:"date,omitempty"`
	CategoryID *string  `json:"category_id,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

// MonthDTO is one timeline bucket.
type MonthDTO struct {
	Index int    `json:"index"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// ProjectedEventDTO is one expanded cash event. Amount is signed and,
// for recurring sources, scenario-adjusted. Flagged marks the event as
// the attributed cause of a critical balance drop.
type ProjectedEventDTO struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	SourceID   string  `json:"source_id"`
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	MonthIndex int     `json:"month_index"`
	Band       string  `json:"band"`
	Amount     float64 `json:"amount"`
	Flagged    bool    `json:"flagged"`
}

// BalancePointDTO is one point of the running-balance series.
type BalancePointDTO struct {
	MonthIndex int     `json:"month_index"`
	Balance    float64 `json:"balance"`
}

// CriticalPointDTO marks a sharp balance drop.
type CriticalPointDTO struct {
	MonthIndex   int     `json:"month_index"`
	Balance      float64 `json:"balance"`
	CauseEventID string  `json:"cause_event_id,omitempty"`
	CauseName    string  `json:"cause_name,omitempty"`
}

// ForecastDTO is the full projection payload.
type ForecastDTO struct {
	Scenario          string              `json:"scenario"`
	Months            []MonthDTO          `json:"months"`
	Events            []ProjectedEventDTO `json:"projected_events"`
	BalanceData       []BalancePointDTO   `json:"balance_data"`
	CriticalPoints    []CriticalPointDTO  `json:"critical_points"`
	NextCriticalPoint *CriticalPointDTO   `json:"next_critical_point,omitempty"`
	Stale             bool                `json:"stale"`
	ComputedAt        string              `json:"computed_at"`
}

// ScenarioRequest selects the active scenario.
type ScenarioRequest struct {
	Scenario string `json:"scenario"`
}

// UpcomingDTO is one rule's next occurrence within the requested window.
type UpcomingDTO struct {
	RuleID   string  `json:"rule_id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	DaysLeft int     `json:"days_left"`
}

// BalanceDTO carries the starting-balance snapshot.
type BalanceDTO struct {
	Balance float64 `json:"balance"`
}

// ProfileDTO represents a demo data profile.
type ProfileDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toRuleDTO(r forecast.RecurringRule) RuleDTO {
	amount, _ := r.Amount.Float64()
	dto := RuleDTO{
		ID:        string(r.ID),
		Name:      r.Name,
		Kind:      string(r.Kind),
		Amount:    amount,
		Frequency: string(r.Frequency),
		AnchorDay: r.Anchor(),
		StartDate: r.StartDate.Format(dateLayout),
		Active:    r.Active,
		Paused:    r.Paused,
	}
	if r.EndDate != nil {
		end := r.EndDate.Format(dateLayout)
		dto.EndDate = &end
	}
	return dto
}

func toEventDTO(e forecast.PlannedEvent) EventDTO {
	amount, _ := e.Amount.Float64()
	return EventDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Kind:       string(e.Kind),
		Amount:     amount,
		Date:       e.Date.Format(dateLayout),
		Confirmed:  e.Confirmed,
		CategoryID: e.CategoryID,
		Notes:      e.Notes,
	}
}

func toCriticalPointDTO(cp forecast.CriticalPoint) CriticalPointDTO {
	balance, _ := cp.Balance.Float64()
	return CriticalPointDTO{
		MonthIndex:   cp.BucketIndex,
		Balance:      balance,
		CauseEventID: cp.CauseEventID,
		CauseName:    cp.CauseName,
	}
}

func toForecastDTO(proj planner.Projection, stale bool) ForecastDTO {
	dto := ForecastDTO{
		Scenario:   string(proj.Scenario),
		Stale:      stale,
		ComputedAt: proj.ComputedAt.Format(time.RFC3339),
	}

	dto.Months = make([]MonthDTO, len(proj.Months))
	for i, m := range proj.Months {
		dto.Months[i] = MonthDTO{Index: m.Index, Year: m.Year, Month: int(m.Month), Label: m.Label}
	}

	dto.Events = make([]ProjectedEventDTO, len(proj.Events))
	for i, e := range proj.Events {
		amount, _ := e.Amount.Float64()
		dto.Events[i] = ProjectedEventDTO{
			ID:         e.ID,
			Source:     string(e.Source),
			SourceID:   e.SourceID,
			Name:       e.Name,
			Date:       e.Date.Format(dateLayout),
			MonthIndex: e.BucketIndex,
			Band:       string(e.Band),
			Amount:     amount,
			Flagged:    proj.Flagged[e.ID],
		}
	}

	dto.BalanceData = make([]BalancePointDTO, len(proj.BalanceData))
	for i, bp := range proj.BalanceData {
		balance, _ := bp.Balance.Float64()
		dto.BalanceData[i] = BalancePointDTO{MonthIndex: bp.BucketIndex, Balance: balance}
	}

	dto.CriticalPoints = make([]CriticalPointDTO, len(proj.CriticalPoints))
	for i, cp := range proj.CriticalPoints {
		dto.CriticalPoints[i] = toCriticalPointDTO(cp)
	}
	if proj.NextCriticalPoint != nil {
		next := toCriticalPointDTO(*proj.NextCriticalPoint)
		dto.NextCriticalPoint = &next
	}

	return dto
}

func toUpcomingDTOs(occurrences []planner.UpcomingOccurrence) []UpcomingDTO {
	dtos := make([]UpcomingDTO, len(occurrences))
	for i, occ := range occurrences {
		amount, _ := occ.Amount.Float64()
		dtos[i] = UpcomingDTO{
			RuleID:   string(occ.RuleID),
			Name:     occ.Name,
			Kind:     string(occ.Kind),
			Amount:   amount,
			Date:     occ.Date.Format(dateLayout),
			DaysLeft: occ.DaysLeft,
		}
	}
	return dtos
}

func amountFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
