/*
handlers.go - HTTP API handlers for the cash-flow projection service

PURPOSE:
  Exposes the planner via REST API. Handles HTTP request/response, JSON
  serialization, and delegates everything else to the planner and store.

ENDPOINTS:
  Rules:
    GET    /api/rules               List recurring rules
    POST   /api/rules               Create rule
    GET    /api/rules/{id}          Get rule
    PUT    /api/rules/{id}          Replace rule definition
    DELETE /api/rules/{id}          Delete rule
    POST   /api/rules/{id}/pause    Pause rule
    POST   /api/rules/{id}/resume   Resume rule

  Planned events:
    GET    /api/events              List future planned events
    POST   /api/events              Create event
    PUT    /api/events/{id}         Partial update
    DELETE /api/events/{id}         Delete event
    POST   /api/events/{id}/confirm Set advisory confirmed flag

  Forecast:
    GET    /api/forecast            Full projection (query: scenario, months)
    POST   /api/forecast/scenario   Switch scenario (no refetch)
    GET    /api/upcoming?days=N     Next occurrences within N days

  Balance:
    GET    /api/balance             Starting-balance snapshot
    PUT    /api/balance             Replace snapshot

  Profiles:
    GET    /api/profiles            List demo profiles
    POST   /api/profiles/load       Load a demo profile (dev only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 502: Snapshot fetch failure (projection left stale)
  - 500: Internal errors

SEE ALSO:
  - dto.go:      Request/response data structures
  - profiles.go: Demo profile loaders
  - server.go:   Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/lifeplan/cashflow-engine/forecast"
	"github.com/lifeplan/cashflow-engine/planner"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Planner *planner.Planner
	Store   forecast.Store
	Log     *logrus.Logger

	// Track currently loaded demo profile
	currentProfile string
}

// NewHandler creates a new handler around the given planner.
func NewHandler(p *planner.Planner, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{Planner: p, Store: p.Store, Log: log}
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all recurring rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules", err)
		return
	}

	dtos := make([]RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.GetRule(r.Context(), forecast.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// CreateRule creates a recurring rule and recomputes the projection.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := ruleInputFromRequest(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rule, err := h.Planner.CreateRule(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRuleDTO(rule))
}

// UpdateRule replaces a rule's definition.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := ruleInputFromRequest(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rule, err := h.Planner.UpdateRule(r.Context(), forecast.RuleID(chi.URLParam(r, "id")), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeleteRule(r.Context(), forecast.RuleID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PauseRule pauses a rule; paused rules produce no events.
func (h *Handler) PauseRule(w http.ResponseWriter, r *http.Request) {
	h.setRulePaused(w, r, true)
}

// ResumeRule resumes a paused rule.
func (h *Handler) ResumeRule(w http.ResponseWriter, r *http.Request) {
	h.setRulePaused(w, r, false)
}

func (h *Handler) setRulePaused(w http.ResponseWriter, r *http.Request, paused bool) {
	rule, err := h.Planner.SetRulePaused(r.Context(), forecast.RuleID(chi.URLParam(r, "id")), paused)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

func ruleInputFromRequest(req RuleRequest) (planner.RuleInput, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return planner.RuleInput{}, err
	}

	in := planner.RuleInput{
		Name:      req.Name,
		Kind:      forecast.CashKind(req.Kind),
		Amount:    amountFromFloat(req.Amount),
		Frequency: forecast.Frequency(req.Frequency),
		AnchorDay: req.AnchorDay,
		StartDate: start,
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			return planner.RuleInput{}, err
		}
		in.EndDate = &end
	}
	return in, nil
}

// =============================================================================
// PLANNED EVENT HANDLERS
// =============================================================================

// ListEvents returns planned events dated today or later, per the
// planner's clock.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Store.ListPlannedEvents(r.Context(), h.Planner.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEvent creates a planned event and recomputes the projection.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	event, err := h.Planner.CreatePlannedEvent(r.Context(), planner.EventInput{
		Name:       req.Name,
		Kind:       forecast.CashKind(req.Kind),
		Amount:     amountFromFloat(req.Amount),
		Date:       date,
		CategoryID: req.CategoryID,
		Notes:      req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(event))
}

// UpdateEvent applies a partial update to a planned event.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	patch := planner.EventPatch{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Notes:      req.Notes,
	}
	if req.Kind != nil {
		kind := forecast.CashKind(*req.Kind)
		patch.Kind = &kind
	}
	if req.Amount != nil {
		amount := amountFromFloat(*req.Amount)
		patch.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		patch.Date = &date
	}

	event, err := h.Planner.UpdatePlannedEvent(r.Context(), forecast.EventID(chi.URLParam(r, "id")), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(event))
}

// DeleteEvent removes a planned event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Planner.DeletePlannedEvent(r.Context(), forecast.EventID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmEvent sets the advisory confirmed flag.
func (h *Handler) ConfirmEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Planner.ConfirmPlannedEvent(r.Context(), forecast.EventID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(event))
}

// =============================================================================
// FORECAST HANDLERS
// =============================================================================

// GetForecast returns the full projection, computing one on first use.
// Optional query parameters: scenario and months; both recompute from
// the held snapshot without refetching.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("months"); raw != "" {
		months, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "months must be a positive integer", err)
			return
		}
		if err := h.Planner.SetHorizon(months); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	if raw := r.URL.Query().Get("scenario"); raw != "" {
		if err := h.Planner.SetScenario(forecast.Scenario(raw)); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	proj, ok := h.Planner.Current()
	if !ok {
		if err := h.Planner.Refresh(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, "Failed to fetch projection inputs", err)
			return
		}
		proj, _ = h.Planner.Current()
	}

	writeJSON(w, http.StatusOK, toForecastDTO(proj, h.Planner.Stale()))
}

// SetScenario switches the active scenario and recomputes from the held
// snapshot without refetching inputs.
func (h *Handler) SetScenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Planner.SetScenario(forecast.Scenario(req.Scenario)); err != nil {
		writeDomainError(w, err)
		return
	}

	proj, ok := h.Planner.Current()
	if !ok {
		if err := h.Planner.Refresh(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, "Failed to fetch projection inputs", err)
			return
		}
		proj, _ = h.Planner.Current()
	}
	writeJSON(w, http.StatusOK, toForecastDTO(proj, h.Planner.Stale()))
}

// GetUpcoming returns rules occurring within the next N days (default 30).
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer", err)
			return
		}
		days = parsed
	}

	upcoming, err := h.Planner.Upcoming(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute upcoming occurrences", err)
		return
	}
	writeJSON(w, http.StatusOK, toUpcomingDTOs(upcoming))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns the starting-balance snapshot.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Store.StartingBalance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load balance", err)
		return
	}
	f, _ := balance.Float64()
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: f})
}

// SetBalance replaces the starting-balance snapshot and recomputes.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Planner.SetStartingBalance(r.Context(), amountFromFloat(req.Balance)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set balance", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", forecast.ErrInvalidDate, s)
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Error = fmt.Sprintf("%s: %v", message, err)
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case forecast.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case forecast.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
