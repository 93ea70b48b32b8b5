/*
profiles.go - Demo profile loaders for testing and demonstrations

PURPOSE:

	Provides pre-built data profiles that populate the store with realistic
	rules, planned events and a starting balance for demos and manual
	testing. Each profile tells one story about a user's finances.

AVAILABLE PROFILES:

	steady-salary: Monthly salary + fixed bills, calm projection
	freelancer:    Biweekly invoices, quarterly tax, annual insurance
	tight-month:   Thin balance with a large one-off expense that trips
	               the critical-point detector

HOW PROFILES WORK:
 1. Reset the store (clear all data)
 2. Seed rules, planned events and the starting balance
 3. Refresh the planner so the projection reflects the new data

USAGE VIA API:

	POST /api/profiles/load
	{"profile_id": "tight-month"}

NOTE:

	Profiles reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ListProfiles, LoadProfile handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lifeplan/cashflow-engine/forecast"
)

// =============================================================================
// PROFILE DEFINITIONS
// =============================================================================

var profiles = []ProfileDTO{
	{
		ID:          "steady-salary",
		Name:        "Steady Salary",
		Description: "Monthly salary and fixed bills; the balance climbs quietly",
	},
	{
		ID:          "freelancer",
		Name:        "Freelancer",
		Description: "Biweekly invoices, quarterly tax prepayments, annual insurance",
	},
	{
		ID:          "tight-month",
		Name:        "Tight Month",
		Description: "Thin balance with a large one-off expense tripping the detector",
	},
}

// resettable is implemented by stores that can wipe all data (dev only).
type resettable interface {
	Reset(ctx context.Context) error
}

// ListProfiles returns available demo profiles.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profiles)
}

// GetCurrentProfile returns the currently loaded profile, if any.
func (h *Handler) GetCurrentProfile(w http.ResponseWriter, r *http.Request) {
	if h.currentProfile == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, p := range profiles {
		if p.ID == h.currentProfile {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusOK, ProfileDTO{ID: h.currentProfile, Name: h.currentProfile})
}

// LoadProfile resets the store and seeds a predefined profile.
func (h *Handler) LoadProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID string `json:"profile_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rs, ok := h.Store.(resettable)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support profile loading", nil)
		return
	}

	ctx := r.Context()
	if err := rs.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ProfileID {
	case "steady-salary":
		err = h.loadSteadySalary(ctx)
	case "freelancer":
		err = h.loadFreelancer(ctx)
	case "tight-month":
		err = h.loadTightMonth(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown profile: %s", req.ProfileID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load profile", err)
		return
	}

	if err := h.Planner.Refresh(ctx); err != nil {
		writeError(w, http.StatusBadGateway, "Profile loaded but recompute failed", err)
		return
	}

	h.currentProfile = req.ProfileID
	h.Log.WithField("profile", req.ProfileID).Info("demo profile loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "profile_id": req.ProfileID})
}

// =============================================================================
// PROFILE LOADERS
// =============================================================================

func (h *Handler) loadSteadySalary(ctx context.Context) error {
	start := monthsAgo(6)

	rules := []forecast.RecurringRule{
		rule("salary", "Salary", forecast.KindIncome, 3200, forecast.FreqMonthly, 28, start),
		rule("rent", "Rent", forecast.KindExpense, 1100, forecast.FreqMonthly, 1, start),
		rule("utilities", "Utilities", forecast.KindExpense, 180, forecast.FreqMonthly, 15, start),
		rule("gym", "Gym membership", forecast.KindExpense, 45, forecast.FreqMonthly, 5, start),
	}
	for _, r := range rules {
		if err := h.Store.SaveRule(ctx, r); err != nil {
			return err
		}
	}
	return h.Store.SetStartingBalance(ctx, decimal.NewFromInt(4500))
}

func (h *Handler) loadFreelancer(ctx context.Context) error {
	start := monthsAgo(12)

	rules := []forecast.RecurringRule{
		rule("invoices", "Client invoices", forecast.KindIncome, 1400, forecast.FreqBiweekly, 1, start),
		rule("tax", "Tax prepayment", forecast.KindExpense, 2100, forecast.FreqQuarterly, 15, start),
		rule("insurance", "Liability insurance", forecast.KindExpense, 960, forecast.FreqAnnual, 31, start),
		rule("coworking", "Coworking desk", forecast.KindExpense, 250, forecast.FreqMonthly, 1, start),
	}
	for _, r := range rules {
		if err := h.Store.SaveRule(ctx, r); err != nil {
			return err
		}
	}

	laptop := forecast.PlannedEvent{
		ID:     "evt-laptop",
		Name:   "New laptop",
		Kind:   forecast.KindExpense,
		Amount: decimal.NewFromInt(2400),
		Date:   forecast.DayOf(time.Now().UTC().AddDate(0, 2, 0)),
	}
	if err := h.Store.SavePlannedEvent(ctx, laptop); err != nil {
		return err
	}
	return h.Store.SetStartingBalance(ctx, decimal.NewFromInt(6800))
}

func (h *Handler) loadTightMonth(ctx context.Context) error {
	start := monthsAgo(3)

	rules := []forecast.RecurringRule{
		rule("salary", "Salary", forecast.KindIncome, 2100, forecast.FreqMonthly, 25, start),
		rule("rent", "Rent", forecast.KindExpense, 950, forecast.FreqMonthly, 1, start),
		rule("loan", "Car loan", forecast.KindExpense, 310, forecast.FreqMonthly, 10, start),
	}
	for _, r := range rules {
		if err := h.Store.SaveRule(ctx, r); err != nil {
			return err
		}
	}

	// Large enough relative to the balance to trip the 30% drop threshold.
	repair := forecast.PlannedEvent{
		ID:     "evt-car-repair",
		Name:   "Car repair",
		Kind:   forecast.KindExpense,
		Amount: decimal.NewFromInt(1800),
		Date:   forecast.DayOf(time.Now().UTC().AddDate(0, 1, 0)),
	}
	if err := h.Store.SavePlannedEvent(ctx, repair); err != nil {
		return err
	}
	return h.Store.SetStartingBalance(ctx, decimal.NewFromInt(2400))
}

func rule(id, name string, kind forecast.CashKind, amount int64, freq forecast.Frequency, anchor int, start time.Time) forecast.RecurringRule {
	return forecast.RecurringRule{
		ID:        forecast.RuleID(id),
		Name:      name,
		Kind:      kind,
		Amount:    decimal.NewFromInt(amount),
		Frequency: freq,
		AnchorDay: anchor,
		StartDate: start,
		Active:    true,
	}
}

func monthsAgo(n int) time.Time {
	return forecast.DayOf(time.Now().UTC().AddDate(0, -n, 0))
}
