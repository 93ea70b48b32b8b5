package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lifeplan/cashflow-engine/forecast"
	"github.com/lifeplan/cashflow-engine/forecast/store"
	"github.com/lifeplan/cashflow-engine/planner"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testToday = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	mem := store.NewMemory()
	p := planner.New(mem, log)
	p.Now = func() time.Time { return testToday }

	srv := httptest.NewServer(NewRouter(NewHandler(p, log)))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

// =============================================================================
// RULE ENDPOINTS
// =============================================================================

func TestAPI_RuleLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	// Create
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rules", RuleRequest{
		Name:      "Salary",
		Kind:      "income",
		Amount:    3200,
		Frequency: "monthly",
		AnchorDay: 25,
		StartDate: "2025-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decode[RuleDTO](t, resp)
	if created.ID == "" || created.Name != "Salary" || !created.Active {
		t.Errorf("unexpected created rule %+v", created)
	}

	// List
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/rules", nil)
	rules := decode[[]RuleDTO](t, resp)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	// Pause
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rules/"+created.ID+"/pause", nil)
	if paused := decode[RuleDTO](t, resp); !paused.Paused {
		t.Error("expected rule paused")
	}

	// Resume
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/rules/"+created.ID+"/resume", nil)
	if resumed := decode[RuleDTO](t, resp); resumed.Paused {
		t.Error("expected rule resumed")
	}

	// Delete
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/rules/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/rules/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestAPI_CreateRule_ValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/rules", RuleRequest{
		Name:      "Bad",
		Kind:      "income",
		Amount:    100,
		Frequency: "fortnightly",
		StartDate: "2025-01-01",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if errResp := decode[ErrorResponse](t, resp); errResp.Code != "invalid_input" {
		t.Errorf("expected invalid_input code, got %q", errResp.Code)
	}
}

// =============================================================================
// FORECAST ENDPOINT
// =============================================================================

func TestAPI_ForecastEndToEnd(t *testing.T) {
	// GIVEN: A seeded store reproducing the tight-month shape
	// WHEN: Fetching the forecast
	// THEN: The payload carries months, balances and a flagged critical
	//       month attributed to the big planned expense
	srv, mem := newTestServer(t)
	ctx := context.Background()

	if err := mem.SetStartingBalance(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatal(err)
	}
	if err := mem.SavePlannedEvent(ctx, forecast.PlannedEvent{
		ID:     "evt-repair",
		Name:   "Car repair",
		Kind:   forecast.KindExpense,
		Amount: decimal.NewFromInt(500),
		Date:   time.Date(2025, time.July, 8, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/forecast", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	dto := decode[ForecastDTO](t, resp)

	if dto.Scenario != "realistic" {
		t.Errorf("expected realistic scenario, got %q", dto.Scenario)
	}
	if len(dto.Months) != forecast.DefaultHorizonMonths {
		t.Errorf("expected %d months, got %d", forecast.DefaultHorizonMonths, len(dto.Months))
	}
	if dto.Stale {
		t.Error("expected fresh projection")
	}
	if dto.BalanceData[0].Balance != 1000 || dto.BalanceData[1].Balance != 500 {
		t.Errorf("unexpected balances %v, %v", dto.BalanceData[0].Balance, dto.BalanceData[1].Balance)
	}

	if len(dto.CriticalPoints) != 1 {
		t.Fatalf("expected 1 critical point, got %d", len(dto.CriticalPoints))
	}
	if dto.NextCriticalPoint == nil || dto.NextCriticalPoint.MonthIndex != 1 {
		t.Errorf("unexpected next critical point %+v", dto.NextCriticalPoint)
	}
	if dto.NextCriticalPoint.CauseName != "Car repair" {
		t.Errorf("unexpected cause %q", dto.NextCriticalPoint.CauseName)
	}

	var flaggedID string
	for _, e := range dto.Events {
		if e.Flagged {
			flaggedID = e.ID
		}
	}
	if flaggedID != "evt-repair-1" {
		t.Errorf("expected evt-repair-1 flagged, got %q", flaggedID)
	}
}

func TestAPI_ForecastScenarioQuery(t *testing.T) {
	srv, mem := newTestServer(t)

	if err := mem.SaveRule(context.Background(), forecast.RecurringRule{
		ID: "salary", Name: "Salary", Kind: forecast.KindIncome,
		Amount: decimal.NewFromInt(1000), Frequency: forecast.FreqMonthly,
		AnchorDay: 25, StartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active: true,
	}); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/forecast?scenario=pessimistic", nil)
	dto := decode[ForecastDTO](t, resp)
	if dto.Scenario != "pessimistic" {
		t.Errorf("expected pessimistic, got %q", dto.Scenario)
	}
	if dto.BalanceData[0].Balance != 700 {
		t.Errorf("expected 700 under pessimistic, got %v", dto.BalanceData[0].Balance)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/forecast?scenario=hopeful", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown scenario, got %d", resp.StatusCode)
	}
}

func TestAPI_ForecastMonthsQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/forecast?months=6", nil)
	dto := decode[ForecastDTO](t, resp)
	if len(dto.Months) != 6 {
		t.Errorf("expected 6 months, got %d", len(dto.Months))
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/forecast?months=zero", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad months, got %d", resp.StatusCode)
	}
}

func TestAPI_ForecastConcurrentHorizonOverrides(t *testing.T) {
	// Concurrent horizon overrides must not race on planner state; every
	// response is a consistent projection at one of the requested sizes.
	srv, mem := newTestServer(t)

	if err := mem.SaveRule(context.Background(), forecast.RecurringRule{
		ID: "salary", Name: "Salary", Kind: forecast.KindIncome,
		Amount: decimal.NewFromInt(1000), Frequency: forecast.FreqMonthly,
		AnchorDay: 25, StartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active: true,
	}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make(chan int, 8)
	for i := 0; i < 8; i++ {
		months := 3 + i%2
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(fmt.Sprintf("%s/api/forecast?months=%d", srv.URL, months))
			if err != nil {
				t.Errorf("get forecast: %v", err)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
				return
			}
			var dto ForecastDTO
			if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
				t.Errorf("decode: %v", err)
				return
			}
			if len(dto.Months) != len(dto.BalanceData) {
				t.Errorf("inconsistent projection: %d months, %d points",
					len(dto.Months), len(dto.BalanceData))
			}
			results <- len(dto.Months)
		}()
	}
	wg.Wait()
	close(results)

	for months := range results {
		if months != 3 && months != 4 {
			t.Errorf("unexpected horizon %d", months)
		}
	}
}

func TestAPI_SetScenario(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/forecast/scenario", ScenarioRequest{Scenario: "optimistic"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if dto := decode[ForecastDTO](t, resp); dto.Scenario != "optimistic" {
		t.Errorf("expected optimistic, got %q", dto.Scenario)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/forecast/scenario", ScenarioRequest{Scenario: "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// =============================================================================
// EVENTS, BALANCE, UPCOMING, PROFILES
// =============================================================================

func TestAPI_EventLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", CreateEventRequest{
		Name:   "Trip",
		Kind:   "expense",
		Amount: 800,
		Date:   "2025-08-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decode[EventDTO](t, resp)

	newAmount := 650.0
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/events/"+created.ID, UpdateEventRequest{Amount: &newAmount})
	updated := decode[EventDTO](t, resp)
	if updated.Amount != 650 {
		t.Errorf("expected amount 650, got %v", updated.Amount)
	}
	if updated.Name != "Trip" {
		t.Errorf("untouched field changed: %q", updated.Name)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/events/"+created.ID+"/confirm", nil)
	if confirmed := decode[EventDTO](t, resp); !confirmed.Confirmed {
		t.Error("expected confirmed flag")
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/events/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestAPI_ListEvents_UsesInjectedClock(t *testing.T) {
	// The "future events" cutoff follows the planner's clock, not the
	// wall clock, so a fixed test date yields a deterministic list.
	srv, mem := newTestServer(t)
	ctx := context.Background()

	save := func(id string, date time.Time) {
		t.Helper()
		if err := mem.SavePlannedEvent(ctx, forecast.PlannedEvent{
			ID:     forecast.EventID(id),
			Name:   id,
			Kind:   forecast.KindExpense,
			Amount: decimal.NewFromInt(50),
			Date:   date,
		}); err != nil {
			t.Fatal(err)
		}
	}
	save("before", testToday.AddDate(0, -1, 0))
	save("after", testToday.AddDate(0, 1, 0))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/events", nil)
	events := decode[[]EventDTO](t, resp)

	if len(events) != 1 {
		t.Fatalf("expected 1 future event relative to the test clock, got %d", len(events))
	}
	if events[0].ID != "after" {
		t.Errorf("expected the post-cutoff event, got %q", events[0].ID)
	}
}

func TestAPI_CreateEvent_BadDate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/events", CreateEventRequest{
		Name: "Trip", Kind: "expense", Amount: 100, Date: "15/08/2025",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date format, got %d", resp.StatusCode)
	}
}

func TestAPI_BalanceRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/balance", BalanceDTO{Balance: 2500.75})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/balance", nil)
	if got := decode[BalanceDTO](t, resp); got.Balance != 2500.75 {
		t.Errorf("expected 2500.75, got %v", got.Balance)
	}
}

func TestAPI_Upcoming(t *testing.T) {
	srv, mem := newTestServer(t)

	if err := mem.SaveRule(context.Background(), forecast.RecurringRule{
		ID: "loan", Name: "Car loan", Kind: forecast.KindExpense,
		Amount: decimal.NewFromInt(310), Frequency: forecast.FreqMonthly,
		AnchorDay: 12, StartDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active: true,
	}); err != nil {
		t.Fatal(err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/upcoming?days=7", nil)
	upcoming := decode[[]UpcomingDTO](t, resp)
	if len(upcoming) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(upcoming))
	}
	if upcoming[0].RuleID != "loan" || upcoming[0].DaysLeft != 2 {
		t.Errorf("unexpected occurrence %+v", upcoming[0])
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/upcoming?days=-3", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for negative days, got %d", resp.StatusCode)
	}
}

func TestAPI_LoadProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/profiles", nil)
	available := decode[[]ProfileDTO](t, resp)
	if len(available) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(available))
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/profiles/load",
		map[string]string{"profile_id": "tight-month"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profiles/current", nil)
	if current := decode[ProfileDTO](t, resp); current.ID != "tight-month" {
		t.Errorf("expected tight-month current, got %q", current.ID)
	}

	// The seeded data produces rules and a non-empty forecast.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/rules", nil)
	if rules := decode[[]RuleDTO](t, resp); len(rules) == 0 {
		t.Error("expected seeded rules")
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/profiles/load",
		map[string]string{"profile_id": "unknown"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown profile, got %d", resp.StatusCode)
	}
}
