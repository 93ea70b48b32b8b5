/*
Package planner orchestrates the cash-flow projection pipeline.

PURPOSE:
  The forecast package is pure computation over already-fetched inputs.
  This package owns everything around it: fetching a consistent snapshot
  of the three inputs (rules, planned events, starting balance) from the
  Store, running the pipeline, holding the last computed projection, and
  the mutation boundary for rules and planned events.

SNAPSHOT CONTRACT:
  The three fetches run concurrently but must ALL complete before
  projection begins; the projector requires a consistent snapshot. On a
  fetch failure the previous projection is left in place and marked
  stale. There is no partial-update path: any successful mutation
  triggers a full refetch-and-recompute.

SCENARIO SWITCHING:
  SetScenario recomputes from the held snapshot without refetching, so
  flipping pessimistic/realistic/optimistic is instant and cannot fail on
  I/O.

SEE ALSO:
  - forecast:        the pure pipeline
  - api/handlers.go: HTTP surface over this type
*/
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/lifeplan/cashflow-engine/forecast"
)

// =============================================================================
// PLANNER
// =============================================================================

// Snapshot is one consistent read of the projection inputs.
type Snapshot struct {
	Rules           []forecast.RecurringRule
	Events          []forecast.PlannedEvent
	StartingBalance decimal.Decimal
	FetchedAt       time.Time
}

// Projection is the full computed output exposed to consumers.
type Projection struct {
	Months            []forecast.MonthBucket
	Events            []forecast.ProjectedEvent
	BalanceData       []forecast.BalancePoint
	CriticalPoints    []forecast.CriticalPoint
	NextCriticalPoint *forecast.CriticalPoint
	Flagged           map[string]bool
	Scenario          forecast.Scenario
	ComputedAt        time.Time
}

// Planner holds the last fetched snapshot and computed projection.
// All exported methods are safe for concurrent use.
type Planner struct {
	Store forecast.Store
	Log   *logrus.Logger
	Now   func() time.Time

	idSeq uint64

	mu         sync.RWMutex
	horizon    int
	scenario   forecast.Scenario
	snapshot   *Snapshot
	projection *Projection
	stale      bool
}

// New creates a planner with the default 13-month horizon and realistic
// scenario.
func New(store forecast.Store, log *logrus.Logger) *Planner {
	if log == nil {
		log = logrus.New()
	}
	return &Planner{
		Store:    store,
		Log:      log,
		Now:      time.Now,
		horizon:  forecast.DefaultHorizonMonths,
		scenario: forecast.ScenarioRealistic,
	}
}

// newID mints a store identifier. The sequence suffix keeps IDs unique
// even when two mutations land on the same clock reading.
func (p *Planner) newID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, p.Now().UnixNano(), atomic.AddUint64(&p.idSeq, 1))
}

// =============================================================================
// SNAPSHOT + RECOMPUTE
// =============================================================================

// Refresh fetches the three projection inputs concurrently and, once all
// have arrived, recomputes the full pipeline. On any fetch error the
// previous projection stays in place and is marked stale.
func (p *Planner) Refresh(ctx context.Context) error {
	today := forecast.DayOf(p.Now())

	var (
		wg      sync.WaitGroup
		rules   []forecast.RecurringRule
		events  []forecast.PlannedEvent
		balance decimal.Decimal

		rulesErr, eventsErr, balanceErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		rules, rulesErr = p.Store.ListRules(ctx)
	}()
	go func() {
		defer wg.Done()
		events, eventsErr = p.Store.ListPlannedEvents(ctx, today)
	}()
	go func() {
		defer wg.Done()
		balance, balanceErr = p.Store.StartingBalance(ctx)
	}()
	wg.Wait()

	for _, err := range []error{rulesErr, eventsErr, balanceErr} {
		if err != nil {
			p.mu.Lock()
			p.stale = true
			p.mu.Unlock()
			p.Log.WithError(err).Warn("forecast snapshot fetch failed; projection is stale")
			return fmt.Errorf("fetch snapshot: %w", err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshot = &Snapshot{
		Rules:           rules,
		Events:          events,
		StartingBalance: balance,
		FetchedAt:       p.Now(),
	}
	p.stale = false
	p.recomputeLocked()

	p.Log.WithFields(logrus.Fields{
		"rules":    len(rules),
		"events":   len(events),
		"scenario": p.scenario,
	}).Debug("forecast recomputed")
	return nil
}

// recomputeLocked reruns the pipeline from the held snapshot.
// Caller must hold p.mu.
func (p *Planner) recomputeLocked() {
	if p.snapshot == nil {
		return
	}

	today := forecast.DayOf(p.Now())
	months := forecast.BuildTimeline(today, p.horizon)
	events := forecast.Project(p.snapshot.Rules, p.snapshot.Events, months, p.scenario)
	balance := forecast.Simulate(p.snapshot.StartingBalance, events, months)
	critical, flagged := forecast.DetectCriticalPoints(balance, events)

	proj := &Projection{
		Months:         months,
		Events:         events,
		BalanceData:    balance,
		CriticalPoints: critical,
		Flagged:        flagged,
		Scenario:       p.scenario,
		ComputedAt:     p.Now(),
	}
	if len(critical) > 0 {
		proj.NextCriticalPoint = &critical[0]
	}
	p.projection = proj
}

// Horizon returns the projection horizon in months.
func (p *Planner) Horizon() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.horizon
}

// SetHorizon changes the projection horizon and recomputes from the held
// snapshot. The snapshot inputs don't depend on the horizon, so no
// refetch is needed.
func (p *Planner) SetHorizon(months int) error {
	if months < 1 {
		return fmt.Errorf("%w: %d", forecast.ErrInvalidHorizon, months)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if months == p.horizon {
		return nil
	}
	p.horizon = months
	p.recomputeLocked()
	return nil
}

// SetScenario switches the active scenario and recomputes from the held
// snapshot without refetching inputs.
func (p *Planner) SetScenario(s forecast.Scenario) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %q", forecast.ErrInvalidScenario, s)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.scenario = s
	p.recomputeLocked()
	return nil
}

// Scenario returns the active scenario.
func (p *Planner) Scenario() forecast.Scenario {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scenario
}

// Current returns the last computed projection. ok is false before the
// first successful Refresh.
func (p *Planner) Current() (Projection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.projection == nil {
		return Projection{}, false
	}
	return *p.projection, true
}

// Stale reports whether the last snapshot fetch failed after a
// previously successful computation.
func (p *Planner) Stale() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stale
}

// =============================================================================
// UPCOMING OCCURRENCES - Short-horizon display, independent of the timeline
// =============================================================================

// UpcomingOccurrence is one rule's next concrete date within a window.
type UpcomingOccurrence struct {
	RuleID   forecast.RuleID
	Name     string
	Kind     forecast.CashKind
	Amount   decimal.Decimal
	Date     time.Time
	DaysLeft int
}

// Upcoming returns the rules whose next occurrence falls within the next
// `days` days, ordered by date. Amounts are the base rule amounts; the
// upcoming view is not scenario-adjusted.
func (p *Planner) Upcoming(ctx context.Context, days int) ([]UpcomingOccurrence, error) {
	rules, err := p.Store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	today := forecast.DayOf(p.Now())
	var upcoming []UpcomingOccurrence
	for _, rule := range rules {
		occ, ok := rule.NextOccurrence(today)
		if !ok || occ.DaysLeft > days {
			continue
		}
		upcoming = append(upcoming, UpcomingOccurrence{
			RuleID:   rule.ID,
			Name:     rule.Name,
			Kind:     rule.Kind,
			Amount:   rule.Amount,
			Date:     occ.Date,
			DaysLeft: occ.DaysLeft,
		})
	}

	// Stable order for display: soonest first, then by name.
	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].Date.Equal(upcoming[j].Date) {
			return upcoming[i].Date.Before(upcoming[j].Date)
		}
		return upcoming[i].Name < upcoming[j].Name
	})
	return upcoming, nil
}

// =============================================================================
// MUTATION BOUNDARY - Planned events
// =============================================================================
//
// Input-shape validation happens here, before anything reaches the store
// or the engine. The engine itself assumes well-typed inputs.

// EventInput carries the fields for creating a planned event.
type EventInput struct {
	Name       string
	Kind       forecast.CashKind
	Amount     decimal.Decimal
	Date       time.Time
	CategoryID string
	Notes      string
}

// EventPatch carries optional fields for a partial update.
type EventPatch struct {
	Name       *string
	Kind       *forecast.CashKind
	Amount     *decimal.Decimal
	Date       *time.Time
	CategoryID *string
	Notes      *string
}

// CreatePlannedEvent validates, persists and recomputes.
func (p *Planner) CreatePlannedEvent(ctx context.Context, in EventInput) (forecast.PlannedEvent, error) {
	if err := validateEventInput(in); err != nil {
		return forecast.PlannedEvent{}, err
	}

	event := forecast.PlannedEvent{
		ID:         forecast.EventID(p.newID("evt")),
		Name:       strings.TrimSpace(in.Name),
		Kind:       in.Kind,
		Amount:     in.Amount,
		Date:       forecast.DayOf(in.Date),
		CategoryID: in.CategoryID,
		Notes:      in.Notes,
	}
	if err := p.Store.SavePlannedEvent(ctx, event); err != nil {
		return forecast.PlannedEvent{}, fmt.Errorf("save planned event: %w", err)
	}

	p.Log.WithFields(logrus.Fields{"event": event.ID, "kind": event.Kind}).Info("planned event created")
	return event, p.Refresh(ctx)
}

// UpdatePlannedEvent applies a partial update, persists and recomputes.
func (p *Planner) UpdatePlannedEvent(ctx context.Context, id forecast.EventID, patch EventPatch) (forecast.PlannedEvent, error) {
	event, err := p.Store.GetPlannedEvent(ctx, id)
	if err != nil {
		return forecast.PlannedEvent{}, err
	}

	if patch.Name != nil {
		event.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Kind != nil {
		event.Kind = *patch.Kind
	}
	if patch.Amount != nil {
		event.Amount = *patch.Amount
	}
	if patch.Date != nil {
		event.Date = forecast.DayOf(*patch.Date)
	}
	if patch.CategoryID != nil {
		event.CategoryID = *patch.CategoryID
	}
	if patch.Notes != nil {
		event.Notes = *patch.Notes
	}

	if err := validateEventInput(EventInput{
		Name: event.Name, Kind: event.Kind, Amount: event.Amount, Date: event.Date,
	}); err != nil {
		return forecast.PlannedEvent{}, err
	}

	if err := p.Store.SavePlannedEvent(ctx, event); err != nil {
		return forecast.PlannedEvent{}, fmt.Errorf("save planned event: %w", err)
	}
	return event, p.Refresh(ctx)
}

// DeletePlannedEvent removes the event and recomputes.
func (p *Planner) DeletePlannedEvent(ctx context.Context, id forecast.EventID) error {
	if err := p.Store.DeletePlannedEvent(ctx, id); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// ConfirmPlannedEvent sets the advisory confirmed flag. Confirmation has
// no effect on projection math, but the recompute keeps the snapshot in
// sync with storage.
func (p *Planner) ConfirmPlannedEvent(ctx context.Context, id forecast.EventID) (forecast.PlannedEvent, error) {
	event, err := p.Store.GetPlannedEvent(ctx, id)
	if err != nil {
		return forecast.PlannedEvent{}, err
	}
	event.Confirmed = true
	if err := p.Store.SavePlannedEvent(ctx, event); err != nil {
		return forecast.PlannedEvent{}, fmt.Errorf("save planned event: %w", err)
	}
	return event, p.Refresh(ctx)
}

func validateEventInput(in EventInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return forecast.ErrMissingName
	}
	if in.Kind != forecast.KindIncome && in.Kind != forecast.KindExpense {
		return fmt.Errorf("%w: %q", forecast.ErrInvalidKind, in.Kind)
	}
	if !in.Amount.IsPositive() {
		return forecast.ErrInvalidAmount
	}
	if in.Date.IsZero() {
		return forecast.ErrInvalidDate
	}
	return nil
}

// =============================================================================
// MUTATION BOUNDARY - Recurring rules
// =============================================================================

// RuleInput carries the fields for creating a recurring rule.
type RuleInput struct {
	Name      string
	Kind      forecast.CashKind
	Amount    decimal.Decimal
	Frequency forecast.Frequency
	AnchorDay int
	StartDate time.Time
	EndDate   *time.Time
}

// CreateRule validates, persists and recomputes. New rules start active
// and unpaused.
func (p *Planner) CreateRule(ctx context.Context, in RuleInput) (forecast.RecurringRule, error) {
	if err := validateRuleInput(in); err != nil {
		return forecast.RecurringRule{}, err
	}

	rule := forecast.RecurringRule{
		ID:        forecast.RuleID(p.newID("rule")),
		Name:      strings.TrimSpace(in.Name),
		Kind:      in.Kind,
		Amount:    in.Amount,
		Frequency: in.Frequency,
		AnchorDay: in.AnchorDay,
		StartDate: forecast.DayOf(in.StartDate),
		Active:    true,
	}
	if in.EndDate != nil {
		end := forecast.DayOf(*in.EndDate)
		rule.EndDate = &end
	}

	if err := p.Store.SaveRule(ctx, rule); err != nil {
		return forecast.RecurringRule{}, fmt.Errorf("save rule: %w", err)
	}

	p.Log.WithFields(logrus.Fields{"rule": rule.ID, "frequency": rule.Frequency}).Info("recurring rule created")
	return rule, p.Refresh(ctx)
}

// UpdateRule replaces an existing rule's definition, keeping its ID and
// active/paused state unless the input says otherwise.
func (p *Planner) UpdateRule(ctx context.Context, id forecast.RuleID, in RuleInput) (forecast.RecurringRule, error) {
	if err := validateRuleInput(in); err != nil {
		return forecast.RecurringRule{}, err
	}

	rule, err := p.Store.GetRule(ctx, id)
	if err != nil {
		return forecast.RecurringRule{}, err
	}

	rule.Name = strings.TrimSpace(in.Name)
	rule.Kind = in.Kind
	rule.Amount = in.Amount
	rule.Frequency = in.Frequency
	rule.AnchorDay = in.AnchorDay
	rule.StartDate = forecast.DayOf(in.StartDate)
	rule.EndDate = nil
	if in.EndDate != nil {
		end := forecast.DayOf(*in.EndDate)
		rule.EndDate = &end
	}

	if err := p.Store.SaveRule(ctx, rule); err != nil {
		return forecast.RecurringRule{}, fmt.Errorf("save rule: %w", err)
	}
	return rule, p.Refresh(ctx)
}

// SetRulePaused pauses or resumes a rule and recomputes.
func (p *Planner) SetRulePaused(ctx context.Context, id forecast.RuleID, paused bool) (forecast.RecurringRule, error) {
	rule, err := p.Store.GetRule(ctx, id)
	if err != nil {
		return forecast.RecurringRule{}, err
	}
	rule.Paused = paused
	if err := p.Store.SaveRule(ctx, rule); err != nil {
		return forecast.RecurringRule{}, fmt.Errorf("save rule: %w", err)
	}
	return rule, p.Refresh(ctx)
}

// DeleteRule removes the rule and recomputes.
func (p *Planner) DeleteRule(ctx context.Context, id forecast.RuleID) error {
	if err := p.Store.DeleteRule(ctx, id); err != nil {
		return err
	}
	return p.Refresh(ctx)
}

// SetStartingBalance replaces the balance snapshot and recomputes.
func (p *Planner) SetStartingBalance(ctx context.Context, balance decimal.Decimal) error {
	if err := p.Store.SetStartingBalance(ctx, balance); err != nil {
		return fmt.Errorf("set starting balance: %w", err)
	}
	return p.Refresh(ctx)
}

func validateRuleInput(in RuleInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return forecast.ErrMissingName
	}
	if in.Kind != forecast.KindIncome && in.Kind != forecast.KindExpense {
		return fmt.Errorf("%w: %q", forecast.ErrInvalidKind, in.Kind)
	}
	if !in.Amount.IsPositive() {
		return forecast.ErrInvalidAmount
	}
	switch in.Frequency {
	case forecast.FreqWeekly, forecast.FreqBiweekly, forecast.FreqMonthly, forecast.FreqQuarterly, forecast.FreqAnnual:
	default:
		return fmt.Errorf("%w: %q", forecast.ErrInvalidFrequency, in.Frequency)
	}
	if in.AnchorDay < 0 || in.AnchorDay > 31 {
		return fmt.Errorf("%w: anchor day %d out of range", forecast.ErrInvalidDate, in.AnchorDay)
	}
	if in.StartDate.IsZero() {
		return forecast.ErrInvalidDate
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: end date before start date", forecast.ErrInvalidDate)
	}
	return nil
}
