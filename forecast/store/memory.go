// Package store provides forecast.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lifeplan/cashflow-engine/forecast"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	rules   map[forecast.RuleID]forecast.RecurringRule
	events  map[forecast.EventID]forecast.PlannedEvent
	balance decimal.Decimal
}

func NewMemory() *Memory {
	return &Memory{
		rules:  make(map[forecast.RuleID]forecast.RecurringRule),
		events: make(map[forecast.EventID]forecast.PlannedEvent),
	}
}

func (m *Memory) ListRules(_ context.Context) ([]forecast.RecurringRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]forecast.RecurringRule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (m *Memory) GetRule(_ context.Context, id forecast.RuleID) (forecast.RecurringRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[id]
	if !ok {
		return forecast.RecurringRule{}, forecast.ErrRuleNotFound
	}
	return rule, nil
}

func (m *Memory) SaveRule(_ context.Context, rule forecast.RecurringRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) DeleteRule(_ context.Context, id forecast.RuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return forecast.ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *Memory) ListPlannedEvents(_ context.Context, from time.Time) ([]forecast.PlannedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	from = forecast.DayOf(from)
	var events []forecast.PlannedEvent
	for _, e := range m.events {
		if e.Date.Before(from) {
			continue
		}
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (m *Memory) GetPlannedEvent(_ context.Context, id forecast.EventID) (forecast.PlannedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	event, ok := m.events[id]
	if !ok {
		return forecast.PlannedEvent{}, forecast.ErrEventNotFound
	}
	return event, nil
}

func (m *Memory) SavePlannedEvent(_ context.Context, event forecast.PlannedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events[event.ID] = event
	return nil
}

func (m *Memory) DeletePlannedEvent(_ context.Context, id forecast.EventID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[id]; !ok {
		return forecast.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

// Reset clears all data. Mirrors the sqlite store's dev-only reset.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules = make(map[forecast.RuleID]forecast.RecurringRule)
	m.events = make(map[forecast.EventID]forecast.PlannedEvent)
	m.balance = decimal.Zero
	return nil
}

func (m *Memory) StartingBalance(_ context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance, nil
}

func (m *Memory) SetStartingBalance(_ context.Context, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balance = balance
	return nil
}
