/*
Package sqlite provides a SQLite-backed implementation of forecast.Store.

PURPOSE:
  Persists the three projection inputs (recurring rules, planned events,
  starting balance). In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  recurring_rules:  Standing income/expense definitions
  planned_events:   One-off dated cash events
  balance_snapshot: Single-row current balance

AMOUNT STORAGE:
  Amounts are stored as TEXT and parsed with shopspring/decimal. Storing
  decimals as REAL would reintroduce exactly the floating-point drift the
  engine avoids.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/lifeplan.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - forecast/store.go:        interface definition
  - forecast/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/lifeplan/cashflow-engine/forecast"
)

// Store implements forecast.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recurring_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		anchor_day INTEGER NOT NULL DEFAULT 1,
		start_date TEXT NOT NULL,
		end_date TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		paused INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_active
		ON recurring_rules(active, paused);

	CREATE TABLE IF NOT EXISTS planned_events (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		event_date TEXT NOT NULL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		category_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: the planner always lists events from today forward
	CREATE INDEX IF NOT EXISTS idx_events_date
		ON planned_events(event_date);

	-- Single-row balance snapshot
	CREATE TABLE IF NOT EXISTS balance_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		balance TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

const dateLayout = "2006-01-02"

// =============================================================================
// RECURRING RULES
// =============================================================================

func (s *Store) ListRules(ctx context.Context) ([]forecast.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, amount, frequency, anchor_day, start_date, end_date, active, paused
		FROM recurring_rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []forecast.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (s *Store) GetRule(ctx context.Context, id forecast.RuleID) (forecast.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, amount, frequency, anchor_day, start_date, end_date, active, paused
		FROM recurring_rules WHERE id = ?`, string(id))

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return forecast.RecurringRule{}, forecast.ErrRuleNotFound
	}
	return rule, err
}

func (s *Store) SaveRule(ctx context.Context, rule forecast.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endDate *string
	if rule.EndDate != nil {
		e := rule.EndDate.Format(dateLayout)
		endDate = &e
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_rules
			(id, name, kind, amount, frequency, anchor_day, start_date, end_date, active, paused, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			amount = excluded.amount,
			frequency = excluded.frequency,
			anchor_day = excluded.anchor_day,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active,
			paused = excluded.paused`,
		string(rule.ID), rule.Name, string(rule.Kind), rule.Amount.String(),
		string(rule.Frequency), rule.Anchor(), rule.StartDate.Format(dateLayout),
		endDate, boolToInt(rule.Active), boolToInt(rule.Paused),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id forecast.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_rules WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return forecast.ErrRuleNotFound
	}
	return nil
}

// =============================================================================
// PLANNED EVENTS
// =============================================================================

func (s *Store) ListPlannedEvents(ctx context.Context, from time.Time) ([]forecast.PlannedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, amount, event_date, confirmed, category_id, notes
		FROM planned_events WHERE event_date >= ? ORDER BY event_date, id`,
		forecast.DayOf(from).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list planned events: %w", err)
	}
	defer rows.Close()

	var events []forecast.PlannedEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) GetPlannedEvent(ctx context.Context, id forecast.EventID) (forecast.PlannedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, amount, event_date, confirmed, category_id, notes
		FROM planned_events WHERE id = ?`, string(id))

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return forecast.PlannedEvent{}, forecast.ErrEventNotFound
	}
	return event, err
}

func (s *Store) SavePlannedEvent(ctx context.Context, event forecast.PlannedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO planned_events
			(id, name, kind, amount, event_date, confirmed, category_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			amount = excluded.amount,
			event_date = excluded.event_date,
			confirmed = excluded.confirmed,
			category_id = excluded.category_id,
			notes = excluded.notes`,
		string(event.ID), event.Name, string(event.Kind), event.Amount.String(),
		event.Date.Format(dateLayout), boolToInt(event.Confirmed),
		event.CategoryID, event.Notes, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save planned event: %w", err)
	}
	return nil
}

func (s *Store) DeletePlannedEvent(ctx context.Context, id forecast.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM planned_events WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete planned event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return forecast.ErrEventNotFound
	}
	return nil
}

// =============================================================================
// BALANCE SNAPSHOT
// =============================================================================

func (s *Store) StartingBalance(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM balance_snapshot WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return balance, nil
}

func (s *Store) SetStartingBalance(ctx context.Context, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balance_snapshot (id, balance, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		balance.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Used by demo profile loaders; never expose this
// outside development environments.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"recurring_rules", "planned_events", "balance_snapshot"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (forecast.RecurringRule, error) {
	var (
		rule                        forecast.RecurringRule
		id, kind, amount, frequency string
		startDate                   string
		endDate                     sql.NullString
		active, paused              int
	)
	err := row.Scan(&id, &rule.Name, &kind, &amount, &frequency, &rule.AnchorDay,
		&startDate, &endDate, &active, &paused)
	if err != nil {
		return forecast.RecurringRule{}, err
	}

	rule.ID = forecast.RuleID(id)
	rule.Kind = forecast.CashKind(kind)
	rule.Frequency = forecast.Frequency(frequency)
	rule.Active = active != 0
	rule.Paused = paused != 0

	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		return forecast.RecurringRule{}, fmt.Errorf("parse rule amount %q: %w", amount, err)
	}
	if rule.StartDate, err = time.ParseInLocation(dateLayout, startDate, time.UTC); err != nil {
		return forecast.RecurringRule{}, fmt.Errorf("parse rule start date %q: %w", startDate, err)
	}
	if endDate.Valid {
		end, err := time.ParseInLocation(dateLayout, endDate.String, time.UTC)
		if err != nil {
			return forecast.RecurringRule{}, fmt.Errorf("parse rule end date %q: %w", endDate.String, err)
		}
		rule.EndDate = &end
	}
	return rule, nil
}

func scanEvent(row rowScanner) (forecast.PlannedEvent, error) {
	var (
		event             forecast.PlannedEvent
		id, kind, amount  string
		eventDate         string
		confirmed         int
		categoryID, notes sql.NullString
	)
	err := row.Scan(&id, &event.Name, &kind, &amount, &eventDate, &confirmed, &categoryID, &notes)
	if err != nil {
		return forecast.PlannedEvent{}, err
	}

	event.ID = forecast.EventID(id)
	event.Kind = forecast.CashKind(kind)
	event.Confirmed = confirmed != 0
	event.CategoryID = categoryID.String
	event.Notes = notes.String

	if event.Amount, err = decimal.NewFromString(amount); err != nil {
		return forecast.PlannedEvent{}, fmt.Errorf("parse event amount %q: %w", amount, err)
	}
	if event.Date, err = time.ParseInLocation(dateLayout, eventDate, time.UTC); err != nil {
		return forecast.PlannedEvent{}, fmt.Errorf("parse event date %q: %w", eventDate, err)
	}
	return event, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
