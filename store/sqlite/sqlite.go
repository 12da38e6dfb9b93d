/*
Package sqlite provides a SQLite-backed budget.Store.

PURPOSE:
  Persists budgets, their lines and each line's amount patterns. Rules
  are stored as JSON through factory.RuleFactory, so adding a grammar
  needs no schema change.

KEY TABLES:
  budgets:  id, name, country, starting_balance (minor units)
  lines:    one row per budget line, UNIQUE(budget_id, name)
  patterns: amount, validity window, rule_json; cascade with their line

ORDERING:
  Lines and patterns come back in insertion order (rowid).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.
  ":memory:" databases are pinned to one connection so every query sees
  the same database.

WAL MODE:
  Opened with WAL journaling and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/cashflow.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/factory"
)

// Store implements budget.Store using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	rules *factory.RuleFactory
	now   func() time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, rules: factory.NewRuleFactory(), now: time.Now}
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT NOT NULL,
		starting_balance INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lines (
		id TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(budget_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_lines_budget
		ON lines(budget_id);

	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		line_id TEXT NOT NULL REFERENCES lines(id) ON DELETE CASCADE,
		amount INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		rule_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_patterns_line
		ON patterns(line_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BUDGETS
// =============================================================================

func (s *Store) SaveBudget(ctx context.Context, b budget.Budget) (budget.Budget, error) {
	if err := b.Validate(); err != nil {
		return budget.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, name, country, starting_balance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			starting_balance = excluded.starting_balance
	`, b.ID, b.Name, string(b.Country), int64(b.StartingBalance), formatTime(b.CreatedAt))
	if err != nil {
		return budget.Budget{}, fmt.Errorf("failed to save budget: %w", err)
	}
	return b, nil
}

func (s *Store) GetBudget(ctx context.Context, id string) (budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, country, starting_balance, created_at
		FROM budgets WHERE id = ?
	`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Budget{}, &budget.NotFoundError{Entity: "budget", ID: id}
	}
	return b, err
}

func (s *Store) ListBudgets(ctx context.Context) ([]budget.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, country, starting_balance, created_at
		FROM budgets ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	out := []budget.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBudget(row scanner) (budget.Budget, error) {
	var (
		b         budget.Budget
		country   string
		balance   int64
		createdAt string
	)
	if err := row.Scan(&b.ID, &b.Name, &country, &balance, &createdAt); err != nil {
		return budget.Budget{}, err
	}
	b.Country = calendar.Country(country)
	b.StartingBalance = budget.Amount(balance)
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// =============================================================================
// LINES
// =============================================================================

func (s *Store) SaveLine(ctx context.Context, line budget.Line) (budget.Line, error) {
	if err := line.Validate(); err != nil {
		return budget.Line{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = s.now().UTC()
	}
	line.Patterns = append([]budget.AmountPattern(nil), line.Patterns...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return budget.Line{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM budgets WHERE id = ?", line.BudgetID).Scan(&exists)
	if err != nil {
		return budget.Line{}, fmt.Errorf("failed to check budget: %w", err)
	}
	if exists == 0 {
		return budget.Line{}, &budget.NotFoundError{Entity: "budget", ID: line.BudgetID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lines (id, budget_id, name, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, line.ID, line.BudgetID, line.Name, string(line.Kind), formatTime(line.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return budget.Line{}, budget.ErrDuplicateName
		}
		return budget.Line{}, fmt.Errorf("failed to save line: %w", err)
	}

	for i := range line.Patterns {
		if line.Patterns[i].ID == "" {
			line.Patterns[i].ID = uuid.NewString()
		}
		if err := s.insertPattern(ctx, tx, line.ID, line.Patterns[i]); err != nil {
			return budget.Line{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return budget.Line{}, fmt.Errorf("failed to commit line: %w", err)
	}
	return line, nil
}

func (s *Store) GetLine(ctx context.Context, id string) (budget.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, budget_id, name, kind, created_at
		FROM lines WHERE id = ?
	`, id)
	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Line{}, &budget.NotFoundError{Entity: "line", ID: id}
	}
	if err != nil {
		return budget.Line{}, err
	}

	line.Patterns, err = s.loadPatterns(ctx, id)
	if err != nil {
		return budget.Line{}, err
	}
	return line, nil
}

func (s *Store) ListLines(ctx context.Context, budgetID string) ([]budget.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM budgets WHERE id = ?", budgetID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check budget: %w", err)
	}
	if exists == 0 {
		return nil, &budget.NotFoundError{Entity: "budget", ID: budgetID}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, budget_id, name, kind, created_at
		FROM lines WHERE budget_id = ?
		ORDER BY rowid ASC
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}

	var lines []budget.Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range lines {
		lines[i].Patterns, err = s.loadPatterns(ctx, lines[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func (s *Store) DeleteLine(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM lines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &budget.NotFoundError{Entity: "line", ID: id}
	}
	return nil
}

func scanLine(row scanner) (budget.Line, error) {
	var (
		line      budget.Line
		kind      string
		createdAt string
	)
	if err := row.Scan(&line.ID, &line.BudgetID, &line.Name, &kind, &createdAt); err != nil {
		return budget.Line{}, err
	}
	line.Kind = budget.LineKind(kind)
	line.CreatedAt = parseTime(createdAt)
	return line, nil
}

// =============================================================================
// PATTERNS
// =============================================================================

func (s *Store) AddPattern(ctx context.Context, lineID string, p budget.AmountPattern) (budget.AmountPattern, error) {
	if err := p.Validate(); err != nil {
		return budget.AmountPattern{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lines WHERE id = ?", lineID).Scan(&exists); err != nil {
		return budget.AmountPattern{}, fmt.Errorf("failed to check line: %w", err)
	}
	if exists == 0 {
		return budget.AmountPattern{}, &budget.NotFoundError{Entity: "line", ID: lineID}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.insertPattern(ctx, s.db, lineID, p); err != nil {
		return budget.AmountPattern{}, err
	}
	return p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insertPattern(ctx context.Context, db execer, lineID string, p budget.AmountPattern) error {
	ruleJSON, err := s.rules.MarshalRule(p.RuleOrOnce())
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}

	var endDate sql.NullString
	if p.EndDate != nil {
		endDate = sql.NullString{String: p.EndDate.String(), Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO patterns (id, line_id, amount, start_date, end_date, rule_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, lineID, int64(p.Amount), p.StartDate.String(), endDate, ruleJSON, formatTime(s.now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}
	return nil
}

func (s *Store) loadPatterns(ctx context.Context, lineID string) ([]budget.AmountPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, start_date, end_date, rule_json
		FROM patterns WHERE line_id = ?
		ORDER BY rowid ASC
	`, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	var out []budget.AmountPattern
	for rows.Next() {
		var (
			p         budget.AmountPattern
			amount    int64
			startDate string
			endDate   sql.NullString
			ruleJSON  string
		)
		if err := rows.Scan(&p.ID, &amount, &startDate, &endDate, &ruleJSON); err != nil {
			return nil, err
		}
		p.Amount = budget.Amount(amount)
		if p.StartDate, err = calendar.ParseDate(startDate); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		if endDate.Valid {
			end, err := calendar.ParseDate(endDate.String)
			if err != nil {
				return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
			}
			p.EndDate = &end
		}
		if p.Rule, err = s.rules.ParseRule(ruleJSON); err != nil {
			return nil, fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ budget.Store = (*Store)(nil)
