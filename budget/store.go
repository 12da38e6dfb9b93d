/*
store.go - Persistence interface for budgets and lines

PURPOSE:
  The engine is pure; the API needs somewhere to keep the budgets it
  expands. Store is that boundary. Implementations:

  - budget/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite, rules stored as JSON

CONTRACT:
  - SaveLine rejects a second line with the same name in one budget
    (ErrDuplicateName) and validates every pattern (ErrInvalidPattern)
  - Lookups of missing records return an error wrapping ErrNotFound
  - Lines are returned in creation order, patterns in insertion order
*/
package budget

import "context"

type Store interface {
	// SaveBudget assigns ID and CreatedAt when empty and returns the
	// stored record.
	SaveBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudget(ctx context.Context, id string) (Budget, error)
	ListBudgets(ctx context.Context) ([]Budget, error)

	// SaveLine inserts a line with its patterns.
	SaveLine(ctx context.Context, line Line) (Line, error)
	GetLine(ctx context.Context, id string) (Line, error)
	ListLines(ctx context.Context, budgetID string) ([]Line, error)
	DeleteLine(ctx context.Context, id string) error

	// AddPattern appends a pattern to an existing line.
	AddPattern(ctx context.Context, lineID string, p AmountPattern) (AmountPattern, error)
}
