// Package store provides budget.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/cashflow-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	budgets map[string]budget.Budget
	lines   map[string]budget.Line
	order   []string // line IDs in creation order
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		budgets: make(map[string]budget.Budget),
		lines:   make(map[string]budget.Line),
		now:     time.Now,
	}
}

func (m *Memory) SaveBudget(_ context.Context, b budget.Budget) (budget.Budget, error) {
	if err := b.Validate(); err != nil {
		return budget.Budget{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now().UTC()
	}
	m.budgets[b.ID] = b
	return b, nil
}

func (m *Memory) GetBudget(_ context.Context, id string) (budget.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[id]
	if !ok {
		return budget.Budget{}, &budget.NotFoundError{Entity: "budget", ID: id}
	}
	return b, nil
}

func (m *Memory) ListBudgets(_ context.Context) ([]budget.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]budget.Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) SaveLine(_ context.Context, line budget.Line) (budget.Line, error) {
	if err := line.Validate(); err != nil {
		return budget.Line{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.budgets[line.BudgetID]; !ok {
		return budget.Line{}, &budget.NotFoundError{Entity: "budget", ID: line.BudgetID}
	}
	for _, existing := range m.lines {
		if existing.BudgetID == line.BudgetID && existing.Name == line.Name {
			return budget.Line{}, budget.ErrDuplicateName
		}
	}

	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = m.now().UTC()
	}
	line.Patterns = clonePatterns(line.Patterns)
	for i := range line.Patterns {
		if line.Patterns[i].ID == "" {
			line.Patterns[i].ID = uuid.NewString()
		}
	}

	m.lines[line.ID] = line
	m.order = append(m.order, line.ID)
	line.Patterns = clonePatterns(line.Patterns)
	return line, nil
}

func (m *Memory) GetLine(_ context.Context, id string) (budget.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	line, ok := m.lines[id]
	if !ok {
		return budget.Line{}, &budget.NotFoundError{Entity: "line", ID: id}
	}
	line.Patterns = clonePatterns(line.Patterns)
	return line, nil
}

func (m *Memory) ListLines(_ context.Context, budgetID string) ([]budget.Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.budgets[budgetID]; !ok {
		return nil, &budget.NotFoundError{Entity: "budget", ID: budgetID}
	}
	var out []budget.Line
	for _, id := range m.order {
		line := m.lines[id]
		if line.BudgetID != budgetID {
			continue
		}
		line.Patterns = clonePatterns(line.Patterns)
		out = append(out, line)
	}
	return out, nil
}

func (m *Memory) DeleteLine(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lines[id]; !ok {
		return &budget.NotFoundError{Entity: "line", ID: id}
	}
	delete(m.lines, id)
	for i, lid := range m.order {
		if lid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) AddPattern(_ context.Context, lineID string, p budget.AmountPattern) (budget.AmountPattern, error) {
	if err := p.Validate(); err != nil {
		return budget.AmountPattern{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	line, ok := m.lines[lineID]
	if !ok {
		return budget.AmountPattern{}, &budget.NotFoundError{Entity: "line", ID: lineID}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	line.Patterns = append(clonePatterns(line.Patterns), p)
	m.lines[lineID] = line
	return p, nil
}

func clonePatterns(ps []budget.AmountPattern) []budget.AmountPattern {
	if ps == nil {
		return nil
	}
	out := make([]budget.AmountPattern, len(ps))
	copy(out, ps)
	return out
}

var _ budget.Store = (*Memory)(nil)
