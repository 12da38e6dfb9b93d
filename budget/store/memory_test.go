package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/budget/store"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/recurrence"
)

func salary() budget.AmountPattern {
	return budget.AmountPattern{
		Amount:    3_000_000,
		StartDate: calendar.NewDate(2026, time.January, 1),
		Rule:      recurrence.MonthlyFixed{DayOfMonth: 25, Interval: 1},
	}
}

func TestMemory_BudgetLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	b, err := s.SaveBudget(ctx, budget.Budget{Name: "Home", Country: calendar.Denmark, StartingBalance: 1_000_000})
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := s.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	all, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetBudget(ctx, "missing")
	assert.True(t, budget.IsNotFound(err))
}

func TestMemory_SaveLine(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	b, err := s.SaveBudget(ctx, budget.Budget{Name: "Home", Country: calendar.Denmark})
	require.NoError(t, err)

	// GIVEN: a saved salary line
	line, err := s.SaveLine(ctx, budget.Line{
		BudgetID: b.ID, Name: "Salary", Kind: budget.KindIncome,
		Patterns: []budget.AmountPattern{salary()},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, line.ID)
	assert.NotEmpty(t, line.Patterns[0].ID)

	// WHEN: a second line reuses the name
	_, err = s.SaveLine(ctx, budget.Line{BudgetID: b.ID, Name: "Salary", Kind: budget.KindIncome})

	// THEN: it is rejected
	assert.ErrorIs(t, err, budget.ErrDuplicateName)

	_, err = s.SaveLine(ctx, budget.Line{BudgetID: "nope", Name: "Rent", Kind: budget.KindExpense})
	assert.True(t, budget.IsNotFound(err))

	_, err = s.SaveLine(ctx, budget.Line{BudgetID: b.ID, Kind: budget.KindExpense})
	assert.ErrorIs(t, err, budget.ErrInvalidPattern)
}

func TestMemory_ListLinesKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	b, err := s.SaveBudget(ctx, budget.Budget{Name: "Home", Country: calendar.Denmark})
	require.NoError(t, err)

	names := []string{"Rent", "Salary", "Groceries", "Insurance"}
	var ids []string
	for _, n := range names {
		line, err := s.SaveLine(ctx, budget.Line{BudgetID: b.ID, Name: n, Kind: budget.KindExpense})
		require.NoError(t, err)
		ids = append(ids, line.ID)
	}
	require.NoError(t, s.DeleteLine(ctx, ids[1]))

	lines, err := s.ListLines(ctx, b.ID)
	require.NoError(t, err)
	var got []string
	for _, l := range lines {
		got = append(got, l.Name)
	}
	assert.Equal(t, []string{"Rent", "Groceries", "Insurance"}, got)

	assert.True(t, budget.IsNotFound(s.DeleteLine(ctx, ids[1])))
}

func TestMemory_AddPattern(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	b, err := s.SaveBudget(ctx, budget.Budget{Name: "Home", Country: calendar.Denmark})
	require.NoError(t, err)
	line, err := s.SaveLine(ctx, budget.Line{BudgetID: b.ID, Name: "Salary", Kind: budget.KindIncome, Patterns: []budget.AmountPattern{salary()}})
	require.NoError(t, err)

	raise := salary()
	raise.Amount = 3_400_000
	raise.StartDate = calendar.NewDate(2026, time.June, 1)
	added, err := s.AddPattern(ctx, line.ID, raise)
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	got, err := s.GetLine(ctx, line.ID)
	require.NoError(t, err)
	require.Len(t, got.Patterns, 2)
	assert.Equal(t, budget.Amount(3_400_000), got.Patterns[1].Amount)

	_, err = s.AddPattern(ctx, line.ID, budget.AmountPattern{Rule: recurrence.Daily{Interval: 1}})
	assert.ErrorIs(t, err, budget.ErrInvalidPattern)

	_, err = s.AddPattern(ctx, "missing", salary())
	assert.True(t, budget.IsNotFound(err))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	b, err := s.SaveBudget(ctx, budget.Budget{Name: "Home", Country: calendar.Denmark})
	require.NoError(t, err)
	line, err := s.SaveLine(ctx, budget.Line{BudgetID: b.ID, Name: "Salary", Kind: budget.KindIncome, Patterns: []budget.AmountPattern{salary()}})
	require.NoError(t, err)

	got, err := s.GetLine(ctx, line.ID)
	require.NoError(t, err)
	got.Patterns[0].Amount = 1

	again, err := s.GetLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.Amount(3_000_000), again.Patterns[0].Amount)
}
