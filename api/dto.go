package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
)

// =============================================================================
// REQUEST DTOs
// =============================================================================

// CreateBudgetRequest is the body of POST /api/budgets.
type CreateBudgetRequest struct {
	Name            string          `json:"name"`
	Country         string          `json:"country"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
}

// CreateLineRequest is the body of POST /api/budgets/{id}/lines.
type CreateLineRequest struct {
	Name     string                `json:"name"`
	Kind     string                `json:"kind,omitempty"`
	Patterns []factory.PatternJSON `json:"patterns"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE DTOs
// =============================================================================

type BudgetDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Country         string          `json:"country"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	CreatedAt       time.Time       `json:"created_at"`
	Lines           []LineDTO       `json:"lines,omitempty"`
}

type LineDTO struct {
	ID       string                `json:"id"`
	BudgetID string                `json:"budget_id"`
	Name     string                `json:"name"`
	Kind     string                `json:"kind,omitempty"`
	Patterns []factory.PatternJSON `json:"patterns"`
}

type OccurrenceDTO struct {
	Date     calendar.Date   `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	LineID   string          `json:"line_id,omitempty"`
	LineName string          `json:"line_name,omitempty"`
}

// OccurrencesResponse answers both occurrence endpoints.
type OccurrencesResponse struct {
	From         calendar.Date   `json:"from"`
	To           calendar.Date   `json:"to"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	Occurrences  []OccurrenceDTO `json:"occurrences"`
}

type MonthProjectionDTO struct {
	Month        string          `json:"month"`
	StartBalance decimal.Decimal `json:"start_balance"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	EndBalance   decimal.Decimal `json:"end_balance"`
}

type LowestPointDTO struct {
	Month   string          `json:"month"`
	Balance decimal.Decimal `json:"balance"`
}

type ExpenseDTO struct {
	Date     calendar.Date   `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	LineID   string          `json:"line_id"`
	LineName string          `json:"line_name"`
}

type ForecastDTO struct {
	BudgetID         string               `json:"budget_id"`
	StartingBalance  decimal.Decimal      `json:"starting_balance"`
	Projections      []MonthProjectionDTO `json:"projections"`
	LowestPoint      *LowestPointDTO      `json:"lowest_point"`
	NextLargeExpense *ExpenseDTO          `json:"next_large_expense"`
}

type HolidayDTO struct {
	Date    calendar.Date `json:"date"`
	Name    string        `json:"name"`
	Weekday string        `json:"weekday"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBudgetDTO(b budget.Budget) BudgetDTO {
	return BudgetDTO{
		ID:              b.ID,
		Name:            b.Name,
		Country:         string(b.Country),
		StartingBalance: b.StartingBalance.Decimal(),
		CreatedAt:       b.CreatedAt,
	}
}

func toLineDTO(rules *factory.RuleFactory, l budget.Line) LineDTO {
	patterns := make([]factory.PatternJSON, len(l.Patterns))
	for i, p := range l.Patterns {
		patterns[i] = rules.PatternToJSON(p)
	}
	return LineDTO{
		ID:       l.ID,
		BudgetID: l.BudgetID,
		Name:     l.Name,
		Kind:     string(l.Kind),
		Patterns: patterns,
	}
}

func toForecastDTO(b budget.Budget, res *forecast.Result) ForecastDTO {
	dto := ForecastDTO{
		BudgetID:        b.ID,
		StartingBalance: b.StartingBalance.Decimal(),
		Projections:     make([]MonthProjectionDTO, len(res.Projections)),
	}
	for i, mp := range res.Projections {
		dto.Projections[i] = MonthProjectionDTO{
			Month:        mp.Month.String(),
			StartBalance: mp.StartBalance.Decimal(),
			IncomeTotal:  mp.IncomeTotal.Decimal(),
			ExpenseTotal: mp.ExpenseTotal.Decimal(),
			EndBalance:   mp.EndBalance.Decimal(),
		}
	}
	if lp := res.LowestPoint; lp != nil {
		dto.LowestPoint = &LowestPointDTO{Month: lp.Month.String(), Balance: lp.Balance.Decimal()}
	}
	if e := res.NextLargeExpense; e != nil {
		dto.NextLargeExpense = &ExpenseDTO{
			Date:     e.Date,
			Amount:   e.Amount.Decimal(),
			LineID:   e.LineID,
			LineName: e.LineName,
		}
	}
	return dto
}
