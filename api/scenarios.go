/*
scenarios.go - Demo budget loaders for testing and demonstrations

PURPOSE:

	Provides pre-built budgets that exercise every recurrence grammar
	against the Danish calendar. Each load creates a fresh budget, so
	loading twice gives two independent copies.

AVAILABLE SCENARIOS:

	salaried-household: salary on the last bank day with a mid-year raise,
	                    rent, weekly groceries, yearly insurance, summer
	                    holiday budget
	freelancer:         invoices on a bank day, quarterly VAT periods,
	                    monthly preliminary tax, a one-off equipment purchase
	tight-month:        small buffer, large irregular expenses; the
	                    forecast's lowest point goes negative

HOW SCENARIOS WORK:
 1. Create the budget
 2. Parse each line's patterns from JSON via the rule factory
 3. Save the lines through the store (validation included)

All dates are relative to the handler clock's current year.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "freelancer"}

SEE ALSO:
  - handlers.go: budget and forecast endpoints
  - factory/rule.go: pattern JSON schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "salaried-household",
		Name:        "Salaried Household",
		Description: "Salary on the last bank day with a raise in June, rent, groceries, insurance",
	},
	{
		ID:          "freelancer",
		Name:        "Freelancer",
		Description: "Bank-day invoices, quarterly VAT, monthly preliminary tax, one-off purchase",
	},
	{
		ID:          "tight-month",
		Name:        "Tight Month",
		Description: "Small buffer with large irregular expenses; balance dips below zero",
	},
}

type scenarioLine struct {
	name     string
	kind     budget.LineKind
	patterns []string
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario creates the budget of a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	year := calendar.FromTime(h.Clock()).Year

	var (
		name    string
		balance budget.Amount
		lines   []scenarioLine
	)
	switch req.ScenarioID {
	case "salaried-household":
		name, balance, lines = "Household", 2_500_000, salariedHousehold(year)
	case "freelancer":
		name, balance, lines = "Freelance business", 6_000_000, freelancer(year)
	case "tight-month":
		name, balance, lines = "Tight month", 200_000, tightMonth(year)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	b, err := h.loadScenario(r.Context(), name, balance, lines)
	if err != nil {
		h.writeDomainError(w, r, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "budget_id", b.ID)
	writeJSON(w, http.StatusCreated, toBudgetDTO(b))
}

func (h *Handler) loadScenario(ctx context.Context, name string, balance budget.Amount, lines []scenarioLine) (budget.Budget, error) {
	b, err := h.Store.SaveBudget(ctx, budget.Budget{
		Name:            name,
		Country:         h.DefaultCountry,
		StartingBalance: balance,
	})
	if err != nil {
		return budget.Budget{}, err
	}

	for _, sl := range lines {
		line := budget.Line{BudgetID: b.ID, Name: sl.name, Kind: sl.kind}
		for _, jsonStr := range sl.patterns {
			p, err := h.Rules.ParsePattern(jsonStr)
			if err != nil {
				return budget.Budget{}, fmt.Errorf("line %q: %w", sl.name, err)
			}
			line.Patterns = append(line.Patterns, p)
		}
		if _, err := h.Store.SaveLine(ctx, line); err != nil {
			return budget.Budget{}, fmt.Errorf("line %q: %w", sl.name, err)
		}
	}
	return b, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func salariedHousehold(year int) []scenarioLine {
	return []scenarioLine{
		{"Salary", budget.KindIncome, []string{
			fmt.Sprintf(`{"amount":"32000","start_date":"%d-01-01","end_date":"%d-05-31",
				"rule":{"type":"monthly_bank_day","bank_day_number":1,"from_end":true}}`, year, year),
			fmt.Sprintf(`{"amount":"34000","start_date":"%d-06-01",
				"rule":{"type":"monthly_bank_day","bank_day_number":1,"from_end":true}}`, year),
		}},
		{"Rent", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-9500","start_date":"%d-01-01",
				"rule":{"type":"monthly_fixed","day_of_month":1,"bank_day_adjustment":"next"}}`, year),
		}},
		{"Groceries", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-1200","start_date":"%d-01-01",
				"rule":{"type":"weekly","weekday":4}}`, year),
		}},
		{"Car insurance", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-6400","start_date":"%d-01-01",
				"rule":{"type":"yearly","month":1,"day_of_month":15,"bank_day_adjustment":"next"}}`, year),
		}},
		{"Summer holiday", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-15000","start_date":"%d-01-01",
				"rule":{"type":"period_yearly","months":[7]}}`, year),
		}},
	}
}

func freelancer(year int) []scenarioLine {
	return []scenarioLine{
		{"Invoices", budget.KindIncome, []string{
			fmt.Sprintf(`{"amount":"45000","start_date":"%d-01-01",
				"rule":{"type":"monthly_bank_day","bank_day_number":5}}`, year),
		}},
		{"VAT", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-18000","start_date":"%d-03-01",
				"rule":{"type":"period_monthly","interval":3}}`, year),
		}},
		{"Preliminary tax", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-12000","start_date":"%d-01-01",
				"rule":{"type":"monthly_fixed","day_of_month":20,"bank_day_adjustment":"next"}}`, year),
		}},
		{"Software", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-450","start_date":"%d-01-01",
				"rule":{"type":"monthly_fixed","day_of_month":31}}`, year),
		}},
		{"Accountant", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-7500","start_date":"%d-01-01",
				"rule":{"type":"yearly_bank_day","month":4,"bank_day_number":1,"from_end":true}}`, year),
		}},
		{"Laptop", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-22000","start_date":"%d-09-12",
				"rule":{"type":"once","bank_day_adjustment":"previous"}}`, year),
		}},
	}
}

func tightMonth(year int) []scenarioLine {
	return []scenarioLine{
		{"Salary", budget.KindIncome, []string{
			fmt.Sprintf(`{"amount":"25000","start_date":"%d-01-01",
				"rule":{"type":"monthly_bank_day","bank_day_number":1,"from_end":true}}`, year),
		}},
		{"Rent", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-14000","start_date":"%d-01-01",
				"rule":{"type":"monthly_fixed","day_of_month":1}}`, year),
		}},
		{"Gym", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-300","start_date":"%d-01-01",
				"rule":{"type":"monthly_relative","weekday":0,"position":"first"}}`, year),
		}},
		{"Dentist", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-4800","start_date":"%d-01-01",
				"rule":{"type":"monthly_fixed","day_of_month":2,"interval":6}}`, year),
		}},
		{"Christmas", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-8000","start_date":"%d-01-01",
				"rule":{"type":"period_yearly","months":[12]}}`, year),
		}},
		{"Car repair", budget.KindExpense, []string{
			fmt.Sprintf(`{"amount":"-35000","start_date":"%d-03-10"}`, year),
		}},
	}
}
