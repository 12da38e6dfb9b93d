/*
Package factory converts JSON rule and pattern definitions to Go types.

PURPOSE:
  Recurrence rules live as JSON in two places: API request bodies and the
  rule_json column of the SQLite store. The factory maps that JSON onto
  the recurrence.Rule sum type and back, keyed by the "type" field.

JSON SCHEMA:
  {
    "amount": "-8000.00",
    "start_date": "2026-01-01",
    "end_date": "2026-12-31",
    "rule": {
      "type": "monthly_bank_day",
      "interval": 1,
      "bank_day_number": 1,
      "from_end": true
    }
  }

  Rule fields by type:
    once              bank_day_adjustment
    daily             interval, bank_day_adjustment
    weekly            weekday (0=Monday), interval, bank_day_adjustment
    monthly_fixed     day_of_month, interval, bank_day_adjustment
    monthly_relative  weekday, position, interval, bank_day_adjustment
    monthly_bank_day  bank_day_number, from_end, interval
    yearly            month, day_of_month | weekday+position, interval,
                      bank_day_adjustment
    yearly_bank_day   month, bank_day_number, from_end, interval
    period_once       (none)
    period_monthly    interval
    period_yearly     months, interval

DEFAULTS:
  - A missing "rule" means once
  - A missing "interval" means 1
  - An unrecognized "type" becomes recurrence.Unknown, which expands to
    nothing; the store's validation rejects it on write

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(`{"type":"weekly","weekday":4}`)
  pattern, err := f.ParsePattern(body)
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/recurrence"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a recurrence rule.
type RuleJSON struct {
	Type          string `json:"type"`
	Interval      *int   `json:"interval,omitempty"`
	Weekday       *int   `json:"weekday,omitempty"` // 0=Monday ... 6=Sunday
	Position      string `json:"position,omitempty"`
	DayOfMonth    int    `json:"day_of_month,omitempty"`
	Month         int    `json:"month,omitempty"`
	Months        []int  `json:"months,omitempty"`
	BankDayNumber int    `json:"bank_day_number,omitempty"`
	FromEnd       bool   `json:"from_end,omitempty"`
	Adjustment    string `json:"bank_day_adjustment,omitempty"`
}

// PatternJSON is the JSON representation of an amount pattern. Amount is
// in major units.
type PatternJSON struct {
	ID        string          `json:"id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	StartDate calendar.Date   `json:"start_date"`
	EndDate   *calendar.Date  `json:"end_date,omitempty"`
	Rule      *RuleJSON       `json:"rule,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts between JSON and recurrence rules.
type RuleFactory struct{}

func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON string into a Rule.
func (f *RuleFactory) ParseRule(jsonStr string) (recurrence.Rule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RuleJSON to a Rule. It does not validate field
// ranges; recurrence.Validate does that.
func (f *RuleFactory) FromJSON(rj RuleJSON) (recurrence.Rule, error) {
	if rj.Type == "" {
		return nil, fmt.Errorf("%w: rule type is required", budget.ErrInvalidPattern)
	}

	interval := 1
	if rj.Interval != nil {
		interval = *rj.Interval
	}
	weekday := calendar.Weekday(-1)
	if rj.Weekday != nil {
		weekday = calendar.Weekday(*rj.Weekday)
	}
	adjust := calendar.Adjustment(rj.Adjustment)
	position := recurrence.Position(rj.Position)

	switch recurrence.Kind(rj.Type) {
	case recurrence.KindOnce:
		return recurrence.Once{Adjust: adjust}, nil
	case recurrence.KindDaily:
		return recurrence.Daily{Interval: interval, Adjust: adjust}, nil
	case recurrence.KindWeekly:
		return recurrence.Weekly{Weekday: weekday, Interval: interval, Adjust: adjust}, nil
	case recurrence.KindMonthlyFixed:
		return recurrence.MonthlyFixed{DayOfMonth: rj.DayOfMonth, Interval: interval, Adjust: adjust}, nil
	case recurrence.KindMonthlyRelative:
		return recurrence.MonthlyRelative{Weekday: weekday, Position: position, Interval: interval, Adjust: adjust}, nil
	case recurrence.KindMonthlyBankDay:
		return recurrence.MonthlyBankDay{BankDayNumber: rj.BankDayNumber, FromEnd: rj.FromEnd, Interval: interval}, nil
	case recurrence.KindYearly:
		y := recurrence.Yearly{Month: time.Month(rj.Month), DayOfMonth: rj.DayOfMonth, Interval: interval, Adjust: adjust}
		if rj.DayOfMonth == 0 {
			y.Weekday = weekday
			y.Position = position
		}
		return y, nil
	case recurrence.KindYearlyBankDay:
		return recurrence.YearlyBankDay{Month: time.Month(rj.Month), BankDayNumber: rj.BankDayNumber, FromEnd: rj.FromEnd, Interval: interval}, nil
	case recurrence.KindPeriodOnce:
		return recurrence.PeriodOnce{}, nil
	case recurrence.KindPeriodMonthly:
		return recurrence.PeriodMonthly{Interval: interval}, nil
	case recurrence.KindPeriodYearly:
		months := make([]time.Month, len(rj.Months))
		for i, m := range rj.Months {
			months[i] = time.Month(m)
		}
		return recurrence.PeriodYearly{Months: months, Interval: interval}, nil
	default:
		return recurrence.Unknown{Type: rj.Type}, nil
	}
}

// ToJSON converts a Rule to RuleJSON. A nil rule encodes as once.
func (f *RuleFactory) ToJSON(rule recurrence.Rule) RuleJSON {
	if rule == nil {
		rule = recurrence.Once{}
	}
	rj := RuleJSON{Type: string(rule.Kind())}

	switch r := rule.(type) {
	case recurrence.Once:
		rj.Adjustment = adjustmentJSON(r.Adjust)
	case recurrence.Daily:
		rj.Interval = intPtr(r.Interval)
		rj.Adjustment = adjustmentJSON(r.Adjust)
	case recurrence.Weekly:
		rj.Weekday = intPtr(int(r.Weekday))
		rj.Interval = intPtr(r.Interval)
		rj.Adjustment = adjustmentJSON(r.Adjust)
	case recurrence.MonthlyFixed:
		rj.DayOfMonth = r.DayOfMonth
		rj.Interval = intPtr(r.Interval)
		rj.Adjustment = adjustmentJSON(r.Adjust)
	case recurrence.MonthlyRelative:
		rj.Weekday = intPtr(int(r.Weekday))
		rj.Position = string(r.Position)
		rj.Interval = intPtr(r.Interval)
		rj.Adjustment = adjustmentJSON(r.Adjust)
	case recurrence.MonthlyBankDay:
		rj.BankDayNumber = r.BankDayNumber
		rj.FromEnd = r.FromEnd
		rj.Interval = intPtr(r.Interval)
	case recurrence.Yearly:
		rj.Month = int(r.Month)
		rj.Interval = intPtr(r.Interval)
		rj.Adjustment = adjustmentJSON(r.Adjust)
		if r.Relative() {
			rj.Weekday = intPtr(int(r.Weekday))
			rj.Position = string(r.Position)
		} else {
			rj.DayOfMonth = r.DayOfMonth
		}
	case recurrence.YearlyBankDay:
		rj.Month = int(r.Month)
		rj.BankDayNumber = r.BankDayNumber
		rj.FromEnd = r.FromEnd
		rj.Interval = intPtr(r.Interval)
	case recurrence.PeriodMonthly:
		rj.Interval = intPtr(r.Interval)
	case recurrence.PeriodYearly:
		rj.Interval = intPtr(r.Interval)
		for _, m := range r.Months {
			rj.Months = append(rj.Months, int(m))
		}
	}
	return rj
}

// MarshalRule encodes a rule for storage.
func (f *RuleFactory) MarshalRule(rule recurrence.Rule) (string, error) {
	data, err := json.Marshal(f.ToJSON(rule))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// =============================================================================
// PATTERNS
// =============================================================================

// ParsePattern parses a JSON string into an AmountPattern. Decode
// failures wrap budget.ErrInvalidPattern.
func (f *RuleFactory) ParsePattern(jsonStr string) (budget.AmountPattern, error) {
	var pj PatternJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return budget.AmountPattern{}, fmt.Errorf("%w: %v", budget.ErrInvalidPattern, err)
	}
	return f.PatternFromJSON(pj)
}

// PatternFromJSON converts PatternJSON to an AmountPattern.
func (f *RuleFactory) PatternFromJSON(pj PatternJSON) (budget.AmountPattern, error) {
	amount, err := budget.FromDecimal(pj.Amount)
	if err != nil {
		return budget.AmountPattern{}, fmt.Errorf("%w: %v", budget.ErrInvalidPattern, err)
	}

	p := budget.AmountPattern{
		ID:        pj.ID,
		Amount:    amount,
		StartDate: pj.StartDate,
		EndDate:   pj.EndDate,
	}
	if pj.Rule != nil {
		rule, err := f.FromJSON(*pj.Rule)
		if err != nil {
			return budget.AmountPattern{}, err
		}
		p.Rule = rule
	}
	return p, nil
}

// PatternToJSON converts an AmountPattern to PatternJSON.
func (f *RuleFactory) PatternToJSON(p budget.AmountPattern) PatternJSON {
	rj := f.ToJSON(p.RuleOrOnce())
	return PatternJSON{
		ID:        p.ID,
		Amount:    p.Amount.Decimal(),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Rule:      &rj,
	}
}

func intPtr(v int) *int { return &v }

// adjustmentJSON drops the default so encoded rules stay minimal.
func adjustmentJSON(a calendar.Adjustment) string {
	if a == calendar.AdjustNone {
		return ""
	}
	return string(a)
}
