/*
Package budget holds budget lines and merges their amount patterns into
dated occurrences.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: integer minor currency units (øre, cents)
  - AmountPattern: an amount, a validity window and a recurrence rule
  - Line: one planned income/expense item made of patterns
  - Occurrence: a (date, amount) event produced by expansion

PATTERN HISTORY:
  A line's patterns describe its history and future:

    Salary: 32,000.00 from 2025-01-01 to 2026-05-31, monthly last bank day
            34,500.00 from 2026-06-01,                monthly last bank day

  Windows may overlap or leave gaps; the merger does not care.

SEE ALSO:
  - merge.go: Merger
  - store.go: persistence interface used by the API
  - recurrence: the rule grammars
*/
package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/recurrence"
)

// =============================================================================
// AMOUNT - Minor currency units
// =============================================================================

type Amount int64

// minorExp is the exponent between minor and major units (100 øre = 1 kr).
const minorExp = 2

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorExp)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(minorExp)
}

func (a Amount) IsIncome() bool  { return a > 0 }
func (a Amount) IsExpense() bool { return a < 0 }

// ParseAmount converts a major-unit string ("-1250.50") to minor units.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts major units to minor units. More than two decimal
// places is an error rather than a silent rounding.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(minorExp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", d, minorExp)
	}
	return Amount(minor.IntPart()), nil
}

// =============================================================================
// AMOUNT PATTERN
// =============================================================================

// AmountPattern is a time-bounded amount with a recurrence rule. A nil
// Rule behaves like recurrence.Once. A nil EndDate is unbounded.
type AmountPattern struct {
	ID        string
	Amount    Amount
	StartDate calendar.Date
	EndDate   *calendar.Date
	Rule      recurrence.Rule
}

// End returns the last day the pattern can fire.
func (p AmountPattern) End() calendar.Date {
	if p.EndDate == nil {
		return calendar.MaxDate
	}
	return *p.EndDate
}

// RuleOrOnce returns the pattern's rule, defaulting to Once.
func (p AmountPattern) RuleOrOnce() recurrence.Rule {
	if p.Rule == nil {
		return recurrence.Once{}
	}
	return p.Rule
}

// Overlaps reports whether the validity window intersects [from, to].
func (p AmountPattern) Overlaps(from, to calendar.Date) bool {
	return p.StartDate.BeforeOrEqual(to) && p.End().AfterOrEqual(from)
}

// =============================================================================
// LINE
// =============================================================================

type LineKind string

const (
	KindIncome   LineKind = "income"
	KindExpense  LineKind = "expense"
	KindTransfer LineKind = "transfer"
)

func (k LineKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// Line is one planned income/expense/transfer item.
type Line struct {
	ID        string
	BudgetID  string
	Name      string
	Kind      LineKind
	Patterns  []AmountPattern
	CreatedAt time.Time
}

// Budget owns lines and the starting balance a forecast begins from.
type Budget struct {
	ID              string
	Name            string
	Country         calendar.Country
	StartingBalance Amount
	CreatedAt       time.Time
}

// =============================================================================
// OCCURRENCE
// =============================================================================

type Occurrence struct {
	Date   calendar.Date
	Amount Amount
}

// Totals splits occurrences into income (> 0) and expense (< 0) sums.
func Totals(occurrences []Occurrence) (income, expense Amount) {
	for _, o := range occurrences {
		switch {
		case o.Amount.IsIncome():
			income += o.Amount
		case o.Amount.IsExpense():
			expense += o.Amount
		}
	}
	return income, expense
}
