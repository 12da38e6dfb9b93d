/*
Package recurrence turns recurrence rules into concrete dates.

PURPOSE:
  A budget line says "when" with a small declarative rule: every second
  Friday, the last bank day of the month, the 31st (clamped), once per
  period. This package models every grammar as its own type and expands
  any of them over a closed date interval.

RULE GRAMMARS:
  Once            the anchor date itself
  Daily           every N days
  Weekly          every N weeks on a weekday
  MonthlyFixed    every N months on a day (clamped to month length)
  MonthlyRelative every N months on the first..fourth/last weekday
  MonthlyBankDay  every N months on the Nth bank day from start or end
  Yearly          every N years, fixed day or relative weekday in a month
  YearlyBankDay   every N years, Nth bank day of a month
  PeriodOnce      the single period (month) of the anchor
  PeriodMonthly   every N periods
  PeriodYearly    named periods every N years

  Date-based grammars carry a calendar.Adjustment applied after the raw
  date is computed. Bank-day and period grammars have none: the former
  already name a bank day, the latter are period markers.

SUM TYPE:
  Rule is a sealed interface. Every variant implements the unexported
  expand method, so a new grammar that is not wired into expansion does
  not compile.

SEE ALSO:
  - expand.go: Expander and the per-grammar algorithms
  - factory/rule.go: JSON codec for persisted rules
*/
package recurrence

import (
	"time"

	"github.com/warp/cashflow-engine/calendar"
)

// Kind names a grammar. It is also the "type" key of the JSON encoding.
type Kind string

const (
	KindOnce            Kind = "once"
	KindDaily           Kind = "daily"
	KindWeekly          Kind = "weekly"
	KindMonthlyFixed    Kind = "monthly_fixed"
	KindMonthlyRelative Kind = "monthly_relative"
	KindMonthlyBankDay  Kind = "monthly_bank_day"
	KindYearly          Kind = "yearly"
	KindYearlyBankDay   Kind = "yearly_bank_day"
	KindPeriodOnce      Kind = "period_once"
	KindPeriodMonthly   Kind = "period_monthly"
	KindPeriodYearly    Kind = "period_yearly"
)

// Rule is one recurrence grammar.
type Rule interface {
	Kind() Kind

	// SingleFire is true for grammars that produce at most one occurrence.
	SingleFire() bool

	expand(x *expansion) ([]calendar.Date, error)
}

// Position selects which weekday of a month a relative rule uses.
type Position string

const (
	First  Position = "first"
	Second Position = "second"
	Third  Position = "third"
	Fourth Position = "fourth"
	Last   Position = "last"
)

// Ordinal returns 1..4 for first..fourth, -1 for last and 0 otherwise.
func (p Position) Ordinal() int {
	switch p {
	case First:
		return 1
	case Second:
		return 2
	case Third:
		return 3
	case Fourth:
		return 4
	case Last:
		return -1
	}
	return 0
}

func (p Position) Valid() bool { return p.Ordinal() != 0 }

// =============================================================================
// DATE-BASED GRAMMARS
// =============================================================================

type Once struct {
	Adjust calendar.Adjustment
}

type Daily struct {
	Interval int
	Adjust   calendar.Adjustment
}

type Weekly struct {
	Weekday  calendar.Weekday
	Interval int
	Adjust   calendar.Adjustment
}

type MonthlyFixed struct {
	DayOfMonth int
	Interval   int
	Adjust     calendar.Adjustment
}

type MonthlyRelative struct {
	Weekday  calendar.Weekday
	Position Position
	Interval int
	Adjust   calendar.Adjustment
}

// Yearly fires in Month on either DayOfMonth (when > 0) or the
// Position'th Weekday. Setting both, or neither, is malformed.
type Yearly struct {
	Month      time.Month
	DayOfMonth int
	Weekday    calendar.Weekday
	Position   Position
	Interval   int
	Adjust     calendar.Adjustment
}

// Relative reports whether y uses the weekday/position form.
func (y Yearly) Relative() bool { return y.DayOfMonth == 0 }

// =============================================================================
// BANK-DAY GRAMMARS
// =============================================================================

type MonthlyBankDay struct {
	BankDayNumber int
	FromEnd       bool
	Interval      int
}

type YearlyBankDay struct {
	Month         time.Month
	BankDayNumber int
	FromEnd       bool
	Interval      int
}

// =============================================================================
// PERIOD GRAMMARS
// =============================================================================

type PeriodOnce struct{}

type PeriodMonthly struct {
	Interval int
}

type PeriodYearly struct {
	Months   []time.Month
	Interval int
}

// =============================================================================
// UNKNOWN
// =============================================================================

// Unknown holds a grammar this version does not understand. It expands to
// nothing.
type Unknown struct {
	Type string
}

func (Once) Kind() Kind            { return KindOnce }
func (Daily) Kind() Kind           { return KindDaily }
func (Weekly) Kind() Kind          { return KindWeekly }
func (MonthlyFixed) Kind() Kind    { return KindMonthlyFixed }
func (MonthlyRelative) Kind() Kind { return KindMonthlyRelative }
func (MonthlyBankDay) Kind() Kind  { return KindMonthlyBankDay }
func (Yearly) Kind() Kind          { return KindYearly }
func (YearlyBankDay) Kind() Kind   { return KindYearlyBankDay }
func (PeriodOnce) Kind() Kind      { return KindPeriodOnce }
func (PeriodMonthly) Kind() Kind   { return KindPeriodMonthly }
func (PeriodYearly) Kind() Kind    { return KindPeriodYearly }
func (u Unknown) Kind() Kind       { return Kind(u.Type) }

func (Once) SingleFire() bool            { return true }
func (Daily) SingleFire() bool           { return false }
func (Weekly) SingleFire() bool          { return false }
func (MonthlyFixed) SingleFire() bool    { return false }
func (MonthlyRelative) SingleFire() bool { return false }
func (MonthlyBankDay) SingleFire() bool  { return false }
func (Yearly) SingleFire() bool          { return false }
func (YearlyBankDay) SingleFire() bool   { return false }
func (PeriodOnce) SingleFire() bool      { return true }
func (PeriodMonthly) SingleFire() bool   { return false }
func (PeriodYearly) SingleFire() bool    { return false }
func (Unknown) SingleFire() bool         { return false }

// IsPeriod reports whether r fires on periods rather than dates.
func IsPeriod(r Rule) bool {
	switch r.(type) {
	case PeriodOnce, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// AdjustmentOf returns the bank-day adjustment a rule carries, or
// AdjustNone for grammars without one.
func AdjustmentOf(r Rule) calendar.Adjustment {
	switch v := r.(type) {
	case Once:
		return v.Adjust
	case Daily:
		return v.Adjust
	case Weekly:
		return v.Adjust
	case MonthlyFixed:
		return v.Adjust
	case MonthlyRelative:
		return v.Adjust
	case Yearly:
		return v.Adjust
	}
	return calendar.AdjustNone
}
