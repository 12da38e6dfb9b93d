package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/cashflow-engine/calendar"
)

// ErrInvalidRule is wrapped by every Validate failure.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// RuleError names the offending field of a rule.
type RuleError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *RuleError) Unwrap() error { return ErrInvalidRule }

// Validate checks a rule the way the data layer does before storing it.
// Expansion never calls this: it degrades malformed rules to nothing.
func Validate(r Rule) error {
	switch v := r.(type) {
	case nil:
		return &RuleError{Kind: "", Field: "type", Reason: "is required"}
	case Once:
		return checkAdjust(v.Kind(), v.Adjust)
	case Daily:
		return firstErr(
			checkInterval(v.Kind(), v.Interval),
			checkAdjust(v.Kind(), v.Adjust),
		)
	case Weekly:
		return firstErr(
			checkWeekday(v.Kind(), v.Weekday),
			checkInterval(v.Kind(), v.Interval),
			checkAdjust(v.Kind(), v.Adjust),
		)
	case MonthlyFixed:
		return firstErr(
			checkDay(v.Kind(), v.DayOfMonth),
			checkInterval(v.Kind(), v.Interval),
			checkAdjust(v.Kind(), v.Adjust),
		)
	case MonthlyRelative:
		return firstErr(
			checkWeekday(v.Kind(), v.Weekday),
			checkPosition(v.Kind(), v.Position),
			checkInterval(v.Kind(), v.Interval),
			checkAdjust(v.Kind(), v.Adjust),
		)
	case MonthlyBankDay:
		return firstErr(
			checkBankDay(v.Kind(), v.BankDayNumber),
			checkInterval(v.Kind(), v.Interval),
		)
	case Yearly:
		var form error
		switch {
		case v.DayOfMonth != 0 && v.Position != "":
			form = &RuleError{Kind: v.Kind(), Field: "day_of_month", Reason: "and position are mutually exclusive"}
		case v.DayOfMonth != 0:
			form = checkDay(v.Kind(), v.DayOfMonth)
		default:
			form = firstErr(checkWeekday(v.Kind(), v.Weekday), checkPosition(v.Kind(), v.Position))
		}
		return firstErr(
			checkMonth(v.Kind(), v.Month),
			form,
			checkInterval(v.Kind(), v.Interval),
			checkAdjust(v.Kind(), v.Adjust),
		)
	case YearlyBankDay:
		return firstErr(
			checkMonth(v.Kind(), v.Month),
			checkBankDay(v.Kind(), v.BankDayNumber),
			checkInterval(v.Kind(), v.Interval),
		)
	case PeriodOnce:
		return nil
	case PeriodMonthly:
		return checkInterval(v.Kind(), v.Interval)
	case PeriodYearly:
		if len(v.Months) == 0 {
			return &RuleError{Kind: v.Kind(), Field: "months", Reason: "must not be empty"}
		}
		for _, m := range v.Months {
			if err := checkMonth(v.Kind(), m); err != nil {
				return err
			}
		}
		return checkInterval(v.Kind(), v.Interval)
	case Unknown:
		return &RuleError{Kind: v.Kind(), Field: "type", Reason: "is not supported"}
	default:
		return &RuleError{Kind: r.Kind(), Field: "type", Reason: "is not supported"}
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkInterval(k Kind, n int) error {
	if n < 1 {
		return &RuleError{Kind: k, Field: "interval", Reason: "must be at least 1"}
	}
	return nil
}

func checkWeekday(k Kind, wd calendar.Weekday) error {
	if !wd.Valid() {
		return &RuleError{Kind: k, Field: "weekday", Reason: "must be 0 (Monday) to 6 (Sunday)"}
	}
	return nil
}

func checkDay(k Kind, day int) error {
	if day < 1 || day > 31 {
		return &RuleError{Kind: k, Field: "day_of_month", Reason: "must be 1 to 31"}
	}
	return nil
}

func checkMonth(k Kind, m time.Month) error {
	if m < time.January || m > time.December {
		return &RuleError{Kind: k, Field: "month", Reason: "must be 1 to 12"}
	}
	return nil
}

func checkPosition(k Kind, p Position) error {
	if !p.Valid() {
		return &RuleError{Kind: k, Field: "position", Reason: "must be first, second, third, fourth or last"}
	}
	return nil
}

func checkBankDay(k Kind, n int) error {
	if n < 1 {
		return &RuleError{Kind: k, Field: "bank_day_number", Reason: "must be at least 1"}
	}
	return nil
}

func checkAdjust(k Kind, a calendar.Adjustment) error {
	if !a.Valid() {
		return &RuleError{Kind: k, Field: "bank_day_adjustment", Reason: "must be none, next or previous"}
	}
	return nil
}
