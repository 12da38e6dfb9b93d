package budget

import (
	"errors"
	"fmt"

	"github.com/warp/cashflow-engine/recurrence"
)

// Validate enforces the data-layer invariants of a pattern. The merger
// never calls it.
func (p AmountPattern) Validate() error {
	return p.validate(0)
}

func (p AmountPattern) validate(index int) error {
	if p.StartDate.IsZero() {
		return &PatternError{Index: index, Field: "start_date", Reason: "is required"}
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return &PatternError{Index: index, Field: "end_date", Reason: "must not be before start_date"}
	}
	rule := p.RuleOrOnce()
	if rule.SingleFire() && p.EndDate != nil {
		return &PatternError{Index: index, Field: "end_date", Reason: "must be empty for " + string(rule.Kind())}
	}
	if err := recurrence.Validate(rule); err != nil {
		return &PatternError{Index: index, Err: err}
	}
	return nil
}

// Validate checks the line's metadata and every pattern, reporting all
// failures.
func (l Line) Validate() error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, fmt.Errorf("%w: line name is required", ErrInvalidPattern))
	}
	if l.Kind != "" && !l.Kind.Valid() {
		errs = append(errs, fmt.Errorf("%w: line kind %q must be income, expense or transfer", ErrInvalidPattern, l.Kind))
	}
	for i, p := range l.Patterns {
		if err := p.validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks a budget's required fields.
func (b Budget) Validate() error {
	if b.Name == "" || b.Country == "" {
		return ErrInvalidBudget
	}
	return nil
}
