package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/recurrence"
)

func TestParseRule_AllTypes(t *testing.T) {
	f := NewRuleFactory()
	cases := []struct {
		json string
		want recurrence.Rule
	}{
		{`{"type":"once","bank_day_adjustment":"previous"}`, recurrence.Once{Adjust: calendar.AdjustPrevious}},
		{`{"type":"daily","interval":3}`, recurrence.Daily{Interval: 3}},
		{`{"type":"weekly","weekday":4}`, recurrence.Weekly{Weekday: calendar.Friday, Interval: 1}},
		{`{"type":"weekly","weekday":0,"interval":2}`, recurrence.Weekly{Weekday: calendar.Monday, Interval: 2}},
		{`{"type":"monthly_fixed","day_of_month":31,"bank_day_adjustment":"next"}`, recurrence.MonthlyFixed{DayOfMonth: 31, Interval: 1, Adjust: calendar.AdjustNext}},
		{`{"type":"monthly_relative","weekday":1,"position":"last"}`, recurrence.MonthlyRelative{Weekday: calendar.Tuesday, Position: recurrence.Last, Interval: 1}},
		{`{"type":"monthly_bank_day","bank_day_number":21}`, recurrence.MonthlyBankDay{BankDayNumber: 21, Interval: 1}},
		{`{"type":"yearly","month":12,"day_of_month":24}`, recurrence.Yearly{Month: time.December, DayOfMonth: 24, Interval: 1}},
		{`{"type":"yearly","month":11,"weekday":3,"position":"fourth"}`, recurrence.Yearly{Month: time.November, Weekday: calendar.Thursday, Position: recurrence.Fourth, Interval: 1}},
		{`{"type":"yearly_bank_day","month":5,"bank_day_number":1,"from_end":true}`, recurrence.YearlyBankDay{Month: time.May, BankDayNumber: 1, FromEnd: true, Interval: 1}},
		{`{"type":"period_once"}`, recurrence.PeriodOnce{}},
		{`{"type":"period_monthly","interval":3}`, recurrence.PeriodMonthly{Interval: 3}},
		{`{"type":"period_yearly","months":[6,12]}`, recurrence.PeriodYearly{Months: []time.Month{time.June, time.December}, Interval: 1}},
		{`{"type":"lunar"}`, recurrence.Unknown{Type: "lunar"}},
	}
	for _, tc := range cases {
		t.Run(tc.json, func(t *testing.T) {
			got, err := f.ParseRule(tc.json)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRule_Errors(t *testing.T) {
	f := NewRuleFactory()

	_, err := f.ParseRule(`{"type":`)
	assert.Error(t, err)

	_, err = f.ParseRule(`{"interval":2}`)
	assert.ErrorIs(t, err, budget.ErrInvalidPattern)
}

func TestParseRule_MissingWeekdayIsInvalid(t *testing.T) {
	// GIVEN: a weekly rule without a weekday
	rule, err := NewRuleFactory().ParseRule(`{"type":"weekly"}`)
	require.NoError(t, err)

	// THEN: it decodes but does not validate
	assert.ErrorIs(t, recurrence.Validate(rule), recurrence.ErrInvalidRule)
}

func TestParseRule_ExplicitZeroIntervalIsKept(t *testing.T) {
	rule, err := NewRuleFactory().ParseRule(`{"type":"daily","interval":0}`)
	require.NoError(t, err)
	assert.Equal(t, recurrence.Daily{Interval: 0}, rule)
}

func TestRuleRoundTrip(t *testing.T) {
	f := NewRuleFactory()
	rules := []recurrence.Rule{
		recurrence.Once{Adjust: calendar.AdjustNext},
		recurrence.Weekly{Weekday: calendar.Monday, Interval: 2, Adjust: calendar.AdjustPrevious},
		recurrence.MonthlyRelative{Weekday: calendar.Friday, Position: recurrence.First, Interval: 1},
		recurrence.Yearly{Month: time.May, Weekday: calendar.Sunday, Position: recurrence.Second, Interval: 1},
		recurrence.YearlyBankDay{Month: time.December, BankDayNumber: 2, FromEnd: true, Interval: 1},
		recurrence.PeriodYearly{Months: []time.Month{time.March}, Interval: 2},
		recurrence.Unknown{Type: "lunar"},
	}
	for _, r := range rules {
		encoded, err := f.MarshalRule(r)
		require.NoError(t, err)
		decoded, err := f.ParseRule(encoded)
		require.NoError(t, err)
		assert.Equal(t, r, decoded, encoded)
	}
}

func TestToJSON_NilRuleIsOnce(t *testing.T) {
	rj := NewRuleFactory().ToJSON(nil)
	assert.Equal(t, "once", rj.Type)
}

// =============================================================================
// PATTERNS
// =============================================================================

func TestParsePattern(t *testing.T) {
	f := NewRuleFactory()

	p, err := f.ParsePattern(`{
		"amount": "-8000.50",
		"start_date": "2026-01-01",
		"end_date": "2026-12-31",
		"rule": {"type": "monthly_bank_day", "bank_day_number": 1, "from_end": true}
	}`)
	require.NoError(t, err)
	assert.Equal(t, budget.Amount(-800_050), p.Amount)
	assert.Equal(t, calendar.NewDate(2026, time.January, 1), p.StartDate)
	require.NotNil(t, p.EndDate)
	assert.Equal(t, calendar.NewDate(2026, time.December, 31), *p.EndDate)
	assert.Equal(t, recurrence.MonthlyBankDay{BankDayNumber: 1, FromEnd: true, Interval: 1}, p.Rule)
	assert.NoError(t, p.Validate())
}

func TestParsePattern_NumericAmountAndNoRule(t *testing.T) {
	p, err := NewRuleFactory().ParsePattern(`{"amount": 1500, "start_date": "2026-03-03"}`)
	require.NoError(t, err)
	assert.Equal(t, budget.Amount(150_000), p.Amount)
	assert.Nil(t, p.Rule)
	assert.Equal(t, recurrence.Once{}, p.RuleOrOnce())
}

func TestParsePattern_Errors(t *testing.T) {
	f := NewRuleFactory()
	bad := []string{
		`{"amount": "1.005", "start_date": "2026-01-01"}`,
		`{"amount": "10", "start_date": "01/01/2026"}`,
		`{"amount": "ten", "start_date": "2026-01-01"}`,
		`{"amount": "10", "start_date": "2026-01-01", "rule": {}}`,
	}
	for _, body := range bad {
		_, err := f.ParsePattern(body)
		assert.ErrorIs(t, err, budget.ErrInvalidPattern, body)
	}
}

func TestPatternToJSON(t *testing.T) {
	f := NewRuleFactory()
	p := budget.AmountPattern{
		ID:        "p1",
		Amount:    -125_050,
		StartDate: calendar.NewDate(2026, time.February, 1),
	}
	pj := f.PatternToJSON(p)
	assert.Equal(t, "-1250.5", pj.Amount.String())
	require.NotNil(t, pj.Rule)
	assert.Equal(t, "once", pj.Rule.Type)

	back, err := f.PatternFromJSON(pj)
	require.NoError(t, err)
	assert.Equal(t, p.Amount, back.Amount)
	assert.Equal(t, p.StartDate, back.StartDate)
	assert.Equal(t, recurrence.Once{}, back.Rule)
}
