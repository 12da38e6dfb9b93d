/*
expand.go - Rule expansion

PURPOSE:
  Expands a Rule over a closed interval [from, to] into a sorted,
  de-duplicated list of dates.

ANCHOR:
  Interval cadence counts from an anchor date: "every 2 months" means
  the anchor's month, then every second month after it. Expand uses the
  range start as anchor. ExpandFrom takes an explicit anchor so cadence
  does not shift when the query window moves, as it does when a forecast
  asks for one month at a time. The merger passes the pattern's start
  date, except for Daily, which counts from the clipped range start.

LOOP SHAPE (all repeating grammars):
  1. Jump straight to the first period at or after the range start
  2. Check the period against the range end BEFORE computing anything
  3. Compute the raw date; skip it if it does not exist or lies outside
     [from, to]
  4. Apply the bank-day adjustment, then the range filter

DEGRADATION:
  Malformed rules (interval < 1, weekday out of range, Feb 31 as a yearly
  relative with no position, ...) and Unknown rules expand to nothing.
  Only calendar.ErrUnsupportedCountry is returned as an error, and only
  when the calendar is consulted: a rule with no bank-day adjustment and
  no bank-day counting expands without looking the country up.

EXAMPLE:
  x := recurrence.NewExpander(calendar.New(), calendar.Denmark)
  dates, _ := x.Expand(recurrence.Weekly{Weekday: calendar.Friday, Interval: 1},
      calendar.NewDate(2026, time.February, 1), calendar.NewDate(2026, time.February, 28))
  // 2026-02-06, 02-13, 02-20, 02-27
*/
package recurrence

import (
	"sort"
	"time"

	"github.com/warp/cashflow-engine/calendar"
)

// Expander expands rules against one country's bank-day calendar.
type Expander struct {
	Calendar *calendar.Calendar
	Country  calendar.Country
}

// NewExpander builds an Expander. A nil calendar uses calendar.New().
func NewExpander(cal *calendar.Calendar, country calendar.Country) *Expander {
	if cal == nil {
		cal = calendar.New()
	}
	return &Expander{Calendar: cal, Country: country}
}

// Expand returns every date rule fires on in [from, to], anchored at from.
func (e *Expander) Expand(rule Rule, from, to calendar.Date) ([]calendar.Date, error) {
	return e.ExpandFrom(rule, from, from, to)
}

// ExpandFrom returns every date rule fires on in [from, to], counting
// intervals from anchor. Period grammars return the first day of each
// period overlapping [from, to].
func (e *Expander) ExpandFrom(rule Rule, anchor, from, to calendar.Date) ([]calendar.Date, error) {
	if rule == nil || to.Before(from) {
		return nil, nil
	}
	cal := e.Calendar
	if cal == nil {
		cal = calendar.New()
	}
	x := &expansion{cal: cal, country: e.Country, anchor: anchor, from: from, to: to}
	dates, err := rule.expand(x)
	if err != nil {
		return nil, err
	}
	return normalize(dates), nil
}

// =============================================================================
// EXPANSION STATE
// =============================================================================

type expansion struct {
	cal     *calendar.Calendar
	country calendar.Country
	anchor  calendar.Date
	from    calendar.Date
	to      calendar.Date
	out     []calendar.Date
}

// emit keeps raw if both it and its adjusted date lie in [from, to]. A raw
// date outside the range never fires, even if it would adjust into it.
func (x *expansion) emit(raw calendar.Date, adj calendar.Adjustment) error {
	if raw.Before(x.from) || raw.After(x.to) {
		return nil
	}
	d, err := x.cal.AdjustToBankDay(raw, adj, x.country)
	if err != nil {
		return err
	}
	if d.AfterOrEqual(x.from) && d.BeforeOrEqual(x.to) {
		x.out = append(x.out, d)
	}
	return nil
}

// days walks start, start+step, ... clipped to [from, to].
func (x *expansion) days(start calendar.Date, step int, fn func(calendar.Date) error) error {
	if start.Before(x.from) {
		k := ceilDiv(calendar.DaysBetween(start, x.from), step)
		start = start.AddDays(k * step)
	}
	for d := start; !d.After(x.to); d = d.AddDays(step) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// months walks every interval'th month from the anchor's month that lies
// within the range's months.
func (x *expansion) months(interval int, fn func(calendar.Month) error) error {
	if interval < 1 {
		return nil
	}
	m := x.anchor.PeriodMonth()
	lo, hi := x.from.PeriodMonth(), x.to.PeriodMonth()
	if m.Before(lo) {
		k := ceilDiv(lo.Index()-m.Index(), interval)
		m = m.AddMonths(k * interval)
	}
	for ; !hi.Before(m); m = m.AddMonths(interval) {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// years walks every interval'th year from the anchor's year that lies
// within the range's years.
func (x *expansion) years(interval int, fn func(int) error) error {
	if interval < 1 {
		return nil
	}
	y := x.anchor.Year
	if y < x.from.Year {
		y += ceilDiv(x.from.Year-y, interval) * interval
	}
	for ; y <= x.to.Year; y += interval {
		if err := fn(y); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DATE-BASED GRAMMARS
// =============================================================================

func (r Once) expand(x *expansion) ([]calendar.Date, error) {
	if !r.Adjust.Valid() {
		return nil, nil
	}
	err := x.emit(x.anchor, r.Adjust)
	return x.out, err
}

func (r Daily) expand(x *expansion) ([]calendar.Date, error) {
	if r.Interval < 1 || !r.Adjust.Valid() {
		return nil, nil
	}
	err := x.days(x.anchor, r.Interval, func(d calendar.Date) error {
		return x.emit(d, r.Adjust)
	})
	return x.out, err
}

func (r Weekly) expand(x *expansion) ([]calendar.Date, error) {
	if r.Interval < 1 || !r.Weekday.Valid() || !r.Adjust.Valid() {
		return nil, nil
	}
	shift := (int(r.Weekday) - int(x.anchor.Weekday()) + 7) % 7
	first := x.anchor.AddDays(shift)
	err := x.days(first, 7*r.Interval, func(d calendar.Date) error {
		return x.emit(d, r.Adjust)
	})
	return x.out, err
}

func (r MonthlyFixed) expand(x *expansion) ([]calendar.Date, error) {
	if r.DayOfMonth < 1 || r.DayOfMonth > 31 || !r.Adjust.Valid() {
		return nil, nil
	}
	err := x.months(r.Interval, func(m calendar.Month) error {
		return x.emit(clampedDay(m.Year, m.Month, r.DayOfMonth), r.Adjust)
	})
	return x.out, err
}

func (r MonthlyRelative) expand(x *expansion) ([]calendar.Date, error) {
	if !r.Weekday.Valid() || !r.Position.Valid() || !r.Adjust.Valid() {
		return nil, nil
	}
	err := x.months(r.Interval, func(m calendar.Month) error {
		raw, ok := relativeDay(m.Year, m.Month, r.Weekday, r.Position)
		if !ok {
			return nil
		}
		return x.emit(raw, r.Adjust)
	})
	return x.out, err
}

func (r Yearly) expand(x *expansion) ([]calendar.Date, error) {
	if r.Month < time.January || r.Month > time.December || !r.Adjust.Valid() {
		return nil, nil
	}
	switch {
	case r.DayOfMonth < 0 || r.DayOfMonth > 31:
		return nil, nil
	case r.Relative() && (!r.Position.Valid() || !r.Weekday.Valid()):
		return nil, nil
	case !r.Relative() && r.Position != "":
		return nil, nil
	}

	err := x.years(r.Interval, func(year int) error {
		if r.Relative() {
			raw, ok := relativeDay(year, r.Month, r.Weekday, r.Position)
			if !ok {
				return nil
			}
			return x.emit(raw, r.Adjust)
		}
		return x.emit(clampedDay(year, r.Month, r.DayOfMonth), r.Adjust)
	})
	return x.out, err
}

// =============================================================================
// BANK-DAY GRAMMARS
// =============================================================================

func (r MonthlyBankDay) expand(x *expansion) ([]calendar.Date, error) {
	if r.BankDayNumber < 1 {
		return nil, nil
	}
	err := x.months(r.Interval, func(m calendar.Month) error {
		return x.bankDay(m.Year, m.Month, r.BankDayNumber, r.FromEnd)
	})
	return x.out, err
}

func (r YearlyBankDay) expand(x *expansion) ([]calendar.Date, error) {
	if r.BankDayNumber < 1 || r.Month < time.January || r.Month > time.December {
		return nil, nil
	}
	err := x.years(r.Interval, func(year int) error {
		return x.bankDay(year, r.Month, r.BankDayNumber, r.FromEnd)
	})
	return x.out, err
}

// bankDay emits the nth bank day of a month, skipping months that are
// too short. No adjustment: the result already is a bank day.
func (x *expansion) bankDay(year int, month time.Month, n int, fromEnd bool) error {
	d, ok, err := x.cal.NthBankDayInMonth(year, month, n, fromEnd, x.country)
	if err != nil || !ok {
		return err
	}
	return x.emit(d, calendar.AdjustNone)
}

// =============================================================================
// PERIOD GRAMMARS
// =============================================================================

func (PeriodOnce) expand(x *expansion) ([]calendar.Date, error) {
	m := x.anchor.PeriodMonth()
	if m.Overlaps(x.from, x.to) {
		return []calendar.Date{m.First()}, nil
	}
	return nil, nil
}

func (r PeriodMonthly) expand(x *expansion) ([]calendar.Date, error) {
	err := x.months(r.Interval, func(m calendar.Month) error {
		x.out = append(x.out, m.First())
		return nil
	})
	return x.out, err
}

func (r PeriodYearly) expand(x *expansion) ([]calendar.Date, error) {
	if len(r.Months) == 0 {
		return nil, nil
	}
	for _, mon := range r.Months {
		if mon < time.January || mon > time.December {
			return nil, nil
		}
	}
	start := x.anchor.PeriodMonth()
	err := x.years(r.Interval, func(year int) error {
		for _, mon := range r.Months {
			m := calendar.Month{Year: year, Month: mon}
			if m.Before(start) || !m.Overlaps(x.from, x.to) {
				continue
			}
			x.out = append(x.out, m.First())
		}
		return nil
	})
	return x.out, err
}

func (Unknown) expand(*expansion) ([]calendar.Date, error) {
	return nil, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// clampedDay builds year-month-day, clamping day to the month's length.
func clampedDay(year int, month time.Month, day int) calendar.Date {
	if n := calendar.DaysIn(year, month); day > n {
		day = n
	}
	return calendar.Date{Year: year, Month: month, Day: day}
}

// relativeDay finds the pos'th weekday of a month. ok is false if the
// result would spill into the next month.
func relativeDay(year int, month time.Month, wd calendar.Weekday, pos Position) (calendar.Date, bool) {
	if pos == Last {
		d := calendar.EndOfMonth(year, month)
		back := (int(d.Weekday()) - int(wd) + 7) % 7
		return d.AddDays(-back), true
	}

	first := calendar.StartOfMonth(year, month)
	shift := (int(wd) - int(first.Weekday()) + 7) % 7
	d := first.AddDays(shift + 7*(pos.Ordinal()-1))
	if d.Month != month {
		return calendar.Date{}, false
	}
	return d, true
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// normalize sorts dates and drops duplicates, which appear when two raw
// dates adjust onto the same bank day.
func normalize(dates []calendar.Date) []calendar.Date {
	if len(dates) == 0 {
		return nil
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	out := dates[:1]
	for _, d := range dates[1:] {
		if d != out[len(out)-1] {
			out = append(out, d)
		}
	}
	return out
}
