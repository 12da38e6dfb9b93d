/*
bankday.go - Bank-day queries

PURPOSE:
  Answers "is this a bank day", "move to the nearest bank day" and "which
  date is the Nth bank day of this month" for a registered country.

KEY RULE (AdjustToBankDay):
  next/previous scan one day at a time until a bank day is found. If the
  scan leaves the original month, the opposite scan is used instead, so an
  adjusted date never changes month:

    Sat 2026-01-31, next -> Mon 2026-02-02 (other month) -> Fri 2026-01-30

CACHING:
  Holiday sets are memoised per (country, year) in a bounded LRU. The
  computation is pure, so concurrent misses only cost a recomputation.

USAGE:
  cal := calendar.New()
  ok, err := cal.IsBankDay(calendar.NewDate(2026, time.April, 3), calendar.Denmark)
  // ok == false (Good Friday)
*/
package calendar

import "time"

// Adjustment is the direction a non-bank day moves in.
type Adjustment string

const (
	AdjustNone     Adjustment = "none"
	AdjustNext     Adjustment = "next"
	AdjustPrevious Adjustment = "previous"
)

// Valid reports whether a is a known adjustment. The empty value counts as
// none.
func (a Adjustment) Valid() bool {
	switch a {
	case "", AdjustNone, AdjustNext, AdjustPrevious:
		return true
	}
	return false
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar answers bank-day questions. The zero value is not usable; call
// New.
type Calendar struct {
	registry *Registry
	cache    *holidayCache
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithRegistry uses r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(c *Calendar) { c.registry = r }
}

// WithCacheSize bounds the holiday cache to n years.
func WithCacheSize(n int) Option {
	return func(c *Calendar) { c.cache = newHolidayCache(n) }
}

func New(opts ...Option) *Calendar {
	c := &Calendar{registry: defaultRegistry}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = newHolidayCache(DefaultCacheSize)
	}
	return c
}

// Supports returns an *UnsupportedCountryError when country has no
// registered holiday calendar.
func (c *Calendar) Supports(country Country) error {
	_, err := c.registry.Lookup(country)
	return err
}

// Countries lists the countries this calendar can answer for.
func (c *Calendar) Countries() []Country {
	return c.registry.Countries()
}

// Holidays returns the public holidays of year in country, sorted by date.
// The returned slice is a copy.
func (c *Calendar) Holidays(year int, country Country) ([]Holiday, error) {
	yh, err := c.holidays(year, country)
	if err != nil {
		return nil, err
	}
	out := make([]Holiday, len(yh.list))
	copy(out, yh.list)
	return out, nil
}

func (c *Calendar) holidays(year int, country Country) (*yearHolidays, error) {
	key := cacheKey{country: country, year: year}
	if yh, ok := c.cache.get(key); ok {
		return yh, nil
	}

	fn, err := c.registry.Lookup(country)
	if err != nil {
		return nil, err
	}

	list := fn(year)
	yh := &yearHolidays{list: list, set: make(map[Date]struct{}, len(list))}
	for _, h := range list {
		yh.set[h.Date] = struct{}{}
	}
	c.cache.set(key, yh)
	return yh, nil
}

// IsHoliday reports whether d is a public holiday.
func (c *Calendar) IsHoliday(d Date, country Country) (bool, error) {
	yh, err := c.holidays(d.Year, country)
	if err != nil {
		return false, err
	}
	_, ok := yh.set[d]
	return ok, nil
}

// IsBankDay is true for Monday-Friday dates that are not public holidays.
func (c *Calendar) IsBankDay(d Date, country Country) (bool, error) {
	holiday, err := c.IsHoliday(d, country)
	if err != nil {
		return false, err
	}
	return !d.IsWeekend() && !holiday, nil
}

// NextBankDay returns d if it is a bank day, otherwise the first bank day
// after it. May cross month and year boundaries.
func (c *Calendar) NextBankDay(d Date, country Country) (Date, error) {
	return c.scan(d, 1, country)
}

// PreviousBankDay returns d if it is a bank day, otherwise the last bank
// day before it.
func (c *Calendar) PreviousBankDay(d Date, country Country) (Date, error) {
	return c.scan(d, -1, country)
}

func (c *Calendar) scan(d Date, step int, country Country) (Date, error) {
	for {
		ok, err := c.IsBankDay(d, country)
		if err != nil {
			return Date{}, err
		}
		if ok {
			return d, nil
		}
		d = d.AddDays(step)
	}
}

// AdjustToBankDay moves d to a bank day in the given direction, falling
// back to the opposite direction when the first scan leaves d's month.
func (c *Calendar) AdjustToBankDay(d Date, adj Adjustment, country Country) (Date, error) {
	var primary, fallback int
	switch adj {
	case AdjustNext:
		primary, fallback = 1, -1
	case AdjustPrevious:
		primary, fallback = -1, 1
	default:
		return d, nil
	}

	adjusted, err := c.scan(d, primary, country)
	if err != nil {
		return Date{}, err
	}
	if adjusted.PeriodMonth() == d.PeriodMonth() {
		return adjusted, nil
	}
	return c.scan(d, fallback, country)
}

// NthBankDayInMonth counts bank days from the first of the month, or back
// from the last day when fromEnd is set. ok is false when the month has
// fewer than n bank days; callers skip that period.
func (c *Calendar) NthBankDayInMonth(year int, month time.Month, n int, fromEnd bool, country Country) (Date, bool, error) {
	if n < 1 || month < time.January || month > time.December {
		return Date{}, false, nil
	}
	// Resolve the country up front so an unknown code fails even for n
	// larger than any month.
	if _, err := c.holidays(year, country); err != nil {
		return Date{}, false, err
	}

	d, step := StartOfMonth(year, month), 1
	if fromEnd {
		d, step = EndOfMonth(year, month), -1
	}

	count := 0
	for d.Month == month {
		ok, err := c.IsBankDay(d, country)
		if err != nil {
			return Date{}, false, err
		}
		if ok {
			count++
			if count == n {
				return d, true, nil
			}
		}
		d = d.AddDays(step)
	}
	return Date{}, false, nil
}
