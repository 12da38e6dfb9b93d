/*
Package calendar provides civil dates and the bank-day calendar.

PURPOSE:
  Everything in the cash-flow engine happens on civil dates: no time of
  day, no time zone. Date is a comparable value (usable as a map key) and
  Month labels one accounting period.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a year/month/day triple, always normalised
  - Month: a (year, month) period label with integer rollover arithmetic
  - Weekday: 0=Monday..6=Sunday, the convention used by recurrence rules

USAGE:
  d := calendar.NewDate(2026, time.January, 31)
  d.AddDays(1)             // 2026-02-01
  d.PeriodMonth().Next()   // 2026-02
  calendar.EndOfMonth(2026, time.February) // 2026-02-28

SEE ALSO:
  - bankday.go: bank-day queries built on these types
  - holidays.go: holiday registry and the Danish calendar
*/
package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE - Civil date, no time of day
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var (
	// MinDate and MaxDate bound every open-ended interval.
	MinDate = Date{Year: 1, Month: time.January, Day: 1}
	MaxDate = Date{Year: 9999, Month: time.December, Day: 31}
)

// NewDate builds a normalised date. Out-of-range values roll over the way
// time.Date does (Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime drops the clock part of t, keeping t's own calendar day.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current civil date in UTC.
func Today() Date {
	return FromTime(time.Now().UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for tests and constants.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool        { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool         { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return d.Compare(other) <= 0 }
func (d Date) AfterOrEqual(other Date) bool  { return d.Compare(other) >= 0 }
func (d Date) IsZero() bool                  { return d == Date{} }

// Arithmetic
func (d Date) AddDays(n int) Date { return NewDate(d.Year, d.Month, d.Day+n) }

// Properties
func (d Date) Weekday() Weekday   { return WeekdayOf(d.Time().Weekday()) }
func (d Date) IsWeekend() bool    { return d.Weekday() >= Saturday }
func (d Date) PeriodMonth() Month { return Month{Year: d.Year, Month: d.Month} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns to - from in whole days. Unix seconds rather than
// time.Duration, which saturates after about 292 years.
func DaysBetween(from, to Date) int {
	return int((to.Time().Unix() - from.Time().Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// MinOf and MaxOf pick the earlier/later of two dates.
func MinOf(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxOf(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) Date {
	return Date{Year: year, Month: month, Day: 1}
}

func EndOfMonth(year int, month time.Month) Date {
	return Date{Year: year, Month: month, Day: DaysIn(year, month)}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// =============================================================================
// MONTH - One accounting period
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month { return d.PeriodMonth() }

// AddMonths moves n months forward (or back for negative n). Plain integer
// arithmetic so no day-of-month clamping can leak in.
func (m Month) AddMonths(n int) Month {
	idx := m.Index() + n
	year := idx / 12
	mon := idx % 12
	if mon < 0 {
		mon += 12
		year--
	}
	return Month{Year: year, Month: time.Month(mon + 1)}
}

func (m Month) Next() Month { return m.AddMonths(1) }

// Index counts months since year 0; differences give month distances.
func (m Month) Index() int { return m.Year*12 + int(m.Month) - 1 }

func (m Month) First() Date { return StartOfMonth(m.Year, m.Month) }
func (m Month) Last() Date  { return EndOfMonth(m.Year, m.Month) }

// Overlaps reports whether any day of m lies in [from, to].
func (m Month) Overlaps(from, to Date) bool {
	return m.First().BeforeOrEqual(to) && m.Last().AfterOrEqual(from)
}

func (m Month) Before(other Month) bool { return m.Index() < other.Index() }
func (m Month) IsZero() bool            { return m == Month{} }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// =============================================================================
// WEEKDAY - Monday-first numbering
// =============================================================================

type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts from Go's Sunday-first numbering.
func WeekdayOf(wd time.Weekday) Weekday {
	return Weekday((int(wd) + 6) % 7)
}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

// Std converts to Go's Sunday-first numbering.
func (w Weekday) Std() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return w.Std().String()
}
