/*
holidays.go - Holiday registry and the Danish calendar

PURPOSE:
  Public holidays are computed, never read from a table: a table drifts,
  an algorithm is evergreen. Each country registers a HolidayFunc that is a
  pure function of the year.

HOW IT WORKS:
  1. Country calendars register themselves on init()
  2. Calendar looks the country up in its Registry
  3. Unknown countries fail with ErrUnsupportedCountry

DANISH CALENDAR:
  Fixed:   Jan 1, Jun 5 (Constitution Day), Dec 25, Dec 26
  Movable: offsets from Easter Sunday
           Maundy Thursday -3, Good Friday -2, Easter Sunday 0,
           Easter Monday +1, Ascension +39, Whit Sunday +49, Whit Monday +50

ADDING A COUNTRY:
  func init() {
      calendar.Register("SE", swedishHolidays)
  }
  No caller changes: every query takes the country code.
*/
package calendar

import (
	"sort"
	"sync"
	"time"
)

// Country is an ISO 3166-1 alpha-2 code.
type Country string

const Denmark Country = "DK"

// Holiday is a named public holiday.
type Holiday struct {
	Date Date   `json:"date"`
	Name string `json:"name"`
}

// HolidayFunc computes every public holiday in a year. It must be pure.
type HolidayFunc func(year int) []Holiday

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps countries to their holiday functions.
type Registry struct {
	mu        sync.RWMutex
	calendars map[Country]HolidayFunc
}

func NewRegistry() *Registry {
	return &Registry{calendars: make(map[Country]HolidayFunc)}
}

func (r *Registry) Register(country Country, fn HolidayFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendars[country] = fn
}

// Lookup returns the holiday function for a country.
func (r *Registry) Lookup(country Country) (HolidayFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.calendars[country]
	if !ok {
		return nil, &UnsupportedCountryError{Country: country}
	}
	return fn, nil
}

// Countries lists registered countries, sorted.
func (r *Registry) Countries() []Country {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Country, 0, len(r.calendars))
	for c := range r.calendars {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the process-wide registry country calendars add
// themselves to.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a country to the default registry.
func Register(country Country, fn HolidayFunc) {
	defaultRegistry.Register(country, fn)
}

// Countries lists the countries in the default registry.
func Countries() []Country {
	return defaultRegistry.Countries()
}

func init() {
	Register(Denmark, DanishHolidays)
}

// =============================================================================
// EASTER - Anonymous Gregorian algorithm
// =============================================================================

// Easter returns Easter Sunday of the given Gregorian year.
func Easter(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return Date{Year: year, Month: time.Month(month), Day: day}
}

// =============================================================================
// DENMARK
// =============================================================================

// DanishHolidays returns the eleven Danish public holidays, sorted by date.
func DanishHolidays(year int) []Holiday {
	easter := Easter(year)
	holidays := []Holiday{
		{Date: NewDate(year, time.January, 1), Name: "Nytårsdag"},
		{Date: easter.AddDays(-3), Name: "Skærtorsdag"},
		{Date: easter.AddDays(-2), Name: "Langfredag"},
		{Date: easter, Name: "Påskedag"},
		{Date: easter.AddDays(1), Name: "2. påskedag"},
		{Date: easter.AddDays(39), Name: "Kristi himmelfartsdag"},
		{Date: easter.AddDays(49), Name: "Pinsedag"},
		{Date: easter.AddDays(50), Name: "2. pinsedag"},
		{Date: NewDate(year, time.June, 5), Name: "Grundlovsdag"},
		{Date: NewDate(year, time.December, 25), Name: "Juledag"},
		{Date: NewDate(year, time.December, 26), Name: "2. juledag"},
	}
	sort.SliceStable(holidays, func(i, j int) bool {
		return holidays[i].Date.Before(holidays[j].Date)
	})
	return holidays
}
