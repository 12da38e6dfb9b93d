package calendar

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCountry is returned for any query against a country with
// no registered holiday calendar. It is the only hard error in the engine:
// guessing "every weekday is a bank day" would shift every adjusted date.
var ErrUnsupportedCountry = errors.New("unsupported country")

// UnsupportedCountryError names the country that was looked up.
type UnsupportedCountryError struct {
	Country Country
}

func (e *UnsupportedCountryError) Error() string {
	return fmt.Sprintf("unsupported country: %q", string(e.Country))
}

func (e *UnsupportedCountryError) Unwrap() error {
	return ErrUnsupportedCountry
}
