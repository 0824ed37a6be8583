package app

import (
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
)

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", domain.ErrInvalidDates, s)
	}
	return t, nil
}

// ParseStay reads optional check-in/check-out strings. Missing values default
// to tomorrow and the day after check-in.
func ParseStay(checkIn, checkOut string, now time.Time) (time.Time, time.Time, error) {
	in := dayOf(now).AddDate(0, 0, 1)
	if checkIn != "" {
		t, err := parseDate(checkIn)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		in = t
	}
	out := in.AddDate(0, 0, 1)
	if checkOut != "" {
		t, err := parseDate(checkOut)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		out = t
	}
	if !out.After(in) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check-out must be after check-in", domain.ErrInvalidDates)
	}
	return in, out, nil
}

func nights(in, out time.Time) int {
	return int(dayOf(out).Sub(dayOf(in)).Hours() / 24)
}
