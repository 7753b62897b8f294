// Package dates holds the calendar-day arithmetic shared by inventory,
// pricing and bookings. A day is a time.Time at UTC midnight; stays are
// half-open intervals [checkIn, checkOut).
package dates

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// Day truncates t to its calendar date at UTC midnight. The calendar date is
// taken in t's own location, so 2024-06-01T23:30+02:00 stays June 1st.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// AddDays moves a day forward (or back) by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// Nights enumerates every night of the stay [checkIn, checkOut) by repeated
// day increments. It returns nil when checkOut is not after checkIn.
func Nights(checkIn, checkOut time.Time) []time.Time {
	in, out := Day(checkIn), Day(checkOut)
	var nights []time.Time
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// NightCount is len(Nights(checkIn, checkOut)) without allocating.
func NightCount(checkIn, checkOut time.Time) int {
	n := int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Overlaps is the half-open interval test: [aIn, aOut) and [bIn, bOut)
// share at least one night. Stays that merely touch do not overlap.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return Day(aIn).Before(Day(bOut)) && Day(aOut).After(Day(bIn))
}

// Contains reports whether night falls inside [checkIn, checkOut).
func Contains(checkIn, checkOut, night time.Time) bool {
	n := Day(night)
	return !n.Before(Day(checkIn)) && n.Before(Day(checkOut))
}
