package timeutil

import (
	"fmt"
	"time"
)

// Now returns the current UTC time
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the day for the given time
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the end of the day for the given time
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, t.Location())
}

// DayBoundsInZone resolves an inclusive local date range to UTC instants.
//
// from and to are calendar dates interpreted in the IANA zone tz; the result
// covers [00:00:00 of from, 24:00:00 of to) in that zone, converted to UTC.
// Sales committed close to local midnight therefore land on the correct
// local day regardless of the server's zone.
func DayBoundsInZone(from, to time.Time, tz string) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	return start.UTC(), end.UTC(), nil
}

// DaysUntilDate returns the number of whole calendar days from now until the
// given instant, both truncated to dates in UTC. A result of 0 means "today".
func DaysUntilDate(now, future time.Time) int {
	n := StartOfDay(now.UTC())
	f := StartOfDay(future.UTC())
	return int(f.Sub(n).Hours() / 24)
}

// IsExpired checks if a timestamp has expired
func IsExpired(now, expiresAt time.Time) bool {
	return now.After(expiresAt)
}

// NextDailyFire returns the next occurrence of hh:mm UTC strictly after now.
func NextDailyFire(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	fire := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// FormatISO8601 formats a time in ISO8601 format
func FormatISO8601(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
