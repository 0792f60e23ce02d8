package recurrence

import "time"

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 10000

// Horizon returns the last instant of the month following now's month, in
// now's location. Instances are materialized up to and including it.
func Horizon(now time.Time) time.Time {
	year, month, _ := now.Date()
	firstOfMonthAfterNext := time.Date(year, month+2, 1, 0, 0, 0, 0, now.Location())
	return firstOfMonthAfterNext.Add(-time.Nanosecond)
}

// Expand returns start+interval, start+2*interval, ... (in days) for every
// date that is not after end. The start date itself is never included. At
// most MaxOccurrences dates are returned; truncated reports that end was not
// reached.
func Expand(start time.Time, intervalDays int, end time.Time) (dates []time.Time, truncated bool) {
	if intervalDays < 1 {
		return nil, false
	}

	for k := 1; ; k++ {
		next := start.AddDate(0, 0, k*intervalDays)
		if next.After(end) {
			return dates, false
		}
		if k > MaxOccurrences {
			return dates, true
		}
		dates = append(dates, next)
	}
}

// Next returns the date intervalDays after from.
func Next(from time.Time, intervalDays int) time.Time {
	return from.AddDate(0, 0, intervalDays)
}

// DayKey identifies the UTC calendar day of t, ignoring time of day.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's day in its own location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
