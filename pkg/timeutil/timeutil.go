// Package timeutil provides calendar-day utilities for Maker Path Progress Hub.
// Streaks and daily activity are tracked at calendar-day granularity in UTC:
// the engine never normalizes for learner timezones, it uses the caller-supplied
// date consistently. No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Day truncates a time to the start of its calendar day in UTC.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the start of the current day in UTC.
func Today() time.Time {
	return Day(time.Now())
}

// Yesterday returns the start of the day before the given time's day.
func Yesterday(t time.Time) time.Time {
	return Day(t).AddDate(0, 0, -1)
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DaysBetween returns the number of whole calendar days from a to b.
// Positive when b is after a, negative when before.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	return Day(t)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in UTC.
func EndOfDay(t time.Time) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999999999, time.UTC)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in UTC.
func StartOfWeek(t time.Time) time.Time {
	d := Day(t)
	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return d.AddDate(0, 0, -(weekday - 1))
}

// FormatDay formats a time as a date-only string (YYYY-MM-DD).
func FormatDay(t time.Time) string {
	return Day(t).Format("2006-01-02")
}

// ParseDay parses a date-only string (YYYY-MM-DD) into a UTC day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DaysAgo returns the start of the day n days before now.
func DaysAgo(n int) time.Time {
	return Today().AddDate(0, 0, -n)
}
