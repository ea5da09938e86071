// Package timeutil provides UTC day arithmetic for the reward engine.
// Streaks, badge validity windows, and pending-award ages are all
// defined in terms of UTC calendar days, so every helper normalizes to
// UTC first. No external dependencies - uses only standard library.
package timeutil

import "time"

// StartOfDay returns the start of the UTC day (00:00:00) containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the end of the UTC day (23:59:59.999999999) containing t.
func EndOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

// SameDay reports whether two times fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of whole UTC calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// IsConsecutiveDay reports whether next falls on the UTC day directly
// after prev. Used for streak continuation checks.
func IsConsecutiveDay(prev, next time.Time) bool {
	return DaysBetween(prev, next) == 1
}

// NextStreak returns the streak value after an activity at now, given
// the previous activity time and the current streak length.
//
// Same day keeps the streak, the following day extends it, and any gap
// resets it to 1.
func NextStreak(lastActivity, now time.Time, current int) int {
	if current <= 0 || lastActivity.IsZero() {
		return 1
	}
	switch DaysBetween(lastActivity, now) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// WithinWindow reports whether t falls inside [start, end). Zero bounds
// are treated as open.
func WithinWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && !t.Before(end) {
		return false
	}
	return true
}
