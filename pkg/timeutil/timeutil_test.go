package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDayNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 local on March 2 is still March 1 in UTC.
	local := time.Date(2026, 3, 2, 2, 30, 0, 0, loc)

	start := StartOfDay(local)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)

	end := EndOfDay(local)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC), end)
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC)
	night := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(night, nextDay))

	// Timezone offsets must not split a UTC day.
	loc := time.FixedZone("UTC-3", -3*3600)
	assert.True(t, SameDay(night, time.Date(2026, 3, 1, 20, 0, 0, 0, loc)))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	// Two hours apart but on adjacent calendar days.
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, 31, DaysBetween(a, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIsConsecutiveDay(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsConsecutiveDay(day1, day1.Add(24*time.Hour)))
	assert.False(t, IsConsecutiveDay(day1, day1.Add(2*time.Hour)))
	assert.False(t, IsConsecutiveDay(day1, day1.Add(48*time.Hour)))
}

func TestNextStreak(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Same calendar day keeps the streak.
	assert.Equal(t, 5, NextStreak(day1, day1.Add(8*time.Hour), 5))

	// The following day extends it.
	assert.Equal(t, 6, NextStreak(day1, day1.Add(24*time.Hour), 5))

	// A gap resets to 1.
	assert.Equal(t, 1, NextStreak(day1, day1.Add(72*time.Hour), 5))

	// Activity recorded out of order resets too.
	assert.Equal(t, 1, NextStreak(day1, day1.Add(-24*time.Hour), 5))

	// First ever activity starts at 1 regardless of inputs.
	assert.Equal(t, 1, NextStreak(time.Time{}, day1, 0))
	assert.Equal(t, 1, NextStreak(day1, day1, 0))
}

func TestWithinWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	assert.True(t, WithinWindow(start, start, end))
	assert.True(t, WithinWindow(start.Add(time.Hour), start, end))
	assert.False(t, WithinWindow(end, start, end))
	assert.False(t, WithinWindow(start.Add(-time.Nanosecond), start, end))

	// Zero bounds are open.
	assert.True(t, WithinWindow(end.Add(time.Hour), start, time.Time{}))
	assert.True(t, WithinWindow(start.Add(-time.Hour), time.Time{}, end))
}
