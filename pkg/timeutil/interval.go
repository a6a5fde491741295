// Package timeutil holds the pure time arithmetic shared by the booking and
// billing paths: half-open interval overlap, billing-increment rounding and
// HH:MM day-time handling for weekly tables.
package timeutil

import (
	"fmt"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending at T does not overlap one
// starting at T.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether t lies within the half-open interval [start, end).
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// BilledMinutes rounds d up to the next multiple of increment and returns the
// result in whole minutes. Non-positive durations bill zero minutes.
func BilledMinutes(d, increment time.Duration) int {
	if d <= 0 {
		return 0
	}
	units := (d + increment - 1) / increment
	return int(units * increment / time.Minute)
}

// ParseHHMM parses a 24-hour "HH:MM" string into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid HH:MM time %q: %w", s, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatHHMM renders minutes since midnight as a "HH:MM" string.
func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinuteOfDay returns t's offset from midnight in minutes, in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// MinutesOverlap reports whether two same-day minute ranges intersect, with
// half-open semantics: a slot ending at 10:00 does not collide with one
// starting at 10:00.
func MinutesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// WithinMinutes reports whether the minute-of-day m falls inside [start, end],
// inclusive on both bounds. Subscription slot coverage is inclusive so that a
// driver arriving exactly at the slot edge is still authorized.
func WithinMinutes(m, start, end int) bool {
	return m >= start && m <= end
}
