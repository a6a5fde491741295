package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 2, hour, min, 0, 0, time.UTC)
}

func TestOverlapsHalfOpen(t *testing.T) {
	// Touching at an endpoint is not an overlap.
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(11, 0), at(12, 0)))
	assert.False(t, Overlaps(at(11, 0), at(12, 0), at(10, 0), at(11, 0)))

	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(11, 0), at(13, 0)))
	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(10, 30), at(11, 0)))
	assert.False(t, Overlaps(at(8, 0), at(9, 0), at(9, 30), at(10, 0)))
}

func TestOverlapsSymmetry(t *testing.T) {
	pairs := [][4]time.Time{
		{at(10, 0), at(12, 0), at(11, 0), at(13, 0)},
		{at(10, 0), at(11, 0), at(11, 0), at(12, 0)},
		{at(9, 0), at(17, 0), at(12, 0), at(12, 15)},
		{at(6, 0), at(7, 0), at(20, 0), at(21, 0)},
	}
	for _, p := range pairs {
		assert.Equal(t,
			Overlaps(p[0], p[1], p[2], p[3]),
			Overlaps(p[2], p[3], p[0], p[1]),
			"overlaps must be symmetric")
	}
}

func TestContains(t *testing.T) {
	start, end := at(10, 0), at(12, 0)
	assert.True(t, Contains(start, end, at(10, 0)))
	assert.True(t, Contains(start, end, at(11, 59)))
	assert.False(t, Contains(start, end, at(12, 0)))
	assert.False(t, Contains(start, end, at(9, 59)))
}

func TestBilledMinutes(t *testing.T) {
	inc := 15 * time.Minute

	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Minute, 0},
		{time.Minute, 15},
		{15 * time.Minute, 15},
		{16 * time.Minute, 30},
		{80 * time.Minute, 90},
		{3*time.Hour + 30*time.Minute, 210},
		{24 * time.Hour, 1440},
	}
	for _, tc := range cases {
		got := BilledMinutes(tc.d, inc)
		assert.Equal(t, tc.want, got, "duration %s", tc.d)
		assert.Zero(t, got%15, "billed minutes must be a multiple of 15")
		assert.GreaterOrEqual(t, time.Duration(got)*time.Minute, max(tc.d, 0))
	}
}

func TestBilledMinutesIdempotent(t *testing.T) {
	inc := 15 * time.Minute
	d := 47 * time.Minute
	assert.Equal(t, BilledMinutes(d, inc), BilledMinutes(d, inc))
}

func TestParseHHMM(t *testing.T) {
	min, err := ParseHHMM("09:30")
	assert.NoError(t, err)
	assert.Equal(t, 570, min)

	min, err = ParseHHMM("00:00")
	assert.NoError(t, err)
	assert.Equal(t, 0, min)

	min, err = ParseHHMM("23:59")
	assert.NoError(t, err)
	assert.Equal(t, 1439, min)

	for _, bad := range []string{"24:00", "9:3", "12:60", "noon", ""} {
		_, err := ParseHHMM(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestFormatHHMM(t *testing.T) {
	assert.Equal(t, "09:30", FormatHHMM(570))
	assert.Equal(t, "00:00", FormatHHMM(0))
	assert.Equal(t, "23:59", FormatHHMM(1439))
}

func TestMinuteOfDay(t *testing.T) {
	assert.Equal(t, 615, MinuteOfDay(at(10, 15)))
}

func TestMinutesOverlap(t *testing.T) {
	assert.False(t, MinutesOverlap(540, 600, 600, 660), "back-to-back slots do not collide")
	assert.True(t, MinutesOverlap(540, 601, 600, 660))
	assert.True(t, MinutesOverlap(540, 1020, 600, 660))
}

func TestWithinMinutes(t *testing.T) {
	// Slot coverage is inclusive on both bounds.
	assert.True(t, WithinMinutes(540, 540, 1020))
	assert.True(t, WithinMinutes(1020, 540, 1020))
	assert.False(t, WithinMinutes(1021, 540, 1020))
	assert.False(t, WithinMinutes(539, 540, 1020))
}
