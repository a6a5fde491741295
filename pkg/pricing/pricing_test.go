package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStayAmount(t *testing.T) {
	c := New()

	// 2h at 10/h.
	assert.InDelta(t, 20.0, c.StayAmount(2*time.Hour, 10), 1e-9)

	// 80 minutes at 15/h bills 90 minutes.
	assert.InDelta(t, 22.50, c.StayAmount(80*time.Minute, 15), 1e-9)

	// 3h30m is an exact quarter, no rounding.
	assert.InDelta(t, 35.0, c.StayAmount(3*time.Hour+30*time.Minute, 10), 1e-9)

	// One minute still bills a full increment.
	assert.InDelta(t, 2.50, c.StayAmount(time.Minute, 10), 1e-9)

	assert.Zero(t, c.StayAmount(0, 10))
	assert.Zero(t, c.StayAmount(2*time.Hour, 0))
}

func TestStayAmountIdempotent(t *testing.T) {
	c := New()
	d := 47 * time.Minute
	assert.Equal(t, c.StayAmount(d, 12.5), c.StayAmount(d, 12.5))
}

func TestOverstayPenalty(t *testing.T) {
	c := New()

	// 1.5h overage at 10/h: 20 base + 15.
	assert.InDelta(t, 35.0, c.OverstayPenalty(90*time.Minute, 10), 1e-9)

	// Overage rounds up to the next quarter before billing.
	assert.InDelta(t, 20.0+2.50, c.OverstayPenalty(5*time.Minute, 10), 1e-9)

	assert.Zero(t, c.OverstayPenalty(0, 10))
	assert.Zero(t, c.OverstayPenalty(-time.Minute, 10))
}

func TestMonthlyAmount(t *testing.T) {
	c := New()

	// 8h/week at 10/h: 80 x 52/12 = 346.67.
	assert.InDelta(t, 346.67, c.MonthlyAmount(8*60, 10), 1e-9)

	assert.Zero(t, c.MonthlyAmount(0, 10))
}
