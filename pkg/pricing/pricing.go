// Package pricing computes stay, penalty and subscription amounts. All stays
// are billed in fixed increments rounded up, pro-rata against the facility's
// hourly rate.
package pricing

import (
	"math"
	"time"

	"parkhub/pkg/timeutil"
)

const (
	DefaultIncrement           = 15 * time.Minute
	DefaultOverstayBasePenalty = 20.0
	// DefaultWeeksPerMonth converts weekly committed hours into a monthly
	// amount (52 weeks / 12 months).
	DefaultWeeksPerMonth = 52.0 / 12.0
)

// Calculator holds the billing parameters. The zero value is not usable;
// construct it through New or from config.
type Calculator struct {
	Increment           time.Duration
	OverstayBasePenalty float64
	WeeksPerMonth       float64
}

func New() Calculator {
	return Calculator{
		Increment:           DefaultIncrement,
		OverstayBasePenalty: DefaultOverstayBasePenalty,
		WeeksPerMonth:       DefaultWeeksPerMonth,
	}
}

// StayAmount bills a stay of duration d: round up to the next increment, then
// charge hourlyRate/60 per billed minute.
func (c Calculator) StayAmount(d time.Duration, hourlyRate float64) float64 {
	billed := timeutil.BilledMinutes(d, c.Increment)
	return roundCents(float64(billed) * hourlyRate / 60)
}

// OverstayPenalty is the fixed base penalty plus the overage beyond the
// authorized end, billed with the same increment rounding.
func (c Calculator) OverstayPenalty(overage time.Duration, hourlyRate float64) float64 {
	if overage <= 0 {
		return 0
	}
	return roundCents(c.OverstayBasePenalty + c.StayAmount(overage, hourlyRate))
}

// MonthlyAmount derives a subscription's monthly price from its weekly
// committed minutes: weekly hours x hourly rate x weeks per month.
func (c Calculator) MonthlyAmount(weeklyMinutes int, hourlyRate float64) float64 {
	return roundCents(float64(weeklyMinutes) / 60 * hourlyRate * c.WeeksPerMonth)
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
