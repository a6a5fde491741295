package model

import (
	"fmt"
	"strconv"
	"time"

	"parkhub/pkg/timeutil"
)

const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

const (
	MinSubscriptionMonths = 1
	MaxSubscriptionMonths = 12
)

// Slot is one recurring {start, end} time-of-day pair on a specific weekday,
// both in 24-hour "HH:MM" form.
type Slot struct {
	Start string `json:"start" bson:"start" validate:"required"`
	End   string `json:"end" bson:"end" validate:"required"`
}

// Subscription is a recurring weekly booking valid over a date range.
// WeeklySlots maps day-of-week keys "0" (Sunday) through "6" (Saturday) to
// that day's reserved slots.
type Subscription struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID        string            `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	FacilityID    string            `json:"facility_id" bson:"facility_id" validate:"required,mongodb"`
	WeeklySlots   map[string][]Slot `json:"weekly_slots" bson:"weekly_slots" validate:"required"`
	Months        int               `json:"months" bson:"months" validate:"required,min=1,max=12"`
	StartDate     time.Time         `json:"start_date" bson:"start_date" validate:"required"`
	EndDate       time.Time         `json:"end_date" bson:"end_date" validate:"required"`
	MonthlyAmount float64           `json:"monthly_amount" bson:"monthly_amount" validate:"gt=0"`
	TotalAmount   float64           `json:"total_amount" bson:"total_amount" validate:"gt=0"`
	Status        string            `json:"status" bson:"status" validate:"required,oneof=active expired cancelled"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// NewSubscription builds a validated active subscription. The end date is
// derived as start + months.
func NewSubscription(userID, facilityID string, slots map[string][]Slot, months int, startDate time.Time, monthlyAmount float64, now time.Time) (*Subscription, error) {
	if userID == "" || facilityID == "" {
		return nil, fmt.Errorf("user id and facility id are required")
	}
	if months < MinSubscriptionMonths || months > MaxSubscriptionMonths {
		return nil, fmt.Errorf("duration must be between %d and %d months, got %d", MinSubscriptionMonths, MaxSubscriptionMonths, months)
	}
	if err := ValidateWeeklySlots(slots); err != nil {
		return nil, err
	}
	if startDate.Before(now.Truncate(24 * time.Hour)) {
		return nil, fmt.Errorf("start date cannot be in the past")
	}
	if monthlyAmount <= 0 {
		return nil, fmt.Errorf("monthly amount must be positive, got %.2f", monthlyAmount)
	}

	return &Subscription{
		UserID:        userID,
		FacilityID:    facilityID,
		WeeklySlots:   slots,
		Months:        months,
		StartDate:     startDate,
		EndDate:       startDate.AddDate(0, months, 0),
		MonthlyAmount: monthlyAmount,
		TotalAmount:   monthlyAmount * float64(months),
		Status:        SubscriptionActive,
	}, nil
}

// ValidateWeeklySlots checks day keys, HH:MM syntax and start < end for every
// slot. At least one slot is required.
func ValidateWeeklySlots(slots map[string][]Slot) error {
	total := 0
	for day, daySlots := range slots {
		d, err := strconv.Atoi(day)
		if err != nil || d < 0 || d > 6 {
			return fmt.Errorf("slot day key must be 0-6, got %q", day)
		}
		for _, s := range daySlots {
			start, err := timeutil.ParseHHMM(s.Start)
			if err != nil {
				return fmt.Errorf("day %s: %w", day, err)
			}
			end, err := timeutil.ParseHHMM(s.End)
			if err != nil {
				return fmt.Errorf("day %s: %w", day, err)
			}
			if end <= start {
				return fmt.Errorf("day %s: slot end %s must be after start %s", day, s.End, s.Start)
			}
			total++
		}
	}
	if total == 0 {
		return fmt.Errorf("at least one weekly slot is required")
	}
	return nil
}

// SlotsOn returns the reserved slots for the given weekday.
func (s *Subscription) SlotsOn(day time.Weekday) []Slot {
	return s.WeeklySlots[strconv.Itoa(int(day))]
}

// Covers reports whether the subscription authorizes occupancy at instant t:
// active, t's date within [start, end], and t's weekday/time inside one of
// that day's slots (inclusive on both slot bounds).
func (s *Subscription) Covers(t time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if t.Before(s.StartDate) || t.After(s.EndDate) {
		return false
	}
	minute := timeutil.MinuteOfDay(t)
	for _, slot := range s.SlotsOn(t.Weekday()) {
		start, err := timeutil.ParseHHMM(slot.Start)
		if err != nil {
			continue
		}
		end, err := timeutil.ParseHHMM(slot.End)
		if err != nil {
			continue
		}
		if timeutil.WithinMinutes(minute, start, end) {
			return true
		}
	}
	return false
}

// BooksAt is Covers with the slot end exclusive. Window admission uses it so
// a slot ending exactly at t does not block a booking that starts there.
func (s *Subscription) BooksAt(t time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if t.Before(s.StartDate) || t.After(s.EndDate) {
		return false
	}
	minute := timeutil.MinuteOfDay(t)
	for _, slot := range s.SlotsOn(t.Weekday()) {
		start, err := timeutil.ParseHHMM(slot.Start)
		if err != nil {
			continue
		}
		end, err := timeutil.ParseHHMM(slot.End)
		if err != nil {
			continue
		}
		if minute >= start && minute < end {
			return true
		}
	}
	return false
}

// WeeklyCommittedMinutes is the total reserved time across one week, the
// basis for the monthly price.
func (s *Subscription) WeeklyCommittedMinutes() int {
	return WeeklySlotMinutes(s.WeeklySlots)
}

// WeeklySlotMinutes sums the duration of every slot in a weekly table.
func WeeklySlotMinutes(slots map[string][]Slot) int {
	total := 0
	for _, daySlots := range slots {
		for _, s := range daySlots {
			start, err1 := timeutil.ParseHHMM(s.Start)
			end, err2 := timeutil.ParseHHMM(s.End)
			if err1 != nil || err2 != nil {
				continue
			}
			total += end - start
		}
	}
	return total
}

// Cancel moves an active subscription to cancelled.
func (s *Subscription) Cancel() error {
	if s.Status != SubscriptionActive {
		return fmt.Errorf("cannot cancel subscription in status %s", s.Status)
	}
	s.Status = SubscriptionCancelled
	return nil
}
