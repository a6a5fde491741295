package model

import (
	"fmt"
	"strconv"
	"time"

	"parkhub/pkg/timeutil"
)

// HoursWindow is one {open, close} pair in a facility's weekly opening-hours
// table, both in 24-hour "HH:MM" form.
type HoursWindow struct {
	Open  string `json:"open" bson:"open" validate:"required"`
	Close string `json:"close" bson:"close" validate:"required"`
}

// Facility is a parking lot with fixed capacity and pricing. OpeningHours maps
// day-of-week keys "0" (Sunday) through "6" (Saturday) to that day's windows;
// an empty table means the facility never closes.
type Facility struct {
	ID           string                   `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID      string                   `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	Name         string                   `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Latitude     float64                  `json:"latitude" bson:"latitude" validate:"latitude"`
	Longitude    float64                  `json:"longitude" bson:"longitude" validate:"longitude"`
	Capacity     int                      `json:"capacity" bson:"capacity" validate:"required,min=1"`
	HourlyRate   float64                  `json:"hourly_rate" bson:"hourly_rate" validate:"gte=0"`
	OpeningHours map[string][]HoursWindow `json:"opening_hours" bson:"opening_hours" validate:"omitempty"`
	CreatedAt    time.Time                `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// FacilityUpdate carries the owner-mutable fields. Nil means unchanged.
type FacilityUpdate struct {
	Capacity     *int                      `json:"capacity,omitempty" validate:"omitempty,min=1"`
	HourlyRate   *float64                  `json:"hourly_rate,omitempty" validate:"omitempty,gte=0"`
	OpeningHours *map[string][]HoursWindow `json:"opening_hours,omitempty" validate:"omitempty"`
}

// NewFacility builds a validated facility. It never returns a facility that
// violates the capacity, rate, coordinate or opening-hours invariants.
func NewFacility(ownerID, name string, lat, lng float64, capacity int, hourlyRate float64, hours map[string][]HoursWindow) (*Facility, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("facility name is required")
	}
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be at least 1, got %d", capacity)
	}
	if hourlyRate < 0 {
		return nil, fmt.Errorf("hourly rate cannot be negative, got %.2f", hourlyRate)
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude must be between -90 and 90, got %f", lat)
	}
	if lng < -180 || lng > 180 {
		return nil, fmt.Errorf("longitude must be between -180 and 180, got %f", lng)
	}
	if err := ValidateOpeningHours(hours); err != nil {
		return nil, err
	}

	return &Facility{
		OwnerID:      ownerID,
		Name:         name,
		Latitude:     lat,
		Longitude:    lng,
		Capacity:     capacity,
		HourlyRate:   hourlyRate,
		OpeningHours: hours,
	}, nil
}

// ValidateOpeningHours checks day keys, HH:MM syntax and open < close for
// every window in the table.
func ValidateOpeningHours(hours map[string][]HoursWindow) error {
	for day, windows := range hours {
		d, err := strconv.Atoi(day)
		if err != nil || d < 0 || d > 6 {
			return fmt.Errorf("opening hours day key must be 0-6, got %q", day)
		}
		for _, w := range windows {
			open, err := timeutil.ParseHHMM(w.Open)
			if err != nil {
				return fmt.Errorf("day %s: %w", day, err)
			}
			closeMin, err := timeutil.ParseHHMM(w.Close)
			if err != nil {
				return fmt.Errorf("day %s: %w", day, err)
			}
			if closeMin <= open {
				return fmt.Errorf("day %s: close %s must be after open %s", day, w.Close, w.Open)
			}
		}
	}
	return nil
}

// WindowsOn returns the opening windows for the given weekday.
func (f *Facility) WindowsOn(day time.Weekday) []HoursWindow {
	return f.OpeningHours[strconv.Itoa(int(day))]
}

// IsOpenAt reports whether the facility is open at t. A facility with an
// empty opening-hours table is always open. Within a window the open bound is
// inclusive and the close bound exclusive.
func (f *Facility) IsOpenAt(t time.Time) bool {
	if len(f.OpeningHours) == 0 {
		return true
	}
	windows := f.WindowsOn(t.Weekday())
	minute := timeutil.MinuteOfDay(t)
	for _, w := range windows {
		open, err := timeutil.ParseHHMM(w.Open)
		if err != nil {
			continue
		}
		closeMin, err := timeutil.ParseHHMM(w.Close)
		if err != nil {
			continue
		}
		if minute >= open && minute < closeMin {
			return true
		}
	}
	return false
}

// CoversDayWindow reports whether [startMin, endMin] on the given weekday lies
// entirely inside one of the facility's opening windows for that day. An
// always-open facility covers any window.
func (f *Facility) CoversDayWindow(day time.Weekday, startMin, endMin int) bool {
	if len(f.OpeningHours) == 0 {
		return true
	}
	for _, w := range f.WindowsOn(day) {
		open, err := timeutil.ParseHHMM(w.Open)
		if err != nil {
			continue
		}
		closeMin, err := timeutil.ParseHHMM(w.Close)
		if err != nil {
			continue
		}
		if startMin >= open && endMin <= closeMin {
			return true
		}
	}
	return false
}
