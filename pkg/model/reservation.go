package model

import (
	"fmt"
	"time"

	"parkhub/pkg/timeutil"
)

const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
	ReservationCompleted = "completed"
)

const (
	MinReservationDuration = 15 * time.Minute
	MaxReservationDuration = 24 * time.Hour
)

// Reservation is a single time-boxed booking of one parking space.
type Reservation struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID     string    `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	FacilityID string    `json:"facility_id" bson:"facility_id" validate:"required,mongodb"`
	StartTime  time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime    time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Amount     float64   `json:"amount" bson:"amount" validate:"gt=0"`
	Status     string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// NewReservation builds a validated reservation in the confirmed state.
// The window invariants (future start, 15m-24h duration) are enforced here so
// an invalid reservation can never be constructed.
func NewReservation(userID, facilityID string, start, end time.Time, amount float64, now time.Time) (*Reservation, error) {
	if userID == "" || facilityID == "" {
		return nil, fmt.Errorf("user id and facility id are required")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end time must be after start time")
	}
	if start.Before(now) {
		return nil, fmt.Errorf("start time cannot be in the past")
	}
	dur := end.Sub(start)
	if dur < MinReservationDuration {
		return nil, fmt.Errorf("reservation must last at least %s", MinReservationDuration)
	}
	if dur > MaxReservationDuration {
		return nil, fmt.Errorf("reservation cannot exceed %s", MaxReservationDuration)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %.2f", amount)
	}

	return &Reservation{
		UserID:     userID,
		FacilityID: facilityID,
		StartTime:  start,
		EndTime:    end,
		Amount:     amount,
		Status:     ReservationConfirmed,
	}, nil
}

// IsActive reports whether the reservation currently books a space.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationConfirmed
}

// ActiveAt reports whether the reservation occupies a space at instant t:
// confirmed and t within [start, end], both bounds inclusive.
func (r *Reservation) ActiveAt(t time.Time) bool {
	return r.IsActive() && !t.Before(r.StartTime) && !t.After(r.EndTime)
}

// BooksAt is ActiveAt with the end bound exclusive. Window admission uses it
// so a reservation ending at T and one starting at T do not conflict.
func (r *Reservation) BooksAt(t time.Time) bool {
	return r.IsActive() && !t.Before(r.StartTime) && t.Before(r.EndTime)
}

// OverlapsWindow uses half-open interval semantics: a reservation ending at T
// and one starting at T do not conflict.
func (r *Reservation) OverlapsWindow(start, end time.Time) bool {
	return timeutil.Overlaps(r.StartTime, r.EndTime, start, end)
}

var reservationTransitions = map[string][]string{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCancelled, ReservationCompleted},
}

// TransitionTo moves the reservation to the target status, rejecting any
// transition outside pending->confirmed, {pending,confirmed}->cancelled and
// confirmed->completed.
func (r *Reservation) TransitionTo(status string) error {
	for _, allowed := range reservationTransitions[r.Status] {
		if allowed == status {
			r.Status = status
			return nil
		}
	}
	return fmt.Errorf("cannot transition reservation from %s to %s", r.Status, status)
}
