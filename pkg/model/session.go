package model

import (
	"fmt"
	"time"
)

const (
	SessionActive     = "active"
	SessionCompleted  = "completed"
	SessionOverstayed = "overstayed"
)

// ParkingSession is a physical occupancy record from entry to exit. A session
// entered under a reservation carries its id and the reservation end as the
// authorized end time; a session entered under a subscription carries neither.
// Completed and overstayed are terminal.
type ParkingSession struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	UserID        string     `json:"user_id" bson:"user_id" validate:"required,mongodb"`
	FacilityID    string     `json:"facility_id" bson:"facility_id" validate:"required,mongodb"`
	ReservationID string     `json:"reservation_id,omitempty" bson:"reservation_id,omitempty" validate:"omitempty,mongodb"`
	StartTime     time.Time  `json:"start_time" bson:"start_time" validate:"required"`
	EndTime       *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Amount        *float64   `json:"amount,omitempty" bson:"amount,omitempty"`
	AuthorizedEnd *time.Time `json:"authorized_end,omitempty" bson:"authorized_end,omitempty"`
	Status        string     `json:"status" bson:"status" validate:"required,oneof=active completed overstayed"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// NewParkingSession opens an active session backed by the given
// authorization. The authorization decides whether a reservation id and
// authorized end time are recorded.
func NewParkingSession(userID, facilityID string, start time.Time, auth Authorization) (*ParkingSession, error) {
	if userID == "" || facilityID == "" {
		return nil, fmt.Errorf("user id and facility id are required")
	}
	if auth.Kind == AuthNone {
		return nil, fmt.Errorf("session requires a reservation or subscription authorization")
	}

	session := &ParkingSession{
		UserID:     userID,
		FacilityID: facilityID,
		StartTime:  start,
		Status:     SessionActive,
	}
	if auth.Kind == AuthReservation && auth.Reservation != nil {
		session.ReservationID = auth.Reservation.ID
		end := auth.Reservation.EndTime
		session.AuthorizedEnd = &end
	}
	return session, nil
}

// IsActive reports whether the session still occupies a space.
func (s *ParkingSession) IsActive() bool {
	return s.Status == SessionActive
}

// Close finalizes the session at exitTime with the given amount, marking it
// overstayed when the exit happened past the authorized end. Only an active
// session can be closed.
func (s *ParkingSession) Close(exitTime time.Time, amount float64, overstayed bool) error {
	if !s.IsActive() {
		return fmt.Errorf("cannot exit: session is %s, not active", s.Status)
	}
	if exitTime.Before(s.StartTime) {
		return fmt.Errorf("exit time cannot precede entry time")
	}
	s.EndTime = &exitTime
	s.Amount = &amount
	if overstayed {
		s.Status = SessionOverstayed
	} else {
		s.Status = SessionCompleted
	}
	return nil
}

// Overstayed reports whether t falls past the session's authorized end time.
// Sessions without an authorized end (subscription entries) never overstay.
func (s *ParkingSession) Overstayed(t time.Time) bool {
	return s.AuthorizedEnd != nil && t.After(*s.AuthorizedEnd)
}
