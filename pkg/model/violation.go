package model

import "time"

const (
	ReasonReservationExpired = "reservation_expired"
	ReasonNoBacking          = "no_reservation_or_subscription"
)

// Violation is one unauthorized-occupancy finding: an active session with no
// valid authorization at the scan instant, with an estimated penalty.
type Violation struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	FacilityID       string    `json:"facility_id"`
	StartTime        time.Time `json:"start_time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Reason           string    `json:"reason"`
	EstimatedPenalty float64   `json:"estimated_penalty"`
}
