package events

import (
	"context"
	"time"
)

// SchemaVersion of all event payloads published by this service.
const SchemaVersion = "1.0"

// Event types carried in the event-type header
const (
	TypeReservationConfirmed  = "reservation.confirmed"
	TypeReservationCancelled  = "reservation.cancelled"
	TypeReservationExpired    = "reservation.expired"
	TypeSubscriptionCreated   = "subscription.created"
	TypeSubscriptionCancelled = "subscription.cancelled"
	TypeSubscriptionExpired   = "subscription.expired"
	TypeSessionStarted        = "session.started"
	TypeSessionClosed         = "session.closed"
	TypeViolationDetected     = "violation.detected"
)

// Publisher is the surface services publish domain events through.
// When no brokers are configured a NopPublisher is wired instead, so
// callers never need to branch on whether eventing is enabled.
type Publisher interface {
	Publish(ctx context.Context, eventType, facilityID string, payload any) error
	Close() error
}

// ReservationEvent is the payload for reservation.* events
type ReservationEvent struct {
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	FacilityID    string    `json:"facility_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
}

// SubscriptionEvent is the payload for subscription.* events
type SubscriptionEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	FacilityID     string    `json:"facility_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	MonthlyAmount  float64   `json:"monthly_amount"`
	Status         string    `json:"status"`
}

// SessionEvent is the payload for session.* events
type SessionEvent struct {
	SessionID  string     `json:"session_id"`
	UserID     string     `json:"user_id"`
	FacilityID string     `json:"facility_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Overstayed bool       `json:"overstayed"`
}

// ViolationEvent is the payload for violation.detected
type ViolationEvent struct {
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	FacilityID       string    `json:"facility_id"`
	StartTime        time.Time `json:"start_time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Reason           string    `json:"reason"`
	EstimatedPenalty float64   `json:"estimated_penalty"`
}

// NopPublisher discards events. Used when no Kafka brokers are configured.
type NopPublisher struct{}

func NewNopPublisher() *NopPublisher { return &NopPublisher{} }

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
