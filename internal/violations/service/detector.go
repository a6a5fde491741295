package service

import (
	"context"
	"errors"
	"time"

	facilitieserrors "parkhub/internal/facilities/errors"
	reservationserrors "parkhub/internal/reservations/errors"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/events"
	"parkhub/pkg/model"
	"parkhub/pkg/pricing"
)

// FacilityStore is the slice of the facility repository the detector needs.
type FacilityStore interface {
	FindByID(ctx context.Context, id string) (*model.Facility, error)
	ScanAll(ctx context.Context) ([]*model.Facility, error)
}

// SessionStore lists the active sessions under inspection.
type SessionStore interface {
	FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.ParkingSession, error)
}

// ReservationStore resolves the reservation a session claims as backing.
type ReservationStore interface {
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
}

// SubscriptionStore resolves the subscriptions that may still back a session.
type SubscriptionStore interface {
	FindActiveForUserAtFacility(ctx context.Context, userID, facilityID string) ([]*model.Subscription, error)
}

type ViolationService interface {
	// Scan inspects every active session at the facility and reports those
	// with no valid backing at the given instant.
	Scan(ctx context.Context, facilityID string, at time.Time) ([]*model.Violation, error)
	// SweepAll scans every facility and publishes an event per finding.
	SweepAll(ctx context.Context) error
}

type violationService struct {
	facilities    FacilityStore
	sessions      SessionStore
	reservations  ReservationStore
	subscriptions SubscriptionStore
	calc          pricing.Calculator
	publisher     events.Publisher
	cfg           *config.Config
}

func NewViolationService(
	facilities FacilityStore,
	sessions SessionStore,
	reservations ReservationStore,
	subscriptions SubscriptionStore,
	calc pricing.Calculator,
	publisher events.Publisher,
	cfg *config.Config,
) ViolationService {
	return &violationService{
		facilities:    facilities,
		sessions:      sessions,
		reservations:  reservations,
		subscriptions: subscriptions,
		calc:          calc,
		publisher:     publisher,
		cfg:           cfg,
	}
}

func (s *violationService) Scan(ctx context.Context, facilityID string, at time.Time) ([]*model.Violation, error) {
	if facilityID == "" {
		return nil, apperrors.InvalidInput("Facility ID cannot be empty")
	}
	if at.IsZero() {
		at = time.Now()
	}

	facility, err := s.facilities.FindByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Facility", facilityID)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid facility ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve facility", err)
	}

	return s.scanFacility(ctx, facility, at)
}

func (s *violationService) scanFacility(ctx context.Context, facility *model.Facility, at time.Time) ([]*model.Violation, error) {
	sessions, err := s.sessions.FindActiveByFacility(ctx, facility.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list active sessions", err)
	}

	violations := make([]*model.Violation, 0)
	for _, session := range sessions {
		violation, err := s.inspect(ctx, facility, session, at)
		if err != nil {
			return nil, err
		}
		if violation != nil {
			violations = append(violations, violation)
		}
	}
	return violations, nil
}

// inspect checks a single session's backing at the scan instant. A session
// entered under a reservation is in violation once the reservation has ended
// or is no longer confirmed; a session entered under a subscription is in
// violation when no active subscription covers the instant anymore.
func (s *violationService) inspect(ctx context.Context, facility *model.Facility, session *model.ParkingSession, at time.Time) (*model.Violation, error) {
	if at.Before(session.StartTime) {
		return nil, nil
	}

	if session.ReservationID != "" {
		reservation, err := s.reservations.FindByID(ctx, session.ReservationID)
		if err != nil && !errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.Internal("Failed to retrieve backing reservation", err)
		}
		if err == nil && reservation.Status == model.ReservationConfirmed && !at.After(reservation.EndTime) {
			return nil, nil
		}

		overstay := at.Sub(session.StartTime)
		if session.AuthorizedEnd != nil && at.After(*session.AuthorizedEnd) {
			overstay = at.Sub(*session.AuthorizedEnd)
		}
		return s.violation(session, at, model.ReasonReservationExpired, overstay, facility.HourlyRate), nil
	}

	subscriptions, err := s.subscriptions.FindActiveForUserAtFacility(ctx, session.UserID, facility.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve backing subscriptions", err)
	}
	for _, sub := range subscriptions {
		if sub.Covers(at) {
			return nil, nil
		}
	}

	return s.violation(session, at, model.ReasonNoBacking, at.Sub(session.StartTime), facility.HourlyRate), nil
}

func (s *violationService) violation(session *model.ParkingSession, at time.Time, reason string, overstay time.Duration, rate float64) *model.Violation {
	return &model.Violation{
		SessionID:        session.ID,
		UserID:           session.UserID,
		FacilityID:       session.FacilityID,
		StartTime:        session.StartTime,
		DurationMinutes:  int(at.Sub(session.StartTime).Minutes()),
		Reason:           reason,
		EstimatedPenalty: s.calc.OverstayPenalty(overstay, rate),
	}
}

func (s *violationService) SweepAll(ctx context.Context) error {
	now := time.Now()

	facilities, err := s.facilities.ScanAll(ctx)
	if err != nil {
		return apperrors.Internal("Failed to list facilities", err)
	}

	total := 0
	for _, facility := range facilities {
		violations, err := s.scanFacility(ctx, facility, now)
		if err != nil {
			s.cfg.Log.Error("Violation scan failed", "facility_id", facility.ID, "error", err)
			continue
		}
		for _, v := range violations {
			s.publish(ctx, v)
		}
		total += len(violations)
	}

	s.cfg.Log.Info("Violation sweep finished", "facilities", len(facilities), "violations", total)
	return nil
}

func (s *violationService) publish(ctx context.Context, v *model.Violation) {
	err := s.publisher.Publish(ctx, events.TypeViolationDetected, v.FacilityID, events.ViolationEvent{
		SessionID:        v.SessionID,
		UserID:           v.UserID,
		FacilityID:       v.FacilityID,
		StartTime:        v.StartTime,
		DurationMinutes:  v.DurationMinutes,
		Reason:           v.Reason,
		EstimatedPenalty: v.EstimatedPenalty,
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to publish violation event", "session_id", v.SessionID, "error", err)
	}
}
